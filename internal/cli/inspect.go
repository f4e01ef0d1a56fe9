package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"loraverify/internal/description"
	"loraverify/internal/lora"
	"loraverify/internal/nn"
	"loraverify/internal/yolo"
)

type moduleRow struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	Params        int64  `json:"params"`
	Adapter       bool   `json:"adapter"`
	AdapterParams int64  `json:"adapter_params"`
}

func newInspectCmd(st *state) *cobra.Command {
	var adaptersOnly bool
	var depth int
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Build the model and print its module tree with parameter counts",
		Example: "  loraverify inspect --cfg models/cfg/esod/visdrone_yolov5m_lora.yaml --depth 2\n" +
			"  loraverify inspect --adapters-only --output json",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _, err := st.target()
			if err != nil {
				return err
			}
			desc, err := description.Load(path)
			if err != nil {
				return err
			}
			model, err := yolo.Build(desc)
			if err != nil {
				return err
			}
			rows := inspectRows(model.Root, adaptersOnly, depth)
			out := cmd.OutOrStdout()
			if strings.EqualFold(st.settings.Output, "json") {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "MODULE\tTYPE\tPARAMS")
			for _, r := range rows {
				name := r.Name
				if name == "" {
					name = "(root)"
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\n", name, r.Type, r.Params)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&adaptersOnly, "adapters-only", false, "List only adapter-augmented modules")
	cmd.Flags().IntVar(&depth, "depth", 0, "Maximum name depth to list (0 lists every module)")
	return cmd
}

// inspectRows lists modules in pre-order with subtree parameter counts.
func inspectRows(root *nn.Module, adaptersOnly bool, depth int) []moduleRow {
	var rows []moduleRow
	for name, m := range root.NamedModules() {
		if adaptersOnly && !m.Has(nn.CapAdapter) {
			continue
		}
		if depth > 0 && name != "" && strings.Count(name, ".")+1 > depth {
			continue
		}
		rows = append(rows, moduleRow{
			Name:          name,
			Type:          m.Type,
			Params:        nn.Count(m, nn.All),
			Adapter:       m.Has(nn.CapAdapter),
			AdapterParams: nn.Count(m, lora.IsAdapterParam),
		})
	}
	return rows
}

package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"loraverify/internal/registry"
)

const defaultListDir = "models/cfg/esod"

func newListCmd(st *state) *cobra.Command {
	var recursive bool
	cmd := &cobra.Command{
		Use:     "list [DIR]",
		Short:   "List model descriptions in a directory",
		Example: "  loraverify list\n  loraverify list ~/cfg -r --output json",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := defaultListDir
			if len(args) == 1 {
				dir = args[0]
			}
			entries, err := (&registry.Scanner{Recursive: recursive}).Scan(dir)
			if err != nil {
				return err
			}
			st.log.Debug().Str("dir", dir).Int("entries", len(entries)).Msg("scanned")
			out := cmd.OutOrStdout()
			if strings.EqualFold(st.settings.Output, "json") {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tADAPTERS\tRANK\tPATH")
			for _, e := range entries {
				adapters := fmt.Sprint(e.Adapters)
				if e.Error != "" {
					adapters = "error: " + e.Error
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", e.Name, adapters, e.Rank, e.Path)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Descend into subdirectories")
	return cmd
}

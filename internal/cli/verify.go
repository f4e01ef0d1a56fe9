package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"loraverify/internal/common/fsutil"
	"loraverify/internal/lora"
	"loraverify/internal/metrics"
	"loraverify/internal/verify"
)

func newVerifyCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Build the model, check adapter injection, freeze and check the trainable fraction",
		Example: "  loraverify verify\n" +
			"  loraverify verify --variant test\n" +
			"  loraverify verify --cfg models/cfg/esod/visdrone_yolov5m_lora.yaml --bias all --output json",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error { return runVerify(cmd, st) },
	}
}

// target resolves the description path and threshold from the variant preset
// and any explicit overrides.
func (st *state) target() (path string, threshold float64, err error) {
	variant, preset, err := verify.LookupVariant(st.settings.Variant)
	if err != nil {
		return "", 0, err
	}
	path, threshold = preset.DefaultPath, preset.Threshold
	if st.settings.Cfg != "" {
		path = st.settings.Cfg
	}
	if st.settings.Threshold != 0 {
		threshold = st.settings.Threshold
	}
	if path, err = fsutil.ExpandHome(path); err != nil {
		return "", 0, err
	}
	st.log.Debug().Str("variant", string(variant)).Str("path", path).Float64("threshold", threshold).Msg("target resolved")
	return path, threshold, nil
}

func runVerify(cmd *cobra.Command, st *state) error {
	path, threshold, err := st.target()
	if err != nil {
		return err
	}
	v, err := verify.New(verify.Options{
		Path:      path,
		Threshold: threshold,
		BiasMode:  lora.BiasMode(st.settings.Bias),
		Logger:    &st.log,
	})
	if err != nil {
		return err
	}
	start := time.Now()
	rep, runErr := v.Run()
	took := time.Since(start)

	out := cmd.OutOrStdout()
	if strings.EqualFold(st.settings.Output, "json") {
		err = rep.WriteJSON(out)
	} else {
		err = rep.WriteText(out, st.color(out))
	}
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if st.settings.MetricsFile != "" {
		metrics.Observe(rep.Payload(), took)
		if err := metrics.WriteTextfile(st.settings.MetricsFile); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
		st.log.Info().Str("path", st.settings.MetricsFile).Msg("metrics written")
	}
	if runErr != nil {
		return fmt.Errorf("%w: %s", ErrFailed, verify.KindOf(runErr))
	}
	return nil
}

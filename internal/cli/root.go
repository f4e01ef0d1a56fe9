// Package cli wires the loraverify command tree.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"loraverify/internal/config"
	"loraverify/internal/yolo"
)

// ErrFailed is returned when a run completed but a check failed. The report
// has already been written, so callers only need to exit non-zero.
var ErrFailed = errors.New("verification failed")

const defaultLogLevel = "warn"

// state is shared by every command of one tree.
type state struct {
	settings   config.Config
	flags      config.Config
	configFile string
	log        zerolog.Logger
	lookupEnv  func(string) (string, bool)
}

// NewRootCmd builds the command tree. Running it without a subcommand verifies.
func NewRootCmd() *cobra.Command { return newRootCmd(os.LookupEnv) }

func newRootCmd(lookupEnv func(string) (string, bool)) *cobra.Command {
	st := &state{lookupEnv: lookupEnv, log: zerolog.Nop()}
	root := &cobra.Command{
		Use:           "loraverify",
		Short:         "Verify low-rank adapter injection and freezing for a model description",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          func(cmd *cobra.Command, args []string) error { return runVerify(cmd, st) },
	}

	pf := root.PersistentFlags()
	pf.StringVar(&st.flags.Cfg, "cfg", "", "Model description file (defaults LORAVERIFY_CFG or the variant's path)")
	pf.StringVar(&st.flags.Variant, "variant", "", "Preset: integration (10%) or test (5%) (defaults LORAVERIFY_VARIANT or integration)")
	pf.Float64Var(&st.flags.Threshold, "threshold", 0, "Upper bound on the trainable fraction, overrides the variant preset")
	pf.StringVar(&st.flags.Bias, "bias", "", "Bias policy when freezing: none|all|adapter_only")
	pf.StringVar(&st.flags.Output, "output", "", "Report format: text|json")
	pf.BoolVar(&st.flags.NoColor, "no-color", false, "Disable colored output (also NO_COLOR)")
	pf.StringVar(&st.flags.MetricsFile, "metrics-file", "", "Write Prometheus metrics in textfile format to this path")
	pf.StringVar(&st.flags.LogLevel, "log-level", "", "Log level: debug|info|warn|error (defaults LORAVERIFY_LOG_LEVEL or warn)")
	pf.StringVar(&st.configFile, "config", "", "Settings file (.yaml|.yml|.json|.toml)")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return st.resolve(cmd)
	}

	root.AddCommand(newVerifyCmd(st), newInspectCmd(st), newListCmd(st), newCompletionCmd(root))
	return root
}

// resolve merges settings with precedence flags > settings file > env, then
// installs the logger.
func (st *state) resolve(cmd *cobra.Command) error {
	s := config.FromEnv(st.lookupEnv)
	if st.configFile != "" {
		fileCfg, err := config.Load(st.configFile)
		if err != nil {
			return fmt.Errorf("load settings: %w", err)
		}
		s = s.Overlay(fileCfg)
	}
	var over config.Config
	fs := cmd.Flags()
	if fs.Changed("cfg") {
		over.Cfg = st.flags.Cfg
	}
	if fs.Changed("variant") {
		over.Variant = st.flags.Variant
	}
	if fs.Changed("threshold") {
		over.Threshold = st.flags.Threshold
		if over.Threshold <= 0 || over.Threshold > 1 {
			return fmt.Errorf("--threshold must be in (0,1], got %g", over.Threshold)
		}
	}
	if fs.Changed("bias") {
		over.Bias = st.flags.Bias
	}
	if fs.Changed("output") {
		over.Output = st.flags.Output
	}
	if fs.Changed("no-color") {
		over.NoColor = st.flags.NoColor
	}
	if fs.Changed("metrics-file") {
		over.MetricsFile = st.flags.MetricsFile
	}
	if fs.Changed("log-level") {
		over.LogLevel = st.flags.LogLevel
	}
	s = s.Overlay(over)
	if err := s.Validate(); err != nil {
		return err
	}
	if s.LogLevel == "" {
		s.LogLevel = defaultLogLevel
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(s.LogLevel))
	if err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	st.settings = s
	st.log = zerolog.New(zerolog.ConsoleWriter{
		Out:        cmd.ErrOrStderr(),
		TimeFormat: time.RFC3339,
		NoColor:    s.NoColor || !isTerminal(cmd.ErrOrStderr()),
	}).Level(lvl).With().Timestamp().Logger()
	yolo.SetLogger(st.log)
	return nil
}

// color reports whether w should receive escape sequences.
func (st *state) color(w io.Writer) bool {
	return !st.settings.NoColor && isTerminal(w)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

func newCompletionCmd(root *cobra.Command) *cobra.Command {
	completionCmd := &cobra.Command{Use: "completion", Short: "Generate the autocompletion script for the specified shell"}
	completionCmd.AddCommand(&cobra.Command{Use: "bash", Short: "Bash completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenBashCompletion(cmd.OutOrStdout()) }})
	completionCmd.AddCommand(&cobra.Command{Use: "zsh", Short: "Zsh completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenZshCompletion(cmd.OutOrStdout()) }})
	completionCmd.AddCommand(&cobra.Command{Use: "fish", Short: "Fish completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenFishCompletion(cmd.OutOrStdout(), true) }})
	completionCmd.AddCommand(&cobra.Command{Use: "powershell", Short: "PowerShell completion", RunE: func(cmd *cobra.Command, args []string) error {
		return root.GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
	}})
	return completionCmd
}

// Execute runs the command tree with os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

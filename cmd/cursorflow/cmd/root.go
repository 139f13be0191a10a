package cmd

import (
	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/cursorflow/internal/config"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string
	noColor   bool
	quiet     bool

	// Version info - set via SetVersion()
	appVersion string
	appCommit  string
	appDate    string
)

var rootCmd = &cobra.Command{
	Use:   "cursorflow",
	Short: "Run multiple AI coding agents across git worktrees in parallel lanes",
	Long: `cursorflow drives a set of independent "lanes" of AI coding agent tasks,
each in its own git worktree, resolving cross-lane dependencies, detecting
stalled agents and restarting them, and surfacing every lane's state and
log output as it runs.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func SetVersion(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

// exitCode carries the §7 process exit code out of run/resume's RunE back
// to main, since cobra itself only distinguishes "error" from "no error".
var exitCode int

// ExitCode returns the exit code the last run/resume invocation computed.
// Zero unless a run or resume subcommand set it.
func ExitCode() int {
	return exitCode
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: .cursorflow/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level (debug, info, warn, error); overrides config")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"log format (auto, text, json); overrides config")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false,
		"disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"suppress non-essential output")
}

// loadRunConfig resolves the run config through internal/config.Loader's
// usual precedence order (flags bound onto viper, env, --config or
// .cursorflow/config.yaml, built-in defaults), then applies the two
// logging overrides every subcommand accepts directly.
func loadRunConfig() (*config.RunConfig, error) {
	loader := config.NewLoader()
	if cfgFile != "" {
		loader = loader.WithConfigFile(cfgFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	return cfg, nil
}

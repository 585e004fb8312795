// Package cli implements the custodian command-line interface: the daemon
// entry point (serve) and a client for every daemon operation.
//
// This package uses global variables to manage CLI state, which is the standard
// pattern for Cobra-based CLI applications. The globals are initialized in
// PersistentPreRunE and cleaned up in PersistentPostRun.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/mrz1836/custodian/internal/config"
	"github.com/mrz1836/custodian/internal/output"
	custerr "github.com/mrz1836/custodian/pkg/errors"
)

// Command group IDs.
const (
	groupDaemon  = "daemon"
	groupCustody = "custody"
)

var (
	// Global flags
	homeDir      string
	outputFormat string
	verbose      bool
	endpointFlag string
	tokenFlag    string

	// Global state initialized in PersistentPreRunE
	cfg       *config.Config
	logger    *config.Logger
	formatter *output.Formatter
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "custodian",
	Short: "A local key-custody daemon and client",
	Long: `Custodian keeps ed25519 signing keys in password-protected wallets and
signs transactions on request, without ever handing the keys out.

Run the daemon with "custodian serve". Every other command talks to a running
daemon over its local HTTP API.`,
	Example: `  custodian serve
  custodian wallet create main
  custodian handle init main
  custodian key generate --handle cust_hdl_...`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return initGlobals(cmd)
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		cleanup()
	},
}

// Execute runs the root command.
func Execute() error {
	enrichHelp()
	err := rootCmd.Execute()
	if err != nil {
		if formatter != nil {
			_ = output.FormatError(os.Stderr, err, formatter.Format())
		} else {
			_ = output.FormatError(os.Stderr, err, output.FormatText)
		}
		return err
	}
	return nil
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	return custerr.ExitCode(err)
}

// initGlobals loads configuration (file, then environment, then flags) and
// builds the logger and formatter.
func initGlobals(cmd *cobra.Command) error {
	home := homeDir
	if home == "" {
		home = os.Getenv(config.EnvHome)
	}
	if home == "" {
		home = config.DefaultHome()
	}
	home = config.ExpandHome(home)

	var err error
	cfg, err = config.Load(config.Path(home))
	if err != nil {
		if !custerr.Is(err, custerr.ErrConfigNotFound) {
			return err
		}
		cfg = config.Defaults()
	}
	cfg.Home = home

	config.ApplyEnvironment(cfg)

	if homeDir != "" {
		cfg.Home = homeDir
	}
	if verbose {
		cfg.Output.Verbose = true
	}
	if outputFormat != "" && outputFormat != "auto" {
		cfg.Output.DefaultFormat = outputFormat
	}

	logger, err = config.NewLogger(
		config.ParseLogLevel(cfg.GetLoggingLevel()),
		cfg.GetLoggingFile(),
		config.WithRotation(cfg.Logging.MaxSizeMB, cfg.Logging.MaxBackups),
	)
	if err != nil {
		logger = config.NullLogger()
	}
	// Verbose from any source raises the log level without rewriting the
	// configured one.
	if cfg.IsVerbose() {
		logger.SetLevel(config.LogLevelDebug)
	}

	w := cmd.OutOrStdout()
	formatter = output.NewFormatter(output.DetectFormat(w, output.ParseFormat(cfg.GetOutputFormat())), w)
	return nil
}

// cleanup releases resources.
func cleanup() {
	if logger != nil {
		_ = logger.Close()
	}
}

// Config returns the global configuration.
func Config() *config.Config {
	return cfg
}

// Logger returns the global logger.
func Logger() *config.Logger {
	return logger
}

// Formatter returns the global output formatter.
func Formatter() *output.Formatter {
	return formatter
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for flag registration
func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: groupDaemon, Title: "Daemon:"},
		&cobra.Group{ID: groupCustody, Title: "Custody:"},
	)
	rootCmd.SetHelpCommandGroupID(groupDaemon)

	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "custodian data directory (default: ~/.custodian)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "auto", "output format: text, json, auto")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&endpointFlag, "endpoint", "", "daemon address (default: from <home>/custodian.net or config)")
	rootCmd.PersistentFlags().StringVar(&tokenFlag, "token", "", "daemon API token (default: from <home>/custodian.token or config)")
}

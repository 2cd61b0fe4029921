// Package cli implements the tether command-line interface.
//
// This package uses global variables to manage CLI state, which is the standard
// pattern for Cobra-based CLI applications. The globals are initialized in
// PersistentPreRunE and cleaned up in PersistentPostRun.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
package cli

import (
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/tether/internal/config"
	"github.com/mrz1836/tether/internal/metrics"
	"github.com/mrz1836/tether/internal/output"
	"github.com/mrz1836/tether/internal/report"
	"github.com/mrz1836/tether/internal/version"
	tethererr "github.com/mrz1836/tether/pkg/errors"
)

// reportFlushTimeout bounds how long exit waits for queued error reports.
const reportFlushTimeout = 2 * time.Second

var (
	// Global flags
	homeDir      string
	outputFormat string
	verbose      bool

	// Global state initialized in PersistentPreRunE
	cfg       *config.Config
	logger    *config.Logger
	formatter *output.Formatter
	reporter  report.Reporter

	helpOnce sync.Once
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "tether",
	Short: "Connect to local and remote Ethereum wallets",
	Long: `Tether connects to an Ethereum wallet and keeps its account, chain and
connection status up to date.

A local wallet is reached over its JSON-RPC endpoint (MetaMask provider API).
A remote wallet is paired through a WalletConnect bridge by scanning a QR code.

Example:
  tether connect --provider metamask
  tether connect --provider walletconnect --switch-chain 8668 --watch
  tether serve`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return initGlobals()
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		cleanup()
	},
}

// Execute runs the root command.
func Execute() error {
	helpOnce.Do(func() { walkCommands(rootCmd, enrichParentLong) })

	err := rootCmd.Execute()
	if err != nil {
		_ = output.FormatError(os.Stderr, err, errorFormat(formatter))
		return err
	}
	return nil
}

// errorFormat is the format for a failure, text before globals exist.
func errorFormat(f FormatProvider) output.Format {
	if f == nil || f == (*output.Formatter)(nil) {
		return output.FormatText
	}
	return f.Format()
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	return tethererr.ExitCode(err)
}

// initGlobals initializes global configuration, logger, reporter and formatter.
func initGlobals() error {
	home := homeDir
	if home == "" {
		home = os.Getenv(config.EnvHome)
	}
	if home == "" {
		home = config.DefaultHome()
	}

	var err error
	cfg, err = config.Load(config.Path(home))
	switch {
	case os.IsNotExist(err):
		cfg = config.Defaults()
		cfg.Home = home
	case err != nil:
		return err
	}

	config.ApplyEnvironment(cfg)

	if homeDir != "" {
		cfg.Home = homeDir
	}
	if verbose {
		cfg.Output.Verbose = true
		cfg.Logging.Level = "debug"
	}
	if outputFormat != "" && outputFormat != "auto" {
		cfg.Output.DefaultFormat = outputFormat
	}

	if err = cfg.Validate(); err != nil {
		return err
	}

	logger = newLogger(cfg)

	reporter, err = report.New(report.Options{
		DSN:         cfg.Reporting.SentryDSN,
		Environment: cfg.Reporting.Environment,
		Release:     version.Get().Version,
	})
	if err != nil {
		logger.Warn("error reporting disabled: %v", err)
		reporter = report.Nop{}
	}

	formatter = newFormatter(cfg)

	return nil
}

// newLogger logs to stderr in verbose mode and to the log file otherwise.
func newLogger(c ConfigProvider) *config.Logger {
	level := config.ParseLogLevel(c.GetLoggingLevel())
	if c.IsVerbose() {
		return config.NewWriterLogger(level, os.Stderr)
	}
	l, err := config.NewLogger(level, c.GetLoggingFile())
	if err != nil {
		return config.NullLogger()
	}
	return l
}

func newFormatter(c ConfigProvider) *output.Formatter {
	format := output.DetectFormat(os.Stdout, output.ParseFormat(c.GetOutputFormat()))
	return output.NewFormatter(format, os.Stdout)
}

// cleanup flushes queued reports and releases the log file.
func cleanup() {
	if reporter != nil {
		reporter.Flush(reportFlushTimeout)
	}
	closeLog(logger)
}

func closeLog(l LogWriter) {
	if l == nil || l == (*config.Logger)(nil) {
		return
	}
	_ = l.Close()
}

// commandContext bundles the globals for a command run.
func commandContext() *CommandContext {
	return NewCommandContext(cfg, logger, formatter).
		WithReporter(reporter).
		WithMetrics(metrics.Global)
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
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "tether data directory (default: ~/.tether)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "auto", "output format: text, json, yaml, auto")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr at debug level")
}

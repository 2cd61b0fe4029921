package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mrz1836/tether/internal/config"
	"github.com/mrz1836/tether/internal/output"
	tethererr "github.com/mrz1836/tether/pkg/errors"
)

// configCmd is the parent command for configuration operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View and initialize tether configuration.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration",
	Long: `Create a default configuration file at ~/.tether/config.yaml.

An existing file is kept unless --force is given.

Example:
  tether config init
  tether config init --force`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return initConfigFile(cmd.OutOrStdout(), cfg.Home, configForce)
	},
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Display the configuration after environment overrides and flags.

Example:
  tether config show
  tether config show -o yaml`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return showConfig(formatter, cfg)
	},
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Long:  `Print where tether reads its configuration, honoring --home and TETHER_HOME.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), config.Path(cfg.Home))
		return err
	},
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var configForce bool

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd, configPathCmd)

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite existing configuration")
}

func initConfigFile(w io.Writer, home string, force bool) error {
	path := config.Path(home)
	if _, err := os.Stat(path); err == nil && !force {
		return tethererr.WithSuggestion(
			tethererr.WithDetails(tethererr.ErrInvalidInput, map[string]string{"path": path}),
			"configuration already exists; use --force to overwrite",
		)
	}

	def := config.Defaults()
	def.Home = home
	if err := config.Save(def, path); err != nil {
		return tethererr.Wrap(err, "writing %s", path)
	}

	output.Success(w, "Configuration initialized at %s", path)
	_, err := fmt.Fprintln(w, `
Edit this file to configure:
  - local.rpc: JSON-RPC endpoint of the local wallet
  - bridge.url: WalletConnect bridge server
  - bridge.connect_timeout: how long to wait for a remote wallet
  - server.listen: address of 'tether serve'`)
	return err
}

func showConfig(f *output.Formatter, c *config.Config) error {
	if f.IsMachine() {
		redacted := *c
		if redacted.Reporting.SentryDSN != "" {
			redacted.Reporting.SentryDSN = "***"
		}
		return f.Print(&redacted)
	}

	table := output.NewTable("Key", "Value")
	table.SetNoHeader(true)
	table.AddRow("home", c.Home)
	table.AddRow("local.rpc", config.SanitizeURL(c.Local.RPC))
	table.AddRow("local.poll_interval", c.Local.PollInterval.String())
	table.AddRow("local.init_retries", strconv.Itoa(c.Local.InitRetries))
	table.AddRow("bridge.url", config.SanitizeURL(c.Bridge.URL))
	table.AddRow("bridge.chain_id", strconv.FormatUint(c.Bridge.ChainID, 10))
	table.AddRow("bridge.connect_timeout", c.Bridge.ConnectTimeout.String())
	table.AddRow("bridge.fail_on_close", strconv.FormatBool(c.Bridge.FailOnClose))
	table.AddRow("bridge.app.name", c.Bridge.App.Name)
	table.AddRow("server.listen", c.Server.Listen)
	table.AddRow("server.rate_limit", strconv.FormatFloat(c.Server.RateLimit, 'f', -1, 64))
	table.AddRow("server.rate_burst", strconv.Itoa(c.Server.RateBurst))
	table.AddRow("output.default_format", c.Output.DefaultFormat)
	table.AddRow("logging.level", c.Logging.Level)
	table.AddRow("logging.file", c.Logging.File)
	table.AddRow("reporting.sentry", strconv.FormatBool(c.Reporting.SentryDSN != ""))
	return table.Render(f.Writer())
}

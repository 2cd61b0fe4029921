// Package config provides configuration management for Tether.
package config

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	tethererr "github.com/mrz1836/tether/pkg/errors"
)

// Config represents the application configuration.
type Config struct {
	Version   int             `yaml:"version"`
	Home      string          `yaml:"home"`
	Local     LocalConfig     `yaml:"local"`
	Bridge    BridgeConfig    `yaml:"bridge"`
	Server    ServerConfig    `yaml:"server"`
	Output    OutputConfig    `yaml:"output"`
	Logging   LoggingConfig   `yaml:"logging"`
	Reporting ReportingConfig `yaml:"reporting"`
}

// LocalConfig defines the local wallet provider endpoint.
type LocalConfig struct {
	RPC          string        `yaml:"rpc"`
	PollInterval time.Duration `yaml:"poll_interval"`
	InitRetries  int           `yaml:"init_retries"`
}

// BridgeConfig defines the WalletConnect bridge session settings.
type BridgeConfig struct {
	URL            string        `yaml:"url"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	QRPath         string        `yaml:"qr_path,omitempty"`
	ChainID        uint64        `yaml:"chain_id"`
	App            AppMetadata   `yaml:"app"`

	// FailOnClose ends a connect when the wallet drops the pairing before
	// approving instead of waiting for a new approval.
	FailOnClose bool `yaml:"fail_on_close"`
}

// AppMetadata describes this application to the remote wallet.
type AppMetadata struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	URL         string   `yaml:"url"`
	Icons       []string `yaml:"icons,omitempty"`
}

// ServerConfig defines the HTTP control surface settings.
type ServerConfig struct {
	Listen    string  `yaml:"listen"`
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
}

// OutputConfig defines output formatting settings.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format"`
	Color         string `yaml:"color"`
	Verbose       bool   `yaml:"verbose"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// ReportingConfig defines remote error reporting settings.
type ReportingConfig struct {
	SentryDSN   string `yaml:"sentry_dsn,omitempty"`
	Environment string `yaml:"environment"`
}

// Load reads configuration from the specified file.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config file path is from validated user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, tethererr.Wrap(tethererr.ErrConfigInvalid, "parsing %s: %v", path, err)
	}

	return cfg, nil
}

// Save writes configuration to the specified file.
func Save(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// Path returns the default config file path.
func Path(home string) string {
	return filepath.Join(home, "config.yaml")
}

// Validate checks that endpoints and durations are usable.
func (c *Config) Validate() error {
	if c.Local.RPC != "" && !validEndpoint(c.Local.RPC) {
		return tethererr.WithDetails(tethererr.ErrConfigInvalid, map[string]string{"local.rpc": c.Local.RPC})
	}
	if u, err := url.Parse(c.Bridge.URL); err != nil || (u.Scheme != "ws" && u.Scheme != "wss" && u.Scheme != "http" && u.Scheme != "https") {
		return tethererr.WithDetails(tethererr.ErrConfigInvalid, map[string]string{"bridge.url": c.Bridge.URL})
	}
	if c.Bridge.ConnectTimeout < 0 {
		return tethererr.WithDetails(tethererr.ErrConfigInvalid, map[string]string{"bridge.connect_timeout": c.Bridge.ConnectTimeout.String()})
	}
	if c.Local.PollInterval <= 0 {
		return tethererr.WithDetails(tethererr.ErrConfigInvalid, map[string]string{"local.poll_interval": c.Local.PollInterval.String()})
	}
	if c.Server.RateLimit <= 0 || c.Server.RateBurst <= 0 {
		return tethererr.WithSuggestion(
			tethererr.WithDetails(tethererr.ErrConfigInvalid, map[string]string{"server.rate_limit": "must be positive"}),
			"set server.rate_limit and server.rate_burst above zero",
		)
	}
	return nil
}

// validEndpoint accepts ws, http and IPC socket paths.
func validEndpoint(endpoint string) bool {
	if strings.HasPrefix(endpoint, "/") || strings.HasSuffix(endpoint, ".ipc") {
		return true
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return false
	}
	switch u.Scheme {
	case "ws", "wss", "http", "https":
		return true
	default:
		return false
	}
}

// GetHome returns the tether home directory path.
func (c *Config) GetHome() string {
	return c.Home
}

// GetLoggingLevel returns the configured logging level.
func (c *Config) GetLoggingLevel() string {
	return c.Logging.Level
}

// GetLoggingFile returns the configured log file path.
func (c *Config) GetLoggingFile() string {
	return c.Logging.File
}

// GetOutputFormat returns the default output format.
func (c *Config) GetOutputFormat() string {
	return c.Output.DefaultFormat
}

// IsVerbose returns true if verbose output is enabled.
func (c *Config) IsVerbose() bool {
	return c.Output.Verbose
}

// DefaultHome returns the default tether home directory.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tether"
	}
	return filepath.Join(home, ".tether")
}

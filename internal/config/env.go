package config

import (
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Environment variable names.
const (
	EnvHome           = "TETHER_HOME"
	EnvWalletRPC      = "TETHER_WALLET_RPC"
	EnvBridgeURL      = "TETHER_BRIDGE_URL"
	EnvOutputFormat   = "TETHER_OUTPUT_FORMAT"
	EnvVerbose        = "TETHER_VERBOSE"
	EnvLogLevel       = "TETHER_LOG_LEVEL"
	EnvSentryDSN      = "TETHER_SENTRY_DSN"
	EnvConnectTimeout = "TETHER_CONNECT_TIMEOUT"
	EnvNoColor        = "NO_COLOR"
)

// ApplyEnvironment applies environment variable overrides to the configuration.
//
//nolint:gocognit,gocyclo // Environment variable overrides require sequential checks
func ApplyEnvironment(cfg *Config) {
	if v := os.Getenv(EnvHome); v != "" {
		cfg.Home = v
	}

	if v := os.Getenv(EnvWalletRPC); v != "" {
		cfg.Local.RPC = SanitizeURL(v)
	}

	if v := os.Getenv(EnvBridgeURL); v != "" {
		cfg.Bridge.URL = SanitizeURL(v)
	}

	if v := os.Getenv(EnvOutputFormat); v != "" {
		cfg.Output.DefaultFormat = strings.ToLower(v)
	}

	if v := os.Getenv(EnvVerbose); v != "" {
		cfg.Output.Verbose = parseBool(v)
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}

	if v := os.Getenv(EnvSentryDSN); v != "" {
		cfg.Reporting.SentryDSN = strings.TrimSpace(v)
	}

	// TETHER_CONNECT_TIMEOUT accepts a Go duration ("90s") or whole seconds
	if v := os.Getenv(EnvConnectTimeout); v != "" {
		if d, ok := parseDuration(v); ok {
			cfg.Bridge.ConnectTimeout = d
		}
	}

	if _, ok := os.LookupEnv(EnvNoColor); ok {
		cfg.Output.Color = "never"
	}
}

// parseBool parses a boolean string value.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "1" || s == "true" || s == "yes" || s == "on" {
		return true
	}
	b, _ := strconv.ParseBool(s)
	return b
}

func parseDuration(s string) (time.Duration, bool) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.Atoi(s); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second, true
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, false
	}
	return d, true
}

// SanitizeURL cleans a URL string by removing whitespace and control characters.
// This is useful for cleaning user-provided endpoints that may contain copy-paste artifacts.
func SanitizeURL(raw string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return -1
		}
		return r
	}, raw)
}

package config

import "time"

// DefaultLocalRPC is the default endpoint of a locally running wallet provider.
const DefaultLocalRPC = "ws://127.0.0.1:8546"

// DefaultBridgeURL is the default WalletConnect v1 bridge.
const DefaultBridgeURL = "wss://bridge.walletconnect.org"

// DefaultPollInterval is how often HTTP-only local providers are polled for changes.
const DefaultPollInterval = 2 * time.Second

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		Version: 1,
		Home:    "~/.tether",
		Local: LocalConfig{
			RPC:          DefaultLocalRPC,
			PollInterval: DefaultPollInterval,
			InitRetries:  3,
		},
		Bridge: BridgeConfig{
			URL:            DefaultBridgeURL,
			ConnectTimeout: 0, // wait for the wallet indefinitely
			FailOnClose:    true,
			ChainID:        1,
			App: AppMetadata{
				Name:        "Tether",
				Description: "Wallet connection layer",
				URL:         "https://github.com/mrz1836/tether",
			},
		},
		Server: ServerConfig{
			Listen:    "127.0.0.1:8089",
			RateLimit: 5,
			RateBurst: 10,
		},
		Output: OutputConfig{
			DefaultFormat: "auto",
			Color:         "auto",
			Verbose:       false,
		},
		Logging: LoggingConfig{
			Level: "error",
			File:  "~/.tether/tether.log",
		},
		Reporting: ReportingConfig{
			Environment: "production",
		},
	}
}

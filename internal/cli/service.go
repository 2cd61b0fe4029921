package cli

import (
	"context"

	"github.com/mrz1836/tether/internal/bridge"
	"github.com/mrz1836/tether/internal/config"
	"github.com/mrz1836/tether/internal/connection"
	"github.com/mrz1836/tether/internal/connection/metamask"
	"github.com/mrz1836/tether/internal/connection/walletconnect"
	"github.com/mrz1836/tether/internal/metrics"
	"github.com/mrz1836/tether/internal/report"
	"github.com/mrz1836/tether/internal/retry"
)

// ServiceDeps are the shared collaborators handed to every adapter.
type ServiceDeps struct {
	Logger   *config.Logger
	Reporter report.Reporter
	Metrics  *metrics.Metrics
	// Display shows WalletConnect pairing URIs to the user.
	Display func(uri string) error
}

// NewDefaultService builds a connection service with the MetaMask and
// WalletConnect adapters configured from c. Each creator builds a fresh
// adapter per connect attempt.
func NewDefaultService(c *config.Config, deps ServiceDeps) *connection.Service {
	if deps.Logger == nil {
		deps.Logger = config.NullLogger()
	}
	opts := connection.Options{
		Logger:   deps.Logger,
		Reporter: deps.Reporter,
		Metrics:  deps.Metrics,
	}

	svc := connection.NewService(deps.Logger, deps.Metrics)
	svc.Register(connection.MetaMask, func(context.Context) (connection.Connection, error) {
		sdk, err := metamask.NewRPCSDK(localOptions(c, deps.Logger))
		if err != nil {
			return nil, err
		}
		return metamask.New(sdk, opts), nil
	})
	svc.Register(connection.WalletConnect, func(context.Context) (connection.Connection, error) {
		modal, err := bridge.New(bridgeOptions(c, deps))
		if err != nil {
			return nil, err
		}
		return walletconnect.New(modal, walletconnect.Options{
			Options:        opts,
			ConnectTimeout: c.Bridge.ConnectTimeout,
			FailOnClose:    c.Bridge.FailOnClose,
		}), nil
	})
	return svc
}

func localOptions(c *config.Config, log *config.Logger) metamask.RPCSDKOptions {
	r := retry.DefaultConfig()
	r.MaxAttempts = c.Local.InitRetries + 1
	return metamask.RPCSDKOptions{
		Endpoint:     c.Local.RPC,
		PollInterval: c.Local.PollInterval,
		Retry:        r,
		Logger:       log,
	}
}

func bridgeOptions(c *config.Config, deps ServiceDeps) bridge.Options {
	app := c.Bridge.App
	return bridge.Options{
		URL: c.Bridge.URL,
		App: bridge.PeerMeta{
			Name:        app.Name,
			Description: app.Description,
			URL:         app.URL,
			Icons:       app.Icons,
		},
		ChainID: c.Bridge.ChainID,
		Display: deps.Display,
		QRPath:  c.Bridge.QRPath,
		Logger:  deps.Logger,
	}
}

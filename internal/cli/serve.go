package cli

import (
	"github.com/spf13/cobra"

	"github.com/mrz1836/tether/internal/server"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP control server",
	Long: `Serve the connection service over HTTP until interrupted.

Endpoints:
  POST /v1/connect        {"provider":"metamask"}
  POST /v1/disconnect
  POST /v1/switch-chain   {"chainId":8668}
  GET  /v1/state
  GET  /v1/chains
  GET  /v1/events         websocket feed of state changes
  GET  /metrics           Prometheus metrics

Example:
  tether serve --listen 127.0.0.1:8089`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if serveListen != "" {
			cfg.Server.Listen = serveListen
		}
		ctx, stop := signalContext(cmd)
		defer stop()

		cc := commandContext()
		return newServer(cc).ListenAndServe(ctx)
	},
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var serveListen string

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address (default from server.listen)")
}

func newServer(cc *CommandContext) *server.Server {
	return server.New(cc.ConnectionService(), server.Options{
		Listen:    cc.Config.Server.Listen,
		RateLimit: cc.Config.Server.RateLimit,
		RateBurst: cc.Config.Server.RateBurst,
		Logger:    cc.Logger,
		Metrics:   cc.Metrics,
	})
}

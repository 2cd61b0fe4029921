package cli

import (
	"io"
	"os"

	"github.com/mrz1836/tether/internal/config"
	"github.com/mrz1836/tether/internal/connection"
	"github.com/mrz1836/tether/internal/metrics"
	"github.com/mrz1836/tether/internal/output"
	"github.com/mrz1836/tether/internal/report"
)

// CommandContext holds dependencies for CLI commands.
type CommandContext struct {
	Config    *config.Config
	Logger    *config.Logger
	Formatter *output.Formatter
	Reporter  report.Reporter
	Metrics   *metrics.Metrics
	Service   *connection.Service
	// Messages receives progress lines and pairing codes, keeping stdout
	// clean for machine output.
	Messages io.Writer
}

// NewCommandContext creates a context with the given dependencies.
func NewCommandContext(
	cfg *config.Config,
	logger *config.Logger,
	formatter *output.Formatter,
) *CommandContext {
	if logger == nil {
		logger = config.NullLogger()
	}
	return &CommandContext{
		Config:    cfg,
		Logger:    logger,
		Formatter: formatter,
		Reporter:  report.Nop{},
		Metrics:   metrics.Global,
		Messages:  os.Stderr,
	}
}

// WithReporter sets the error reporter.
func (c *CommandContext) WithReporter(r report.Reporter) *CommandContext {
	if r != nil {
		c.Reporter = r
	}
	return c
}

// WithMetrics sets the metrics instance.
func (c *CommandContext) WithMetrics(m *metrics.Metrics) *CommandContext {
	if m != nil {
		c.Metrics = m
	}
	return c
}

// WithService sets the connection service.
func (c *CommandContext) WithService(s *connection.Service) *CommandContext {
	c.Service = s
	return c
}

// ConnectionService returns the configured service, building the default
// one on first use.
func (c *CommandContext) ConnectionService() *connection.Service {
	if c.Service == nil {
		c.Service = NewDefaultService(c.Config, ServiceDeps{
			Logger:   c.Logger,
			Reporter: c.Reporter,
			Metrics:  c.Metrics,
			Display: func(uri string) error {
				return output.Pairing(c.Messages, uri)
			},
		})
	}
	return c.Service
}

package cli

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mrz1836/tether/internal/config"
	"github.com/mrz1836/tether/internal/connection"
	"github.com/mrz1836/tether/internal/metrics"
	"github.com/mrz1836/tether/internal/output"
	"github.com/mrz1836/tether/internal/report"
)

func TestNewCommandContext_Defaults(t *testing.T) {
	t.Parallel()
	cfg := config.Defaults()
	f := output.NewFormatter(output.FormatText, &bytes.Buffer{})

	cc := NewCommandContext(cfg, nil, f)

	assert.Same(t, cfg, cc.Config)
	assert.NotNil(t, cc.Logger)
	assert.Same(t, f, cc.Formatter)
	assert.Equal(t, report.Nop{}, cc.Reporter)
	assert.Same(t, metrics.Global, cc.Metrics)
	assert.Equal(t, os.Stderr, cc.Messages)
	assert.Nil(t, cc.Service)
}

func TestCommandContext_Builders(t *testing.T) {
	t.Parallel()
	m := metrics.New()
	svc := connection.NewService(nil, m)

	cc := NewCommandContext(config.Defaults(), nil, nil).
		WithReporter(nil).
		WithMetrics(nil)
	assert.Equal(t, report.Nop{}, cc.Reporter, "nil keeps the default")
	assert.Same(t, metrics.Global, cc.Metrics)

	cc = cc.WithMetrics(m).WithService(svc)
	assert.Same(t, m, cc.Metrics)
	assert.Same(t, svc, cc.ConnectionService())
}

func TestCommandContext_ConnectionServiceIsBuiltOnce(t *testing.T) {
	t.Parallel()
	cc := NewCommandContext(config.Defaults(), nil, nil).WithMetrics(metrics.New())

	svc := cc.ConnectionService()
	assert.NotNil(t, svc)
	assert.Same(t, svc, cc.ConnectionService())
	assert.True(t, svc.IsSupported(connection.MetaMask))
	assert.True(t, svc.IsSupported(connection.WalletConnect))
}

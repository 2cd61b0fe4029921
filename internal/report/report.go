// Package report forwards unexpected wallet failures to a remote error tracker.
package report

import (
	"time"

	"github.com/getsentry/sentry-go"

	tethererr "github.com/mrz1836/tether/pkg/errors"
)

// Reporter receives errors that were swallowed into a response envelope.
type Reporter interface {
	Report(err error)
	Flush(timeout time.Duration) bool
}

// Nop discards every report.
type Nop struct{}

// Report does nothing.
func (Nop) Report(error) {}

// Flush reports success immediately.
func (Nop) Flush(time.Duration) bool { return true }

// Options configures the Sentry reporter.
type Options struct {
	DSN         string
	Environment string
	Release     string
}

// Sentry reports errors through an isolated sentry hub.
type Sentry struct {
	hub *sentry.Hub
}

// New returns a Sentry reporter when a DSN is configured and Nop otherwise.
func New(opts Options) (Reporter, error) {
	if opts.DSN == "" {
		return Nop{}, nil
	}
	return NewSentry(opts)
}

// NewSentry creates a reporter bound to its own sentry client.
func NewSentry(opts Options) (*Sentry, error) {
	return newSentry(sentry.ClientOptions{
		Dsn:              opts.DSN,
		Environment:      opts.Environment,
		Release:          opts.Release,
		AttachStacktrace: true,
	})
}

func newSentry(opts sentry.ClientOptions) (*Sentry, error) {
	client, err := sentry.NewClient(opts)
	if err != nil {
		return nil, tethererr.Wrap(tethererr.ErrConfigInvalid, "sentry: %v", err)
	}
	return &Sentry{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

// Report captures err tagged with its tether error code.
func (s *Sentry) Report(err error) {
	if err == nil {
		return
	}
	s.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("code", tethererr.Code(err))
		s.hub.CaptureException(err)
	})
}

// Flush waits for buffered events to be delivered.
func (s *Sentry) Flush(timeout time.Duration) bool {
	return s.hub.Flush(timeout)
}

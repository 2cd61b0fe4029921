package connection

import (
	"context"
	"errors"
	"sync"

	"github.com/mrz1836/tether/internal/config"
	"github.com/mrz1836/tether/internal/metrics"
	"github.com/mrz1836/tether/internal/report"
)

// Status is the lifecycle state of a connection.
type Status int

// Connection statuses. Connecting is only held inside Connect.
const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusDisconnected:
		return "disconnected"
	default:
		return "disconnected"
	}
}

// Stream names used in logs and metrics.
const (
	StreamChain     = "chain"
	StreamAccount   = "account"
	StreamConnected = "connected"
)

// Options carries the ambient dependencies of a connection.
type Options struct {
	Logger   *config.Logger
	Reporter report.Reporter
	Metrics  *metrics.Metrics
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = config.NullLogger()
	}
	if o.Reporter == nil {
		o.Reporter = report.Nop{}
	}
	if o.Metrics == nil {
		o.Metrics = metrics.Global
	}
	return o
}

// Base owns the account, chain and connected state of one connection and
// implements the handlers adapters call when the wallet reports a change.
//
// Refreshes are clear-then-resolve: the field is published as Unresolved,
// the adapter is queried, then the answer is published. Two overlapping
// refreshes of the same field are not ordered; the last publish wins.
type Base struct {
	provider Provider
	querier  Querier
	opts     Options

	publishMu sync.Mutex // pairs each field write with its stream publish

	mu            sync.Mutex
	walletAddress Value[string]
	chainID       Value[uint64]
	connected     bool
	status        Status

	chainStream     *Stream[Value[uint64]]
	accountStream   *Stream[Value[string]]
	connectedStream *Stream[bool]
}

// NewBase creates the shared state for an adapter. The adapter passes itself
// as the querier so refreshes use its provider-specific lookups.
func NewBase(provider Provider, querier Querier, opts Options) *Base {
	return &Base{
		provider:        provider,
		querier:         querier,
		opts:            opts.withDefaults(),
		walletAddress:   Absent[string](),
		chainID:         Absent[uint64](),
		chainStream:     NewStream(Absent[uint64]()),
		accountStream:   NewStream(Absent[string]()),
		connectedStream: NewStream(false),
	}
}

// Provider returns the adapter's provider tag.
func (b *Base) Provider() Provider {
	return b.provider
}

// Logger returns the connection logger.
func (b *Base) Logger() *config.Logger {
	return b.opts.Logger
}

// Report logs err and forwards it to the error reporter.
func (b *Base) Report(err error, format string, args ...any) {
	if err == nil {
		return
	}
	b.opts.Logger.Error("[%s] "+format+": %v", append(append([]any{b.provider}, args...), err)...)
	b.opts.Reporter.Report(err)
}

// Metrics returns the metrics sink.
func (b *Base) Metrics() *metrics.Metrics {
	return b.opts.Metrics
}

// SubscribeChainChanged returns the replay-latest chain stream.
func (b *Base) SubscribeChainChanged() *Stream[Value[uint64]] {
	return b.chainStream
}

// SubscribeAccountChanged returns the replay-latest account stream.
func (b *Base) SubscribeAccountChanged() *Stream[Value[string]] {
	return b.accountStream
}

// SubscribeConnectionChanged returns the replay-latest connected stream.
func (b *Base) SubscribeConnectionChanged() *Stream[bool] {
	return b.connectedStream
}

// WalletAddress returns the current account field.
func (b *Base) WalletAddress() Value[string] {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.walletAddress
}

// ChainID returns the current chain field.
func (b *Base) ChainID() Value[uint64] {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.chainID
}

// Connected returns the current connected flag.
func (b *Base) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

// Status returns the lifecycle state.
func (b *Base) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// BeginConnect marks the connection as connecting.
func (b *Base) BeginConnect() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.status != StatusConnected {
		b.status = StatusConnecting
	}
}

// FailConnect reverts a pending connect that did not reach OnConnect.
func (b *Base) FailConnect() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.status == StatusConnecting {
		b.status = StatusDisconnected
	}
}

// CacheWalletAddress returns the account field when present. Otherwise it
// resolves the value once with lookup and stores it without publishing.
func (b *Base) CacheWalletAddress(lookup func() Value[string]) Value[string] {
	b.mu.Lock()
	if _, ok := b.walletAddress.Get(); ok {
		v := b.walletAddress
		b.mu.Unlock()
		return v
	}
	b.mu.Unlock()

	resolved := lookup()

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.walletAddress.Get(); ok {
		return b.walletAddress
	}
	b.walletAddress = resolved
	return resolved
}

// CacheChainID is CacheWalletAddress for the chain field.
func (b *Base) CacheChainID(lookup func() Value[uint64]) Value[uint64] {
	b.mu.Lock()
	if _, ok := b.chainID.Get(); ok {
		v := b.chainID
		b.mu.Unlock()
		return v
	}
	b.mu.Unlock()

	resolved := lookup()

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.chainID.Get(); ok {
		return b.chainID
	}
	b.chainID = resolved
	return resolved
}

// OnConnect publishes connected=true and refreshes account and chain.
func (b *Base) OnConnect(ctx context.Context) error {
	b.opts.Logger.Info("[%s] connected", b.provider)
	b.mu.Lock()
	b.status = StatusConnected
	b.mu.Unlock()

	b.setConnected(true)
	return errors.Join(b.refreshAccount(ctx, false), b.refreshChain(ctx, false))
}

// OnDisconnect publishes connected=false and refreshes account and chain.
// A failing lookup resolves to Absent since the session is gone.
func (b *Base) OnDisconnect(ctx context.Context) error {
	b.opts.Logger.Info("[%s] disconnected", b.provider)
	b.mu.Lock()
	b.status = StatusDisconnected
	b.mu.Unlock()

	b.setConnected(false)
	return errors.Join(b.refreshAccount(ctx, true), b.refreshChain(ctx, true))
}

// OnChainChanged clears and re-resolves the chain.
func (b *Base) OnChainChanged(ctx context.Context) error {
	return b.refreshChain(ctx, false)
}

// OnAccountChanged clears and re-resolves the account.
func (b *Base) OnAccountChanged(ctx context.Context) error {
	return b.refreshAccount(ctx, false)
}

func (b *Base) refreshChain(ctx context.Context, disconnecting bool) error {
	b.setChainID(Unresolved[uint64]())

	v, err := b.querier.GetChainID(ctx)
	if err != nil {
		b.opts.Metrics.RecordRefreshError(StreamChain)
		if disconnecting {
			b.opts.Logger.Debug("[%s] chain lookup after disconnect: %v", b.provider, err)
			b.setChainID(Absent[uint64]())
			return nil
		}
		b.Report(err, "refreshing chain")
		return err
	}

	b.setChainID(v)
	b.opts.Logger.Debug("[%s] chain changed: %s", b.provider, v)
	return nil
}

func (b *Base) refreshAccount(ctx context.Context, disconnecting bool) error {
	b.setWalletAddress(Unresolved[string]())

	v, err := b.querier.GetWalletAddress(ctx)
	if err != nil {
		b.opts.Metrics.RecordRefreshError(StreamAccount)
		if disconnecting {
			b.opts.Logger.Debug("[%s] account lookup after disconnect: %v", b.provider, err)
			b.setWalletAddress(Absent[string]())
			return nil
		}
		b.Report(err, "refreshing account")
		return err
	}

	b.setWalletAddress(v)
	b.opts.Logger.Debug("[%s] account changed: %s", b.provider, v)
	return nil
}

func (b *Base) setChainID(v Value[uint64]) {
	b.publishMu.Lock()
	defer b.publishMu.Unlock()

	b.mu.Lock()
	b.chainID = v
	b.mu.Unlock()

	b.chainStream.Publish(v)
	b.opts.Metrics.RecordStateEvent(StreamChain)
}

func (b *Base) setWalletAddress(v Value[string]) {
	b.publishMu.Lock()
	defer b.publishMu.Unlock()

	b.mu.Lock()
	b.walletAddress = v
	b.mu.Unlock()

	b.accountStream.Publish(v)
	b.opts.Metrics.RecordStateEvent(StreamAccount)
}

func (b *Base) setConnected(v bool) {
	b.publishMu.Lock()
	defer b.publishMu.Unlock()

	b.mu.Lock()
	b.connected = v
	b.mu.Unlock()

	b.connectedStream.Publish(v)
	b.opts.Metrics.RecordStateEvent(StreamConnected)
	b.opts.Metrics.SetConnected(string(b.provider), v)
}

// Package walletconnect adapts a remote wallet session modal to the
// connection contract.
package walletconnect

import (
	"context"
	"sync"
	"time"

	"github.com/mrz1836/tether/internal/connection"
	tethererr "github.com/mrz1836/tether/pkg/errors"
)

// Response messages.
const (
	MsgConnectFailed       = "Failed to connect to WalletConnect"
	MsgSwitchNetworkFailed = "Failed to switch network"
)

const eventTimeout = 30 * time.Second

// State is the modal's session view.
type State struct {
	Open              bool   `json:"open"`
	SelectedNetworkID uint64 `json:"selectedNetworkId,omitempty"`
}

// WalletInfo describes the remote wallet.
type WalletInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	URL         string   `json:"url,omitempty"`
	Icons       []string `json:"icons,omitempty"`
}

// Modal is the remote session handle the adapter drives.
type Modal interface {
	Open(ctx context.Context) error
	Disconnect(ctx context.Context) error
	SwitchNetwork(ctx context.Context, chainID uint64) error

	// Address returns "" when no account is selected.
	Address() string
	// ChainID returns 0 when no network is selected.
	ChainID() uint64
	WalletProvider() connection.RequestProvider

	SubscribeState(fn func(State))
	SubscribeAddress(fn func(string))
	SubscribeWalletInfo(fn func(WalletInfo))
}

// Options configures a Connection.
type Options struct {
	connection.Options

	// ConnectTimeout bounds how long Connect waits for the wallet. Zero waits
	// until the context is done.
	ConnectTimeout time.Duration

	// FailOnClose ends a pending Connect with an error when the modal closes
	// before the wallet selects a network. By default Connect keeps waiting.
	FailOnClose bool
}

// Connection is the remote-bridge adapter.
type Connection struct {
	*connection.Base

	modal       Modal
	timeout     time.Duration
	failOnClose bool

	waitMu  sync.Mutex
	waiting chan bool
}

var _ connection.Connection = (*Connection)(nil)

// New creates an adapter and subscribes to modal's state, address and
// wallet-info streams.
func New(modal Modal, opts Options) *Connection {
	c := &Connection{modal: modal, timeout: opts.ConnectTimeout, failOnClose: opts.FailOnClose}
	c.Base = connection.NewBase(connection.WalletConnect, c, opts.Options)

	modal.SubscribeState(c.onState)
	modal.SubscribeAddress(c.onAddress)
	modal.SubscribeWalletInfo(c.onWalletInfo)
	return c
}

func (c *Connection) onState(state State) {
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	c.Logger().Debug("[%s] state open=%t network=%d", c.Provider(), state.Open, state.SelectedNetworkID)
	_ = c.OnChainChanged(ctx)

	if state.SelectedNetworkID != 0 {
		_ = c.OnConnect(ctx)
		c.settle(true)
		return
	}
	_ = c.OnDisconnect(ctx)
	if !state.Open && c.failOnClose {
		c.settle(false)
	}
}

func (c *Connection) onAddress(address string) {
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	c.Logger().Debug("[%s] address update: %q", c.Provider(), address)
	_ = c.OnAccountChanged(ctx)
}

func (c *Connection) onWalletInfo(info WalletInfo) {
	c.Logger().Info("[%s] wallet: %s %s", c.Provider(), info.Name, info.URL)
}

// arm returns the pending connect waiter, creating one if none is pending.
func (c *Connection) arm() chan bool {
	c.waitMu.Lock()
	defer c.waitMu.Unlock()
	if c.waiting == nil {
		c.waiting = make(chan bool, 1)
	}
	return c.waiting
}

func (c *Connection) disarm(w chan bool) {
	c.waitMu.Lock()
	defer c.waitMu.Unlock()
	if c.waiting == w {
		c.waiting = nil
	}
}

func (c *Connection) settle(ok bool) {
	c.waitMu.Lock()
	w := c.waiting
	c.waiting = nil
	c.waitMu.Unlock()

	if w != nil {
		w <- ok
		close(w)
	}
}

// GetWalletAddress returns the cached account, reading the modal once when
// none is cached.
func (c *Connection) GetWalletAddress(context.Context) (connection.Value[string], error) {
	return c.CacheWalletAddress(func() connection.Value[string] {
		if addr := c.modal.Address(); addr != "" {
			return connection.Present(addr)
		}
		return connection.Absent[string]()
	}), nil
}

// GetChainID returns the cached chain, reading the modal once when none is
// cached.
func (c *Connection) GetChainID(context.Context) (connection.Value[uint64], error) {
	return c.CacheChainID(func() connection.Value[uint64] {
		if id := c.modal.ChainID(); id != 0 {
			return connection.Present(id)
		}
		return connection.Absent[uint64]()
	}), nil
}

// GetProvider returns the modal's request handle.
func (c *Connection) GetProvider(context.Context) (connection.RequestProvider, error) {
	p := c.modal.WalletProvider()
	if p == nil {
		return nil, tethererr.ErrNotConnected
	}
	return p, nil
}

// GetSigner returns a signer for the current account.
func (c *Connection) GetSigner(ctx context.Context) (*connection.Signer, error) {
	return connection.SignerFor(ctx, c)
}

// Connect opens the modal and blocks until the wallet selects a network or
// ctx or the connect timeout expires. A failed wait tears the pairing down so
// a late approval cannot revive the session.
func (c *Connection) Connect(ctx context.Context) connection.ConnectionInfo {
	c.BeginConnect()
	w := c.arm()

	if err := c.modal.Open(ctx); err != nil {
		c.disarm(w)
		return c.connectFailed(err, "opening modal")
	}

	waitCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	select {
	case ok := <-w:
		if !ok {
			return c.connectFailed(tethererr.ErrConnectionFailed, "modal closed without a session")
		}
	case <-waitCtx.Done():
		c.disarm(w)
		err := waitCtx.Err()
		if ctx.Err() == nil {
			err = tethererr.Wrap(tethererr.ErrConnectTimeout, "after %s", c.timeout)
		}
		if derr := c.modal.Disconnect(context.WithoutCancel(ctx)); derr != nil {
			c.Logger().Warn("[%s] closing abandoned pairing: %v", c.Provider(), derr)
		}
		return c.connectFailed(err, "waiting for wallet")
	}

	return connection.NewSuccess(&connection.Details{
		WalletAddress: c.WalletAddress().OrElse(""),
		ChainID:       c.ChainID().OrElse(0),
		Provider:      c.Provider(),
	})
}

func (c *Connection) connectFailed(err error, step string) connection.ConnectionInfo {
	c.FailConnect()
	c.Report(err, "connect: %s", step)
	return connection.NewError[*connection.Details](MsgConnectFailed)
}

// SwitchChain asks the remote wallet to switch networks.
func (c *Connection) SwitchChain(ctx context.Context, chainID uint64) connection.ResponseWithoutData {
	if err := c.modal.SwitchNetwork(ctx, chainID); err != nil {
		c.Report(err, "switch network to %d", chainID)
		return connection.NewError[struct{}](MsgSwitchNetworkFailed)
	}
	return connection.NewSuccess(struct{}{})
}

// Disconnect ends the remote session. The disconnected state is published
// by the modal's state event.
func (c *Connection) Disconnect(ctx context.Context) error {
	if err := c.modal.Disconnect(ctx); err != nil {
		return tethererr.Wrap(err, "disconnecting %s", c.Provider())
	}
	return nil
}

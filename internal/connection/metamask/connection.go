// Package metamask adapts a local EIP-1193 wallet provider to the
// connection contract.
package metamask

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/mrz1836/tether/internal/connection"
	tethererr "github.com/mrz1836/tether/pkg/errors"
)

// Response messages.
const (
	MsgConnectFailed     = "Failed to connect to MetaMask"
	MsgSwitchChainFailed = "Failed to switch chain"
)

// eventTimeout bounds the refresh triggered by one provider event.
const eventTimeout = 30 * time.Second

// Connection is the local-provider adapter.
type Connection struct {
	*connection.Base

	sdk    SDK
	initMu sync.Mutex

	listenOnce sync.Once
	terminated atomic.Bool
}

var _ connection.Connection = (*Connection)(nil)

// New creates an adapter over sdk.
func New(sdk SDK, opts connection.Options) *Connection {
	c := &Connection{sdk: sdk}
	c.Base = connection.NewBase(connection.MetaMask, c, opts)
	return c
}

func (c *Connection) ensureInitialized(ctx context.Context) error {
	c.initMu.Lock()
	defer c.initMu.Unlock()

	if c.sdk.IsInitialized() {
		return nil
	}
	return c.sdk.Init(ctx)
}

func (c *Connection) provider(ctx context.Context) (Provider, error) {
	if err := c.ensureInitialized(ctx); err != nil {
		return nil, err
	}
	p := c.sdk.Provider()
	if p == nil {
		return nil, tethererr.ErrNotConnected
	}
	return p, nil
}

// GetWalletAddress returns the first account the wallet exposes.
func (c *Connection) GetWalletAddress(ctx context.Context) (connection.Value[string], error) {
	if c.terminated.Load() {
		return connection.Absent[string](), nil
	}
	p, err := c.provider(ctx)
	if err != nil {
		return connection.Value[string]{}, err
	}
	raw, err := p.Request(ctx, "eth_accounts")
	if err != nil {
		return connection.Value[string]{}, tethererr.Wrap(err, "eth_accounts")
	}
	var accounts []string
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return connection.Value[string]{}, tethererr.Wrap(tethererr.ErrInvalidInput, "decoding eth_accounts: %v", err)
	}
	if len(accounts) == 0 {
		return connection.Absent[string](), nil
	}
	return connection.Present(accounts[0]), nil
}

// GetChainID returns the wallet's current chain.
func (c *Connection) GetChainID(ctx context.Context) (connection.Value[uint64], error) {
	if c.terminated.Load() {
		return connection.Absent[uint64](), nil
	}
	p, err := c.provider(ctx)
	if err != nil {
		return connection.Value[uint64]{}, err
	}
	raw, err := p.Request(ctx, "eth_chainId")
	if err != nil {
		return connection.Value[uint64]{}, tethererr.Wrap(err, "eth_chainId")
	}
	id, err := connection.DecodeQuantity(raw)
	if err != nil {
		return connection.Value[uint64]{}, err
	}
	return connection.Present(id), nil
}

// GetProvider returns the SDK's request handle.
func (c *Connection) GetProvider(ctx context.Context) (connection.RequestProvider, error) {
	return c.provider(ctx)
}

// GetSigner returns a signer for the current account.
func (c *Connection) GetSigner(ctx context.Context) (*connection.Signer, error) {
	return connection.SignerFor(ctx, c)
}

// Connect asks the wallet for account access. On success the connected,
// account and chain streams hold confirmed values before it returns.
func (c *Connection) Connect(ctx context.Context) connection.ConnectionInfo {
	c.BeginConnect()

	if err := c.ensureInitialized(ctx); err != nil {
		return c.connectFailed(err)
	}

	accounts, err := c.sdk.Connect(ctx)
	if err != nil {
		return c.connectFailed(err)
	}
	if len(accounts) == 0 {
		c.FailConnect()
		c.Logger().Warn("[%s] wallet returned no accounts", c.Provider())
		return connection.NewError[*connection.Details](MsgConnectFailed)
	}

	c.terminated.Store(false)
	c.listen()

	if err := c.OnConnect(ctx); err != nil {
		_ = c.OnDisconnect(ctx)
		return c.connectFailed(err)
	}

	return connection.NewSuccess(&connection.Details{
		WalletAddress: c.WalletAddress().OrElse(accounts[0]),
		ChainID:       c.ChainID().OrElse(0),
		Provider:      c.Provider(),
	})
}

func (c *Connection) connectFailed(err error) connection.ConnectionInfo {
	c.FailConnect()
	if connection.IsUserRejected(err) {
		c.Logger().Info("[%s] connect rejected by user", c.Provider())
		return connection.NewUserRejected[*connection.Details]()
	}
	c.Report(err, "connect")
	return connection.NewError[*connection.Details](MsgConnectFailed)
}

// listen registers the four provider listeners once per connection.
func (c *Connection) listen() {
	c.listenOnce.Do(func() {
		p := c.sdk.Provider()
		if p == nil {
			return
		}
		p.On(EventAccountsChanged, func(payload json.RawMessage) {
			c.Logger().Debug("[%s] accounts changed: %s", c.Provider(), payload)
			c.handle(c.OnAccountChanged)
		})
		p.On(EventChainChanged, func(payload json.RawMessage) {
			c.Logger().Debug("[%s] chain changed: %s", c.Provider(), payload)
			c.handle(c.OnChainChanged)
		})
		p.On(EventConnect, func(json.RawMessage) {
			c.handle(c.OnConnect)
		})
		p.On(EventDisconnect, func(json.RawMessage) {
			c.handle(c.OnDisconnect)
		})
	})
}

// handle drops provider events that arrive after Disconnect.
func (c *Connection) handle(fn func(context.Context) error) {
	if c.terminated.Load() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()
	// errors are logged and reported by the handler
	_ = fn(ctx)
}

// SwitchChain asks the wallet to switch to chainID.
func (c *Connection) SwitchChain(ctx context.Context, chainID uint64) connection.ResponseWithoutData {
	p, err := c.provider(ctx)
	if err != nil {
		c.Report(err, "switch chain")
		return connection.NewError[struct{}](MsgSwitchChainFailed)
	}

	_, err = p.Request(ctx, "wallet_switchEthereumChain", map[string]string{
		"chainId": connection.EncodeQuantity(chainID),
	})
	if err != nil {
		if connection.IsUserRejected(err) {
			c.Logger().Info("[%s] chain switch rejected by user", c.Provider())
			return connection.NewUserRejected[struct{}]()
		}
		c.Report(err, "switch chain to %d", chainID)
		return connection.NewError[struct{}](MsgSwitchChainFailed)
	}
	return connection.NewSuccess(struct{}{})
}

// Disconnect terminates the SDK session and publishes the disconnected
// state. Listeners stay registered.
func (c *Connection) Disconnect(ctx context.Context) error {
	if err := c.ensureInitialized(ctx); err != nil {
		return tethererr.Wrap(err, "disconnecting %s", c.Provider())
	}
	c.terminated.Store(true)
	terminateErr := c.sdk.Terminate(ctx)

	disconnectErr := c.OnDisconnect(ctx)
	if terminateErr != nil {
		return tethererr.Wrap(terminateErr, "terminating %s session", c.Provider())
	}
	return disconnectErr
}

package metamask_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/tether/internal/connection"
	"github.com/mrz1836/tether/internal/connection/metamask"
	"github.com/mrz1836/tether/internal/metrics"
	"github.com/mrz1836/tether/internal/retry"
)

// wallet is the state behind a test JSON-RPC wallet.
type wallet struct {
	mu         sync.Mutex
	accounts   []string
	chain      uint64
	reject     bool
	chainCalls int
	switched   []string
	notifiers  map[string][]subscriber
}

type subscriber struct {
	notifier *rpc.Notifier
	sub      *rpc.Subscription
}

func (w *wallet) setChain(id uint64) {
	w.mu.Lock()
	w.chain = id
	w.mu.Unlock()
}

func (w *wallet) chainLookups() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.chainCalls
}

func (w *wallet) subscribers(event string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.notifiers[event])
}

func (w *wallet) notify(event string, payload any) {
	w.mu.Lock()
	subs := append([]subscriber(nil), w.notifiers[event]...)
	w.mu.Unlock()
	for _, s := range subs {
		_ = s.notifier.Notify(s.sub.ID, payload)
	}
}

// ethAPI serves the eth namespace.
type ethAPI struct{ w *wallet }

func (a *ethAPI) Accounts() []string {
	a.w.mu.Lock()
	defer a.w.mu.Unlock()
	return append([]string{}, a.w.accounts...)
}

func (a *ethAPI) RequestAccounts() ([]string, error) {
	a.w.mu.Lock()
	defer a.w.mu.Unlock()
	if a.w.reject {
		return nil, &connection.RPCError{Code: connection.CodeUserRejected, Message: "User rejected the request."}
	}
	return append([]string{}, a.w.accounts...), nil
}

func (a *ethAPI) ChainId() string { //nolint:revive,stylecheck // maps to eth_chainId
	a.w.mu.Lock()
	defer a.w.mu.Unlock()
	a.w.chainCalls++
	return connection.EncodeQuantity(a.w.chain)
}

// walletAPI serves the wallet namespace.
type walletAPI struct{ w *wallet }

func (a *walletAPI) SwitchEthereumChain(params map[string]string) error {
	a.w.mu.Lock()
	defer a.w.mu.Unlock()
	if a.w.reject {
		return &connection.RPCError{Code: connection.CodeUserRejected, Message: "User rejected the request."}
	}
	a.w.switched = append(a.w.switched, params["chainId"])
	return nil
}

func (a *walletAPI) AccountsChanged(ctx context.Context) (*rpc.Subscription, error) {
	return a.subscribe(ctx, metamask.EventAccountsChanged)
}

func (a *walletAPI) ChainChanged(ctx context.Context) (*rpc.Subscription, error) {
	return a.subscribe(ctx, metamask.EventChainChanged)
}

func (a *walletAPI) subscribe(ctx context.Context, event string) (*rpc.Subscription, error) {
	notifier, ok := rpc.NotifierFromContext(ctx)
	if !ok {
		return nil, rpc.ErrNotificationsUnsupported
	}
	sub := notifier.CreateSubscription()
	a.w.mu.Lock()
	a.w.notifiers[event] = append(a.w.notifiers[event], subscriber{notifier: notifier, sub: sub})
	a.w.mu.Unlock()
	return sub, nil
}

func newWalletServer(t *testing.T, w *wallet) *rpc.Server {
	t.Helper()
	w.notifiers = make(map[string][]subscriber)
	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("eth", &ethAPI{w: w}))
	require.NoError(t, server.RegisterName("wallet", &walletAPI{w: w}))
	t.Cleanup(server.Stop)
	return server
}

func newRPCConnection(t *testing.T, endpoint string) *metamask.Connection {
	t.Helper()
	sdk, err := metamask.NewRPCSDK(metamask.RPCSDKOptions{
		Endpoint:     endpoint,
		PollInterval: 10 * time.Millisecond,
		Retry:        retry.Config{MaxAttempts: 1},
	})
	require.NoError(t, err)
	conn := metamask.New(sdk, connection.Options{Metrics: metrics.New()})
	t.Cleanup(func() { _ = conn.Disconnect(context.Background()) })
	return conn
}

func TestNewRPCSDK_RequiresEndpoint(t *testing.T) {
	t.Parallel()
	_, err := metamask.NewRPCSDK(metamask.RPCSDKOptions{})
	require.ErrorIs(t, err, metamask.ErrEndpointRequired)
}

func TestRPCSDK_RequestBeforeInit(t *testing.T) {
	t.Parallel()
	sdk, err := metamask.NewRPCSDK(metamask.RPCSDKOptions{Endpoint: "http://127.0.0.1:1"})
	require.NoError(t, err)

	assert.False(t, sdk.IsInitialized())
	_, err = sdk.Request(context.Background(), "eth_chainId")
	require.Error(t, err)
}

func TestRPCSDK_HTTP(t *testing.T) {
	t.Parallel()
	w := &wallet{accounts: []string{"0xABC"}, chain: 1}
	ts := httptest.NewServer(newWalletServer(t, w))
	defer ts.Close()

	conn := newRPCConnection(t, ts.URL)
	ctx := context.Background()

	result := conn.Connect(ctx)
	require.True(t, result.Success, result.Message)
	assert.Equal(t, &connection.Details{WalletAddress: "0xABC", ChainID: 1, Provider: connection.MetaMask}, result.Data)

	switched := conn.SwitchChain(ctx, 10)
	require.True(t, switched.Success)
	w.mu.Lock()
	assert.Equal(t, []string{"0xa"}, w.switched)
	w.mu.Unlock()

	// the poller baselines with one eth_chainId call before it reports changes
	lookups := w.chainLookups()
	require.Eventually(t, func() bool { return w.chainLookups() > lookups }, 2*time.Second, 5*time.Millisecond)

	w.setChain(10)
	assert.Eventually(t, func() bool {
		return conn.SubscribeChainChanged().Latest() == connection.Present(uint64(10))
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Disconnect(ctx))
	assert.False(t, conn.SubscribeConnectionChanged().Latest())
	assert.Equal(t, connection.Absent[uint64](), conn.SubscribeChainChanged().Latest())
}

func TestRPCSDK_HTTPUserRejected(t *testing.T) {
	t.Parallel()
	w := &wallet{accounts: []string{"0xABC"}, chain: 1, reject: true}
	ts := httptest.NewServer(newWalletServer(t, w))
	defer ts.Close()

	conn := newRPCConnection(t, ts.URL)
	ctx := context.Background()

	result := conn.Connect(ctx)
	assert.True(t, result.UserRejected)
	assert.False(t, result.Success)

	switched := conn.SwitchChain(ctx, 1)
	assert.True(t, switched.UserRejected)
}

func TestRPCSDK_Websocket(t *testing.T) {
	t.Parallel()
	w := &wallet{accounts: []string{"0xABC"}, chain: 1}
	ts := httptest.NewServer(newWalletServer(t, w).WebsocketHandler([]string{"*"}))
	defer ts.Close()

	conn := newRPCConnection(t, "ws://"+strings.TrimPrefix(ts.URL, "http://"))

	result := conn.Connect(context.Background())
	require.True(t, result.Success, result.Message)

	require.Eventually(t, func() bool {
		return w.subscribers(metamask.EventChainChanged) == 1 && w.subscribers(metamask.EventAccountsChanged) == 1
	}, 2*time.Second, 5*time.Millisecond)

	w.setChain(8668)
	w.notify(metamask.EventChainChanged, connection.EncodeQuantity(8668))
	assert.Eventually(t, func() bool {
		return conn.SubscribeChainChanged().Latest() == connection.Present(uint64(8668))
	}, 2*time.Second, 5*time.Millisecond)

	w.mu.Lock()
	w.accounts = []string{"0xDEF"}
	w.mu.Unlock()
	w.notify(metamask.EventAccountsChanged, []string{"0xDEF"})
	assert.Eventually(t, func() bool {
		return conn.SubscribeAccountChanged().Latest() == connection.Present("0xDEF")
	}, 2*time.Second, 5*time.Millisecond)
}

func TestRPCSDK_DialFailure(t *testing.T) {
	t.Parallel()
	conn := newRPCConnection(t, "ws://127.0.0.1:1")

	result := conn.Connect(context.Background())

	assert.False(t, result.Success)
	assert.Equal(t, metamask.MsgConnectFailed, result.Message)
}

package metamask_test

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/tether/internal/connection"
	"github.com/mrz1836/tether/internal/connection/metamask"
	"github.com/mrz1836/tether/internal/metrics"
)

var (
	errWalletDown = errors.New("wallet unreachable")
	errRejected   = &connection.RPCError{Code: connection.CodeUserRejected, Message: "User rejected the request."}
)

type request struct {
	method string
	params []any
}

// fakeProvider is an in-memory EIP-1193 provider.
type fakeProvider struct {
	mu        sync.Mutex
	accounts  []string
	chain     string
	chainErr  error
	switchErr error
	requests  []request
	handlers  map[string][]func(json.RawMessage)
}

func (p *fakeProvider) Request(_ context.Context, method string, params ...any) (json.RawMessage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, request{method: method, params: params})

	switch method {
	case "eth_accounts", "eth_requestAccounts":
		accounts := p.accounts
		if accounts == nil {
			accounts = []string{}
		}
		return json.Marshal(accounts)
	case "eth_chainId":
		if p.chainErr != nil {
			return nil, p.chainErr
		}
		return json.Marshal(p.chain)
	case "wallet_switchEthereumChain":
		if p.switchErr != nil {
			return nil, p.switchErr
		}
		return json.RawMessage("null"), nil
	default:
		return nil, &connection.RPCError{Code: connection.CodeUnsupportedMethod, Message: "unsupported"}
	}
}

func (p *fakeProvider) On(event string, handler func(json.RawMessage)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.handlers == nil {
		p.handlers = make(map[string][]func(json.RawMessage))
	}
	p.handlers[event] = append(p.handlers[event], handler)
}

func (p *fakeProvider) emit(event string, payload string) {
	p.mu.Lock()
	handlers := slices.Clone(p.handlers[event])
	p.mu.Unlock()
	for _, h := range handlers {
		h(json.RawMessage(payload))
	}
}

func (p *fakeProvider) set(accounts []string, chain string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accounts = accounts
	p.chain = chain
}

func (p *fakeProvider) requestsFor(method string) []request {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []request
	for _, r := range p.requests {
		if r.method == method {
			out = append(out, r)
		}
	}
	return out
}

func (p *fakeProvider) handlerCount(event string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.handlers[event])
}

// fakeSDK drives a fakeProvider.
type fakeSDK struct {
	mu           sync.Mutex
	provider     *fakeProvider
	initialized  bool
	initErr      error
	initCalls    int
	connectErr   error
	terminateErr error
	terminations int
}

func (s *fakeSDK) IsInitialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

func (s *fakeSDK) Init(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initCalls++
	if s.initErr != nil {
		return s.initErr
	}
	s.initialized = true
	return nil
}

func (s *fakeSDK) Connect(ctx context.Context) ([]string, error) {
	if s.connectErr != nil {
		return nil, s.connectErr
	}
	raw, err := s.provider.Request(ctx, "eth_requestAccounts")
	if err != nil {
		return nil, err
	}
	var accounts []string
	err = json.Unmarshal(raw, &accounts)
	return accounts, err
}

func (s *fakeSDK) Provider() metamask.Provider {
	return s.provider
}

func (s *fakeSDK) Terminate(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terminations++
	return s.terminateErr
}

func newFake(accounts []string, chain string) (*metamask.Connection, *fakeSDK) {
	sdk := &fakeSDK{provider: &fakeProvider{accounts: accounts, chain: chain}}
	return metamask.New(sdk, connection.Options{Metrics: metrics.New()}), sdk
}

func TestConnect_Success(t *testing.T) {
	t.Parallel()
	conn, _ := newFake([]string{"0xABC"}, "0x1")

	result := conn.Connect(context.Background())

	require.True(t, result.Success)
	assert.False(t, result.UserRejected)
	require.NotNil(t, result.Data)
	assert.Equal(t, &connection.Details{WalletAddress: "0xABC", ChainID: 1, Provider: connection.MetaMask}, result.Data)

	assert.True(t, conn.SubscribeConnectionChanged().Latest())
	assert.Equal(t, connection.Present("0xABC"), conn.SubscribeAccountChanged().Latest())
	assert.Equal(t, connection.Present(uint64(1)), conn.SubscribeChainChanged().Latest())
	assert.Equal(t, connection.StatusConnected, conn.Status())
}

func TestConnect_UserRejected(t *testing.T) {
	t.Parallel()
	conn, sdk := newFake([]string{"0xABC"}, "0x1")
	sdk.connectErr = errRejected

	var connected []bool
	unsubscribe := conn.SubscribeConnectionChanged().Subscribe(func(v bool) {
		connected = append(connected, v)
	})
	defer unsubscribe()

	result := conn.Connect(context.Background())

	assert.False(t, result.Success)
	assert.True(t, result.UserRejected)
	assert.Nil(t, result.Data)
	assert.Equal(t, []bool{false}, connected)
	assert.Equal(t, connection.StatusDisconnected, conn.Status())
}

func TestConnect_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func(*fakeSDK)
	}{
		{"init fails", func(s *fakeSDK) { s.initErr = errWalletDown }},
		{"connect fails", func(s *fakeSDK) { s.connectErr = errWalletDown }},
		{"no accounts", func(s *fakeSDK) { s.provider.accounts = []string{} }},
		{"chain lookup fails", func(s *fakeSDK) { s.provider.chainErr = errWalletDown }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			conn, sdk := newFake([]string{"0xABC"}, "0x1")
			tc.setup(sdk)

			result := conn.Connect(context.Background())

			assert.False(t, result.Success)
			assert.False(t, result.UserRejected)
			assert.Equal(t, metamask.MsgConnectFailed, result.Message)
			assert.False(t, conn.SubscribeConnectionChanged().Latest())
			assert.Equal(t, connection.StatusDisconnected, conn.Status())
		})
	}
}

func TestConnect_InitializesOnce(t *testing.T) {
	t.Parallel()
	conn, sdk := newFake([]string{"0xABC"}, "0x1")
	ctx := context.Background()

	require.True(t, conn.Connect(ctx).Success)
	_, err := conn.GetChainID(ctx)
	require.NoError(t, err)
	require.True(t, conn.SwitchChain(ctx, 1).Success)

	assert.Equal(t, 1, sdk.initCalls)
}

func TestConnect_RegistersListenersOnce(t *testing.T) {
	t.Parallel()
	conn, sdk := newFake([]string{"0xABC"}, "0x1")
	ctx := context.Background()

	require.True(t, conn.Connect(ctx).Success)
	require.NoError(t, conn.Disconnect(ctx))
	require.True(t, conn.Connect(ctx).Success)

	for _, event := range []string{
		metamask.EventAccountsChanged,
		metamask.EventChainChanged,
		metamask.EventConnect,
		metamask.EventDisconnect,
	} {
		assert.Equal(t, 1, sdk.provider.handlerCount(event), event)
	}
}

func TestChainChangedEvent(t *testing.T) {
	t.Parallel()
	conn, sdk := newFake([]string{"0xABC"}, "0x1")
	require.True(t, conn.Connect(context.Background()).Success)

	var seen []connection.Value[uint64]
	unsubscribe := conn.SubscribeChainChanged().Subscribe(func(v connection.Value[uint64]) {
		seen = append(seen, v)
	})
	defer unsubscribe()

	sdk.provider.set([]string{"0xABC"}, "0xa")
	sdk.provider.emit(metamask.EventChainChanged, `"0xa"`)

	assert.Equal(t, []connection.Value[uint64]{
		connection.Present(uint64(1)),
		connection.Unresolved[uint64](),
		connection.Present(uint64(10)),
	}, seen)
}

func TestAccountsChangedEvent(t *testing.T) {
	t.Parallel()
	conn, sdk := newFake([]string{"0xABC"}, "0x1")
	require.True(t, conn.Connect(context.Background()).Success)

	sdk.provider.set([]string{"0xDEF", "0xABC"}, "0x1")
	sdk.provider.emit(metamask.EventAccountsChanged, `["0xDEF","0xABC"]`)
	assert.Equal(t, connection.Present("0xDEF"), conn.SubscribeAccountChanged().Latest())

	sdk.provider.set(nil, "0x1")
	sdk.provider.emit(metamask.EventAccountsChanged, `[]`)
	assert.Equal(t, connection.Absent[string](), conn.SubscribeAccountChanged().Latest())
}

func TestDisconnectEvent(t *testing.T) {
	t.Parallel()
	conn, sdk := newFake([]string{"0xABC"}, "0x1")
	require.True(t, conn.Connect(context.Background()).Success)

	sdk.provider.emit(metamask.EventDisconnect, `{"code":4900}`)

	assert.False(t, conn.SubscribeConnectionChanged().Latest())
	assert.Equal(t, connection.StatusDisconnected, conn.Status())
}

func TestSwitchChain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		switchErr error
		success   bool
		rejected  bool
		message   string
	}{
		{"accepted", nil, true, false, ""},
		{"rejected", errRejected, false, true, ""},
		{"unrecognized chain", &connection.RPCError{Code: connection.CodeUnrecognizedChain}, false, false, metamask.MsgSwitchChainFailed},
		{"transport error", errWalletDown, false, false, metamask.MsgSwitchChainFailed},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			conn, sdk := newFake([]string{"0xABC"}, "0x1")
			sdk.provider.switchErr = tc.switchErr

			result := conn.SwitchChain(context.Background(), 1)

			assert.Equal(t, tc.success, result.Success)
			assert.Equal(t, tc.rejected, result.UserRejected)
			assert.Equal(t, tc.message, result.Message)

			reqs := sdk.provider.requestsFor("wallet_switchEthereumChain")
			require.Len(t, reqs, 1)
			require.Len(t, reqs[0].params, 1)
			assert.Equal(t, map[string]string{"chainId": "0x1"}, reqs[0].params[0])
		})
	}
}

func TestSwitchChain_EncodesHex(t *testing.T) {
	t.Parallel()
	conn, sdk := newFake([]string{"0xABC"}, "0x1")

	require.True(t, conn.SwitchChain(context.Background(), 8668).Success)

	reqs := sdk.provider.requestsFor("wallet_switchEthereumChain")
	require.Len(t, reqs, 1)
	assert.Equal(t, map[string]string{"chainId": "0x21dc"}, reqs[0].params[0])
}

func TestSwitchChain_InitFailure(t *testing.T) {
	t.Parallel()
	conn, sdk := newFake([]string{"0xABC"}, "0x1")
	sdk.initErr = errWalletDown

	result := conn.SwitchChain(context.Background(), 1)

	assert.False(t, result.Success)
	assert.Equal(t, metamask.MsgSwitchChainFailed, result.Message)
}

func TestDisconnect(t *testing.T) {
	t.Parallel()
	conn, sdk := newFake([]string{"0xABC"}, "0x1")
	ctx := context.Background()
	require.True(t, conn.Connect(ctx).Success)

	require.NoError(t, conn.Disconnect(ctx))

	assert.Equal(t, 1, sdk.terminations)
	assert.False(t, conn.SubscribeConnectionChanged().Latest())
	assert.Equal(t, connection.Absent[string](), conn.SubscribeAccountChanged().Latest())
	assert.Equal(t, connection.Absent[uint64](), conn.SubscribeChainChanged().Latest())

	addr, err := conn.GetWalletAddress(ctx)
	require.NoError(t, err)
	assert.Equal(t, connection.Absent[string](), addr)
}

func TestDisconnect_IgnoresLateEvents(t *testing.T) {
	t.Parallel()
	conn, sdk := newFake([]string{"0xABC"}, "0x1")
	ctx := context.Background()
	require.True(t, conn.Connect(ctx).Success)
	require.NoError(t, conn.Disconnect(ctx))

	sdk.provider.emit(metamask.EventConnect, `{"chainId":"0x1"}`)
	sdk.provider.emit(metamask.EventAccountsChanged, `["0xABC"]`)
	sdk.provider.emit(metamask.EventChainChanged, `"0x1"`)

	assert.False(t, conn.SubscribeConnectionChanged().Latest())
	assert.Equal(t, connection.StatusDisconnected, conn.Status())
	assert.Equal(t, connection.Absent[string](), conn.SubscribeAccountChanged().Latest())
	assert.Equal(t, connection.Absent[uint64](), conn.SubscribeChainChanged().Latest())
}

func TestDisconnect_TerminateError(t *testing.T) {
	t.Parallel()
	conn, sdk := newFake([]string{"0xABC"}, "0x1")
	ctx := context.Background()
	require.True(t, conn.Connect(ctx).Success)
	sdk.terminateErr = errWalletDown

	err := conn.Disconnect(ctx)

	require.ErrorIs(t, err, errWalletDown)
	assert.False(t, conn.SubscribeConnectionChanged().Latest())
}

func TestGetters(t *testing.T) {
	t.Parallel()
	conn, sdk := newFake([]string{"0xABC"}, "0x38")
	ctx := context.Background()

	addr, err := conn.GetWalletAddress(ctx)
	require.NoError(t, err)
	assert.Equal(t, connection.Present("0xABC"), addr)

	chainID, err := conn.GetChainID(ctx)
	require.NoError(t, err)
	assert.Equal(t, connection.Present(uint64(56)), chainID)

	sdk.provider.chain = "banana"
	_, err = conn.GetChainID(ctx)
	require.Error(t, err)

	p, err := conn.GetProvider(ctx)
	require.NoError(t, err)
	assert.Same(t, sdk.provider, p)
}

func TestGetSigner(t *testing.T) {
	t.Parallel()
	const addr = "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23"
	conn, _ := newFake([]string{addr}, "0x1")
	ctx := context.Background()
	require.True(t, conn.Connect(ctx).Success)

	signer, err := conn.GetSigner(ctx)
	require.NoError(t, err)
	assert.Equal(t, addr, signer.Address().Hex())
}

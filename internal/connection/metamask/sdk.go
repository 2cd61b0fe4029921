package metamask

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/atomic"

	"github.com/mrz1836/tether/internal/config"
	"github.com/mrz1836/tether/internal/connection"
	"github.com/mrz1836/tether/internal/retry"
	tethererr "github.com/mrz1836/tether/pkg/errors"
)

// Provider events.
const (
	EventAccountsChanged = "accountsChanged"
	EventChainChanged    = "chainChanged"
	EventConnect         = "connect"
	EventDisconnect      = "disconnect"
)

// Provider is an EIP-1193 style request and event handle.
type Provider interface {
	connection.RequestProvider
	On(event string, handler func(json.RawMessage))
}

// SDK is the local wallet SDK the adapter drives.
type SDK interface {
	IsInitialized() bool
	Init(ctx context.Context) error
	Connect(ctx context.Context) ([]string, error)
	Provider() Provider
	Terminate(ctx context.Context) error
}

// ErrEndpointRequired is returned when no wallet endpoint is configured.
var ErrEndpointRequired = &tethererr.TetherError{
	Code:     "WALLET_ENDPOINT_REQUIRED",
	Message:  "local wallet endpoint is required",
	ExitCode: tethererr.ExitInput,
}

// RPCSDKOptions configures an RPCSDK.
type RPCSDKOptions struct {
	// Endpoint is a ws://, http:// or IPC path of the local wallet.
	Endpoint string
	// PollInterval is used for change detection when the transport has no notifications.
	PollInterval time.Duration
	// Retry controls dialling backoff.
	Retry  retry.Config
	Logger *config.Logger
}

// RPCSDK is an SDK backed by a go-ethereum JSON-RPC client.
//
// Over websocket or IPC, events are received through wallet_subscribe.
// Over HTTP, eth_accounts and eth_chainId are polled and accountsChanged and
// chainChanged are emitted on change; connect and disconnect are not observable.
type RPCSDK struct {
	opts RPCSDKOptions
	log  *config.Logger

	initialized atomic.Bool
	polling     atomic.Bool

	mu       sync.Mutex
	client   *rpc.Client
	watchCtx context.Context //nolint:containedctx // lifetime of the current session's watchers
	cancel   context.CancelFunc
	handlers map[string][]func(json.RawMessage)
	watching map[string]bool
}

var _ SDK = (*RPCSDK)(nil)

// NewRPCSDK creates an SDK for the given endpoint. Nothing is dialled until Init.
func NewRPCSDK(opts RPCSDKOptions) (*RPCSDK, error) {
	if opts.Endpoint == "" {
		return nil, ErrEndpointRequired
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = config.DefaultPollInterval
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = retry.DefaultConfig()
	}
	log := opts.Logger
	if log == nil {
		log = config.NullLogger()
	}
	return &RPCSDK{
		opts:     opts,
		log:      log,
		handlers: make(map[string][]func(json.RawMessage)),
		watching: make(map[string]bool),
	}, nil
}

// IsInitialized reports whether a client is dialled.
func (s *RPCSDK) IsInitialized() bool {
	return s.initialized.Load()
}

// Init dials the wallet endpoint with retry and starts watchers for
// registered events. It is a no-op when already initialized.
func (s *RPCSDK) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return nil
	}

	client, err := retry.WithConfig(ctx, s.opts.Retry, func() (*rpc.Client, error) {
		c, dialErr := rpc.DialContext(ctx, s.opts.Endpoint)
		if dialErr != nil {
			s.log.Debug("dialling wallet %s: %v", s.opts.Endpoint, dialErr)
			return nil, retry.Retryable(dialErr)
		}
		return c, nil
	})
	if err != nil {
		return tethererr.Wrap(tethererr.ErrNetworkError, "dialling wallet %s: %v", s.opts.Endpoint, err)
	}

	s.client = client
	s.watchCtx, s.cancel = context.WithCancel(context.Background())
	s.watching = make(map[string]bool)
	s.polling.Store(false)
	s.initialized.Store(true)

	for event := range s.handlers {
		s.startWatchLocked(event)
	}
	return nil
}

// Connect requests account access from the wallet.
func (s *RPCSDK) Connect(ctx context.Context) ([]string, error) {
	raw, err := s.Request(ctx, "eth_requestAccounts")
	if err != nil {
		return nil, err
	}
	var accounts []string
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return nil, tethererr.Wrap(tethererr.ErrInvalidInput, "decoding accounts: %v", err)
	}
	return accounts, nil
}

// Provider returns the SDK itself as the request handle.
func (s *RPCSDK) Provider() Provider {
	return s
}

// Request issues a JSON-RPC call and returns the raw result.
// Wallet errors keep their JSON-RPC code.
func (s *RPCSDK) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	s.mu.Lock()
	client := s.client
	s.mu.Unlock()
	if client == nil {
		return nil, tethererr.ErrNotConnected
	}

	var raw json.RawMessage
	if err := client.CallContext(ctx, &raw, method, params...); err != nil {
		return nil, err
	}
	return raw, nil
}

// On registers handler for event. Handlers survive Terminate and are
// re-armed by the next Init.
func (s *RPCSDK) On(event string, handler func(json.RawMessage)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handlers[event] = append(s.handlers[event], handler)
	if s.client != nil {
		s.startWatchLocked(event)
	}
}

// Terminate stops watchers and closes the client.
func (s *RPCSDK) Terminate(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.client != nil {
		s.client.Close()
		s.client = nil
	}
	s.initialized.Store(false)
	return nil
}

func (s *RPCSDK) emit(event string, payload json.RawMessage) {
	s.mu.Lock()
	handlers := slices.Clone(s.handlers[event])
	s.mu.Unlock()

	for _, h := range handlers {
		h(payload)
	}
}

func (s *RPCSDK) startWatchLocked(event string) {
	if s.watching[event] {
		return
	}
	s.watching[event] = true
	go s.watch(s.watchCtx, s.client, event)
}

func (s *RPCSDK) watch(ctx context.Context, client *rpc.Client, event string) {
	ch := make(chan json.RawMessage, 16)
	sub, err := client.Subscribe(ctx, "wallet", ch, event)
	if err != nil {
		if errors.Is(err, rpc.ErrNotificationsUnsupported) {
			if event == EventAccountsChanged || event == EventChainChanged {
				s.startPolling(ctx)
			}
			return
		}
		s.log.Warn("subscribing to %s: %v", event, err)
		return
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-sub.Err():
			if err != nil {
				s.log.Warn("%s subscription ended: %v", event, err)
			}
			return
		case payload := <-ch:
			s.emit(event, payload)
		}
	}
}

func (s *RPCSDK) startPolling(ctx context.Context) {
	if !s.polling.CAS(false, true) {
		return
	}
	go s.poll(ctx)
}

func (s *RPCSDK) poll(ctx context.Context) {
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	lastAccounts, _ := s.Request(ctx, "eth_accounts")
	lastChain, _ := s.Request(ctx, "eth_chainId")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if accounts, err := s.Request(ctx, "eth_accounts"); err == nil {
			if string(accounts) != string(lastAccounts) {
				lastAccounts = accounts
				s.emit(EventAccountsChanged, accounts)
			}
		}
		if chainID, err := s.Request(ctx, "eth_chainId"); err == nil {
			if string(chainID) != string(lastChain) {
				lastChain = chainID
				s.emit(EventChainChanged, chainID)
			}
		}
	}
}

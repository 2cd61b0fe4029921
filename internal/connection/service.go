package connection

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mrz1836/tether/internal/config"
	"github.com/mrz1836/tether/internal/metrics"
)

// Creator builds a fresh connection for one provider.
// This allows registering adapters without import cycles.
type Creator func(ctx context.Context) (Connection, error)

// Service creates connections by provider name and holds at most one
// active connection.
type Service struct {
	log     *config.Logger
	metrics *metrics.Metrics

	creatorsMu sync.RWMutex
	creators   map[Provider]Creator

	mu      sync.Mutex
	current Connection
	active  *Stream[Provider]
}

// NewService creates a service with no registered providers.
func NewService(log *config.Logger, m *metrics.Metrics) *Service {
	if log == nil {
		log = config.NullLogger()
	}
	if m == nil {
		m = metrics.Global
	}
	return &Service{
		log:      log,
		metrics:  m,
		creators: make(map[Provider]Creator),
		active:   NewStream[Provider](""),
	}
}

// Register adds a connection creator for the given provider.
func (s *Service) Register(p Provider, creator Creator) {
	s.creatorsMu.Lock()
	defer s.creatorsMu.Unlock()
	s.creators[p] = creator
}

// IsSupported returns true if the provider has a registered creator.
func (s *Service) IsSupported(p Provider) bool {
	s.creatorsMu.RLock()
	defer s.creatorsMu.RUnlock()
	_, ok := s.creators[p]
	return ok
}

// SupportedProviders returns all registered providers in name order.
func (s *Service) SupportedProviders() []Provider {
	s.creatorsMu.RLock()
	defer s.creatorsMu.RUnlock()
	out := make([]Provider, 0, len(s.creators))
	for p := range s.creators {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Connect creates a fresh connection for p and connects it. The active slot
// is replaced only when the attempt succeeds; a previously active
// connection is not disconnected.
func (s *Service) Connect(ctx context.Context, p Provider) ConnectionInfo {
	s.creatorsMu.RLock()
	creator, ok := s.creators[p]
	s.creatorsMu.RUnlock()
	if !ok {
		s.metrics.RecordConnect(string(p), metrics.OutcomeError)
		return NewError[*Details](fmt.Sprintf("unsupported provider: %s", p))
	}

	conn, err := creator(ctx)
	if err != nil {
		s.log.Error("creating %s connection: %v", p, err)
		s.metrics.RecordConnect(string(p), metrics.OutcomeError)
		return NewError[*Details](fmt.Sprintf("Failed to connect to %s", p))
	}

	result := conn.Connect(ctx)
	switch {
	case result.Success:
		s.metrics.RecordConnect(string(p), metrics.OutcomeSuccess)
		s.mu.Lock()
		s.current = conn
		s.mu.Unlock()
		s.active.Publish(p)
		s.log.Info("active connection is now %s", p)
	case result.UserRejected:
		s.metrics.RecordConnect(string(p), metrics.OutcomeRejected)
	default:
		s.metrics.RecordConnect(string(p), metrics.OutcomeError)
	}
	return result
}

// Disconnect disconnects the active connection, if any, and clears the slot.
// The slot is cleared even when the wallet reports an error.
func (s *Service) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	conn := s.current
	s.current = nil
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	s.active.Publish("")
	if err := conn.Disconnect(ctx); err != nil {
		s.log.Error("disconnecting %s: %v", conn.Provider(), err)
		return err
	}
	return nil
}

// SwitchChain asks the active connection to switch networks.
func (s *Service) SwitchChain(ctx context.Context, chainID uint64) ResponseWithoutData {
	conn := s.Current()
	if conn == nil {
		return NewError[struct{}]("not connected")
	}
	result := conn.SwitchChain(ctx, chainID)
	switch {
	case result.Success:
		s.metrics.RecordSwitchChain(string(conn.Provider()), metrics.OutcomeSuccess)
	case result.UserRejected:
		s.metrics.RecordSwitchChain(string(conn.Provider()), metrics.OutcomeRejected)
	default:
		s.metrics.RecordSwitchChain(string(conn.Provider()), metrics.OutcomeError)
	}
	return result
}

// Current returns the active connection or nil.
func (s *Service) Current() Connection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Active publishes the provider of the active connection each time the slot
// changes, and "" once it is cleared.
func (s *Service) Active() *Stream[Provider] {
	return s.active
}

// WalletAddress returns the account stream of the active connection, or nil.
func (s *Service) WalletAddress() *Stream[Value[string]] {
	if c := s.Current(); c != nil {
		return c.SubscribeAccountChanged()
	}
	return nil
}

// ChainID returns the chain stream of the active connection, or nil.
func (s *Service) ChainID() *Stream[Value[uint64]] {
	if c := s.Current(); c != nil {
		return c.SubscribeChainChanged()
	}
	return nil
}

// Connected returns the connected stream of the active connection, or nil.
func (s *Service) Connected() *Stream[bool] {
	if c := s.Current(); c != nil {
		return c.SubscribeConnectionChanged()
	}
	return nil
}

// Snapshot is a point-in-time view of the active connection.
type Snapshot struct {
	Provider      Provider      `json:"provider,omitempty"`
	Connected     bool          `json:"connected"`
	WalletAddress Value[string] `json:"walletAddress"`
	ChainID       Value[uint64] `json:"chainId"`
}

// Snapshot returns the latest published state of the active connection.
func (s *Service) Snapshot() Snapshot {
	c := s.Current()
	if c == nil {
		return Snapshot{WalletAddress: Absent[string](), ChainID: Absent[uint64]()}
	}
	return Snapshot{
		Provider:      c.Provider(),
		Connected:     c.SubscribeConnectionChanged().Latest(),
		WalletAddress: c.SubscribeAccountChanged().Latest(),
		ChainID:       c.SubscribeChainChanged().Latest(),
	}
}

package server

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/mrz1836/tether/internal/connection"
)

const (
	eventBuffer  = 64
	writeTimeout = 5 * time.Second
	pingInterval = 30 * time.Second
)

// Event types sent on /v1/events.
const (
	EventActive    = "active"
	EventAccount   = "account"
	EventChain     = "chain"
	EventConnected = "connected"
)

// Event is one state change pushed to websocket clients. Data holds a
// provider name for active, a Value for account and chain, and a bool for
// connected.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// GET /v1/events
//
// Each client first receives the active provider followed by the replayed
// state of that connection, then every change. When the active connection
// is replaced the feed follows the new one.
func (s *Server) events(c *gin.Context) {
	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Debug("events upgrade: %v", err)
		return
	}

	f := newFeed(s.svc)
	defer f.close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	defer func() { _ = ws.Close() }()

	for {
		select {
		case e, ok := <-f.out:
			if !ok {
				s.log.Debug("events client too slow, dropping")
				_ = ws.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "too slow"),
					time.Now().Add(writeTimeout))
				return
			}
			_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := ws.WriteJSON(e); err != nil {
				return
			}
		case <-ping.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}

// feed turns the service's streams into a channel of events.
type feed struct {
	svc *connection.Service
	out chan Event

	mu       sync.Mutex
	closed   bool
	connSubs []func()
	unActive func()
}

func newFeed(svc *connection.Service) *feed {
	f := &feed{svc: svc, out: make(chan Event, eventBuffer)}
	f.unActive = svc.Active().Subscribe(f.follow)
	return f
}

// follow moves the per-connection subscriptions to the active connection.
func (f *feed) follow(p connection.Provider) {
	f.mu.Lock()
	subs := f.connSubs
	f.connSubs = nil
	f.mu.Unlock()
	for _, u := range subs {
		u()
	}

	f.send(Event{Type: EventActive, Data: p})

	conn := f.svc.Current()
	if p == "" || conn == nil {
		return
	}
	subs = []func(){
		conn.SubscribeConnectionChanged().Subscribe(func(v bool) {
			f.send(Event{Type: EventConnected, Data: v})
		}),
		conn.SubscribeAccountChanged().Subscribe(func(v connection.Value[string]) {
			f.send(Event{Type: EventAccount, Data: v})
		}),
		conn.SubscribeChainChanged().Subscribe(func(v connection.Value[uint64]) {
			f.send(Event{Type: EventChain, Data: v})
		}),
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		for _, u := range subs {
			u()
		}
		return
	}
	f.connSubs = subs
	f.mu.Unlock()
}

// send never blocks the publisher; a full buffer closes the feed.
func (f *feed) send(e Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	select {
	case f.out <- e:
	default:
		f.closed = true
		close(f.out)
	}
}

func (f *feed) close() {
	f.unActive()

	f.mu.Lock()
	subs := f.connSubs
	f.connSubs = nil
	if !f.closed {
		f.closed = true
		close(f.out)
	}
	f.mu.Unlock()

	for _, u := range subs {
		u()
	}
}

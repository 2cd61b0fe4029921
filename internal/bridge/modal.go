// Package bridge implements a WalletConnect v1 session over a relay bridge.
//
// The dApp side subscribes on its client id, publishes an encrypted
// wc_sessionRequest on a fresh handshake topic and shows the pairing URI as
// a QR code. The wallet answers on the client id topic; later requests go to
// the wallet's peer id.
package bridge

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
	"go.uber.org/atomic"

	"github.com/mrz1836/tether/internal/config"
	"github.com/mrz1836/tether/internal/connection"
	"github.com/mrz1836/tether/internal/connection/walletconnect"
	tethererr "github.com/mrz1836/tether/pkg/errors"
)

// Options configures a Modal.
type Options struct {
	// URL is the bridge base URL (https, wss, http or ws).
	URL string
	// App is shown to the wallet in the session request.
	App PeerMeta
	// ChainID is suggested in the session request; 0 leaves it to the wallet.
	ChainID uint64
	// Display is called with the pairing URI of each new session request.
	Display func(uri string) error
	// QRPath receives a PNG of the pairing QR code when set.
	QRPath string
	Logger *config.Logger
	Dialer *websocket.Dialer
}

// Modal is a WalletConnect v1 dApp session.
type Modal struct {
	opts     Options
	log      *config.Logger
	dialer   *websocket.Dialer
	clientID string

	nextID  atomic.Int64
	pairing atomic.Bool

	lifeMu  sync.Mutex // serializes Open and Disconnect
	writeMu sync.Mutex

	mu           sync.Mutex
	conn         *websocket.Conn
	key          []byte
	topic        string
	sessionReqID int64
	peerID       string
	accounts     []string
	chainID      uint64
	pending      map[int64]chan response

	cbMu       sync.Mutex
	stateFns   []func(walletconnect.State)
	addressFns []func(string)
	infoFns    []func(walletconnect.WalletInfo)
}

var (
	_ walletconnect.Modal        = (*Modal)(nil)
	_ connection.RequestProvider = (*Modal)(nil)
)

// New creates a Modal. Nothing is dialled until Open.
func New(opts Options) (*Modal, error) {
	if _, err := socketURL(opts.URL); err != nil {
		return nil, tethererr.WithDetails(
			tethererr.Wrap(tethererr.ErrConfigInvalid, "bridge url: %v", err),
			map[string]string{"url": opts.URL})
	}
	log := opts.Logger
	if log == nil {
		log = config.NullLogger()
	}
	dialer := opts.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	m := &Modal{
		opts:     opts,
		log:      log,
		dialer:   dialer,
		clientID: uuid.NewString(),
	}
	m.nextID.Store(time.Now().UnixNano() / 1000)
	return m, nil
}

// ClientID returns the dApp peer id.
func (m *Modal) ClientID() string {
	return m.clientID
}

// URI returns the pairing URI of the pending or active session.
func (m *Modal) URI() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.topic == "" {
		return ""
	}
	return PairingURI(m.topic, m.opts.URL, m.key)
}

// Pairing reports whether a session request is waiting for the wallet.
func (m *Modal) Pairing() bool {
	return m.pairing.Load()
}

// Open starts a session request and shows the pairing QR code. With an
// active session it re-emits the current state instead.
func (m *Modal) Open(ctx context.Context) error {
	m.lifeMu.Lock()
	defer m.lifeMu.Unlock()

	m.mu.Lock()
	active, dialled, chainID := m.peerID != "", m.conn != nil, m.chainID
	m.mu.Unlock()
	if active {
		m.emitState(walletconnect.State{SelectedNetworkID: chainID})
		return nil
	}
	if dialled || m.Pairing() {
		return nil
	}

	key, err := NewKey()
	if err != nil {
		return err
	}
	wsURL, err := socketURL(m.opts.URL)
	if err != nil {
		return tethererr.Wrap(tethererr.ErrConfigInvalid, "bridge url: %v", err)
	}
	conn, _, err := m.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return tethererr.Wrap(ErrBridgeUnavailable, "dialling %s: %v", m.opts.URL, err)
	}

	reqID := m.nextID.Inc()
	m.mu.Lock()
	m.conn = conn
	m.key = key
	m.topic = uuid.NewString()
	m.sessionReqID = reqID
	m.pending = make(map[int64]chan response)
	topic := m.topic
	m.mu.Unlock()

	m.pairing.Store(true)
	go m.readLoop(conn)

	if err := m.write(SocketMessage{Topic: m.clientID, Type: typeSub, Silent: true}); err != nil {
		m.abort()
		return err
	}

	uri := m.URI()
	m.log.Debug("walletconnect pairing uri: %s", uri)
	if err := m.show(uri); err != nil {
		m.abort()
		return err
	}
	m.emitState(walletconnect.State{Open: true})

	req := sessionRequest{PeerID: m.clientID, PeerMeta: m.opts.App}
	if m.opts.ChainID != 0 {
		id := m.opts.ChainID
		req.ChainID = &id
	}
	if err := m.publish(topic, newRPCRequest(reqID, methodSessionRequest, req)); err != nil {
		m.abort()
		m.emitState(walletconnect.State{})
		return err
	}
	return nil
}

func (m *Modal) show(uri string) error {
	if m.opts.QRPath != "" {
		if err := WriteQRPNG(uri, m.opts.QRPath); err != nil {
			return err
		}
	}
	if m.opts.Display != nil {
		return m.opts.Display(uri)
	}
	return nil
}

// Disconnect kills the session, closes the socket and emits an empty state.
func (m *Modal) Disconnect(_ context.Context) error {
	m.lifeMu.Lock()
	defer m.lifeMu.Unlock()

	m.mu.Lock()
	peer := m.peerID
	m.mu.Unlock()

	var killErr error
	if peer != "" {
		kill := newRPCRequest(m.nextID.Inc(), methodSessionUpdate, sessionUpdate{Approved: false})
		killErr = m.publish(peer, kill)
	}

	if m.teardown() {
		m.emitAddress("")
		m.emitState(walletconnect.State{})
	}
	if killErr != nil {
		return tethererr.Wrap(killErr, "sending session kill")
	}
	return nil
}

// SwitchNetwork asks the wallet to switch chains and waits for its answer.
func (m *Modal) SwitchNetwork(ctx context.Context, chainID uint64) error {
	_, err := m.Request(ctx, "wallet_switchEthereumChain", map[string]string{
		"chainId": connection.EncodeQuantity(chainID),
	})
	if err != nil {
		return err
	}

	m.mu.Lock()
	changed := m.chainID != chainID
	m.chainID = chainID
	m.mu.Unlock()
	if changed {
		m.emitState(walletconnect.State{SelectedNetworkID: chainID})
	}
	return nil
}

// Address returns the first session account.
func (m *Modal) Address() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.accounts) == 0 {
		return ""
	}
	return m.accounts[0]
}

// ChainID returns the session chain.
func (m *Modal) ChainID() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.chainID
}

// WalletProvider returns the modal as a request handle.
func (m *Modal) WalletProvider() connection.RequestProvider {
	return m
}

// SubscribeState registers fn for session state changes.
func (m *Modal) SubscribeState(fn func(walletconnect.State)) {
	m.cbMu.Lock()
	defer m.cbMu.Unlock()
	m.stateFns = append(m.stateFns, fn)
}

// SubscribeAddress registers fn for account changes.
func (m *Modal) SubscribeAddress(fn func(string)) {
	m.cbMu.Lock()
	defer m.cbMu.Unlock()
	m.addressFns = append(m.addressFns, fn)
}

// SubscribeWalletInfo registers fn for the wallet's metadata.
func (m *Modal) SubscribeWalletInfo(fn func(walletconnect.WalletInfo)) {
	m.cbMu.Lock()
	defer m.cbMu.Unlock()
	m.infoFns = append(m.infoFns, fn)
}

// Request forwards a JSON-RPC call to the wallet and waits for the answer.
func (m *Modal) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	id := m.nextID.Inc()
	ch := make(chan response, 1)

	m.mu.Lock()
	peer := m.peerID
	if peer == "" {
		m.mu.Unlock()
		return nil, ErrNoSession
	}
	m.pending[id] = ch
	m.mu.Unlock()

	if err := m.publish(peer, newRPCRequest(id, method, params...)); err != nil {
		m.forget(id)
		return nil, err
	}

	select {
	case r := <-ch:
		return r.result, r.err
	case <-ctx.Done():
		m.forget(id)
		return nil, ctx.Err()
	}
}

func (m *Modal) forget(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, id)
}

func (m *Modal) publish(topic string, req rpcRequest) error {
	m.mu.Lock()
	key := m.key
	m.mu.Unlock()

	plain, err := json.Marshal(req)
	if err != nil {
		return tethererr.Wrap(err, "encoding %s", req.Method)
	}
	payload, err := Encrypt(key, plain)
	if err != nil {
		return err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return tethererr.Wrap(err, "encoding payload")
	}
	m.log.Debug("walletconnect publish %s id=%d", req.Method, req.ID)
	return m.write(SocketMessage{Topic: topic, Type: typePub, Payload: string(body), Silent: req.silent()})
}

func (m *Modal) write(msg SocketMessage) error {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return ErrNoSession
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if err := conn.WriteJSON(msg); err != nil {
		return tethererr.Wrap(ErrBridgeUnavailable, "writing %s: %v", msg.Type, err)
	}
	return nil
}

func (m *Modal) readLoop(conn *websocket.Conn) {
	defer m.closed(conn)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			m.log.Debug("walletconnect socket closed: %v", err)
			return
		}

		var msg SocketMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			m.log.Warn("walletconnect: bad frame: %v", err)
			continue
		}
		if msg.Type != typePub {
			continue
		}
		if err := m.write(SocketMessage{Topic: m.clientID, Type: typeAck, Silent: true}); err != nil {
			m.log.Debug("walletconnect ack: %v", err)
		}

		var payload Payload
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			m.log.Warn("walletconnect: bad payload: %v", err)
			continue
		}
		m.mu.Lock()
		key := m.key
		m.mu.Unlock()
		plain, err := Decrypt(key, &payload)
		if err != nil {
			m.log.Warn("walletconnect: %v", err)
			continue
		}
		m.dispatch(inbound{raw: string(plain)})
	}
}

func (m *Modal) dispatch(in inbound) {
	if in.isResponse() {
		id := in.id()
		m.mu.Lock()
		session := m.sessionReqID != 0 && id == m.sessionReqID
		ch := m.pending[id]
		delete(m.pending, id)
		m.mu.Unlock()

		switch {
		case session:
			m.handleApproval(in.response())
		case ch != nil:
			ch <- in.response()
		default:
			m.log.Debug("walletconnect: response for unknown request %d", id)
		}
		return
	}

	switch method := in.method(); method {
	case methodSessionUpdate:
		m.handleUpdate(in)
	default:
		m.log.Debug("walletconnect: ignoring %s", method)
	}
}

func (m *Modal) handleApproval(r response) {
	var a approval
	if r.err == nil {
		a = parseApproval(gjson.ParseBytes(r.result))
	}
	if r.err != nil || !a.Approved || a.PeerID == "" || len(a.Accounts) == 0 {
		m.log.Info("walletconnect: session rejected: %v", r.err)
		m.teardown()
		m.emitState(walletconnect.State{})
		return
	}
	if a.ChainID == 0 {
		a.ChainID = m.opts.ChainID
	}

	m.mu.Lock()
	m.sessionReqID = 0
	m.peerID = a.PeerID
	m.accounts = a.Accounts
	m.chainID = a.ChainID
	m.mu.Unlock()
	m.pairing.Store(false)

	m.log.Info("walletconnect: session approved by %s on chain %d", a.PeerMeta.Name, a.ChainID)
	m.emitInfo(walletconnect.WalletInfo{
		Name:        a.PeerMeta.Name,
		Description: a.PeerMeta.Description,
		URL:         a.PeerMeta.URL,
		Icons:       a.PeerMeta.Icons,
	})
	m.emitAddress(a.Accounts[0])
	m.emitState(walletconnect.State{SelectedNetworkID: a.ChainID})
}

func (m *Modal) handleUpdate(in inbound) {
	u, ok := parseUpdate(in)
	if !ok {
		return
	}
	if !u.Approved {
		m.log.Warn("walletconnect: session closed by wallet")
		if m.teardown() {
			m.emitAddress("")
			m.emitState(walletconnect.State{})
		}
		return
	}

	m.mu.Lock()
	prevAddr, prevChain := first(m.accounts), m.chainID
	if len(u.Accounts) > 0 {
		m.accounts = u.Accounts
	}
	if u.ChainID != nil {
		m.chainID = *u.ChainID
	}
	addr, chainID := first(m.accounts), m.chainID
	m.mu.Unlock()

	if addr != prevAddr {
		m.emitAddress(addr)
	}
	if chainID != prevChain {
		m.emitState(walletconnect.State{SelectedNetworkID: chainID})
	}
}

// closed runs when conn's read loop ends.
func (m *Modal) closed(conn *websocket.Conn) {
	m.mu.Lock()
	current := m.conn == conn
	m.mu.Unlock()
	if !current {
		return
	}
	if m.teardown() {
		m.emitAddress("")
		m.emitState(walletconnect.State{})
	}
}

// abort drops a half-opened session without emitting.
func (m *Modal) abort() {
	m.teardown()
}

// teardown clears the session, closes the socket and fails pending
// requests. It reports whether there was a socket to close.
func (m *Modal) teardown() bool {
	m.mu.Lock()
	conn := m.conn
	pending := m.pending
	m.conn = nil
	m.pending = nil
	m.topic = ""
	m.sessionReqID = 0
	m.peerID = ""
	m.accounts = nil
	m.chainID = 0
	m.mu.Unlock()
	m.pairing.Store(false)

	for _, ch := range pending {
		ch <- response{err: ErrSessionClosed}
	}
	if conn == nil {
		return false
	}

	m.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	m.writeMu.Unlock()
	_ = conn.Close()
	return true
}

func (m *Modal) emitState(s walletconnect.State) {
	m.cbMu.Lock()
	fns := slices.Clone(m.stateFns)
	m.cbMu.Unlock()
	for _, fn := range fns {
		fn(s)
	}
}

func (m *Modal) emitAddress(addr string) {
	m.cbMu.Lock()
	fns := slices.Clone(m.addressFns)
	m.cbMu.Unlock()
	for _, fn := range fns {
		fn(addr)
	}
}

func (m *Modal) emitInfo(info walletconnect.WalletInfo) {
	m.cbMu.Lock()
	fns := slices.Clone(m.infoFns)
	m.cbMu.Unlock()
	for _, fn := range fns {
		fn(info)
	}
}

func first(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

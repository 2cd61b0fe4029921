package bridge

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/mrz1836/tether/internal/connection"
)

// Socket message types.
const (
	typePub = "pub"
	typeSub = "sub"
	typeAck = "ack"
)

// Session methods.
const (
	methodSessionRequest = "wc_sessionRequest"
	methodSessionUpdate  = "wc_sessionUpdate"
)

// SocketMessage is the bridge relay frame.
type SocketMessage struct {
	Topic   string `json:"topic"`
	Type    string `json:"type"`
	Payload string `json:"payload"`
	Silent  bool   `json:"silent"`
}

// PeerMeta describes one side of a session.
type PeerMeta struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	Icons       []string `json:"icons"`
}

type sessionRequest struct {
	PeerID   string   `json:"peerId"`
	PeerMeta PeerMeta `json:"peerMeta"`
	ChainID  *uint64  `json:"chainId"`
}

type sessionUpdate struct {
	Approved bool     `json:"approved"`
	ChainID  *uint64  `json:"chainId"`
	Accounts []string `json:"accounts"`
}

type rpcRequest struct {
	ID      int64  `json:"id"`
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

func newRPCRequest(id int64, method string, params ...any) rpcRequest {
	if params == nil {
		params = []any{}
	}
	return rpcRequest{ID: id, JSONRPC: "2.0", Method: method, Params: params}
}

// silent reports whether the wallet should not prompt for this request.
func (r rpcRequest) silent() bool {
	return strings.HasPrefix(r.Method, "wc_")
}

// response is a decoded JSON-RPC response.
type response struct {
	result json.RawMessage
	err    error
}

// inbound is one decrypted JSON-RPC message from the wallet.
type inbound struct {
	raw string
}

func (m inbound) id() int64 {
	return gjson.Get(m.raw, "id").Int()
}

func (m inbound) method() string {
	return gjson.Get(m.raw, "method").String()
}

func (m inbound) isResponse() bool {
	return !gjson.Get(m.raw, "method").Exists() &&
		(gjson.Get(m.raw, "result").Exists() || gjson.Get(m.raw, "error").Exists())
}

func (m inbound) response() response {
	if e := gjson.Get(m.raw, "error"); e.Exists() {
		return response{err: &connection.RPCError{
			Code:    int(e.Get("code").Int()),
			Message: e.Get("message").String(),
		}}
	}
	return response{result: json.RawMessage(gjson.Get(m.raw, "result").Raw)}
}

// approval is the wallet's answer to a session request.
type approval struct {
	Approved bool
	ChainID  uint64
	Accounts []string
	PeerID   string
	PeerMeta PeerMeta
}

func parseApproval(result gjson.Result) approval {
	a := approval{
		Approved: result.Get("approved").Bool(),
		ChainID:  result.Get("chainId").Uint(),
		PeerID:   result.Get("peerId").String(),
		PeerMeta: PeerMeta{
			Name:        result.Get("peerMeta.name").String(),
			Description: result.Get("peerMeta.description").String(),
			URL:         result.Get("peerMeta.url").String(),
		},
	}
	// some wallets omit approved on success
	if !result.Get("approved").Exists() {
		a.Approved = true
	}
	for _, acc := range result.Get("accounts").Array() {
		a.Accounts = append(a.Accounts, acc.String())
	}
	for _, icon := range result.Get("peerMeta.icons").Array() {
		a.PeerMeta.Icons = append(a.PeerMeta.Icons, icon.String())
	}
	return a
}

// parseUpdate reads the first wc_sessionUpdate param.
func parseUpdate(m inbound) (sessionUpdate, bool) {
	p := gjson.Get(m.raw, "params.0")
	if !p.Exists() || !p.Get("approved").Exists() {
		return sessionUpdate{}, false
	}
	u := sessionUpdate{Approved: p.Get("approved").Bool()}
	if c := p.Get("chainId"); c.Exists() && c.Type != gjson.Null {
		id := c.Uint()
		u.ChainID = &id
	}
	for _, acc := range p.Get("accounts").Array() {
		u.Accounts = append(u.Accounts, acc.String())
	}
	return u, true
}

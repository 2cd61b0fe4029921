// Package connection provides a provider-agnostic wallet connection contract,
// the shared state machine adapters embed, and a service that keeps at most
// one active connection.
package connection

import (
	"context"
	"encoding/json"
)

// RequestProvider forwards JSON-RPC requests to the wallet.
type RequestProvider interface {
	Request(ctx context.Context, method string, params ...any) (json.RawMessage, error)
}

// Connection is the operation set every wallet adapter implements.
//
// Connect and SwitchChain never return errors; failures are reported in the
// response envelope. Disconnect and the getters propagate errors.
type Connection interface {
	Provider() Provider

	GetWalletAddress(ctx context.Context) (Value[string], error)
	GetChainID(ctx context.Context) (Value[uint64], error)
	GetProvider(ctx context.Context) (RequestProvider, error)
	GetSigner(ctx context.Context) (*Signer, error)

	Connect(ctx context.Context) ConnectionInfo
	Disconnect(ctx context.Context) error
	SwitchChain(ctx context.Context, chainID uint64) ResponseWithoutData

	SubscribeChainChanged() *Stream[Value[uint64]]
	SubscribeAccountChanged() *Stream[Value[string]]
	SubscribeConnectionChanged() *Stream[bool]
}

// Querier answers the two state queries the shared handlers refresh from.
type Querier interface {
	GetWalletAddress(ctx context.Context) (Value[string], error)
	GetChainID(ctx context.Context) (Value[uint64], error)
}

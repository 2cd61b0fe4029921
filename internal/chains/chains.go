// Package chains holds the static list of networks offered to wallets.
package chains

import (
	"sort"
	"strconv"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Chain describes an EVM network.
type Chain struct {
	ID          uint64 `json:"chainId" yaml:"chain_id"`
	Name        string `json:"name" yaml:"name"`
	Currency    string `json:"currency" yaml:"currency"`
	RPCURL      string `json:"rpcUrl" yaml:"rpc_url"`
	ExplorerURL string `json:"explorerUrl" yaml:"explorer_url"`
}

// Well-known chain IDs.
const (
	Ethereum  uint64 = 1
	HelaChain uint64 = 8668
)

//nolint:gochecknoglobals // static network table
var known = map[uint64]Chain{
	Ethereum: {
		ID:          Ethereum,
		Name:        "Ethereum",
		Currency:    "ETH",
		RPCURL:      "https://cloudflare-eth.com",
		ExplorerURL: "https://etherscan.io",
	},
	HelaChain: {
		ID:          HelaChain,
		Name:        "HelaChain",
		Currency:    "HLUSD",
		RPCURL:      "https://mainnet-rpc.helachain.com",
		ExplorerURL: "https://explorer.helachain.com",
	},
}

// Lookup returns the chain with the given ID.
func Lookup(id uint64) (Chain, bool) {
	c, ok := known[id]
	return c, ok
}

// IsKnown reports whether id is in the static list.
func IsKnown(id uint64) bool {
	_, ok := known[id]
	return ok
}

// All returns every known chain ordered by ID.
func All() []Chain {
	out := make([]Chain, 0, len(known))
	for _, c := range known {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// IDs returns every known chain ID in ascending order.
func IDs() []uint64 {
	all := All()
	ids := make([]uint64, len(all))
	for i, c := range all {
		ids[i] = c.ID
	}
	return ids
}

// Name returns a display name, falling back to "chain <id>".
func Name(id uint64) string {
	if c, ok := known[id]; ok {
		return c.Name
	}
	return "chain " + strconv.FormatUint(id, 10)
}

// HexID returns the quantity-encoded chain ID.
func (c Chain) HexID() string {
	return hexutil.EncodeUint64(c.ID)
}

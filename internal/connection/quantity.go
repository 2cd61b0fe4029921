package connection

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	tethererr "github.com/mrz1836/tether/pkg/errors"
)

// EncodeQuantity renders n as a 0x-prefixed hex quantity.
func EncodeQuantity(n uint64) string {
	return hexutil.EncodeUint64(n)
}

// ParseQuantity parses a base-16 chain ID such as "0x1" or "0xa".
// Leading zeros and a missing prefix are tolerated.
func ParseQuantity(s string) (uint64, error) {
	trimmed := strings.ToLower(strings.TrimSpace(s))
	trimmed = strings.TrimPrefix(trimmed, "0x")
	if trimmed == "" {
		return 0, tethererr.WithDetails(tethererr.ErrInvalidChainID, map[string]string{"value": s})
	}
	n, err := strconv.ParseUint(trimmed, 16, 64)
	if err != nil {
		return 0, tethererr.WithDetails(tethererr.ErrInvalidChainID, map[string]string{"value": s})
	}
	return n, nil
}

// DecodeQuantity parses a JSON-RPC result holding a hex string or a plain number.
func DecodeQuantity(raw json.RawMessage) (uint64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return ParseQuantity(s)
	}
	var n uint64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, tethererr.WithDetails(tethererr.ErrInvalidChainID, map[string]string{"value": string(raw)})
	}
	return n, nil
}

package bridge

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
)

// PairingURI returns the v1 pairing URI the wallet scans.
func PairingURI(topic, bridgeURL string, key []byte) string {
	return fmt.Sprintf("wc:%s@1?bridge=%s&key=%s",
		topic, url.QueryEscape(bridgeURL), hex.EncodeToString(key))
}

// socketURL turns a bridge URL into its websocket endpoint.
func socketURL(bridgeURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(bridgeURL))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported bridge scheme %q", u.Scheme) //nolint:err113 // wrapped by caller
	}
	q := u.Query()
	q.Set("protocol", "wc")
	q.Set("version", "1")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

package connection

import (
	"fmt"
	"math"
	"strings"

	"github.com/agnivade/levenshtein"

	tethererr "github.com/mrz1836/tether/pkg/errors"
)

// Provider identifies which adapter backs a connection.
type Provider string

// Supported providers.
const (
	MetaMask      Provider = "MetaMask"
	WalletConnect Provider = "WalletConnect"
)

// maxProviderTypo is the largest edit distance still offered as a suggestion.
const maxProviderTypo = 3

//nolint:gochecknoglobals // alias table
var providerAliases = map[string]Provider{
	"metamask":      MetaMask,
	"mm":            MetaMask,
	"walletconnect": WalletConnect,
	"wc":            WalletConnect,
}

// Providers returns every supported provider.
func Providers() []Provider {
	return []Provider{MetaMask, WalletConnect}
}

func (p Provider) String() string {
	return string(p)
}

// ParseProvider resolves a case-insensitive provider name or alias.
func ParseProvider(s string) (Provider, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("-", "", "_", "", " ", "").Replace(key)
	if p, ok := providerAliases[key]; ok {
		return p, nil
	}

	err := tethererr.WithDetails(tethererr.ErrUnsupportedProvider, map[string]string{"provider": s})
	if suggestion := suggestProvider(key); suggestion != "" {
		return "", tethererr.WithSuggestion(err, fmt.Sprintf("did you mean '%s'?", suggestion))
	}
	return "", tethererr.WithSuggestion(err, "supported providers: MetaMask, WalletConnect")
}

func suggestProvider(input string) Provider {
	if input == "" {
		return ""
	}
	minDist := math.MaxInt
	var suggestion Provider
	for alias, p := range providerAliases {
		if len(alias) < 3 {
			continue
		}
		if dist := levenshtein.ComputeDistance(input, alias); dist < minDist {
			minDist = dist
			suggestion = p
		}
	}
	if minDist <= maxProviderTypo {
		return suggestion
	}
	return ""
}

package chains_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/tether/internal/chains"
)

func TestLookup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		id       uint64
		found    bool
		expected string
		currency string
	}{
		{"ethereum", chains.Ethereum, true, "Ethereum", "ETH"},
		{"helachain", chains.HelaChain, true, "HelaChain", "HLUSD"},
		{"unknown", 137, false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, ok := chains.Lookup(tt.id)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.expected, c.Name)
			assert.Equal(t, tt.currency, c.Currency)
			assert.Equal(t, tt.found, chains.IsKnown(tt.id))
		})
	}
}

func TestAll_Ordered(t *testing.T) {
	t.Parallel()
	all := chains.All()
	require.Len(t, all, 2)
	assert.Equal(t, chains.Ethereum, all[0].ID)
	assert.Equal(t, chains.HelaChain, all[1].ID)
	assert.Equal(t, []uint64{1, 8668}, chains.IDs())
}

func TestName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Ethereum", chains.Name(1))
	assert.Equal(t, "chain 10", chains.Name(10))
}

func TestHexID(t *testing.T) {
	t.Parallel()
	c, _ := chains.Lookup(chains.HelaChain)
	assert.Equal(t, "0x21dc", c.HexID())
	eth, _ := chains.Lookup(chains.Ethereum)
	assert.Equal(t, "0x1", eth.HexID())
	assert.Equal(t, "https://etherscan.io", eth.ExplorerURL)
}

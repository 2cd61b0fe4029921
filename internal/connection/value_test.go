package connection_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/tether/internal/connection"
)

func TestValue_States(t *testing.T) {
	t.Parallel()

	u := connection.Unresolved[uint64]()
	a := connection.Absent[uint64]()
	p := connection.Present[uint64](10)

	_, ok := u.Get()
	assert.False(t, ok)
	assert.False(t, u.IsResolved())
	assert.Equal(t, connection.StateUnresolved, u.State())

	_, ok = a.Get()
	assert.False(t, ok)
	assert.True(t, a.IsResolved())

	v, ok := p.Get()
	assert.True(t, ok)
	assert.Equal(t, uint64(10), v)
	assert.Equal(t, uint64(10), p.OrElse(0))
	assert.Equal(t, uint64(7), a.OrElse(7))

	assert.Equal(t, "<unresolved>", u.String())
	assert.Equal(t, "<absent>", a.String())
	assert.Equal(t, "10", p.String())
}

func TestValue_JSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		value    connection.Value[string]
		expected string
	}{
		{"present", connection.Present("0xABC"), `{"state":"present","value":"0xABC"}`},
		{"absent", connection.Absent[string](), `{"state":"absent"}`},
		{"unresolved", connection.Unresolved[string](), `{"state":"unresolved"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			data, err := json.Marshal(tt.value)
			require.NoError(t, err)
			assert.JSONEq(t, tt.expected, string(data))

			var decoded connection.Value[string]
			require.NoError(t, json.Unmarshal(data, &decoded))
			assert.Equal(t, tt.value, decoded)
		})
	}
}

func TestValue_UnmarshalInvalid(t *testing.T) {
	t.Parallel()
	var v connection.Value[uint64]
	require.Error(t, json.Unmarshal([]byte(`{"state":"maybe"}`), &v))
	require.Error(t, json.Unmarshal([]byte(`{"state":"present"}`), &v))
}

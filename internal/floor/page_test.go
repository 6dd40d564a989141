package floor

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		in       PageRequest
		skip     int
		take     int
		def, max int
	}{
		{"defaults", PageRequest{}, 0, DefaultTake, 0, 0},
		{"negative skip", PageRequest{Skip: -4, Take: 5}, 0, 5, 0, 0},
		{"take clamped", PageRequest{Skip: 3, Take: 5000}, 3, MaxTake, 0, 0},
		{"custom limits", PageRequest{Take: 80}, 0, 50, 20, 50},
		{"custom default", PageRequest{Take: -1}, 0, 20, 20, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Normalize(tt.def, tt.max)
			assert.Equal(t, tt.skip, got.Skip)
			assert.Equal(t, tt.take, got.Take)
		})
	}
}

func TestContainsPatternEscapes(t *testing.T) {
	assert.Equal(t, `%slot\_1\%%`, ContainsPattern(" SLOT_1% "))
	assert.True(t, ContainsFold("Lucky Seven", "SEVEN"))
	assert.False(t, ContainsFold("Lucky Seven", "eight"))
}

func TestNullBalanceRendersZero(t *testing.T) {
	raw, err := json.Marshal(Machine{ID: "m1", MachineNo: "M-1"})
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, float64(0), out["balance"])
	assert.Equal(t, "M-1", out["machine_no"])

	raw, err = json.Marshal(&User{Username: "u", Balance: Int64(42), PasswordHash: "secret"})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"balance":42`)
	assert.NotContains(t, string(raw), "secret")
}

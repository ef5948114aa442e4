package canonjson

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal_SortsKeys(t *testing.T) {
	v := map[string]any{"b": 1, "a": 2, "c": 3}
	out, err := Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, `{"a":2,"b":1,"c":3}`, string(out))
}

func TestMarshal_CompactSeparators(t *testing.T) {
	v := map[string]any{"key": "value", "n": 1}
	out, err := Marshal(v)
	require.NoError(t, err)
	assert.NotContains(t, string(out), " ")
}

func TestMarshal_PreservesNonASCII(t *testing.T) {
	v := map[string]any{"label": "café régulation"}
	out, err := Marshal(v)
	require.NoError(t, err)
	assert.Contains(t, string(out), "café régulation")
	assert.NotContains(t, string(out), "\\u00e9")
}

func TestMarshal_Deterministic(t *testing.T) {
	type payload struct {
		Z int    `json:"z"`
		A string `json:"a"`
	}
	v := payload{Z: 1, A: "x"}
	out1, err := Marshal(v)
	require.NoError(t, err)
	out2, err := Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, out1, out2)

	sum1 := sha256.Sum256(out1)
	sum2 := sha256.Sum256(out2)
	assert.Equal(t, hex.EncodeToString(sum1[:]), hex.EncodeToString(sum2[:]))
}

func TestMustMarshal_PanicsOnUnencodable(t *testing.T) {
	assert.Panics(t, func() {
		MustMarshal(map[string]any{"bad": make(chan int)})
	})
}

func TestMustMarshal_ReturnsBytesOnSuccess(t *testing.T) {
	out := MustMarshal(map[string]any{"ok": true})
	assert.Equal(t, `{"ok":true}`, string(out))
}

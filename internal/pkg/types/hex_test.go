package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHexFromString(t *testing.T) {
	t.Run("accepts valid lowercase hex", func(t *testing.T) {
		h, err := HexFromString("0x1a2b")

		require.NoError(t, err)
		assert.Equal(t, Hex("0x1a2b"), h)
	})

	t.Run("accepts 0X prefix", func(t *testing.T) {
		_, err := HexFromString("0X1A")

		assert.NoError(t, err)
	})

	t.Run("rejects missing prefix", func(t *testing.T) {
		_, err := HexFromString("1a2b")

		assert.Error(t, err)
	})

	t.Run("rejects non-hex characters", func(t *testing.T) {
		_, err := HexFromString("0xzz")

		assert.Error(t, err)
	})
}

func TestHex_Uint64(t *testing.T) {
	t.Run("decodes the numeric value", func(t *testing.T) {
		assert.Equal(t, uint64(0x112a880), Hex("0x112a880").Uint64())
	})

	t.Run("returns zero for the empty value", func(t *testing.T) {
		assert.Equal(t, uint64(0), Hex("").Uint64())
	})

	t.Run("returns zero for a bare prefix", func(t *testing.T) {
		assert.Equal(t, uint64(0), Hex("0x").Uint64())
	})
}

func TestHexFromUint64(t *testing.T) {
	t.Run("round-trips through Uint64", func(t *testing.T) {
		h := HexFromUint64(18000000)

		assert.Equal(t, Hex("0x112a880"), h)
		assert.Equal(t, uint64(18000000), h.Uint64())
	})
}

func TestHex_JSON(t *testing.T) {
	t.Run("unmarshals a valid hex string", func(t *testing.T) {
		var h Hex
		err := json.Unmarshal([]byte(`"0xff"`), &h)

		require.NoError(t, err)
		assert.Equal(t, Hex("0xff"), h)
	})

	t.Run("rejects an invalid hex string", func(t *testing.T) {
		var h Hex
		err := json.Unmarshal([]byte(`"nope"`), &h)

		assert.Error(t, err)
	})

	t.Run("marshals back to a JSON string", func(t *testing.T) {
		data, err := json.Marshal(Hex("0x10"))

		require.NoError(t, err)
		assert.Equal(t, `"0x10"`, string(data))
	})
}

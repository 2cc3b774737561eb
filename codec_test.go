package maskpass

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskRoundTrip(t *testing.T) {
	mask := bytes.Repeat([]byte{0x5a, 0xa5, 0x01}, 22)[:64]
	plain := []byte("correct horse battery staple")

	masked := make([]byte, len(plain))
	require.NoError(t, Mask(masked, plain, mask))
	assert.NotEqual(t, plain, masked)

	out := make([]byte, len(masked))
	require.NoError(t, Unmask(out, masked, mask))
	assert.Equal(t, plain, out)
}

func TestMaskInPlace(t *testing.T) {
	mask := []byte{0xff}
	buf := []byte{0x00, 0x0f, 0xf0}
	require.NoError(t, Mask(buf, buf, mask))
	assert.Equal(t, []byte{0xff, 0xf0, 0x0f}, buf)
}

func TestMaskCyclesShortMask(t *testing.T) {
	mask := []byte{1, 2}
	plain := make([]byte, 5)
	out := make([]byte, 5)
	require.NoError(t, Mask(out, plain, mask))
	assert.Equal(t, []byte{1, 2, 1, 2, 1}, out)
}

func TestMaskErrors(t *testing.T) {
	err := Mask(make([]byte, 2), []byte("ab"), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, KindCrypto))

	err = Mask(make([]byte, 1), []byte("ab"), []byte{1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, KindFormat))
}

func TestHexEncodeUpperCase(t *testing.T) {
	assert.Equal(t, "00FFA51C", HexEncode([]byte{0x00, 0xff, 0xa5, 0x1c}))
	assert.Equal(t, "", HexEncode(nil))
}

func TestHexDecode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []byte
	}{
		{"upper", "00FFA5", []byte{0x00, 0xff, 0xa5}},
		{"lower", "00ffa5", []byte{0x00, 0xff, 0xa5}},
		{"mixed", "aBcD", []byte{0xab, 0xcd}},
		{"empty", "", []byte{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := HexDecode(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHexDecodeErrors(t *testing.T) {
	_, err := HexDecode("abc")
	require.Error(t, err)
	assert.Equal(t, KindFormat, KindOf(err))
	assert.Contains(t, err.Error(), "length 3 is odd")

	_, err = HexDecode("0G")
	require.Error(t, err)
	assert.Equal(t, KindFormat, KindOf(err))
	assert.Contains(t, err.Error(), "'G' is not a valid digit (0-9, a-f, or A-F)")
}

func TestHexRoundTrip(t *testing.T) {
	data := make([]byte, 256)
	for i := range data {
		data[i] = byte(i)
	}
	got, err := HexDecode(HexEncode(data))
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

package mem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecretFromWipesSource(t *testing.T) {
	src := []byte("correct horse")
	s := SecretFrom(src)
	defer s.Destroy()

	assert.Equal(t, []byte("correct horse"), s.Bytes())
	assert.Equal(t, make([]byte, len(src)), src, "source must be zeroed")
	assert.Equal(t, 13, s.Len())
}

func TestSecretDestroy(t *testing.T) {
	s := SecretFromString("0A0B0C")
	require.True(t, s.Alive())

	// the backing pages are unmapped on Destroy, so views must not be touched afterwards
	s.Destroy()
	assert.False(t, s.Alive())
	assert.Nil(t, s.Bytes())
	assert.Equal(t, 0, s.Len())

	// second destroy is a no-op
	s.Destroy()
}

func TestSecretEmpty(t *testing.T) {
	var nilSecret *SecretBuffer
	assert.Nil(t, nilSecret.Bytes())
	assert.True(t, nilSecret.Equal(nil))
	nilSecret.Destroy()

	empty := NewSecret(0)
	assert.Equal(t, 0, empty.Len())
	assert.True(t, empty.EqualString(""))
	empty.Destroy()
}

func TestSecretEqual(t *testing.T) {
	s := SecretFromString("ABCD")
	defer s.Destroy()

	assert.True(t, s.Equal([]byte("ABCD")))
	assert.True(t, s.EqualString("ABCD"))
	assert.False(t, s.EqualString("ABCE"))
	assert.False(t, s.EqualString("ABC"))
	assert.False(t, s.Equal([]byte("ABCDE")))
	assert.Equal(t, "ABCD", s.String())
}

func TestNewSecretIsZeroedAndMutable(t *testing.T) {
	s := NewSecret(8)
	defer s.Destroy()

	assert.Equal(t, make([]byte, 8), s.Bytes())
	copy(s.Bytes(), "abcdefgh")
	assert.Equal(t, "abcdefgh", s.String())
}

func TestProtectionLevelString(t *testing.T) {
	assert.Equal(t, "full", ProtectionFull.String())
	assert.Equal(t, "partial", ProtectionPartial.String())
	assert.Equal(t, "none", ProtectionNone.String())
}

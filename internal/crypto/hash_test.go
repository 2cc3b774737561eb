package crypto

import (
	"crypto/sha512"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"southwinds.dev/maskpass/internal/misc"
)

func TestNewHasherDefaultsToSHA512(t *testing.T) {
	h, err := NewHasher("")
	require.NoError(t, err)
	assert.Equal(t, "sha512", h.Name())

	data := []byte("alice\x00\x0012345")
	want := sha512.Sum512(data)
	got, err := h.Sum(data)
	require.NoError(t, err)
	assert.Equal(t, want[:], got)
}

func TestProvidersProduceFullLengthDigests(t *testing.T) {
	for _, name := range Providers() {
		t.Run(name, func(t *testing.T) {
			h, err := NewHasher(name)
			require.NoError(t, err)

			first, err := h.Sum([]byte("key file contents"))
			require.NoError(t, err)
			assert.Len(t, first, misc.HashSize)

			second, err := h.Sum([]byte("key file contents"))
			require.NoError(t, err)
			assert.Equal(t, first, second, "digest must be deterministic")

			empty, err := h.Sum(nil)
			require.NoError(t, err)
			assert.Len(t, empty, misc.HashSize)
		})
	}
}

func TestProvidersDiffer(t *testing.T) {
	seen := map[string]string{}
	for _, name := range Providers() {
		h, err := NewHasher(name)
		require.NoError(t, err)
		sum, err := h.Sum([]byte("same input"))
		require.NoError(t, err)
		if other, ok := seen[string(sum)]; ok {
			t.Fatalf("%s and %s produced the same digest", name, other)
		}
		seen[string(sum)] = name
	}
}

func TestNewHasherUnknown(t *testing.T) {
	_, err := NewHasher("md5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "md5")
	assert.Contains(t, err.Error(), "sha512")
}

func TestNewHasherIsCaseInsensitive(t *testing.T) {
	h, err := NewHasher("SHA3-512")
	require.NoError(t, err)
	assert.Equal(t, "sha3-512", h.Name())
}

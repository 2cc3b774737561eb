package crypto

import (
	"crypto/sha512"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
	"southwinds.dev/maskpass/internal/misc"
)

// Hasher computes a fixed size digest over an arbitrary byte buffer.
type Hasher interface {
	// Name returns the registry name of the provider
	Name() string
	// Sum returns the digest of data. The result is always misc.HashSize bytes long.
	Sum(data []byte) ([]byte, error)
}

type hashFunc struct {
	name string
	sum  func(data []byte) ([]byte, error)
}

func (h hashFunc) Name() string { return h.name }

func (h hashFunc) Sum(data []byte) ([]byte, error) {
	digest, err := h.sum(data)
	if err != nil {
		return nil, fmt.Errorf("%s digest failed: %w", h.name, err)
	}
	if len(digest) != misc.HashSize {
		return nil, fmt.Errorf("%s digest has unexpected length %d (want %d)", h.name, len(digest), misc.HashSize)
	}
	return digest, nil
}

var providers = map[string]Hasher{
	"sha512": hashFunc{name: "sha512", sum: func(data []byte) ([]byte, error) {
		sum := sha512.Sum512(data)
		return sum[:], nil
	}},
	"sha3-512": hashFunc{name: "sha3-512", sum: func(data []byte) ([]byte, error) {
		sum := sha3.Sum512(data)
		return sum[:], nil
	}},
	"blake2b-512": hashFunc{name: "blake2b-512", sum: func(data []byte) ([]byte, error) {
		h, err := blake2b.New512(nil)
		if err != nil {
			return nil, err
		}
		h.Write(data)
		return h.Sum(nil), nil
	}},
}

// NewHasher returns the provider registered under name. An empty name selects SHA-512.
func NewHasher(name string) (Hasher, error) {
	if name == "" {
		name = misc.DefaultHash
	}
	h, ok := providers[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown hash provider %q (available: %s)", name, strings.Join(Providers(), ", "))
	}
	return h, nil
}

// Providers lists the registered provider names in sorted order.
func Providers() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

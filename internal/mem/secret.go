package mem

import (
	"crypto/subtle"

	"github.com/awnumar/memguard"
)

// SecretBuffer owns a block of sensitive bytes held in a memguard locked buffer.
// Destroy zero-fills and releases it; the zero value and nil are valid empty buffers.
type SecretBuffer struct {
	lb *memguard.LockedBuffer
}

// NewSecret allocates a mutable, zero-filled secret of size bytes.
func NewSecret(size int) *SecretBuffer {
	if size <= 0 {
		return &SecretBuffer{}
	}
	return &SecretBuffer{lb: memguard.NewBuffer(size)}
}

// SecretFrom moves src into a new secret buffer and wipes src.
func SecretFrom(src []byte) *SecretBuffer {
	s := NewSecret(len(src))
	if s.lb != nil {
		copy(s.lb.Bytes(), src)
	}
	memguard.WipeBytes(src)
	return s
}

// SecretFromString copies s into a new secret buffer. The string itself cannot be
// wiped; callers use this only for values that are already public, like a masked hex form.
func SecretFromString(s string) *SecretBuffer {
	b := NewSecret(len(s))
	if b.lb != nil {
		copy(b.lb.Bytes(), s)
	}
	return b
}

// Bytes returns a view of the secret. The view is invalid after Destroy.
func (s *SecretBuffer) Bytes() []byte {
	if s == nil || s.lb == nil || !s.lb.IsAlive() {
		return nil
	}
	return s.lb.Bytes()
}

// Len is the number of secret bytes held.
func (s *SecretBuffer) Len() int {
	return len(s.Bytes())
}

// String returns a copy of the secret as a string. Only meant for non-plaintext
// representations (hex of a masked value).
func (s *SecretBuffer) String() string {
	return string(s.Bytes())
}

// Equal compares the secret with b in constant time.
func (s *SecretBuffer) Equal(b []byte) bool {
	own := s.Bytes()
	if len(own) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(own, b) == 1
}

// EqualString is Equal for a string operand.
func (s *SecretBuffer) EqualString(v string) bool {
	own := s.Bytes()
	if len(own) != len(v) {
		return false
	}
	var diff byte
	for i := 0; i < len(own); i++ {
		diff |= own[i] ^ v[i]
	}
	return diff == 0
}

// Alive reports whether the buffer still holds data.
func (s *SecretBuffer) Alive() bool {
	return s != nil && s.lb != nil && s.lb.IsAlive()
}

// Destroy wipes and releases the secret. It is safe to call more than once.
func (s *SecretBuffer) Destroy() {
	if s == nil || s.lb == nil {
		return
	}
	s.lb.Destroy()
	s.lb = nil
}

// Wipe zero-fills b in place.
func Wipe(b []byte) {
	memguard.WipeBytes(b)
}

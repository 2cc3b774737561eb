package maskpass

import (
	"fmt"

	"southwinds.dev/maskpass/internal/env"
	"southwinds.dev/maskpass/internal/mem"
)

// Slot names a logical passphrase.
type Slot int

const (
	// SlotDatabase is the database encryption passphrase (ydb_passwd / gtm_passwd)
	SlotDatabase Slot = iota
	// SlotTLS is a TLS private key passphrase, qualified by the TLS configuration label
	// passed as suffix (ydb_tls_passwd_<label> / gtmtls_passwd_<label>)
	SlotTLS
)

func (s Slot) String() string {
	switch s {
	case SlotDatabase:
		return "database"
	case SlotTLS:
		return "tls"
	default:
		return fmt.Sprintf("slot(%d)", int(s))
	}
}

func (s Slot) envIndex() (env.Index, error) {
	switch s {
	case SlotDatabase:
		return env.Passwd, nil
	case SlotTLS:
		return env.TLSPasswd, nil
	default:
		return 0, newError(KindConfiguration, nil, "unknown passphrase slot %d", int(s))
	}
}

// VariableNames returns the current and legacy environment variable names of a slot.
func (s Slot) VariableNames(suffix string) (current, legacy string) {
	idx, err := s.envIndex()
	if err != nil {
		return "", ""
	}
	return env.Names(idx, suffix)
}

// Mode controls where Update may obtain a passphrase from.
type Mode uint

const (
	// ModeInteractive permits prompting on the terminal when the variable is empty
	ModeInteractive Mode = 1 << iota
	// ModeNoEnvVar takes the hex value from the carried-over entry instead of the environment
	ModeNoEnvVar
)

// Entry holds one passphrase in both its obfuscated hex form and plain form.
// Both live in locked memory and are wiped by Release.
type Entry struct {
	slot     Slot
	suffix   string
	envName  string
	envValue *mem.SecretBuffer
	passwd   *mem.SecretBuffer
	hasValue bool
	unmasked bool // passwd holds the plain form of envValue
}

// NewEntry builds an entry carrying hexValue for use with ModeNoEnvVar, where the
// caller supplies the obfuscated passphrase directly. An empty hexValue asks Update
// to prompt.
func NewEntry(slot Slot, suffix, hexValue string) *Entry {
	current, _ := slot.VariableNames(suffix)
	return &Entry{
		slot:     slot,
		suffix:   suffix,
		envName:  current,
		envValue: mem.SecretFromString(hexValue),
		hasValue: true,
	}
}

// Slot is the logical passphrase the entry holds.
func (e *Entry) Slot() Slot { return e.slot }

// Suffix qualifies the slot's variable name, such as a TLS configuration label.
func (e *Entry) Suffix() string { return e.suffix }

// EnvName is the variable name the entry was read from or written to.
func (e *Entry) EnvName() string { return e.envName }

// EnvValue is the obfuscated hexadecimal form of the passphrase.
func (e *Entry) EnvValue() string {
	return e.envValue.String()
}

// Passphrase returns a view of the plain passphrase. The view is invalid once the
// entry is released; callers copy what they need to keep.
func (e *Entry) Passphrase() []byte {
	return e.passwd.Bytes()
}

// Released reports whether the entry has been wiped.
func (e *Entry) Released() bool {
	return !e.hasValue
}

// sameValue reports whether raw is already unmasked in e. Entries from NewEntry
// carry no plaintext and never qualify.
func (e *Entry) sameValue(raw string) bool {
	return e.hasValue && e.unmasked && e.envValue.EqualString(raw)
}

func (e *Entry) destroy() {
	if e == nil {
		return
	}
	e.passwd.Destroy()
	e.envValue.Destroy()
	e.passwd = nil
	e.envValue = nil
	e.hasValue = false
}

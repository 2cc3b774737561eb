package maskpass

import (
	"fmt"
	"strings"

	"southwinds.dev/maskpass/audit"
	"southwinds.dev/maskpass/internal/crypto"
	"southwinds.dev/maskpass/internal/env"
	"southwinds.dev/maskpass/internal/mem"
	"southwinds.dev/maskpass/internal/misc"
	"southwinds.dev/maskpass/internal/tty"
)

// Hasher computes the 64 byte digest a mask is taken from.
type Hasher interface {
	Name() string
	Sum(data []byte) ([]byte, error)
}

// Environment is the variable table passphrases are read from and written to.
type Environment = env.Environment

// Secret is a locked, wipe-on-destroy byte buffer.
type Secret = mem.SecretBuffer

// PassphraseReader prompts for and reads a passphrase of at most maxLen bytes,
// trailing newline included.
type PassphraseReader interface {
	Read(prompt string, maxLen int) (*Secret, error)
}

// OSEnvironment returns the process environment.
func OSEnvironment() Environment {
	return env.OS{}
}

// MapEnvironment returns an in-memory environment seeded with vars.
func MapEnvironment(vars map[string]string) *env.Map {
	return env.NewMap(vars)
}

// StdioTerminal returns the reader that prompts on stdout and reads stdin.
func StdioTerminal() PassphraseReader {
	return tty.Stdio()
}

// Options configures a Manager. The zero value is usable: it reads the process
// environment, prompts on stdio, hashes with SHA-512 and derives the fallback mask
// from the "mumps" executable.
type Options struct {
	// Executable is the file name, inside the distribution directory, whose inode
	// seeds the fallback mask
	Executable string `json:"executable,omitempty"`

	// Hash selects a registered digest provider: sha512 (default), sha3-512, blake2b-512
	Hash string `json:"hash,omitempty"`

	// Hasher overrides Hash with a custom provider
	Hasher Hasher `json:"-"`

	Environment Environment      `json:"-"`
	Terminal    PassphraseReader `json:"-"`
	Audit       audit.Logger     `json:"-"`

	// EnableMemoryLock locks all process pages, not only secret buffers
	EnableMemoryLock bool `json:"enable_memory_lock"`
}

// Validate checks the options without touching the environment.
func (o Options) Validate() error {
	if o.Executable != "" && strings.ContainsAny(o.Executable, `/\`) {
		return fmt.Errorf("executable must be a file name, not a path: %s", o.Executable)
	}
	if o.Hasher == nil && o.Hash != "" {
		if _, err := crypto.NewHasher(o.Hash); err != nil {
			return err
		}
	}
	return nil
}

func (o Options) withDefaults() (Options, error) {
	if o.Executable == "" {
		o.Executable = misc.DefaultExecutable
	}
	if o.Hasher == nil {
		h, err := crypto.NewHasher(o.Hash)
		if err != nil {
			return o, newError(KindCrypto, err, "unable to initialise hash provider")
		}
		o.Hasher = h
	}
	o.Hash = o.Hasher.Name()
	if o.Environment == nil {
		o.Environment = OSEnvironment()
	}
	if o.Terminal == nil {
		o.Terminal = StdioTerminal()
	}
	if o.Audit == nil {
		o.Audit = audit.NewNoOpLogger()
	}
	return o, nil
}

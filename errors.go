package maskpass

import (
	"errors"
	"fmt"

	"southwinds.dev/maskpass/internal/tty"
)

// Kind classifies failures returned by this package. A Kind is itself an error so
// callers can test with errors.Is(err, maskpass.KindFormat).
type Kind int

const (
	// KindConfiguration is a missing or unusable environment input
	KindConfiguration Kind = iota + 1
	// KindFormat is a malformed or oversized hex value
	KindFormat
	// KindCrypto is a digest computation failure
	KindCrypto
	// KindTerminalSetup means the terminal could not be prepared for echo-free input
	KindTerminalSetup
	// KindInput is an EOF or read failure while prompting
	KindInput
	// KindTooLong means the typed passphrase exceeded the maximum length
	KindTooLong
	// KindRestore means terminal attributes could not be restored
	KindRestore
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration error"
	case KindFormat:
		return "format error"
	case KindCrypto:
		return "crypto error"
	case KindTerminalSetup:
		return "terminal setup error"
	case KindInput:
		return "input error"
	case KindTooLong:
		return "too long error"
	case KindRestore:
		return "restore error"
	default:
		return fmt.Sprintf("error kind %d", int(k))
	}
}

func (k Kind) Error() string {
	return k.String()
}

// Error carries a Kind, a descriptive message and an optional cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches a bare Kind target.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// KindOf returns the Kind of err, or 0 when err was not produced by this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func newError(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// terminalError maps a tty failure onto the package error kinds.
func terminalError(err error) *Error {
	var te *tty.Error
	if !errors.As(err, &te) {
		return newError(KindInput, err, "failed to obtain passphrase")
	}
	kind := KindInput
	switch te.Kind {
	case tty.KindSetup:
		kind = KindTerminalSetup
	case tty.KindTooLong:
		kind = KindTooLong
	case tty.KindRestore:
		kind = KindRestore
	}
	return &Error{Kind: kind, Msg: te.Msg, Err: te.Err}
}

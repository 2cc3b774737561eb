package tty

import "fmt"

// Kind classifies terminal failures.
type Kind int

const (
	// KindSetup means terminal attributes could not be read or changed
	KindSetup Kind = iota + 1
	// KindInput means the passphrase could not be read (EOF or read error)
	KindInput
	// KindTooLong means no newline was seen within the length limit
	KindTooLong
	// KindRestore means the saved attributes could not be put back
	KindRestore
)

func (k Kind) String() string {
	switch k {
	case KindSetup:
		return "terminal setup error"
	case KindInput:
		return "input error"
	case KindTooLong:
		return "too long error"
	case KindRestore:
		return "restore error"
	default:
		return fmt.Sprintf("tty error %d", int(k))
	}
}

// Error is returned by Session.Read.
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

func newError(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

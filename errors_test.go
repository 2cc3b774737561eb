package maskpass

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"southwinds.dev/maskpass/internal/tty"
)

func TestErrorMatchesKind(t *testing.T) {
	err := fmt.Errorf("update: %w", newError(KindFormat, nil, "bad"))

	assert.True(t, errors.Is(err, KindFormat))
	assert.False(t, errors.Is(err, KindCrypto))
	assert.Equal(t, KindFormat, KindOf(err))
	assert.Equal(t, Kind(0), KindOf(io.EOF))
}

func TestErrorWrapsCause(t *testing.T) {
	err := newError(KindInput, io.ErrUnexpectedEOF, "read failed")

	assert.Equal(t, "read failed: unexpected EOF", err.Error())
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
}

func TestTerminalErrorMapping(t *testing.T) {
	cause := errors.New("ioctl")
	err := terminalError(&tty.Error{Kind: tty.KindRestore, Msg: "unable to restore terminal attributes", Err: cause})

	assert.Equal(t, KindRestore, err.Kind)
	assert.Equal(t, "unable to restore terminal attributes", err.Msg)
	assert.True(t, errors.Is(err, cause))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "format error", KindFormat.String())
	assert.Equal(t, "error kind 42", Kind(42).String())
}

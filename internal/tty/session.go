// Package tty reads a passphrase from a terminal with echo disabled.
//
// Terminal attributes are changed with SIGTTIN and SIGTTOU blocked on the calling
// thread so a process in a background job cannot be stopped half way through the
// change, and the attributes captured on entry are put back on every return path.
// Input is read one byte at a time straight from the descriptor; nothing is left
// in a user space buffer that a later reader of the same descriptor would miss.
package tty

import (
	"errors"
	"io"
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
	"southwinds.dev/maskpass/internal/mem"
)

// Device is the attribute surface of a terminal file descriptor.
type Device interface {
	IsTerminal(fd int) bool
	GetState(fd int) (*unix.Termios, error)
	// SetState applies state after discarding pending input (TCSAFLUSH semantics)
	SetState(fd int, state *unix.Termios) error
}

// Session reads passphrases from one input descriptor and writes prompts to one writer.
type Session struct {
	in   int
	out  io.Writer
	dev  Device
	read func(fd int, p []byte) (int, error)
	exit func(sig os.Signal)
}

// New returns a Session reading from in and prompting on out.
func New(in *os.File, out io.Writer) *Session {
	return NewWithDevice(int(in.Fd()), out, Terminal())
}

// NewWithDevice returns a Session on descriptor in using dev for attribute control.
func NewWithDevice(in int, out io.Writer, dev Device) *Session {
	if out == nil {
		out = io.Discard
	}
	if dev == nil {
		dev = Terminal()
	}
	return &Session{in: in, out: out, dev: dev, read: unix.Read, exit: reraise}
}

// Stdio returns a Session on the process standard input and output.
func Stdio() *Session {
	return New(os.Stdin, os.Stdout)
}

// Read writes prompt and reads one line of at most maxLen bytes, newline included.
// The newline is stripped from the returned secret.
//
// When the line was read but the terminal could not be restored, the secret is
// returned together with a KindRestore error; callers that treat any error as a
// failure must Destroy it.
//
// A SIGINT, SIGTERM, SIGQUIT or SIGHUP arriving while echo is off restores the
// terminal before the signal takes its usual effect.
func (s *Session) Read(prompt string, maxLen int) (*mem.SecretBuffer, error) {
	if maxLen <= 0 {
		return nil, newError(KindInput, nil, "invalid maximum passphrase length %d", maxLen)
	}
	if err := s.writePrompt(prompt); err != nil {
		return nil, newError(KindInput, err, "failed to display prompt")
	}

	isTTY := s.dev.IsTerminal(s.in)
	var saved *unix.Termios
	var watch *interruptWatch
	if isTTY {
		state, err := s.dev.GetState(s.in)
		if err != nil {
			return nil, newError(KindSetup, err, "unable to set up terminal for safe password entry, will not request passphrase")
		}
		saved = state
		quiet := *state
		quiet.Lflag &^= unix.ECHO
		// callers may run with canonical mode and CR translation disabled; a line read needs both
		quiet.Lflag |= unix.ICANON
		quiet.Iflag |= unix.ICRNL
		// watched before echo goes off so no window is left uncovered
		watch = s.watchInterrupts(saved)
		if err = s.dev.SetState(s.in, &quiet); err != nil {
			watch.stop()
			return nil, newError(KindSetup, err, "unable to set up terminal for safe password entry, will not request passphrase")
		}
	}

	secret, readErr := s.readLine(maxLen)

	if isTTY {
		err := s.dev.SetState(s.in, saved)
		watch.stop()
		if err != nil {
			restoreErr := newError(KindRestore, err, "unable to restore terminal settings")
			if readErr != nil {
				restoreErr.Err = errors.Join(err, readErr)
			}
			return secret, restoreErr
		}
	}
	if readErr != nil {
		return nil, readErr
	}
	return secret, nil
}

func (s *Session) writePrompt(prompt string) error {
	if _, err := io.WriteString(s.out, prompt); err != nil {
		return err
	}
	if f, ok := s.out.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// readLine reads up to maxLen bytes into locked memory, stopping after a newline.
func (s *Session) readLine(maxLen int) (*mem.SecretBuffer, error) {
	line := mem.NewSecret(maxLen)
	defer line.Destroy()
	buf := line.Bytes()

	var c [1]byte
	defer mem.Wipe(c[:])

	i := 0
	for {
		n, err := s.readByte(c[:])
		if err != nil {
			return nil, newError(KindInput, err, "failed to obtain passphrase")
		}
		if n == 0 {
			return nil, newError(KindInput, nil, "failed to obtain passphrase, encountered premature EOF while reading from terminal")
		}
		buf[i] = c[0]
		i++
		if c[0] == '\n' || i >= maxLen {
			break
		}
	}
	if i == maxLen {
		return nil, newError(KindTooLong, nil, "password too long, maximum allowed password length is %d characters", maxLen)
	}
	// buf[i-1] is the newline
	return mem.SecretFrom(buf[:i-1]), nil
}

func (s *Session) readByte(p []byte) (int, error) {
	for {
		n, err := s.read(s.in, p)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		return n, err
	}
}

// termDevice drives a real terminal through termios ioctls.
type termDevice struct{}

// Terminal returns the Device backed by the operating system terminal driver.
func Terminal() Device {
	return termDevice{}
}

func (termDevice) IsTerminal(fd int) bool {
	return term.IsTerminal(fd)
}

func (termDevice) GetState(fd int) (*unix.Termios, error) {
	for {
		state, err := unix.IoctlGetTermios(fd, ioctlReadTermios)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		return state, err
	}
}

func (termDevice) SetState(fd int, state *unix.Termios) error {
	guard := blockJobControl()
	defer guard.release()
	for {
		err := unix.IoctlSetTermios(fd, ioctlWriteTermiosFlush, state)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		return err
	}
}

package tty

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"

	"golang.org/x/sys/unix"
)

// termination signals that would otherwise leave echo disabled
var interruptSignals = []os.Signal{unix.SIGINT, unix.SIGTERM, unix.SIGQUIT, unix.SIGHUP}

// the attributes of the read in progress, put back by RestoreTerminal
var pending struct {
	sync.Mutex
	restore func()
}

// RestoreTerminal puts back the terminal attributes of a Read in progress, if any.
// It is meant for process wide signal handlers that exit while a prompt is shown.
func RestoreTerminal() {
	pending.Lock()
	defer pending.Unlock()
	if pending.restore != nil {
		pending.restore()
		pending.restore = nil
	}
}

// InterruptSignals returns the signals a Read restores the terminal for.
func InterruptSignals() []os.Signal {
	return append([]os.Signal(nil), interruptSignals...)
}

type interruptWatch struct {
	sig  chan os.Signal
	done chan struct{}
	once sync.Once
}

// watchInterrupts restores saved on the session's descriptor when a termination
// signal arrives, then hands the signal to s.exit.
func (s *Session) watchInterrupts(saved *unix.Termios) *interruptWatch {
	pending.Lock()
	pending.restore = func() { _ = s.dev.SetState(s.in, saved) }
	pending.Unlock()

	w := &interruptWatch{sig: make(chan os.Signal, 1), done: make(chan struct{})}
	var watched []os.Signal
	for _, sig := range interruptSignals {
		// nohup and friends keep their ignored signals
		if !signal.Ignored(sig) {
			watched = append(watched, sig)
		}
	}
	signal.Notify(w.sig, watched...)

	go func() {
		select {
		case got := <-w.sig:
			RestoreTerminal()
			// the prompt line was left open
			_, _ = io.WriteString(s.out, "\n")
			signal.Stop(w.sig)
			s.exit(got)
		case <-w.done:
		}
	}()
	return w
}

func (w *interruptWatch) stop() {
	w.once.Do(func() {
		signal.Stop(w.sig)
		close(w.done)
		pending.Lock()
		pending.restore = nil
		pending.Unlock()
	})
}

// reraise delivers sig again once this package no longer catches it, so the
// process ends the way it would have without a prompt on screen.
func reraise(sig os.Signal) {
	p, err := os.FindProcess(os.Getpid())
	if err == nil {
		err = p.Signal(sig)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to deliver %v: %v\n", sig, err)
		os.Exit(1)
	}
}

//go:build !linux

package tty

import "runtime"

// signalGuard only pins the thread on platforms without a per-thread mask call
// in x/sys/unix; the attribute change is still retried on EINTR.
type signalGuard struct{}

func blockJobControl() *signalGuard {
	runtime.LockOSThread()
	return &signalGuard{}
}

func (g *signalGuard) release() {
	runtime.UnlockOSThread()
}

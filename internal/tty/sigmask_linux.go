package tty

import (
	"errors"
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

// signalGuard keeps SIGTTIN and SIGTTOU blocked on the current OS thread until
// release. The goroutine stays wired to the thread for the guard's lifetime so the
// ioctl issued in between runs under the modified mask.
type signalGuard struct {
	old     unix.Sigset_t
	blocked bool
}

func blockJobControl() *signalGuard {
	runtime.LockOSThread()
	var set unix.Sigset_t
	sigaddset(&set, unix.SIGTTIN)
	sigaddset(&set, unix.SIGTTOU)

	g := &signalGuard{}
	for {
		err := unix.PthreadSigmask(unix.SIG_BLOCK, &set, &g.old)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		g.blocked = err == nil
		break
	}
	return g
}

func (g *signalGuard) release() {
	if g.blocked {
		for {
			err := unix.PthreadSigmask(unix.SIG_SETMASK, &g.old, nil)
			if !errors.Is(err, unix.EINTR) {
				break
			}
		}
		g.blocked = false
	}
	runtime.UnlockOSThread()
}

func sigaddset(set *unix.Sigset_t, sig unix.Signal) {
	bits := uint(unsafe.Sizeof(set.Val[0])) * 8
	n := uint(sig) - 1
	set.Val[n/bits] |= 1 << (n % bits)
}

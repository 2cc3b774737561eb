//go:build !linux && !darwin && !freebsd && !openbsd && !netbsd && !dragonfly

package mem

func lockMemoryPlatform() (ProtectionLevel, error) {
	// secret buffers are still zeroed on release, nothing stops paging
	return ProtectionPartial, nil
}

func unlockMemoryPlatform() error {
	return nil
}

package mem

// ProtectionLevel indicates how well the process can keep secrets out of swap
type ProtectionLevel int

const (
	ProtectionNone    ProtectionLevel = iota // No memory protection available
	ProtectionPartial                        // Secret buffers are locked, the rest of the heap is not
	ProtectionFull                           // All current and future pages are locked
)

func (p ProtectionLevel) String() string {
	switch p {
	case ProtectionFull:
		return "full"
	case ProtectionPartial:
		return "partial"
	default:
		return "none"
	}
}

// Lock attempts to prevent the whole process image from being swapped to disk.
// Secret buffers are always locked individually; Lock extends that to the heap
// that briefly holds terminal input.
func Lock() (ProtectionLevel, error) {
	return lockMemoryPlatform()
}

// Unlock releases memory locks if they were applied
func Unlock() error {
	return unlockMemoryPlatform()
}

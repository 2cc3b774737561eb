//go:build !debug

package debug

const Debug = false

// Print is a no-op unless built with the debug tag.
func Print(format string, args ...interface{}) {}

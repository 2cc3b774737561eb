package misc

// Truncate cuts s to at most n bytes. Messages written into bounded
// error buffers go through here.
func Truncate(s string, n int) string {
	if n < 0 {
		n = 0
	}
	if len(s) <= n {
		return s
	}
	return s[:n]
}

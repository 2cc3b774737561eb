package misc

const (
	// MaxPassphraseLen bounds the plaintext passphrase, the terminal read and the XOR transform
	MaxPassphraseLen = 512

	// MaxHexLen is the exclusive upper bound on the length of a hex encoded passphrase
	MaxHexLen = 2 * MaxPassphraseLen

	// HashSize is the digest length (bytes) every hash provider must produce
	HashSize = 64

	// MaxErrLen bounds the last-error message kept by a manager
	MaxErrLen = 2048

	// DefaultExecutable is the database executable whose inode seeds the fallback mask
	DefaultExecutable = "mumps"

	// DefaultHash names the hash provider used when none is configured
	DefaultHash = "sha512"

	FilePermissions = 0600 // user read + write
)

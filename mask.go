package maskpass

import (
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/sys/unix"
	"southwinds.dev/maskpass/internal/debug"
	"southwinds.dev/maskpass/internal/env"
	"southwinds.dev/maskpass/internal/mem"
	"southwinds.dev/maskpass/internal/misc"
)

// maskDeriver produces XOR masks. A mask is the digest of the key file named by
// ydb_obfuscation_key when that file is readable, otherwise the digest of a
// passphrase-sized buffer holding $USER on the left and the inode number of the
// database executable on the right:
//
//	<------ passphrase length ------>
//	USER\0\0\0\0\0\0\0\0\0\0\0\0\0INODE  => digest => mask
type maskDeriver struct {
	env        env.Environment
	hasher     Hasher
	executable string
}

// derive returns the mask for a passphrase of passLen bytes. The caller wipes it.
func (d *maskDeriver) derive(passLen int) ([]byte, error) {
	if passLen > misc.MaxPassphraseLen {
		passLen = misc.MaxPassphraseLen
	}
	if passLen < 0 {
		passLen = 0
	}

	digest, ok, err := d.keyFileDigest()
	if err != nil {
		return nil, err
	}
	if ok {
		return digest, nil
	}
	return d.fallbackDigest(passLen)
}

// keyFileDigest hashes the configured key file. ok is false, with a nil error,
// whenever the file is unset, missing, not regular or cannot be mapped.
func (d *maskDeriver) keyFileDigest() (digest []byte, ok bool, err error) {
	match, found := env.Lookup(d.env, env.ObfuscationKey, "")
	if !found || match.Value == "" {
		return nil, false, nil
	}
	f, err := os.Open(match.Value)
	if err != nil {
		debug.Print("key file %s not usable: %v", match.Value, err)
		return nil, false, nil
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		return nil, false, nil
	}
	// an empty file cannot be mapped and falls back like any other unusable file
	data, err := unix.Mmap(int(f.Fd()), 0, int(info.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		debug.Print("key file %s cannot be mapped: %v", match.Value, err)
		return nil, false, nil
	}
	defer unix.Munmap(data)

	digest, err = d.hasher.Sum(data)
	if err != nil {
		return nil, false, newError(KindCrypto, err, "unable to hash obfuscation key file")
	}
	return digest, true, nil
}

func (d *maskDeriver) fallbackDigest(passLen int) ([]byte, error) {
	dist, found := env.Lookup(d.env, env.Dist, "")
	if !found || dist.Value == "" {
		return nil, newError(KindConfiguration, nil, "environment variable %s not defined", env.Describe(env.Dist, ""))
	}
	executable := filepath.Join(dist.Value, d.executable)
	var st unix.Stat_t
	if err := unix.Stat(executable, &st); err != nil {
		return nil, newError(KindConfiguration, err, "cannot find %s executable in %s", d.executable, dist.Value)
	}
	user, found := env.Lookup(d.env, env.User, "")
	if !found {
		return nil, newError(KindConfiguration, nil, "environment variable %s not defined", env.Describe(env.User, ""))
	}

	seed := fallbackSeed(user.Value, uint64(st.Ino), passLen)
	defer mem.Wipe(seed)

	digest, err := d.hasher.Sum(seed)
	if err != nil {
		return nil, newError(KindCrypto, err, "unable to hash fallback obfuscation seed")
	}
	return digest, nil
}

// fallbackSeed lays out user left-justified and the decimal inode right-justified
// in a zeroed buffer of n bytes. The inode wins where the two overlap; an inode
// longer than the buffer contributes its leading digits.
func fallbackSeed(user string, inode uint64, n int) []byte {
	seed := make([]byte, n)
	copy(seed, user)
	digits := strconv.FormatUint(inode, 10)
	if len(digits) < n {
		copy(seed[n-len(digits):], digits)
	} else {
		copy(seed, digits[:n])
	}
	return seed
}

package maskpass

import (
	"crypto/sha512"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
	"southwinds.dev/maskpass/internal/crypto"
	"southwinds.dev/maskpass/internal/env"
)

// fakeDist creates a distribution directory holding an empty mumps executable
// and returns the directory with the executable's inode.
func fakeDist(t *testing.T) (string, uint64) {
	t.Helper()
	dir := t.TempDir()
	exe := filepath.Join(dir, "mumps")
	require.NoError(t, os.WriteFile(exe, nil, 0700))
	var st unix.Stat_t
	require.NoError(t, unix.Stat(exe, &st))
	return dir, uint64(st.Ino)
}

func newTestDeriver(t *testing.T, vars map[string]string) *maskDeriver {
	t.Helper()
	h, err := crypto.NewHasher("sha512")
	require.NoError(t, err)
	return &maskDeriver{env: env.NewMap(vars), hasher: h, executable: "mumps"}
}

func TestFallbackSeed(t *testing.T) {
	tests := []struct {
		name  string
		user  string
		inode uint64
		n     int
		want  []byte
	}{
		{"disjoint", "bob", 42, 8, []byte{'b', 'o', 'b', 0, 0, 0, '4', '2'}},
		{"inode wins overlap", "alice", 12345, 8, []byte("ali12345")},
		{"exact fit", "ab", 123, 5, []byte("ab123")},
		{"inode longer than buffer", "x", 1234567, 4, []byte("1234")},
		{"user longer than buffer", "administrator", 9, 4, []byte("adm9")},
		{"empty user", "", 7, 3, []byte{0, 0, '7'}},
		{"zero length", "alice", 12345, 0, []byte{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fallbackSeed(tt.user, tt.inode, tt.n))
		})
	}
}

func TestDeriveFallback(t *testing.T) {
	dist, inode := fakeDist(t)
	d := newTestDeriver(t, map[string]string{"ydb_dist": dist, "USER": "alice"})

	mask, err := d.derive(10)
	require.NoError(t, err)
	want := sha512.Sum512(fallbackSeed("alice", inode, 10))
	assert.Equal(t, want[:], mask)

	again, err := d.derive(10)
	require.NoError(t, err)
	assert.Equal(t, mask, again, "derivation is deterministic")

	other, err := d.derive(11)
	require.NoError(t, err)
	assert.NotEqual(t, mask, other, "fallback mask depends on the passphrase length")
}

func TestDeriveFallbackLegacyNames(t *testing.T) {
	dist, inode := fakeDist(t)
	d := newTestDeriver(t, map[string]string{"gtm_dist": dist, "USER": "alice"})

	mask, err := d.derive(6)
	require.NoError(t, err)
	want := sha512.Sum512(fallbackSeed("alice", inode, 6))
	assert.Equal(t, want[:], mask)
}

func TestDeriveClampsLength(t *testing.T) {
	dist, _ := fakeDist(t)
	d := newTestDeriver(t, map[string]string{"ydb_dist": dist, "USER": "alice"})

	long, err := d.derive(MaxPassphraseLen + 100)
	require.NoError(t, err)
	limit, err := d.derive(MaxPassphraseLen)
	require.NoError(t, err)
	assert.Equal(t, limit, long)
}

func TestDeriveKeyFile(t *testing.T) {
	key := filepath.Join(t.TempDir(), "obfuscation.key")
	content := []byte("site specific obfuscation key material")
	require.NoError(t, os.WriteFile(key, content, 0600))

	// no dist or user: the key file alone is enough
	d := newTestDeriver(t, map[string]string{"ydb_obfuscation_key": key})

	short, err := d.derive(3)
	require.NoError(t, err)
	long, err := d.derive(300)
	require.NoError(t, err)

	want := sha512.Sum512(content)
	assert.Equal(t, want[:], short)
	assert.Equal(t, short, long, "key file mask does not depend on the passphrase length")
}

func TestDeriveUnusableKeyFileFallsBack(t *testing.T) {
	dist, inode := fakeDist(t)
	empty := filepath.Join(t.TempDir(), "empty.key")
	require.NoError(t, os.WriteFile(empty, nil, 0600))

	tests := []struct {
		name string
		key  string
	}{
		{"missing", filepath.Join(t.TempDir(), "absent.key")},
		{"empty", empty},
		{"directory", t.TempDir()},
	}
	want := sha512.Sum512(fallbackSeed("alice", inode, 8))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDeriver(t, map[string]string{
				"gtm_obfuscation_key": tt.key,
				"ydb_dist":            dist,
				"USER":                "alice",
			})
			mask, err := d.derive(8)
			require.NoError(t, err)
			assert.Equal(t, want[:], mask)
		})
	}
}

func TestDeriveErrors(t *testing.T) {
	dist, _ := fakeDist(t)

	tests := []struct {
		name string
		vars map[string]string
		msg  string
	}{
		{"no dist", map[string]string{"USER": "alice"}, "environment variable ydb_dist/gtm_dist not defined"},
		{"no executable", map[string]string{"ydb_dist": t.TempDir(), "USER": "alice"}, "cannot find mumps executable in"},
		{"no user", map[string]string{"ydb_dist": dist}, "environment variable USER"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestDeriver(t, tt.vars).derive(8)
			require.Error(t, err)
			assert.Equal(t, KindConfiguration, KindOf(err))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNames(t *testing.T) {
	current, legacy := Names(Passwd, "")
	assert.Equal(t, "ydb_passwd", current)
	assert.Equal(t, "gtm_passwd", legacy)

	current, legacy = Names(TLSPasswd, "client")
	assert.Equal(t, "ydb_tls_passwd_client", current)
	assert.Equal(t, "gtmtls_passwd_client", legacy)

	current, legacy = Names(User, "")
	assert.Equal(t, "USER", current)
	assert.Empty(t, legacy)

	assert.Equal(t, "ydb_dist/gtm_dist", Describe(Dist, ""))
	assert.Equal(t, "USER", Describe(User, ""))
}

func TestLookupPrefersCurrentName(t *testing.T) {
	m := NewMap(map[string]string{
		"ydb_passwd": "AB",
		"gtm_passwd": "CD",
	})
	match, ok := Lookup(m, Passwd, "")
	require.True(t, ok)
	assert.Equal(t, "ydb_passwd", match.Name)
	assert.Equal(t, "AB", match.Value)
	assert.True(t, match.Current)
}

func TestLookupFallsBackToLegacyName(t *testing.T) {
	m := NewMap(map[string]string{"gtmtls_passwd_server": "0A0B"})
	match, ok := Lookup(m, TLSPasswd, "server")
	require.True(t, ok)
	assert.Equal(t, "gtmtls_passwd_server", match.Name)
	assert.False(t, match.Current)
}

func TestLookupEmptyValueIsPresent(t *testing.T) {
	m := NewMap(map[string]string{"ydb_passwd": ""})
	match, ok := Lookup(m, Passwd, "")
	require.True(t, ok)
	assert.Empty(t, match.Value)
}

func TestLookupMissing(t *testing.T) {
	_, ok := Lookup(NewMap(nil), Passwd, "")
	assert.False(t, ok)

	_, ok = Lookup(NewMap(nil), Index(99), "")
	assert.False(t, ok)
}

func TestMapSetAndUnset(t *testing.T) {
	m := NewMap(nil)
	require.NoError(t, m.Set("ydb_passwd", "FF"))
	v, ok := m.Lookup("ydb_passwd")
	require.True(t, ok)
	assert.Equal(t, "FF", v)
	assert.Equal(t, []string{"ydb_passwd"}, m.Keys())

	m.Unset("ydb_passwd")
	_, ok = m.Lookup("ydb_passwd")
	assert.False(t, ok)

	assert.Error(t, m.Set("", "x"))
}

func TestOSEnvironment(t *testing.T) {
	t.Setenv("ydb_passwd", "")
	var e OS
	require.NoError(t, e.Set("ydb_passwd", "0102"))
	match, ok := Lookup(e, Passwd, "")
	require.True(t, ok)
	assert.Equal(t, "0102", match.Value)
}

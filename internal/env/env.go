package env

import (
	"fmt"
	"os"
	"sort"
	"sync"
)

// Index identifies a variable that may be spelled in a current and a legacy form.
type Index int

const (
	ObfuscationKey Index = iota
	Dist
	User
	Passwd
	TLSPasswd
)

type names struct {
	current string
	legacy  string
}

// TLSPasswd names are prefixes: the configuration label is appended.
var table = map[Index]names{
	ObfuscationKey: {current: "ydb_obfuscation_key", legacy: "gtm_obfuscation_key"},
	Dist:           {current: "ydb_dist", legacy: "gtm_dist"},
	User:           {current: "USER"},
	Passwd:         {current: "ydb_passwd", legacy: "gtm_passwd"},
	TLSPasswd:      {current: "ydb_tls_passwd_", legacy: "gtmtls_passwd_"},
}

// Names returns the current and legacy variable names for idx with suffix appended.
// The legacy name is empty when idx has no legacy spelling.
func Names(idx Index, suffix string) (current, legacy string) {
	n, ok := table[idx]
	if !ok {
		return "", ""
	}
	current = n.current + suffix
	if n.legacy != "" {
		legacy = n.legacy + suffix
	}
	return current, legacy
}

// Describe renders both name forms the way error messages show them, e.g. "ydb_dist/gtm_dist".
func Describe(idx Index, suffix string) string {
	current, legacy := Names(idx, suffix)
	if legacy == "" {
		return current
	}
	return current + "/" + legacy
}

// Environment is the process environment as seen by the passphrase lifecycle.
type Environment interface {
	Lookup(name string) (string, bool)
	Set(name, value string) error
}

// Match is the result of a two-candidate lookup.
type Match struct {
	Name    string
	Value   string
	Current bool // true when the current (non legacy) name matched
}

// Lookup resolves idx+suffix trying the current name first and the legacy name second.
// A variable that is set to the empty string counts as present.
func Lookup(e Environment, idx Index, suffix string) (Match, bool) {
	current, legacy := Names(idx, suffix)
	if current == "" {
		return Match{}, false
	}
	if v, ok := e.Lookup(current); ok {
		return Match{Name: current, Value: v, Current: true}, true
	}
	if legacy != "" {
		if v, ok := e.Lookup(legacy); ok {
			return Match{Name: legacy, Value: v}, true
		}
	}
	return Match{}, false
}

// OS is the Environment backed by the real process environment.
type OS struct{}

func (OS) Lookup(name string) (string, bool) {
	return os.LookupEnv(name)
}

func (OS) Set(name, value string) error {
	if err := os.Setenv(name, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", name, err)
	}
	return nil
}

// Map is an in-memory Environment, mostly useful in tests and for embedding hosts
// that keep their own variable table.
type Map struct {
	mu   sync.RWMutex
	vars map[string]string
}

func NewMap(vars map[string]string) *Map {
	m := &Map{vars: make(map[string]string, len(vars))}
	for k, v := range vars {
		m.vars[k] = v
	}
	return m
}

func (m *Map) Lookup(name string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vars[name]
	return v, ok
}

func (m *Map) Set(name, value string) error {
	if name == "" {
		return fmt.Errorf("variable name cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.vars == nil {
		m.vars = make(map[string]string)
	}
	m.vars[name] = value
	return nil
}

func (m *Map) Unset(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.vars, name)
}

// Keys returns the variable names in sorted order.
func (m *Map) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.vars))
	for k := range m.vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package maskpass

import (
	"errors"

	"southwinds.dev/maskpass/audit"
	"southwinds.dev/maskpass/internal/env"
	"southwinds.dev/maskpass/internal/mem"
	"southwinds.dev/maskpass/internal/misc"
)

const (
	// MaxPassphraseLen is the largest passphrase accepted, in bytes
	MaxPassphraseLen = misc.MaxPassphraseLen
	// MaxErrLen bounds LastError
	MaxErrLen = misc.MaxErrLen
	maxHexLen = misc.MaxHexLen
)

// Manager runs the passphrase lifecycle: reading obfuscated passphrases from the
// environment, prompting for missing ones and writing them back obfuscated.
//
// A Manager is not safe for concurrent use. The process environment it reads and
// writes is shared by the whole process, so callers serialise access.
type Manager struct {
	opts       Options
	deriver    *maskDeriver
	lastErr    string
	protection mem.ProtectionLevel
}

// NewManager validates opts and returns a ready Manager.
func NewManager(opts Options) (*Manager, error) {
	if err := opts.Validate(); err != nil {
		return nil, newError(KindConfiguration, err, "invalid options")
	}
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	m := &Manager{
		opts: opts,
		deriver: &maskDeriver{
			env:        opts.Environment,
			hasher:     opts.Hasher,
			executable: opts.Executable,
		},
		protection: mem.ProtectionPartial,
	}
	if opts.EnableMemoryLock {
		level, err := mem.Lock()
		if err != nil {
			return nil, newError(KindConfiguration, err, "unable to lock process memory")
		}
		m.protection = level
	}
	return m, nil
}

// LastError returns the message of the most recent failure, at most MaxErrLen bytes.
// Each failure overwrites the previous message; successes leave it untouched.
func (m *Manager) LastError() string {
	return m.lastErr
}

// Protection reports how much of the process memory is kept out of swap.
func (m *Manager) Protection() mem.ProtectionLevel {
	return m.protection
}

// Close undoes the process wide memory lock taken by EnableMemoryLock.
func (m *Manager) Close() error {
	if m.protection != mem.ProtectionFull {
		return nil
	}
	m.protection = mem.ProtectionPartial
	return mem.Unlock()
}

// HashName is the digest provider masks are derived with.
func (m *Manager) HashName() string {
	return m.opts.Hasher.Name()
}

// Update returns the passphrase entry for slot (qualified by suffix).
//
// Unless ModeNoEnvVar is set the hex value comes from the slot's environment
// variable. When existing already holds that exact value it is returned as is.
// A non-empty value is decoded and unmasked; an empty value means "prompt", which
// needs ModeInteractive, after which the masked hex form is written back to the
// variable so later lookups in this process see a stable value.
//
// Update takes ownership of existing: it is either returned or released, on
// success and on failure alike.
func (m *Manager) Update(slot Slot, suffix string, existing *Entry, prompt string, mode Mode) (*Entry, error) {
	idx, err := slot.envIndex()
	if err != nil {
		return nil, m.fail(slot, existing, err)
	}
	current, legacy := env.Names(idx, suffix)

	var raw, envName string
	if mode&ModeNoEnvVar == 0 {
		match, ok := env.Lookup(m.opts.Environment, idx, suffix)
		if !ok {
			return nil, m.fail(slot, existing,
				newError(KindConfiguration, nil, "environment variable %s/%s not defined", current, legacy))
		}
		if existing != nil && existing.sameValue(match.Value) {
			m.audit(audit.ActionUnchanged, true, slot, match.Name, nil)
			return existing, nil
		}
		raw, envName = match.Value, match.Name
	} else {
		if existing == nil || !existing.hasValue {
			return nil, m.fail(slot, existing,
				newError(KindConfiguration, nil, "no passphrase provided for %s", current))
		}
		raw, envName = existing.EnvValue(), current
	}

	if len(raw)%2 != 0 {
		return nil, m.fail(slot, existing, newError(KindFormat, nil,
			"environment variable %s must be a valid hexadecimal string of even length less than %d, length %d is odd",
			envName, maxHexLen, len(raw)))
	}
	if len(raw) >= maxHexLen {
		return nil, m.fail(slot, existing, newError(KindFormat, nil,
			"environment variable %s must be a valid hexadecimal string of even length less than %d, length is %d",
			envName, maxHexLen, len(raw)))
	}

	var entry *Entry
	if raw != "" {
		entry, err = m.load(slot, suffix, envName, raw)
	} else {
		entry, err = m.prompt(slot, suffix, envName, prompt, mode)
	}
	if err != nil {
		return nil, m.fail(slot, existing, err)
	}
	existing.destroy()
	return entry, nil
}

// load decodes and unmasks a non-empty hex value into a new entry.
func (m *Manager) load(slot Slot, suffix, envName, raw string) (*Entry, error) {
	passwd := mem.NewSecret(len(raw) / 2)
	if err := hexDecodeInto(passwd.Bytes(), raw); err != nil {
		passwd.Destroy()
		var e *Error
		if errors.As(err, &e) {
			e.Msg = "environment variable " + envName + " must be a valid hexadecimal string, " + e.Msg
		}
		return nil, err
	}
	if err := m.unmaskInPlace(passwd.Bytes()); err != nil {
		passwd.Destroy()
		return nil, err
	}
	m.audit(audit.ActionLoaded, true, slot, envName, nil)
	return &Entry{
		slot:     slot,
		suffix:   suffix,
		envName:  envName,
		envValue: mem.SecretFromString(raw),
		passwd:   passwd,
		hasValue: true,
		unmasked: true,
	}, nil
}

// prompt reads a passphrase from the terminal, stores its masked hex form in the
// environment and returns the new entry.
func (m *Manager) prompt(slot Slot, suffix, envName, prompt string, mode Mode) (*Entry, error) {
	if mode&ModeInteractive == 0 {
		return nil, newError(KindConfiguration, nil,
			"environment variable %s set to empty string, cannot prompt for password in this mode of operation", envName)
	}
	passwd, err := m.opts.Terminal.Read(prompt, MaxPassphraseLen)
	if err != nil {
		passwd.Destroy()
		return nil, terminalError(err)
	}
	hexValue, err := m.maskToHex(passwd.Bytes())
	if err != nil {
		passwd.Destroy()
		return nil, err
	}
	if err = m.opts.Environment.Set(envName, hexValue); err != nil {
		passwd.Destroy()
		return nil, newError(KindConfiguration, err, "unable to store obfuscated passphrase in %s", envName)
	}
	m.audit(audit.ActionPrompted, true, slot, envName, nil)
	return &Entry{
		slot:     slot,
		suffix:   suffix,
		envName:  envName,
		envValue: mem.SecretFromString(hexValue),
		passwd:   passwd,
		hasValue: true,
		unmasked: true,
	}, nil
}

// Release wipes entry. It is safe on nil and on an already released entry.
func (m *Manager) Release(entry *Entry) {
	if entry == nil || !entry.hasValue {
		return
	}
	slot, name := entry.slot, entry.envName
	entry.destroy()
	m.audit(audit.ActionReleased, true, slot, name, nil)
}

// DeriveMask returns the XOR mask for a passphrase of passLen bytes. The caller
// should wipe it after use.
func (m *Manager) DeriveMask(passLen int) ([]byte, error) {
	mask, err := m.deriver.derive(passLen)
	if err != nil {
		m.record(err)
		return nil, err
	}
	return mask, nil
}

// MaskPassphrase obfuscates plain and returns its hex form, the value the
// passphrase variables hold. plain is not modified.
func (m *Manager) MaskPassphrase(plain []byte) (string, error) {
	if len(plain) > MaxPassphraseLen {
		err := newError(KindFormat, nil, "password too long, maximum allowed password length is %d characters", MaxPassphraseLen)
		m.record(err)
		return "", err
	}
	hexValue, err := m.maskToHex(plain)
	if err != nil {
		m.record(err)
		return "", err
	}
	return hexValue, nil
}

// UnmaskHex decodes and unmasks a hex value produced by MaskPassphrase.
func (m *Manager) UnmaskHex(hexValue string) (*Secret, error) {
	if len(hexValue) >= maxHexLen {
		err := newError(KindFormat, nil, "hexadecimal string must be shorter than %d characters, length is %d", maxHexLen, len(hexValue))
		m.record(err)
		return nil, err
	}
	plain := mem.NewSecret(len(hexValue) / 2)
	if err := hexDecodeInto(plain.Bytes(), hexValue); err != nil {
		plain.Destroy()
		m.record(err)
		return nil, err
	}
	if err := m.unmaskInPlace(plain.Bytes()); err != nil {
		plain.Destroy()
		m.record(err)
		return nil, err
	}
	return plain, nil
}

func (m *Manager) maskToHex(plain []byte) (string, error) {
	mask, err := m.deriver.derive(len(plain))
	if err != nil {
		return "", err
	}
	defer mem.Wipe(mask)

	masked := mem.NewSecret(len(plain))
	defer masked.Destroy()
	if err = Mask(masked.Bytes(), plain, mask); err != nil {
		return "", err
	}
	return HexEncode(masked.Bytes()), nil
}

func (m *Manager) unmaskInPlace(buf []byte) error {
	mask, err := m.deriver.derive(len(buf))
	if err != nil {
		return err
	}
	defer mem.Wipe(mask)
	return Unmask(buf, buf, mask)
}

// fail releases the carried-over entry, records err and audits the failure.
func (m *Manager) fail(slot Slot, existing *Entry, err error) error {
	var name string
	if existing != nil {
		name = existing.envName
	}
	existing.destroy()
	m.record(err)
	m.audit(audit.ActionUpdateFailed, false, slot, name, err)
	return err
}

func (m *Manager) record(err error) {
	if err == nil {
		return
	}
	m.lastErr = misc.Truncate(err.Error(), MaxErrLen)
}

func (m *Manager) audit(action string, success bool, slot Slot, envName string, err error) {
	metadata := map[string]interface{}{
		"slot": slot.String(),
		"hash": m.opts.Hasher.Name(),
	}
	if envName != "" {
		metadata["env_name"] = envName
	}
	if err != nil {
		metadata["error"] = err.Error()
		metadata["kind"] = KindOf(err).String()
	}
	// audit failures never fail a passphrase operation
	_ = m.opts.Audit.Log(action, success, metadata)
}

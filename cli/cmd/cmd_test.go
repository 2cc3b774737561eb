package cmd

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"southwinds.dev/maskpass"
	"southwinds.dev/maskpass/audit"
)

func TestParseSlot(t *testing.T) {
	slot, err := parseSlot("database")
	require.NoError(t, err)
	assert.Equal(t, maskpass.SlotDatabase, slot)

	slot, err = parseSlot("TLS")
	require.NoError(t, err)
	assert.Equal(t, maskpass.SlotTLS, slot)

	_, err = parseSlot("vault")
	assert.Error(t, err)
}

func TestConvertStringValue(t *testing.T) {
	assert.Equal(t, true, convertStringValue("true"))
	assert.Equal(t, 42, convertStringValue("42"))
	assert.Equal(t, 1.5, convertStringValue("1.5"))
	assert.Equal(t, "sha3-512", convertStringValue("sha3-512"))
}

func TestValidateConfigValue(t *testing.T) {
	assert.NoError(t, validateConfigValue("maskpass.hash", "blake2b-512"))
	assert.Error(t, validateConfigValue("maskpass.hash", "md5"))
	assert.Error(t, validateConfigValue("maskpass.executable", "bin/mumps"))
	assert.NoError(t, validateConfigValue("audit.type", "console"))
	assert.Error(t, validateConfigValue("audit.type", "kafka"))
	assert.Error(t, validateConfigValue("audit.enabled", "maybe"))
}

func TestFormatError(t *testing.T) {
	assert.Equal(t, "Error: boom", formatError(errors.New("boom")))

	_, err := maskpass.HexDecode("abc")
	assert.Equal(t, "Error (format error): hexadecimal string length 3 is odd", formatError(err))
	assert.Empty(t, formatError(nil))
}

func TestSanitizeFlags(t *testing.T) {
	c := &cobra.Command{Use: "test"}
	c.Flags().String("passphrase", "", "")
	c.Flags().String("slot", "", "")
	c.Flags().String("suffix", "", "")
	require.NoError(t, c.Flags().Set("passphrase", "hunter2"))
	require.NoError(t, c.Flags().Set("slot", "tls"))

	assert.Equal(t, map[string]interface{}{
		"passphrase": "[REDACTED]",
		"slot":       "tls",
	}, sanitizeFlags(c))
}

func TestCalculateAuditStats(t *testing.T) {
	now := time.Now()
	events := []audit.Event{
		{Action: audit.ActionLoaded, Success: true, EnvName: "ydb_passwd", Timestamp: now.Add(-time.Hour)},
		{Action: audit.ActionUpdateFailed, Success: false, EnvName: "ydb_passwd", Timestamp: now},
		{Action: audit.ActionLoaded, Success: true, EnvName: "ydb_tls_passwd_client", Timestamp: now.Add(-time.Minute)},
	}

	stats := calculateAuditStats(events)
	assert.Equal(t, 3, stats.TotalEvents)
	assert.Equal(t, 2, stats.SuccessfulEvents)
	assert.Equal(t, 1, stats.FailedEvents)
	assert.Equal(t, 2, stats.ActionBreakdown[audit.ActionLoaded])
	assert.Equal(t, 2, stats.VariableCounts["ydb_passwd"])
	require.NotNil(t, stats.FirstEvent)
	assert.True(t, stats.FirstEvent.Equal(now.Add(-time.Hour)))
	assert.True(t, stats.LastEvent.Equal(now))
}

func TestDisplayAuditEventsEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, displayAuditEvents(&buf, nil))
	assert.Equal(t, "No audit events found.\n", buf.String())
}

func TestConfigTemplates(t *testing.T) {
	for _, name := range []string{"default", "minimal", "full"} {
		config, err := getConfigTemplate(name)
		require.NoError(t, err, name)
		assert.Contains(t, config, "maskpass")
	}
	_, err := getConfigTemplate("huge")
	assert.Error(t, err)
}

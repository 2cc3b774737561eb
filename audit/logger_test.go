package audit

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerDisabled(t *testing.T) {
	logger, err := NewLogger(nil)
	require.NoError(t, err)
	assert.IsType(t, &NoOpLogger{}, logger)

	logger, err = NewLogger(&Config{Enabled: false, Type: FileAuditType})
	require.NoError(t, err)
	assert.IsType(t, &NoOpLogger{}, logger)
}

func TestNewLoggerUnknownType(t *testing.T) {
	_, err := NewLogger(&Config{Enabled: true, Type: "kafka"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown audit provider: kafka")
}

func TestNewEventLiftsKnownKeys(t *testing.T) {
	event := newEvent("maskpass", ActionUpdateFailed, false, map[string]interface{}{
		"slot":     "tls",
		"env_name": "ydb_tls_passwd_client",
		"error":    "boom",
		"hash":     "sha512",
	})

	_, err := uuid.Parse(event.ID)
	assert.NoError(t, err)
	assert.Equal(t, "tls", event.Slot)
	assert.Equal(t, "ydb_tls_passwd_client", event.EnvName)
	assert.Equal(t, "boom", event.Error)
	assert.Equal(t, map[string]interface{}{"hash": "sha512"}, event.Metadata)
	assert.Equal(t, os.Getpid(), event.PID)
	assert.Equal(t, "maskpass", event.Source)
}

func newTestFileLogger(t *testing.T) (*FileLogger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "logs", "audit.log")
	logger, err := NewFileLogger(&Config{
		Enabled: true,
		Type:    FileAuditType,
		Options: map[string]interface{}{"file_path": path},
	})
	require.NoError(t, err)
	t.Cleanup(func() { logger.Close() })
	return logger, path
}

func TestFileLoggerWritesJSONLines(t *testing.T) {
	logger, path := newTestFileLogger(t)

	require.NoError(t, logger.Log(ActionLoaded, true, map[string]interface{}{"slot": "database", "env_name": "ydb_passwd"}))
	require.NoError(t, logger.Log(ActionUpdateFailed, false, map[string]interface{}{"slot": "database", "error": "odd"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var first Event
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, ActionLoaded, first.Action)
	assert.Equal(t, "ydb_passwd", first.EnvName)
	assert.True(t, first.Success)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestFileLoggerQuery(t *testing.T) {
	logger, _ := newTestFileLogger(t)

	require.NoError(t, logger.Log(ActionLoaded, true, map[string]interface{}{"slot": "database"}))
	require.NoError(t, logger.Log(ActionPrompted, true, map[string]interface{}{"slot": "tls"}))
	require.NoError(t, logger.Log(ActionUpdateFailed, false, map[string]interface{}{"slot": "tls"}))

	result, err := logger.Query(QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalCount)
	assert.Equal(t, 3, result.Filtered)

	failed := false
	result, err = logger.Query(QueryOptions{Success: &failed})
	require.NoError(t, err)
	require.Len(t, result.Events, 1)
	assert.Equal(t, ActionUpdateFailed, result.Events[0].Action)

	result, err = logger.Query(QueryOptions{Slot: "tls", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, result.Events, 1)
	assert.Equal(t, 2, result.Filtered)
	assert.True(t, result.HasMore)

	since := time.Now().Add(-time.Minute)
	result, err = logger.Query(QueryOptions{Since: &since, Action: ActionLoaded})
	require.NoError(t, err)
	require.Len(t, result.Events, 1)
	assert.Equal(t, "database", result.Events[0].Slot)
}

func TestFileLoggerReopensAfterClose(t *testing.T) {
	logger, _ := newTestFileLogger(t)

	require.NoError(t, logger.Log(ActionLoaded, true, nil))
	require.NoError(t, logger.Close())
	require.NoError(t, logger.Log(ActionReleased, true, nil))

	result, err := logger.Query(QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalCount)
}

func TestFileLoggerRequiresPath(t *testing.T) {
	_, err := NewFileLogger(&Config{Enabled: true, Type: FileAuditType})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file_path is required")
}

func TestConsoleLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newConsoleLogger(&buf, ConsoleOptions{Recent: 2}, &Config{Source: "test"})
	require.NoError(t, err)

	require.NoError(t, logger.Log(ActionPrompted, true, map[string]interface{}{"slot": "database", "env_name": "ydb_passwd"}))
	require.NoError(t, logger.Log(ActionUpdateFailed, false, map[string]interface{}{"slot": "database", "error": "odd length"}))
	require.NoError(t, logger.Log(ActionReleased, true, nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, ActionUpdateFailed, line["action"])
	assert.Equal(t, "odd length", line["error"])
	assert.Equal(t, "test", line["source"])

	result, err := logger.Query(QueryOptions{})
	require.NoError(t, err)
	assert.Len(t, result.Events, 2, "only the most recent events are kept")
}

func TestConsoleLoggerSuppressesUnchangedAtInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newConsoleLogger(&buf, ConsoleOptions{}, &Config{LogLevel: "info"})
	require.NoError(t, err)

	require.NoError(t, logger.Log(ActionUnchanged, true, nil))
	assert.Empty(t, buf.String())
}

func TestConsoleLoggerBadOptions(t *testing.T) {
	_, err := NewConsoleLogger(&Config{Options: map[string]interface{}{"stream": "printer"}})
	assert.Error(t, err)

	_, err = NewConsoleLogger(&Config{LogLevel: "loud"})
	assert.Error(t, err)
}

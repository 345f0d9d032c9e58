package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	return entry
}

func TestNew_Modes(t *testing.T) {
	for _, env := range []string{"development", "production", "test"} {
		log := New(env)
		require.NotNil(t, log, env)
		assert.NotNil(t, log.GetZerolog(), env)
	}
}

func TestNewWithWriter_FieldsAndService(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "info")

	log.Info("certificate request created", map[string]interface{}{
		"request_id": "REQ-2025-0001",
		"fee":        3000,
	})

	entry := decodeLine(t, &buf)
	assert.Equal(t, "certificate request created", entry["message"])
	assert.Equal(t, "REQ-2025-0001", entry["request_id"])
	assert.Equal(t, "labang-online", entry["service"])
	assert.Equal(t, "info", entry["level"])
}

func TestLevelOverride(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn")

	log.Info("hidden", nil)
	assert.Empty(t, buf.String(), "info must be filtered at warn level")

	log.Warn("visible", map[string]interface{}{"warning_type": "rate_limit"})
	assert.Contains(t, buf.String(), "rate_limit")
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "not-a-level")

	log.Debug("debug message", nil)
	assert.Empty(t, buf.String())

	log.Info("info message", nil)
	assert.Contains(t, buf.String(), "info message")
}

func TestError(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug")

	log.Error("smtp send failed", errors.New("connection refused"), map[string]interface{}{
		"notification_id": 7,
	})

	entry := decodeLine(t, &buf)
	assert.Equal(t, "connection refused", entry["error"])
	assert.Equal(t, float64(7), entry["notification_id"])
}

func TestWithAndComponent(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug")

	log.With(map[string]interface{}{"account_id": 42}).Component("outbox").Info("dispatching", nil)

	entry := decodeLine(t, &buf)
	assert.Equal(t, "outbox", entry["component"])
	assert.Equal(t, float64(42), entry["account_id"])
}

func TestWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug")

	log.WithRequestID("req-12345").Info("request received", nil)

	output := buf.String()
	assert.True(t, strings.Contains(output, `"request_id":"req-12345"`))
}

func TestNop(t *testing.T) {
	log := Nop()
	// Should not panic
	log.Info("discarded", nil)
	log.Error("discarded", errors.New("x"), nil)
}

package debuglog

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{LevelOff, "OFF"},
		{LogLevel(42), "UNKNOWN"},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, test.level.String())
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"DEBUG", LevelDebug},
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{" info ", LevelInfo},
		{"WARN", LevelWarn},
		{"WARNING", LevelWarn},
		{"error", LevelError},
		{"off", LevelOff},
		{"INVALID", LevelInfo},
		{"", LevelInfo},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, ParseLogLevel(test.input), "input %q", test.input)
	}
}

func TestSetupWithFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "feeds.log")

	require.NoError(t, Setup(LevelInfo, logPath))
	assert.Equal(t, LevelInfo, GetLevel())

	Debugf("debug message")
	Infof("info message")
	Warnf("warn message")
	Errorf("error message")

	require.NoError(t, Close())

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)

	logContent := string(content)
	assert.NotContains(t, logContent, "debug message")
	assert.Contains(t, logContent, "info message")
	assert.Contains(t, logContent, "warn message")
	assert.Contains(t, logContent, "error message")
}

func TestSetupWithLevelOff(t *testing.T) {
	require.NoError(t, Setup(LevelOff))
	assert.Equal(t, LevelOff, GetLevel())

	// must not panic without a logger
	Infof("info message")
	WithFields(map[string]interface{}{"a": 1}).Errorf("error message")
}

func TestFieldLogger(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, LevelDebug)
	t.Cleanup(func() { SetOutput(&buf, LevelOff) })

	logger := WithFields(map[string]interface{}{
		"component": "test",
		"count":     42,
	}).WithField("source", "hn")

	logger.Infof("test message with fields")

	out := buf.String()
	assert.Contains(t, out, "test message with fields")
	assert.Contains(t, out, "component=test")
	assert.Contains(t, out, "count=42")
	assert.Contains(t, out, "source=hn")
	assert.Contains(t, out, "level=info")
}

func TestWithFieldDoesNotMutateParent(t *testing.T) {
	parent := WithFields(map[string]interface{}{"a": 1})
	child := parent.WithField("b", 2)

	assert.Len(t, parent.fields, 1)
	assert.Len(t, child.fields, 2)
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, LevelInfo)
	t.Cleanup(func() { SetOutput(&buf, LevelOff) })

	SetLevel(LevelError)
	assert.Equal(t, LevelError, GetLevel())

	Warnf("hidden warning")
	Errorf("visible error")

	assert.NotContains(t, buf.String(), "hidden warning")
	assert.Contains(t, buf.String(), "visible error")
}

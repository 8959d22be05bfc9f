package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(format LogFormat) (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	logger := NewLogger(&Config{
		Level:            DebugLevel,
		Format:           format,
		Output:           buf,
		EnableSanitizing: true,
	})
	return logger, buf
}

func TestParseLogLevel(t *testing.T) {
	level, err := ParseLogLevel("WARNING")
	require.NoError(t, err)
	assert.Equal(t, WarnLevel, level)

	_, err = ParseLogLevel("loud")
	assert.Error(t, err)
}

func TestLevelFiltering(t *testing.T) {
	logger, buf := newBufferLogger(TextFormat)
	logger.SetLevel(WarnLevel)

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "[WARN] shown")
}

func TestComponentAndFieldsText(t *testing.T) {
	logger, buf := newBufferLogger(TextFormat)

	logger.WithComponent("search.store").WithField("count", 3).Info("index rebuilt")

	line := buf.String()
	assert.Contains(t, line, "index rebuilt")
	assert.Contains(t, line, "component=search.store")
	assert.Contains(t, line, "count=3")
}

func TestJSONFormat(t *testing.T) {
	logger, buf := newBufferLogger(JSONFormat)

	logger.WithComponent("search.cache").Error("persist failed", map[string]interface{}{"path": "/tmp/cache.json"})

	var entry LogEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry.Level)
	assert.Equal(t, "persist failed", entry.Message)
	assert.Equal(t, "search.cache", entry.Fields["component"])
	assert.Equal(t, "/tmp/cache.json", entry.Fields["path"])
}

func TestSanitizesDatabaseCredentials(t *testing.T) {
	logger, buf := newBufferLogger(TextFormat)

	logger.WithFields(map[string]interface{}{
		"database_url": "postgres://site:hunter2@db:5432/content",
		"source":       "postgres://site:hunter2@db:5432/content",
	}).WithError(errors.New("connect failed: password=hunter2")).Warn("source unavailable")

	out := buf.String()
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, "database_url=[REDACTED]")
	assert.Contains(t, out, "postgres://site:[REDACTED]@db:5432/content")
}

func TestChildLoggerInheritsLevel(t *testing.T) {
	logger, buf := newBufferLogger(TextFormat)
	logger.SetLevel(ErrorLevel)

	child := logger.WithComponent("api")
	child.Info("dropped")
	assert.Empty(t, strings.TrimSpace(buf.String()))
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	assert.False(t, logger.IsEnabled(ErrorLevel))
	logger.Error("nothing happens")
}

func TestFieldLoggerDoesNotShareFields(t *testing.T) {
	logger, buf := newBufferLogger(TextFormat)

	base := logger.WithField("query", "react")
	base.WithField("cached", true).Info("first")
	base.Info("second")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "cached=true")
	assert.NotContains(t, lines[1], "cached")
	assert.Contains(t, lines[1], "query=react")
}

func TestCreateCombinedOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "sitesearch.log")

	w, err := CreateCombinedOutput(path)
	require.NoError(t, err)

	logger := NewLogger(&Config{Level: InfoLevel, Output: w})
	logger.WithComponent("api").Info("listening")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[INFO] listening [component=api]")
}

func TestLogLevelString(t *testing.T) {
	assert.Equal(t, "ERROR", ErrorLevel.String())
	assert.Equal(t, "UNKNOWN", LogLevel(9).String())
	assert.Equal(t, JSONFormat, ParseLogFormat("JSON"))
	assert.Equal(t, TextFormat, ParseLogFormat("logfmt"))
}

package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lemonscanner/lemon-scanner/internal/logger"
)

func TestSlogLoggerLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		level   logger.LogLevel
		logFunc func(l logger.Logger)
		visible bool
	}{
		{"info at info", logger.LogLevelInfo, func(l logger.Logger) { l.Info("msg") }, true},
		{"debug at info", logger.LogLevelInfo, func(l logger.Logger) { l.Debug("msg") }, false},
		{"trace at trace", logger.LogLevelTrace, func(l logger.Logger) { l.Trace("msg") }, true},
		{"trace at debug", logger.LogLevelDebug, func(l logger.Logger) { l.Trace("msg") }, false},
		{"error at error", logger.LogLevelError, func(l logger.Logger) { l.Error("msg") }, true},
		{"warn at error", logger.LogLevelError, func(l logger.Logger) { l.Warn("msg") }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			buf := &bytes.Buffer{}
			tt.logFunc(logger.NewSlogLogger(buf, tt.level, time.UTC))
			assert.Equal(t, tt.visible, strings.Contains(buf.String(), "msg=msg"))
		})
	}
}

func TestTraceLevelName(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	logger.NewSlogLogger(buf, logger.LogLevelTrace, time.UTC).Trace("sql query")

	assert.Contains(t, buf.String(), "level=TRACE")
}

func TestModuleAndFields(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := logger.NewSlogLogger(buf, logger.LogLevelDebug, time.UTC).
		Module("loader").
		Module("keywords").
		With(logger.String("run_id", "r-1"))

	log.Info("tagged", logger.Int("matches", 3), logger.Error(errors.New("boom")))

	out := buf.String()
	assert.Contains(t, out, "module=loader.keywords")
	assert.Contains(t, out, "run_id=r-1")
	assert.Contains(t, out, "matches=3")
	assert.Contains(t, out, "error=boom")
}

func TestWithContextAddsTraceID(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	ctx := logger.WithTraceID(context.Background(), "trace-42")
	logger.NewSlogLogger(buf, logger.LogLevelInfo, time.UTC).WithContext(ctx).Info("hello")

	assert.Contains(t, buf.String(), "trace_id=trace-42")
}

func TestCentralLoggerFileOutput(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "app.log")
	cl, err := logger.NewCentralLogger(&logger.LoggingConfig{
		DefaultLevel: "debug",
		Timezone:     "UTC",
		File:         logger.FileOutput{Enabled: true, Path: path},
		ModuleLevels: map[string]string{"datastore": "warn"},
	})
	require.NoError(t, err)

	cl.Module("aggregator").Debug("grouped", logger.Int("groups", 7))
	cl.Module("datastore").Info("hidden")
	require.NoError(t, cl.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "grouped", entry["msg"])
	assert.Equal(t, "aggregator", entry["module"])
	assert.InDelta(t, 7, entry["groups"], 0)
}

func TestCentralLoggerRejectsBadTimezone(t *testing.T) {
	t.Parallel()

	_, err := logger.NewCentralLogger(&logger.LoggingConfig{Timezone: "Mars/Olympus"})
	assert.Error(t, err)
}

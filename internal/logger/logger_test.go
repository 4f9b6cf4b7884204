package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		expected zerolog.Level
	}{
		{"debug level", "debug", zerolog.DebugLevel},
		{"info level", "info", zerolog.InfoLevel},
		{"warn level", "warn", zerolog.WarnLevel},
		{"error level", "error", zerolog.ErrorLevel},
		{"default level", "", zerolog.InfoLevel},
		{"invalid level", "loud", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetForTesting()
			var buf bytes.Buffer

			Setup(Config{
				Level:      tt.level,
				Output:     &buf,
				TimeFormat: time.RFC3339,
			})

			logger := Get()
			require.NotNil(t, logger)
			assert.Equal(t, tt.expected, logger.GetLevel())
		})
	}
}

func TestSetup_OnlyOnce(t *testing.T) {
	ResetForTesting()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	var first, second bytes.Buffer

	Setup(Config{Level: "info", Output: &first})
	Setup(Config{Level: "debug", Output: &second})

	Get().Info("hello")
	assert.Contains(t, first.String(), "hello")
	assert.Empty(t, second.String())
}

func TestForceSetup(t *testing.T) {
	ResetForTesting()
	var first, second bytes.Buffer

	Setup(Config{Level: "info", Output: &first})
	ForceSetup(Config{Level: "warn", Format: FormatJSON, Output: &second})

	Get().Warn("switched")
	assert.Contains(t, second.String(), "switched")
	assert.Equal(t, zerolog.WarnLevel, Get().GetLevel())
}

func TestParseLogFormat(t *testing.T) {
	assert.Equal(t, FormatConsole, ParseLogFormat("CONSOLE"))
	assert.Equal(t, FormatJSON, ParseLogFormat("json"))
	assert.Equal(t, FormatJSON, ParseLogFormat("something"))
	assert.Equal(t, "console", FormatConsole.String())
}

func TestLogger_FieldsAreWritten(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	var buf bytes.Buffer
	l := &Logger{Logger: zerolog.New(&buf)}

	l.Info("fetched books", map[string]interface{}{
		"count":    3,
		"endpoint": "/books/",
	})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "fetched books", entry["message"])
	assert.Equal(t, float64(3), entry["count"])
	assert.Equal(t, "/books/", entry["endpoint"])
}

func TestLogger_WithFields(t *testing.T) {
	var buf bytes.Buffer
	base := &Logger{Logger: zerolog.New(&buf)}

	assert.Same(t, base, base.WithFields(nil))

	child := base.Component("catalog")
	assert.NotSame(t, base, child)

	child.Error("boom")
	assert.True(t, strings.Contains(buf.String(), `"component":"catalog"`))
}

func TestLogger_NilReceiver(t *testing.T) {
	ResetForTesting()
	Setup(Config{Output: &bytes.Buffer{}})

	var l *Logger
	assert.NotPanics(t, func() {
		l.Info("ignored")
		l.Debug("ignored")
		l.Warn("ignored")
		l.Error("ignored")
	})
	assert.NotNil(t, l.WithFields(map[string]interface{}{"a": 1}))
	assert.Equal(t, zerolog.NoLevel, l.GetLevel())
}

func TestContext(t *testing.T) {
	ResetForTesting()
	Setup(Config{Output: &bytes.Buffer{}})

	var buf bytes.Buffer
	l := &Logger{Logger: zerolog.New(&buf)}

	ctx := WithLogger(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))

	assert.Equal(t, context.Background(), WithLogger(context.Background(), nil))
	assert.Nil(t, FromContext(context.Background()))
}

func TestFromContextOr(t *testing.T) {
	var buf bytes.Buffer
	l := &Logger{Logger: zerolog.New(&buf)}
	fallback := &Logger{Logger: zerolog.New(io.Discard)}

	assert.Same(t, fallback, FromContextOr(context.Background(), "borrow", fallback))

	ctx := WithLogger(context.Background(), l.WithFields(map[string]interface{}{"command": "borrow submit"}))
	FromContextOr(ctx, "borrow", fallback).Info("Borrow request placed")

	out := buf.String()
	assert.Contains(t, out, `"command":"borrow submit"`)
	assert.Contains(t, out, `"component":"borrow"`)
	assert.Contains(t, out, "Borrow request placed")
}

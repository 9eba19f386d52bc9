package logging

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger(level zapcore.Level) (Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return NewLoggerFromCore(core), logs
}

func TestNewLogger_Formats(t *testing.T) {
	for _, format := range []string{"json", "console", ""} {
		l, err := NewLogger(LogConfig{Level: "debug", Format: format})
		require.NoError(t, err, format)
		assert.NotNil(t, l)
	}
}

func TestNewLogger_BadOutputPath(t *testing.T) {
	_, err := NewLogger(LogConfig{OutputPaths: []string{"/nonexistent-dir/needsfine/x.log"}})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel(" error "))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestZapLogger_FieldsAreTyped(t *testing.T) {
	l, logs := newObservedLogger(zapcore.DebugLevel)

	l.Info("review analyzed",
		String("label", "SIMPLE"),
		Int("evidence", 3),
		Int64("review_id", 42),
		Float64("score", 4.2),
		Bool("strong_negative", false),
		Duration("took", 3*time.Millisecond),
		Strings("aspects", []string{"taste", "service"}),
		Err(errors.New("boom")),
	)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "review analyzed", entry.Message)
	ctx := entry.ContextMap()
	assert.Equal(t, "SIMPLE", ctx["label"])
	assert.Equal(t, int64(3), ctx["evidence"])
	assert.Equal(t, int64(42), ctx["review_id"])
	assert.Equal(t, 4.2, ctx["score"])
	assert.Equal(t, false, ctx["strong_negative"])
	assert.Equal(t, "boom", ctx["error"])
}

func TestZapLogger_LevelFilter(t *testing.T) {
	l, logs := newObservedLogger(zapcore.WarnLevel)
	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")
	l.Error("shown")
	assert.Equal(t, 2, logs.Len())
}

func TestSetLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	l, err := NewLogger(LogConfig{Level: "warn", OutputPaths: []string{path}})
	require.NoError(t, err)
	child := l.Named("api")

	child.Info("before")
	assert.True(t, SetLevel(l, "debug"))
	child.Info("after")
	require.NoError(t, l.Sync())

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "before")
	assert.Contains(t, string(out), "after")

	observed, _ := newObservedLogger(zapcore.InfoLevel)
	assert.False(t, SetLevel(observed, "debug"))
	assert.False(t, SetLevel(NewNopLogger(), "debug"))
}

func TestZapLogger_WithAndNamed(t *testing.T) {
	l, logs := newObservedLogger(zapcore.DebugLevel)
	child := l.Named("worker").With(String("topic", "review.analyzed"))
	child.Info("consumed")

	entry := logs.All()[0]
	assert.Equal(t, "worker", entry.LoggerName)
	assert.Equal(t, "review.analyzed", entry.ContextMap()["topic"])
}

func TestErr_Nil(t *testing.T) {
	f := Err(nil)
	assert.Equal(t, "error", f.Key)
	assert.Equal(t, "<nil>", f.Value)
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.Debug("x")
	l.Info("x")
	l.Warn("x")
	l.Error("x")
	assert.Equal(t, l, l.With(String("k", "v")))
	assert.Equal(t, l, l.Named("n"))
	assert.NoError(t, l.Sync())
}

func TestDefault_SetAndIgnoreNil(t *testing.T) {
	prev := Default()
	t.Cleanup(func() { SetDefault(prev) })

	l, _ := newObservedLogger(zapcore.InfoLevel)
	SetDefault(l)
	assert.Equal(t, l, Default())
	SetDefault(nil)
	assert.Equal(t, l, Default())
}

func TestFromContext(t *testing.T) {
	l, logs := newObservedLogger(zapcore.InfoLevel)
	fallback := NewNopLogger()

	assert.Equal(t, fallback, FromContext(context.Background(), fallback))

	ctx := WithContext(context.Background(), l)
	FromContext(ctx, fallback).Info("scoped")
	assert.Equal(t, 1, logs.Len())
}

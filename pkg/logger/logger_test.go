package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved(level zapcore.Level) (*Logger, *observer.ObservedLogs) {
	atomic := zap.NewAtomicLevelAt(level)
	core, logs := observer.New(atomic)
	return NewWithCore("anchor", "1.0.0", core, atomic), logs
}

func TestLogger_WritesFormattedMessages(t *testing.T) {
	l, logs := newObserved(zapcore.DebugLevel)

	l.Info("connected to %s", "mongodb://***:***@h/d")
	l.Warnf("retrying in %s", "5s")
	l.Error("plain message")
	l.Debug("100% literal")

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, "connected to mongodb://***:***@h/d", entries[0].Message)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "retrying in 5s", entries[1].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "plain message", entries[2].Message)
	assert.Equal(t, "100% literal", entries[3].Message)
	assert.Equal(t, "anchor", entries[0].LoggerName)
}

func TestLogger_SetLevel(t *testing.T) {
	l, logs := newObserved(zapcore.InfoLevel)

	l.Debug("hidden")
	assert.Equal(t, 0, logs.Len())

	require.NoError(t, l.SetLevel("DEBUG"))
	assert.Equal(t, "debug", l.Level())
	l.Debug("shown")
	assert.Equal(t, 1, logs.Len())

	assert.Error(t, l.SetLevel("loud"))
}

func TestLogger_WithFields(t *testing.T) {
	l, logs := newObserved(zapcore.InfoLevel)

	l.WithFields(map[string]string{"adapter": "mongodb", "state": "connected"}).Info("state changed")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, map[string]interface{}{"adapter": "mongodb", "state": "connected", "version": "1.0.0"}, entries[0].ContextMap())
}

func TestLogger_Subscribe(t *testing.T) {
	l, logs := newObserved(zapcore.InfoLevel)
	entries := l.Subscribe()

	l.DisableConsoleOutput()
	l.Info("streamed")
	l.Debug("filtered")

	assert.Equal(t, 0, logs.Len())
	select {
	case e := <-entries:
		assert.Equal(t, "INFO", e.Level)
		assert.Equal(t, "streamed", e.Message)
	default:
		t.Fatal("expected a log entry")
	}
	assert.Len(t, entries, 0)

	l.EnableConsoleOutput()
	l.Info("printed")
	assert.Equal(t, 1, logs.Len())
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	entries := l.Subscribe()

	l.Debug("nothing written")
	e := <-entries
	assert.Equal(t, "DEBUG", e.Level)
}

package logger

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muratoffalex/memebot/internal/config"
)

func TestLogrusLogger_LevelAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := newLogrusLogger(&config.LoggingConfig{LogLevel: "INFO"}, &buf)

	l.Debug("hidden")
	l.WithField("chat_id", 42).WithError(errors.New("boom")).Info("sent")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "sent")
	assert.Contains(t, out, "chat_id=42")
	assert.Contains(t, out, "error=boom")
}

func TestLogrusLogger_UnknownLevelFallsBack(t *testing.T) {
	var buf bytes.Buffer
	l := newLogrusLogger(&config.LoggingConfig{LogLevel: "loud", Format: "json"}, &buf)

	l.Info("still here")

	out := buf.String()
	assert.Contains(t, out, `"log_level":"loud"`)
	assert.Contains(t, out, `"msg":"still here"`)
}

func TestOpenLogFile_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "bot.log")

	f, err := openLogFile(path)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestTestLogger_SharedRecord(t *testing.T) {
	l := NewTestLogger()
	child := l.WithField("chat_id", int64(1))

	child.Warn("a", "b")
	l.Info("root")

	entry, ok := l.FindEntry("warn", "ab")
	require.True(t, ok)
	assert.Equal(t, int64(1), entry.Fields["chat_id"])
	assert.Equal(t, 1, l.CountLevel("info"))
	assert.Len(t, l.Entries(), 2)
}

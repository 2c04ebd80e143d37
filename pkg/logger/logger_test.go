package logger

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelWarn,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestOpenLogFile_CreatesAndAppends(t *testing.T) {
	path := t.TempDir() + "/ccswarmd.log"
	f, cleanup, err := OpenLogFile(path)
	require.NoError(t, err)
	defer cleanup()

	_, err = f.WriteString("hello\n")
	require.NoError(t, err)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(contents))
}

func TestGetLogger_InitializesOnFirstUse(t *testing.T) {
	defaultLogger = nil
	l := GetLogger()
	assert.NotNil(t, l)
	assert.Same(t, l, GetLogger())
}

func TestInit_SimpleFormatWritesLevelAndMessage(t *testing.T) {
	var buf bytes.Buffer
	Init(slog.LevelInfo, os.Stderr, "simple")

	h := &simpleTextHandler{
		handler: slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}),
		writer:  &buf,
	}
	l := slog.New(h)
	l.Info("starting up", "component", "ipc")

	out := buf.String()
	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, "starting up")
	assert.Contains(t, out, "component=ipc")
}

func TestFilteringHandler_SuppressesThirdPartyLogsAboveDebug(t *testing.T) {
	var buf bytes.Buffer
	base := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	fh := &filteringHandler{handler: base, minLevel: slog.LevelInfo}

	// A record with PC=0 (no caller info) is treated as third-party and dropped.
	rec := slog.NewRecord(time.Now(), slog.LevelInfo, "from elsewhere", 0)
	err := fh.Handle(context.Background(), rec)
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(buf.String()))
}

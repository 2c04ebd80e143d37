package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/ccswarmd/pkg/sessionmanager"
)

func startTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	socketPath := filepath.Join(t.TempDir(), "test.sock")
	srv := NewServer(socketPath, sessionmanager.New(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			if _, err := net.Dial("unix", socketPath); err == nil {
				close(ready)
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}()
	go func() { _ = srv.Start(ctx) }()

	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("ipc server did not come up")
	}

	t.Cleanup(func() {
		cancel()
		_ = srv.Stop(time.Second)
	})
	return srv, socketPath
}

func TestServer_ListSessionsRoundTrip(t *testing.T) {
	_, socketPath := startTestServer(t)

	conn, err := net.Dial("unix", socketPath)
	require.NoError(t, err)
	defer conn.Close()

	req, err := NewMessage("req-1", MsgListSessions, map[string]any{})
	require.NoError(t, err)
	data, err := json.Marshal(req)
	require.NoError(t, err)

	_, err = conn.Write(append(data, '\n'))
	require.NoError(t, err)

	scanner := bufio.NewScanner(conn)
	require.True(t, scanner.Scan())

	var resp Message
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &resp))
	assert.Equal(t, "req-1", resp.ID)
	assert.Equal(t, MsgResponse, resp.Type)
}

func TestServer_MalformedJSON_ReturnsErrorAndKeepsConnectionOpen(t *testing.T) {
	_, socketPath := startTestServer(t)

	conn, err := net.Dial("unix", socketPath)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("{not json\n"))
	require.NoError(t, err)

	scanner := bufio.NewScanner(conn)
	require.True(t, scanner.Scan())
	var resp Message
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &resp))
	assert.Equal(t, MsgError, resp.Type)

	var errPayload struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Payload, &errPayload))
	assert.Contains(t, errPayload.Error, "Invalid message format")

	req, err := NewMessage("req-2", MsgListSessions, map[string]any{})
	require.NoError(t, err)
	data, err := json.Marshal(req)
	require.NoError(t, err)
	_, err = conn.Write(append(data, '\n'))
	require.NoError(t, err)

	require.True(t, scanner.Scan())
	var resp2 Message
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &resp2))
	assert.Equal(t, "req-2", resp2.ID)
}

func TestDefaultSocketPath_FallsBackToTmp(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "")
	assert.Equal(t, "/tmp/ccswarmd.sock", DefaultSocketPath("ccswarmd"))
}

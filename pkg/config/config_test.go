package config

import (
	"os"
	"testing"

	"github.com/kadirpekel/ccswarmd/pkg/autoaccept"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_AppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(``))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 256, cfg.BusHistoryLimit())
	assert.Equal(t, autoaccept.ProfileStandard, cfg.AutoAcceptProfile())
	assert.Equal(t, int64(60), cfg.HostRateLimitPerMinute())
	assert.Equal(t, 1000, cfg.TracingMaxTraces())
	assert.False(t, cfg.TracingOTelEnabled())
	assert.True(t, cfg.TracingPrometheusEnabled())
	assert.NotEmpty(t, cfg.Checkpoint.BaseDir)
}

func TestParse_DecodesExplicitValues(t *testing.T) {
	yaml := `
log:
  level: debug
  format: json
bus:
  history_limit: 50
autoaccept:
  profile: paranoid
  host_rate_limit_per_minute: 10
tracing:
  max_traces: 42
  otel: true
  prometheus: false
checkpoint:
  base_dir: /var/lib/ccswarmd/checkpoints
`
	cfg, err := Parse([]byte(yaml))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 50, cfg.BusHistoryLimit())
	assert.Equal(t, autoaccept.ProfileParanoid, cfg.AutoAcceptProfile())
	assert.Equal(t, int64(10), cfg.HostRateLimitPerMinute())
	assert.Equal(t, 42, cfg.TracingMaxTraces())
	assert.True(t, cfg.TracingOTelEnabled())
	assert.False(t, cfg.TracingPrometheusEnabled())
	assert.Equal(t, "/var/lib/ccswarmd/checkpoints", cfg.Checkpoint.BaseDir)
}

func TestParse_ExpandsEnvVarsWithDefault(t *testing.T) {
	t.Setenv("CCSWARMD_SOCKET", "")
	yaml := `
ipc:
  socket_path: ${CCSWARMD_SOCKET:-/tmp/fallback.sock}
`
	cfg, err := Parse([]byte(yaml))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/fallback.sock", cfg.IPC.SocketPath)
}

func TestParse_ExpandsEnvVarsWhenSet(t *testing.T) {
	t.Setenv("CCSWARMD_SOCKET", "/run/custom.sock")
	yaml := `
ipc:
  socket_path: ${CCSWARMD_SOCKET}
`
	cfg, err := Parse([]byte(yaml))
	require.NoError(t, err)
	assert.Equal(t, "/run/custom.sock", cfg.IPC.SocketPath)
}

func TestParse_RejectsInvalidLogLevel(t *testing.T) {
	_, err := Parse([]byte("log:\n  level: noisy\n"))
	assert.Error(t, err)
}

func TestParse_RejectsInvalidAutoAcceptProfile(t *testing.T) {
	_, err := Parse([]byte("autoaccept:\n  profile: godmode\n"))
	assert.Error(t, err)
}

func TestParse_RejectsNegativeBusHistoryLimit(t *testing.T) {
	_, err := Parse([]byte("bus:\n  history_limit: -1\n"))
	assert.Error(t, err)
}

func TestLoad_ReadsFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/config.yaml"
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: warn\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_MissingFileReturnsError(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

package main

import (
	"os"
	"testing"

	"github.com/kadirpekel/ccswarmd/pkg/config"
	"github.com/kadirpekel/ccswarmd/pkg/hooks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServeConfig_NoConfigFlagUsesDefaults(t *testing.T) {
	cli := &CLI{}
	cfg, err := loadServeConfig(cli)
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 256, cfg.BusHistoryLimit())
}

func TestLoadServeConfig_ReadsConfiguredFile(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/ccswarmd.yaml"
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644))

	cli := &CLI{Config: path}
	cfg, err := loadServeConfig(cli)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadServeConfig_MissingFileReturnsError(t *testing.T) {
	cli := &CLI{Config: "/nonexistent/ccswarmd.yaml"}
	_, err := loadServeConfig(cli)
	assert.Error(t, err)
}

func TestBuildGate_SucceedsWithDefaultProfile(t *testing.T) {
	cfg := &config.Config{}
	cfg.SetDefaults()

	gate, err := buildGate(cfg)
	require.NoError(t, err)
	assert.NotNil(t, gate)
}

func TestBuildHooks_SecurityHookRejectsDestructiveTask(t *testing.T) {
	registry := buildHooks()
	require.NotNil(t, registry)

	result := registry.PreExecution(testContext(), hooks.PreExecutionInput{
		TaskDescription: "please drop the production database",
	}, hooks.Context{})
	assert.True(t, result.Denied())
}

func TestDrainSessions_RemovesEverySession(t *testing.T) {
	manager := newTestManager()
	_, err := manager.CreateSession(testContext(), testSessionConfig())
	require.NoError(t, err)
	_, err = manager.CreateSession(testContext(), testSessionConfig())
	require.NoError(t, err)
	require.Equal(t, 2, manager.Count())

	drainSessions(manager)
	assert.Equal(t, 0, manager.Count())
}

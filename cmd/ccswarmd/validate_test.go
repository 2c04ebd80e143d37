package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCmd_CompactSucceedsOnValidConfig(t *testing.T) {
	path := writeConfigFile(t, "log:\n  level: debug\n")

	cmd := &ValidateCmd{Config: path, Format: "compact"}
	err := cmd.Run(&CLI{})
	assert.NoError(t, err)
}

func TestValidateCmd_JSONSucceedsOnValidConfig(t *testing.T) {
	path := writeConfigFile(t, "log:\n  level: debug\n")

	cmd := &ValidateCmd{Config: path, Format: "json"}
	err := cmd.Run(&CLI{})
	assert.NoError(t, err)
}

func TestValidateCmd_FailsOnMalformedConfig(t *testing.T) {
	path := writeConfigFile(t, "log:\n  level: not-a-real-level\n")

	cmd := &ValidateCmd{Config: path, Format: "compact"}
	err := cmd.Run(&CLI{})
	assert.Error(t, err)
}

func TestValidateCmd_PrintConfigEmitsExpandedYAML(t *testing.T) {
	path := writeConfigFile(t, "log:\n  level: debug\n")

	cmd := &ValidateCmd{Config: path, Format: "verbose", PrintConfig: true}
	err := cmd.Run(&CLI{})
	assert.NoError(t, err)
}

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := dir + "/ccswarmd.yaml"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

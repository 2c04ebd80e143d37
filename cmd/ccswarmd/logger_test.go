package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLoggerFromCLI_FlagsTakePriorityOverEnv(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "error")
	t.Setenv(LogFormatEnvVar, "json")

	cleanup, err := initLoggerFromCLI("debug", "", "simple")
	require.NoError(t, err)
	assert.Nil(t, cleanup)
}

func TestInitLoggerFromCLI_FallsBackToEnvThenDefault(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "warn")
	t.Setenv(LogFormatEnvVar, "")

	cleanup, err := initLoggerFromCLI("", "", "")
	require.NoError(t, err)
	assert.Nil(t, cleanup)
}

func TestInitLoggerFromCLI_RejectsInvalidLevel(t *testing.T) {
	_, err := initLoggerFromCLI("noisy", "", "simple")
	assert.Error(t, err)
}

func TestInitLoggerFromCLI_OpensLogFileAndReturnsCleanup(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/ccswarmd.log"

	cleanup, err := initLoggerFromCLI("info", path, "simple")
	require.NoError(t, err)
	require.NotNil(t, cleanup)
	defer cleanup()

	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)
}

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/ccswarmd/pkg/checkpoint"
)

func TestCheckpointsCmd_ListsRecordedCheckpoints(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, "checkpoint:\n  base_dir: "+dir+"\n  watch: false\n")

	watch := false
	store, err := checkpoint.NewStore(&checkpoint.Config{BaseDir: dir, Watch: &watch})
	require.NoError(t, err)
	ckpt := &checkpoint.Checkpoint{SessionID: "session-1", Label: "manual", State: []byte(`{"cwd":"/tmp"}`)}
	require.NoError(t, store.Save(ckpt))
	require.NoError(t, store.Close())

	cmd := &CheckpointsCmd{Session: "session-1"}
	assert.NoError(t, cmd.Run(&CLI{Config: path}))
}

func TestCheckpointsCmd_ShowMissingCheckpointFails(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, "checkpoint:\n  base_dir: "+dir+"\n  watch: false\n")

	cmd := &CheckpointsCmd{Session: "session-1", Show: "no-such-id"}
	assert.Error(t, cmd.Run(&CLI{Config: path}))
}

func TestCheckpointsCmd_NoCheckpointsIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, "checkpoint:\n  base_dir: "+dir+"\n  watch: false\n")

	cmd := &CheckpointsCmd{Session: "no-such-session"}
	assert.NoError(t, cmd.Run(&CLI{Config: path}))
}

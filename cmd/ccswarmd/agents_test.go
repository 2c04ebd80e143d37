package main

import (
	"log/slog"
	"testing"

	"github.com/kadirpekel/ccswarmd/pkg/hooks"
	"github.com/kadirpekel/ccswarmd/pkg/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentSessions_SameAgentReusesSameSession(t *testing.T) {
	manager := newTestManager()
	sessions := newAgentSessions(manager)

	first, err := sessions.sessionFor(testContext(), "reviewer")
	require.NoError(t, err)
	second, err := sessions.sessionFor(testContext(), "reviewer")
	require.NoError(t, err)

	assert.Equal(t, first.ID(), second.ID())
	assert.Equal(t, 1, manager.Count())
}

func TestAgentSessions_DifferentAgentsGetDifferentSessions(t *testing.T) {
	manager := newTestManager()
	sessions := newAgentSessions(manager)

	reviewer, err := sessions.sessionFor(testContext(), "reviewer")
	require.NoError(t, err)
	writer, err := sessions.sessionFor(testContext(), "writer")
	require.NoError(t, err)

	assert.NotEqual(t, reviewer.ID(), writer.ID())
	assert.Equal(t, 2, manager.Count())
}

func TestAgentSessions_RecreatesSessionAfterManagerDrop(t *testing.T) {
	manager := newTestManager()
	sessions := newAgentSessions(manager)

	first, err := sessions.sessionFor(testContext(), "reviewer")
	require.NoError(t, err)
	require.NoError(t, manager.Remove(first.ID()))

	second, err := sessions.sessionFor(testContext(), "reviewer")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID(), second.ID())
}

func TestRunTaskOnAgent_DeniedByHookReturnsError(t *testing.T) {
	manager := newTestManager()
	sessions := newAgentSessions(manager)
	registry := hooks.New()
	registry.Register(hooks.NewSecurityHook())

	exec := runTaskOnAgent(sessions, registry, slog.Default())
	tsk := task.New("please drop the production database", task.PriorityHigh)

	_, err := exec(testContext(), "reviewer", tsk)
	assert.Error(t, err)
	assert.Equal(t, 0, manager.Count())
}

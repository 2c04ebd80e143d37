package delegation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/ccswarmd/pkg/task"
)

func TestRouter_SelectAgent_DirectSubagentType(t *testing.T) {
	r := NewRouter()
	primary, backup := r.SelectAgent(DelegatedTask{SubagentType: string(DomainBackend)})
	assert.Equal(t, string(DomainBackend), primary)
	assert.Equal(t, "devops", backup)
}

func TestRouter_SelectAgent_DefaultsToGeneralPurpose(t *testing.T) {
	r := NewRouter()
	primary, backup := r.SelectAgent(DelegatedTask{})
	assert.Equal(t, "general-purpose", primary)
	assert.Equal(t, "general-purpose", backup)
}

func TestRouter_SelectAgent_BackupNeverEqualsPrimary(t *testing.T) {
	r := NewRouter()
	_, backup := r.SelectAgent(DelegatedTask{SubagentType: "devops"})
	assert.Equal(t, "general-purpose", backup)
}

func TestRouter_SelectAgentForTask_UsesTagsNotDescription(t *testing.T) {
	r := NewRouter()
	// A Critical-priority task tagged "backend" must still route off its
	// tags, not collapse to the critical handler the way Classify would.
	tk := task.New("anything at all", task.PriorityCritical, "backend")
	primary, backup := r.SelectAgentForTask(tk)
	assert.Equal(t, "backend", primary)
	assert.Equal(t, "devops", backup)
}

func TestRouter_SelectAgentForTask_NoDomainTagIsGeneralPurpose(t *testing.T) {
	r := NewRouter()
	tk := task.New("anything at all", task.PriorityMedium, "documentation")
	primary, backup := r.SelectAgentForTask(tk)
	assert.Equal(t, "general-purpose", primary)
	assert.Equal(t, "general-purpose", backup)
}

func TestRouter_SelectAgentForTask_CriticalWithNoDomainTagIsStillTagBased(t *testing.T) {
	r := NewRouter()
	// Critical priority alone never routes to the fixed critical
	// handler here — that bypass is Classify's, for raw descriptions.
	// An existing task with no domain tag just falls back like any
	// other untagged task would.
	tk := task.New("page the on-call", task.PriorityCritical)
	primary, backup := r.SelectAgentForTask(tk)
	assert.Equal(t, "general-purpose", primary)
	assert.Equal(t, "general-purpose", backup)
}

// countingExecutor records every call and fails for the first
// failUntil calls made to failingAgent, succeeding afterward and for
// any other agent.
func countingExecutor(failingAgent string, failUntil int) (AgentExecutor, func() map[string]int) {
	var mu sync.Mutex
	calls := make(map[string]int)
	exec := func(_ context.Context, agent string, _ DelegatedTask) (string, error) {
		mu.Lock()
		calls[agent]++
		n := calls[agent]
		mu.Unlock()
		if agent == failingAgent && n <= failUntil {
			return "", errors.New("agent unavailable")
		}
		return "ok:" + agent, nil
	}
	snapshot := func() map[string]int {
		mu.Lock()
		defer mu.Unlock()
		out := make(map[string]int, len(calls))
		for k, v := range calls {
			out[k] = v
		}
		return out
	}
	return exec, snapshot
}

func TestRouter_DelegateTaskSafely_SucceedsOnFirstTry(t *testing.T) {
	r := NewRouter()
	exec, _ := countingExecutor("", 0)
	dt := DelegatedTask{ID: "t1", SubagentType: string(DomainBackend), Priority: task.PriorityMedium}

	result, err := r.DelegateTaskSafely(context.Background(), dt, exec)
	require.NoError(t, err)
	assert.Equal(t, "ok:backend", result)
}

func TestRouter_DelegateTaskSafely_FallsBackToBackupAgent(t *testing.T) {
	r := NewRouter()
	exec, calls := countingExecutor(string(DomainBackend), retryAttempts+1)
	dt := DelegatedTask{ID: "t1", SubagentType: string(DomainBackend), Priority: task.PriorityCritical}

	result, err := r.DelegateTaskSafely(context.Background(), dt, exec)
	require.NoError(t, err)
	assert.Equal(t, "ok:devops", result)
	assert.Positive(t, calls()[string(DomainBackend)])
	assert.Positive(t, calls()["devops"])
}

func TestRouter_DelegateTaskSafely_FailsWhenBackupAlsoFails(t *testing.T) {
	r := NewRouter()
	exec := func(_ context.Context, _ string, _ DelegatedTask) (string, error) {
		return "", errors.New("permanently unavailable")
	}
	dt := DelegatedTask{ID: "t1", SubagentType: string(DomainQA)}

	_, err := r.DelegateTaskSafely(context.Background(), dt, exec)
	assert.Error(t, err)
}

func TestRouter_BreakerFor_ReusesBreakerPerAgent(t *testing.T) {
	r := NewRouter()
	a := r.breakerFor("backend")
	b := r.breakerFor("backend")
	c := r.breakerFor("devops")
	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
}

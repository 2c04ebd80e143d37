package delegation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sony/gobreaker"

	"github.com/kadirpekel/ccswarmd/pkg/task"
)

// AgentExecutor actually runs a DelegatedTask against the named agent,
// returning the agent's result text.
type AgentExecutor func(ctx context.Context, agent string, t DelegatedTask) (string, error)

// backupAgents is the deterministic backup map §4.8 specifies: every
// domain agent has exactly one fallback, and anything unmapped falls
// back to the general-purpose agent.
var backupAgents = map[string]string{
	string(DomainFrontend): "general-purpose",
	string(DomainBackend):  "devops",
	string(DomainDevOps):   "general-purpose",
	string(DomainQA):       "general-purpose",
	string(DomainSemantic): "general-purpose",
}

// retryAttempts bounds the inner retry-with-backoff layer inside a
// single DelegateTaskSafely call. This is independent of (and smaller
// than) the orchestrator's own 5-attempt Critical-phase retry loop,
// which calls DelegateTaskSafely repeatedly in its own right.
const retryAttempts = 3

// Router selects agents for classified tasks and executes them behind
// a per-agent circuit breaker, an error-boundary fallback to the
// deterministic backup agent, and an exponential-backoff retry.
type Router struct {
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[string]
}

// NewRouter constructs an empty Router.
func NewRouter() *Router {
	return &Router{breakers: make(map[string]*gobreaker.CircuitBreaker[string])}
}

// SelectAgent returns the primary agent for t (its SubagentType if one
// was assigned directly, else "general-purpose") and the deterministic
// backup agent to fall back to if the primary exhausts its retries.
func (r *Router) SelectAgent(t DelegatedTask) (primary, backup string) {
	primary = t.SubagentType
	if primary == "" {
		primary = "general-purpose"
	}
	backup, ok := backupAgents[primary]
	if !ok {
		backup = "general-purpose"
	}
	if backup == primary {
		backup = "general-purpose"
	}
	return primary, backup
}

// SelectAgentForTask selects an agent for an already-created task from
// its own tags, distinct from Classify's raw-description keyword
// matching. Unlike Classify, Critical priority is not special-cased
// here: a Critical task tagged "backend" still routes to the backend
// agent, not the fixed critical handler — that bypass only applies to
// classifying a brand new, untagged description. The first tag naming
// a registered domain picks that domain's agent, with the domain's
// deterministic backup; a task with no domain tag falls back to
// "general-purpose".
func (r *Router) SelectAgentForTask(t *task.Task) (primary, backup string) {
	for _, d := range orderedDomains {
		if t.HasTag(string(d)) {
			return r.SelectAgent(DelegatedTask{SubagentType: string(d)})
		}
	}
	return r.SelectAgent(DelegatedTask{})
}

// breakerFor returns (creating if necessary) the circuit breaker
// dedicated to agent. Each agent gets its own breaker so one flaky
// agent does not trip requests routed to another.
func (r *Router) breakerFor(agent string) *gobreaker.CircuitBreaker[string] {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cb, ok := r.breakers[agent]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "delegation-" + agent,
		MaxRequests: 3,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	r.breakers[agent] = cb
	return cb
}

// DelegateTaskSafely routes t to its selected agent through the full
// resilience stack: a per-agent circuit breaker wraps an error-boundary
// fallback to the backup agent, which itself wraps a retry-with-backoff
// around the raw agent call.
func (r *Router) DelegateTaskSafely(ctx context.Context, t DelegatedTask, exec AgentExecutor) (string, error) {
	primary, backup := r.SelectAgent(t)
	cb := r.breakerFor(primary)

	result, err := cb.Execute(func() (string, error) {
		return r.withFallback(ctx, t, primary, backup, exec)
	})
	if err != nil {
		return "", fmt.Errorf("delegate task %s: %w", t.ID, err)
	}
	return result, nil
}

// withFallback is the error-boundary layer: it retries the primary
// agent with backoff, and on exhaustion falls back to a single
// backoff-retried attempt against the backup agent.
func (r *Router) withFallback(ctx context.Context, t DelegatedTask, primary, backup string, exec AgentExecutor) (string, error) {
	result, err := retryWithBackoff(ctx, func() (string, error) {
		return exec(ctx, primary, t)
	})
	if err == nil {
		return result, nil
	}

	return retryWithBackoff(ctx, func() (string, error) {
		return exec(ctx, backup, t)
	})
}

// retryWithBackoff retries op up to retryAttempts times with exponential
// backoff: 100ms initial interval, 2.0 multiplier, capped at 30s.
func retryWithBackoff(ctx context.Context, op func() (string, error)) (string, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.Multiplier = 2.0
	b.MaxInterval = 30 * time.Second

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(retryAttempts),
	)
}

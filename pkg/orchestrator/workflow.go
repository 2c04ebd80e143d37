package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kadirpekel/ccswarmd/pkg/delegation"
	"github.com/kadirpekel/ccswarmd/pkg/task"
)

const (
	preparationTag = "preparation"
	cleanupTag     = "cleanup"

	criticalMaxAttempts = 5
)

// Executor runs a task against a named agent and returns its result.
// It has the same shape as delegation.AgentExecutor so a Workflow and a
// Router can share one execution function.
type Executor func(ctx context.Context, agent string, t *task.Task) (string, error)

// Workflow partitions a batch of tasks into the three fixed phases and
// runs each with its own tolerance rule.
type Workflow struct {
	router *delegation.Router
	log    *slog.Logger
}

// New constructs a Workflow. router selects the primary/backup agent
// for each task; log defaults to slog.Default() if nil.
func New(router *delegation.Router, log *slog.Logger) *Workflow {
	if log == nil {
		log = slog.Default()
	}
	return &Workflow{router: router, log: log}
}

// Run partitions tasks by tag/priority and executes the three phases in
// order: Preparation (concurrent, tolerant), Critical (sequential, one
// backup-agent retry), Cleanup (concurrent, best-effort). It returns
// the count of tasks completed successfully and the first fatal error,
// if any — only the Critical phase can produce one.
func (w *Workflow) Run(ctx context.Context, tasks []*task.Task, exec Executor) (int, error) {
	var preparation, critical, cleanup, rest []*task.Task
	for _, t := range tasks {
		switch {
		case t.Priority == task.PriorityCritical:
			critical = append(critical, t)
		case t.HasTag(preparationTag):
			preparation = append(preparation, t)
		case t.HasTag(cleanupTag):
			cleanup = append(cleanup, t)
		default:
			rest = append(rest, t)
		}
	}

	completed := 0

	if len(preparation) > 0 {
		maxFailures := len(preparation) / 3
		outcomes, err := ConcurrentBoundary(ctx, maxFailures, w.toOps(preparation, exec))
		failed := countFailures(outcomes)
		if failed > 0 {
			w.log.Warn("preparation phase had failures", "failed", failed, "total", len(preparation))
		}
		completed += len(preparation) - failed
		if err != nil {
			w.log.Warn("preparation phase exceeded tolerance, continuing anyway", "error", err)
		}
	}

	for _, t := range critical {
		if err := w.runCritical(ctx, t, exec); err != nil {
			return completed, fmt.Errorf("critical task %s: %w", t.ID, err)
		}
		completed++
	}

	// Tasks carrying neither a recognized tag nor Critical priority are
	// treated like preparation work: best-effort, no phase ordering
	// guarantee relative to cleanup.
	for _, t := range rest {
		agent, _ := w.selectAgent(t)
		if _, err := exec(ctx, agent, t); err != nil {
			w.log.Warn("untagged task failed", "task", t.ID, "error", err)
			continue
		}
		completed++
	}

	if len(cleanup) > 0 {
		outcomes, _ := ConcurrentBoundary(ctx, len(cleanup), w.toOps(cleanup, exec))
		failed := countFailures(outcomes)
		if failed > 0 {
			w.log.Warn("cleanup phase had failures (ignored)", "failed", failed, "total", len(cleanup))
		}
		completed += len(cleanup) - failed
	}

	return completed, nil
}

// selectAgent picks an agent for an existing task from its own tags,
// distinct from the description-classification Classify performs for a
// brand new task. See delegation.Router.SelectAgentForTask.
func (w *Workflow) selectAgent(t *task.Task) (primary, backup string) {
	return w.router.SelectAgentForTask(t)
}

// runCritical retries t up to criticalMaxAttempts against its primary
// agent; on exhaustion it deterministically switches to the backup
// agent and retries exactly once more. Any remaining failure is fatal.
func (w *Workflow) runCritical(ctx context.Context, t *task.Task, exec Executor) error {
	primary, backup := w.selectAgent(t)

	var lastErr error
	for attempt := 1; attempt <= criticalMaxAttempts; attempt++ {
		result, err := exec(ctx, primary, t)
		if err == nil {
			t.SetResult(result)
			return nil
		}
		lastErr = err
		w.log.Warn("critical task attempt failed", "task", t.ID, "agent", primary, "attempt", attempt, "error", err)
	}

	w.log.Warn("critical task exhausted attempts, switching to backup agent", "task", t.ID, "backup", backup)
	result, err := exec(ctx, backup, t)
	if err != nil {
		return fmt.Errorf("exhausted %d attempts on %s and backup %s failed (last primary error: %v): %w",
			criticalMaxAttempts, primary, backup, lastErr, err)
	}
	t.SetResult(result)
	return nil
}

func (w *Workflow) toOps(tasks []*task.Task, exec Executor) []func(ctx context.Context) error {
	ops := make([]func(ctx context.Context) error, len(tasks))
	for i, t := range tasks {
		t := t
		ops[i] = func(ctx context.Context) error {
			agent, _ := w.selectAgent(t)
			result, err := exec(ctx, agent, t)
			if err != nil {
				return err
			}
			t.SetResult(result)
			return nil
		}
	}
	return ops
}

func countFailures(outcomes []Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

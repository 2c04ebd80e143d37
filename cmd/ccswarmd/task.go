package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kadirpekel/ccswarmd/pkg/delegation"
	"github.com/kadirpekel/ccswarmd/pkg/hooks"
	"github.com/kadirpekel/ccswarmd/pkg/orchestrator"
	"github.com/kadirpekel/ccswarmd/pkg/sessionmanager"
	"github.com/kadirpekel/ccswarmd/pkg/task"
	"github.com/kadirpekel/ccswarmd/pkg/tracing"
)

// TaskCmd runs a single task through the classifier, delegation router,
// and orchestrator workflow, against a fresh in-process session
// manager. It does not talk to a running ccswarmd daemon — this is the
// one-shot "run this and show me the result" path, distinct from serve.
type TaskCmd struct {
	Description string   `arg:"" help:"Task description to classify and run."`
	Priority    string   `help:"low, medium, high, or critical." default:"medium" enum:"low,medium,high,critical"`
	Tags        []string `help:"Tags used for preparation/cleanup phase placement." sep:","`
}

func (c *TaskCmd) Run(cli *CLI) error {
	ctx := context.Background()

	tags := c.Tags
	if len(tags) == 0 {
		tags = classifyTags(c.Description, task.Priority(c.Priority))
	}
	t := task.New(c.Description, task.Priority(c.Priority), tags...)

	manager := sessionmanager.New()
	defer drainSessions(manager)

	registry := buildHooks()
	sessions := newAgentSessions(manager)

	mirror, err := tracing.NewMirror(ctx, tracing.MirrorConfig{})
	if err != nil {
		return fmt.Errorf("init tracing mirror: %w", err)
	}
	collector := tracing.NewCollector(tracing.CollectorConfig{}, mirror)

	traceID := collector.StartTrace("task:" + t.ID)
	defer collector.EndTrace(traceID)

	var mu sync.Mutex
	results := make(map[string]string)
	exec := tracedExecutor(collector, traceID, runTaskOnAgent(sessions, registry, slog.Default()), &mu, results)

	router := delegation.NewRouter()
	workflow := orchestrator.New(router, slog.Default())

	completed, err := workflow.Run(ctx, []*task.Task{t}, exec)
	if err != nil {
		return fmt.Errorf("workflow run: %w", err)
	}

	fmt.Printf("completed: %d/1\n", completed)
	mu.Lock()
	result := results[t.ID]
	mu.Unlock()
	if result != "" {
		fmt.Printf("result:\n%s\n", result)
	}
	return nil
}

// classifyTags derives tags for a CLI-supplied task with no explicit
// --tags from the same keyword classification the delegation router
// would use to split a raw description into domains. Sentinel
// subagent types that aren't real domain tags are skipped.
func classifyTags(description string, priority task.Priority) []string {
	classified := delegation.Classify(description, priority)
	tags := make([]string, 0, len(classified))
	for _, c := range classified {
		if c.SubagentType == "general-purpose" || c.SubagentType == "system-critical-handler" {
			continue
		}
		tags = append(tags, c.SubagentType)
	}
	return tags
}

// tracedExecutor wraps exec with a span per agent invocation and
// records each task's output so the caller can read it back without
// racing Task.Result's unexported-lock-guarded access.
func tracedExecutor(collector *tracing.Collector, traceID string, exec orchestrator.Executor, mu *sync.Mutex, results map[string]string) orchestrator.Executor {
	return func(ctx context.Context, agent string, t *task.Task) (string, error) {
		spanID := collector.StartSpan(traceID, "exec:"+agent, "")
		out, err := exec(ctx, agent, t)
		status := tracing.SpanStatus{Kind: tracing.StatusOk}
		if err != nil {
			status = tracing.SpanStatus{Kind: tracing.StatusErr, Message: err.Error()}
		}
		collector.EndSpan(traceID, spanID, status, nil)
		if err == nil {
			mu.Lock()
			results[t.ID] = out
			mu.Unlock()
		}
		return out, err
	}
}

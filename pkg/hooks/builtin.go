package hooks

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
)

// LoggingHook logs every execution and tool event it sees, at the
// lowest priority so it always runs last and observes whatever the
// higher-priority hooks decided.
type LoggingHook struct {
	log *slog.Logger

	LogPreExecution  bool
	LogPostExecution bool
	LogToolEvents    bool
}

// NewLoggingHook constructs a LoggingHook with every event category
// enabled.
func NewLoggingHook(log *slog.Logger) *LoggingHook {
	return &LoggingHook{
		log:              log,
		LogPreExecution:  true,
		LogPostExecution: true,
		LogToolEvents:    true,
	}
}

func (h *LoggingHook) Name() string { return "logging" }
func (h *LoggingHook) Priority() int { return -100 }

func (h *LoggingHook) PreExecution(_ context.Context, input PreExecutionInput, hc Context) Result {
	if h.LogPreExecution {
		h.log.Info("pre-execution", "agent_id", hc.AgentID,
			"task", input.TaskDescription, "type", input.TaskType, "priority", input.Priority)
	}
	return resultContinue
}

func (h *LoggingHook) PostExecution(_ context.Context, input PostExecutionInput, hc Context) Result {
	if h.LogPostExecution {
		h.log.Info("post-execution", "agent_id", hc.AgentID,
			"task", input.TaskDescription, "success", input.Success, "duration_ms", input.DurationMS)
	}
	return resultContinue
}

func (h *LoggingHook) OnError(_ context.Context, input ErrorInput, hc Context) Result {
	h.log.Error("execution error", "agent_id", hc.AgentID,
		"error_type", input.ErrorType, "recoverable", input.Recoverable, "message", input.ErrorMessage)
	return resultContinue
}

func (h *LoggingHook) PreToolUse(_ context.Context, input ToolUseInput, hc Context) Result {
	if h.LogToolEvents {
		h.log.Info("pre-tool-use", "agent_id", hc.AgentID, "tool", input.ToolName, "args", input.Arguments)
	}
	return resultContinue
}

func (h *LoggingHook) PostToolUse(_ context.Context, input ToolUseInput, hc Context) Result {
	if h.LogToolEvents {
		h.log.Info("post-tool-use", "agent_id", hc.AgentID,
			"tool", input.ToolName, "success", input.Success, "duration_ms", input.DurationMS)
	}
	return resultContinue
}

// SecurityHook vetoes destructive commands and edits to protected
// files, at the highest priority so it runs before any other hook sees
// the operation.
type SecurityHook struct {
	protectedPatterns   map[string]struct{}
	blockedCommands     map[string]struct{}
	allowDestructiveGit bool
}

// NewSecurityHook constructs a SecurityHook with the default protected
// file patterns and blocked commands.
func NewSecurityHook() *SecurityHook {
	h := &SecurityHook{
		protectedPatterns: map[string]struct{}{
			".env":             {},
			"*.key":            {},
			"*.pem":            {},
			"credentials.json": {},
			"secrets.yaml":     {},
			".git/config":      {},
		},
		blockedCommands: map[string]struct{}{
			"rm -rf /":    {},
			"rm -rf /*":   {},
			":(){:|:&};:": {}, // fork bomb
		},
	}
	return h
}

// ProtectPattern adds a protected file glob (only a leading "*" suffix
// wildcard is understood, matching the substring/suffix checks in
// isProtected).
func (h *SecurityHook) ProtectPattern(pattern string) *SecurityHook {
	h.protectedPatterns[pattern] = struct{}{}
	return h
}

// BlockCommand adds a substring that, if present in a Bash command,
// denies the call.
func (h *SecurityHook) BlockCommand(command string) *SecurityHook {
	h.blockedCommands[command] = struct{}{}
	return h
}

// AllowDestructiveGit lifts the default block on force-push, hard
// reset, and clean -f.
func (h *SecurityHook) AllowDestructiveGit() *SecurityHook {
	h.allowDestructiveGit = true
	return h
}

func (h *SecurityHook) Name() string { return "security" }
func (h *SecurityHook) Priority() int { return 100 }

func (h *SecurityHook) isProtected(path string) bool {
	for pattern := range h.protectedPatterns {
		if suffix, ok := strings.CutPrefix(pattern, "*"); ok {
			if strings.HasSuffix(path, suffix) {
				return true
			}
			continue
		}
		if path == pattern || strings.Contains(path, pattern) {
			return true
		}
	}
	return false
}

func (h *SecurityHook) blockedCommand(command string) string {
	for blocked := range h.blockedCommands {
		if strings.Contains(command, blocked) {
			return blocked
		}
	}
	if !h.allowDestructiveGit {
		for _, destructive := range []string{"git push --force", "git reset --hard", "git clean -f"} {
			if strings.Contains(command, destructive) {
				return "destructive git operation"
			}
		}
	}
	return ""
}

func (h *SecurityHook) PreExecution(_ context.Context, input PreExecutionInput, _ Context) Result {
	desc := strings.ToLower(input.TaskDescription)
	for _, phrase := range []string{"delete all", "remove all", "drop database"} {
		if strings.Contains(desc, phrase) {
			return Result{Decision: Deny, Reason: "task description contains a potentially destructive operation"}
		}
	}
	if i := strings.Index(desc, "drop "); i >= 0 && strings.Contains(desc[i:], "database") {
		return Result{Decision: Deny, Reason: "task description contains a potentially destructive operation"}
	}
	return resultContinue
}

func (h *SecurityHook) PostExecution(context.Context, PostExecutionInput, Context) Result {
	return resultContinue
}

func (h *SecurityHook) OnError(context.Context, ErrorInput, Context) Result {
	return resultContinue
}

func (h *SecurityHook) PreToolUse(_ context.Context, input ToolUseInput, _ Context) Result {
	switch input.ToolName {
	case "Write", "Edit":
		if path, ok := input.Arguments["file_path"].(string); ok && h.isProtected(path) {
			return Result{Decision: Deny, Reason: "cannot modify protected file: " + path}
		}
	case "Bash":
		if command, ok := input.Arguments["command"].(string); ok {
			if blocked := h.blockedCommand(command); blocked != "" {
				return Result{Decision: Deny, Reason: "blocked command detected: " + blocked}
			}
		}
	}
	return resultContinue
}

func (h *SecurityHook) PostToolUse(context.Context, ToolUseInput, Context) Result {
	return resultContinue
}

// MetricsHook counts executions and tool calls by outcome. It never
// denies anything; it is pure observation, grouped with the other
// built-ins because it shares their registration shape.
type MetricsHook struct {
	executions   atomic.Int64
	failures     atomic.Int64
	toolCalls    atomic.Int64
	toolFailures atomic.Int64

	mu          sync.Mutex
	byErrorType map[string]int64
}

// NewMetricsHook constructs an empty MetricsHook.
func NewMetricsHook() *MetricsHook {
	return &MetricsHook{byErrorType: make(map[string]int64)}
}

func (h *MetricsHook) Name() string { return "metrics" }
func (h *MetricsHook) Priority() int { return 0 }

func (h *MetricsHook) PreExecution(context.Context, PreExecutionInput, Context) Result {
	return resultContinue
}

func (h *MetricsHook) PostExecution(_ context.Context, input PostExecutionInput, _ Context) Result {
	h.executions.Add(1)
	if !input.Success {
		h.failures.Add(1)
	}
	return resultContinue
}

func (h *MetricsHook) OnError(_ context.Context, input ErrorInput, _ Context) Result {
	h.mu.Lock()
	h.byErrorType[input.ErrorType]++
	h.mu.Unlock()
	return resultContinue
}

func (h *MetricsHook) PreToolUse(context.Context, ToolUseInput, Context) Result {
	return resultContinue
}

func (h *MetricsHook) PostToolUse(_ context.Context, input ToolUseInput, _ Context) Result {
	h.toolCalls.Add(1)
	if !input.Success {
		h.toolFailures.Add(1)
	}
	return resultContinue
}

// Snapshot is a point-in-time read of a MetricsHook's counters.
type Snapshot struct {
	Executions   int64
	Failures     int64
	ToolCalls    int64
	ToolFailures int64
	ByErrorType  map[string]int64
}

// Snapshot returns the current counter values.
func (h *MetricsHook) Snapshot() Snapshot {
	h.mu.Lock()
	byErrorType := make(map[string]int64, len(h.byErrorType))
	for k, v := range h.byErrorType {
		byErrorType[k] = v
	}
	h.mu.Unlock()

	return Snapshot{
		Executions:   h.executions.Load(),
		Failures:     h.failures.Load(),
		ToolCalls:    h.toolCalls.Load(),
		ToolFailures: h.toolFailures.Load(),
		ByErrorType:  byErrorType,
	}
}

// Package hooks implements the priority-ordered interception points a
// task's execution and tool calls pass through: pre/post execution,
// on-error, and pre/post tool use. Any hook may veto the operation in
// flight by denying it.
package hooks

import (
	"context"
	"sort"
	"sync"
)

// Capability names one of the five points in a task's lifecycle a hook
// can observe or intercept.
type Capability string

const (
	PreExecution  Capability = "pre_execution"
	PostExecution Capability = "post_execution"
	OnError       Capability = "on_error"
	PreToolUse    Capability = "pre_tool_use"
	PostToolUse   Capability = "post_tool_use"
)

// Decision is a hook's verdict on the operation it observed.
type Decision int

const (
	// Continue lets the operation proceed unchanged.
	Continue Decision = iota
	// Deny vetoes the operation; Reason explains why.
	Deny
)

// Result is what a hook returns from any of its capability methods.
type Result struct {
	Decision Decision
	Reason   string
}

// Denied reports whether the result vetoes the operation.
func (r Result) Denied() bool { return r.Decision == Deny }

var resultContinue = Result{Decision: Continue}

// Context carries the identity of the agent whose task or tool call is
// passing through a hook.
type Context struct {
	AgentID string
}

// PreExecutionInput is passed to a hook before a task begins running.
type PreExecutionInput struct {
	TaskDescription string
	TaskType        string
	Priority        string
}

// PostExecutionInput is passed to a hook after a task finishes running.
type PostExecutionInput struct {
	TaskDescription string
	Success         bool
	DurationMS      int64
}

// ErrorInput is passed to a hook when a task fails.
type ErrorInput struct {
	ErrorType    string
	ErrorMessage string
	Recoverable  bool
}

// ToolUseInput is passed to a hook around a tool call.
type ToolUseInput struct {
	ToolName   string
	Arguments  map[string]any
	Success    bool  // only meaningful for PostToolUse
	DurationMS int64 // only meaningful for PostToolUse
}

// ExecutionHook observes or vetoes a task's lifecycle.
type ExecutionHook interface {
	PreExecution(ctx context.Context, input PreExecutionInput, hc Context) Result
	PostExecution(ctx context.Context, input PostExecutionInput, hc Context) Result
	OnError(ctx context.Context, input ErrorInput, hc Context) Result
	Name() string
	Priority() int
}

// ToolHook observes or vetoes a tool call.
type ToolHook interface {
	PreToolUse(ctx context.Context, input ToolUseInput, hc Context) Result
	PostToolUse(ctx context.Context, input ToolUseInput, hc Context) Result
	Name() string
	Priority() int
}

// Registry holds the hooks installed for a daemon and runs them, in
// descending priority order, through each capability point. A hook
// implementing both ExecutionHook and ToolHook (the common case for the
// built-ins) is registered once and participates in both chains.
type Registry struct {
	mu             sync.RWMutex
	executionHooks []ExecutionHook
	toolHooks      []ToolHook
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{}
}

// RegisterExecution adds an ExecutionHook, re-sorting the chain by
// descending priority (highest runs first).
func (r *Registry) RegisterExecution(h ExecutionHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executionHooks = append(r.executionHooks, h)
	sort.SliceStable(r.executionHooks, func(i, j int) bool {
		return r.executionHooks[i].Priority() > r.executionHooks[j].Priority()
	})
}

// RegisterTool adds a ToolHook, re-sorting the chain by descending
// priority.
func (r *Registry) RegisterTool(h ToolHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toolHooks = append(r.toolHooks, h)
	sort.SliceStable(r.toolHooks, func(i, j int) bool {
		return r.toolHooks[i].Priority() > r.toolHooks[j].Priority()
	})
}

// Register adds h to whichever chains it implements.
func (r *Registry) Register(h any) {
	if eh, ok := h.(ExecutionHook); ok {
		r.RegisterExecution(eh)
	}
	if th, ok := h.(ToolHook); ok {
		r.RegisterTool(th)
	}
}

// PreExecution runs the execution chain's PreExecution in priority
// order, stopping at the first Deny.
func (r *Registry) PreExecution(ctx context.Context, input PreExecutionInput, hc Context) Result {
	r.mu.RLock()
	chain := append([]ExecutionHook(nil), r.executionHooks...)
	r.mu.RUnlock()
	for _, h := range chain {
		if res := h.PreExecution(ctx, input, hc); res.Denied() {
			return res
		}
	}
	return resultContinue
}

// PostExecution runs the execution chain's PostExecution in priority
// order. PostExecution is advisory: every hook runs regardless of
// earlier Deny results, since the task has already completed.
func (r *Registry) PostExecution(ctx context.Context, input PostExecutionInput, hc Context) {
	r.mu.RLock()
	chain := append([]ExecutionHook(nil), r.executionHooks...)
	r.mu.RUnlock()
	for _, h := range chain {
		h.PostExecution(ctx, input, hc)
	}
}

// OnError runs the execution chain's OnError in priority order. Like
// PostExecution, every hook runs.
func (r *Registry) OnError(ctx context.Context, input ErrorInput, hc Context) {
	r.mu.RLock()
	chain := append([]ExecutionHook(nil), r.executionHooks...)
	r.mu.RUnlock()
	for _, h := range chain {
		h.OnError(ctx, input, hc)
	}
}

// PreToolUse runs the tool chain's PreToolUse in priority order,
// stopping at the first Deny.
func (r *Registry) PreToolUse(ctx context.Context, input ToolUseInput, hc Context) Result {
	r.mu.RLock()
	chain := append([]ToolHook(nil), r.toolHooks...)
	r.mu.RUnlock()
	for _, h := range chain {
		if res := h.PreToolUse(ctx, input, hc); res.Denied() {
			return res
		}
	}
	return resultContinue
}

// PostToolUse runs the tool chain's PostToolUse in priority order.
// Every hook runs.
func (r *Registry) PostToolUse(ctx context.Context, input ToolUseInput, hc Context) {
	r.mu.RLock()
	chain := append([]ToolHook(nil), r.toolHooks...)
	r.mu.RUnlock()
	for _, h := range chain {
		h.PostToolUse(ctx, input, hc)
	}
}

// Package task defines the unit of work the delegation router and
// orchestrator pass around: a description, a priority, a set of tags
// used for domain classification, and enough state to track dependency
// graphs and subtasking.
package task

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Priority orders tasks for scheduling and risk evaluation.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// rank gives Priority a total order for comparisons like "priority <= Medium".
func (p Priority) rank() int {
	switch p {
	case PriorityLow:
		return 0
	case PriorityMedium:
		return 1
	case PriorityHigh:
		return 2
	case PriorityCritical:
		return 3
	default:
		return 1
	}
}

// AtMost reports whether p is no more urgent than other.
func (p Priority) AtMost(other Priority) bool {
	return p.rank() <= other.rank()
}

// State is the task's lifecycle state.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// IsTerminal reports whether s accepts no further transitions.
func (s State) IsTerminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	}
	return false
}

// Task is the unit of work the delegation router matches to an agent.
type Task struct {
	mu sync.RWMutex

	ID           string
	Description  string
	Priority     Priority
	Tags         map[string]struct{}
	Status       State
	Dependencies []string
	Parent       string
	Subtasks     []string
	Result       string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// New constructs a pending Task with a fresh id.
func New(description string, priority Priority, tags ...string) *Task {
	tagSet := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		tagSet[t] = struct{}{}
	}
	now := time.Now()
	return &Task{
		ID:          uuid.NewString(),
		Description: description,
		Priority:    priority,
		Tags:        tagSet,
		Status:      StatePending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// HasTag reports whether the task carries the given tag.
func (t *Task) HasTag(tag string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.Tags[tag]
	return ok
}

// TagsIntersect reports whether any of the task's tags appear in safe.
func (t *Task) TagsIntersect(safe map[string]struct{}) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for tag := range t.Tags {
		if _, ok := safe[tag]; ok {
			return true
		}
	}
	return false
}

// SetStatus transitions the task's status, stamping UpdatedAt.
func (t *Task) SetStatus(s State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Status = s
	t.UpdatedAt = time.Now()
}

// GetStatus returns the current status.
func (t *Task) GetStatus() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.Status
}

// SetResult records the task's textual result and marks it Completed.
func (t *Task) SetResult(result string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Result = result
	t.Status = StateCompleted
	t.UpdatedAt = time.Now()
}

// AddSubtask appends a child task id.
func (t *Task) AddSubtask(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Subtasks = append(t.Subtasks, id)
}

package autoaccept

import "github.com/kadirpekel/ccswarmd/pkg/task"

// TaskRiskGate is the pure risk gate for delegated tasks: it mutates
// nothing and consults only its arguments.
type TaskRiskGate struct{}

// IsAutoAcceptable reports whether t may proceed without explicit
// approval: priority at most Medium, riskLevel at most 5 (a
// caller-supplied 1-10 integer), and t's tags intersect safeTags.
func (TaskRiskGate) IsAutoAcceptable(t *task.Task, riskLevel int, safeTags map[string]struct{}) bool {
	if !t.Priority.AtMost(task.PriorityMedium) {
		return false
	}
	if riskLevel > 5 {
		return false
	}
	return t.TagsIntersect(safeTags)
}

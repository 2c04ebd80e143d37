// Package delegation implements the keyword-based task classifier and
// the resilient agent router that sits behind it.
package delegation

import (
	"strings"

	"github.com/google/uuid"

	"github.com/kadirpekel/ccswarmd/pkg/task"
)

// Domain is one of the fixed classification buckets a task description
// can match.
type Domain string

const (
	DomainFrontend Domain = "frontend"
	DomainBackend  Domain = "backend"
	DomainDevOps   Domain = "devops"
	DomainQA       Domain = "qa"
	DomainSemantic Domain = "semantic"
)

// domainKeywords is the case-insensitive keyword table classification
// matches description text against.
var domainKeywords = map[Domain][]string{
	DomainFrontend: {"ui", "frontend", "react", "vue", "component", "style", "css", "layout", "responsive"},
	DomainBackend:  {"api", "backend", "database", "server", "endpoint", "rest", "graphql", "auth", "model", "schema"},
	DomainDevOps:   {"docker", "kubernetes", "deploy", "ci", "pipeline", "container", "terraform", "aws", "azure", "gcp"},
	DomainQA:       {"test", "qa", "coverage", "integration test", "e2e", "bug"},
	DomainSemantic: {"analyze", "understand", "refactor", "optimize", "pattern", "architecture", "dependency"},
}

// orderedDomains fixes iteration order so Classify's output is
// deterministic across calls with the same input.
var orderedDomains = []Domain{DomainFrontend, DomainBackend, DomainDevOps, DomainQA, DomainSemantic}

// DelegatedTask is one unit of work a classified domain produces.
type DelegatedTask struct {
	ID              string
	Description     string
	Prompt          string
	SubagentType    string
	Priority        task.Priority
	ExpectedOutputs []string
}

// systemCriticalHandler is the fixed subagent_type Critical-priority
// tasks route to, bypassing keyword classification entirely.
const systemCriticalHandler = "system-critical-handler"

// Classify computes the set of matched domains for description and
// emits one DelegatedTask per match. A Critical priority task bypasses
// classification and routes to the fixed critical handler. A priority
// at or below High that matches no domain emits a single
// "general-purpose" task.
func Classify(description string, priority task.Priority) []DelegatedTask {
	if priority == task.PriorityCritical {
		return []DelegatedTask{{
			ID:           uuid.NewString(),
			Description:  brief(description),
			Prompt:       description,
			SubagentType: systemCriticalHandler,
			Priority:     priority,
		}}
	}

	lower := strings.ToLower(description)
	var matched []Domain
	for _, d := range orderedDomains {
		for _, kw := range domainKeywords[d] {
			if strings.Contains(lower, kw) {
				matched = append(matched, d)
				break
			}
		}
	}

	if len(matched) == 0 {
		return []DelegatedTask{{
			ID:           uuid.NewString(),
			Description:  brief(description),
			Prompt:       description,
			SubagentType: "general-purpose",
			Priority:     priority,
		}}
	}

	out := make([]DelegatedTask, 0, len(matched))
	for _, d := range matched {
		out = append(out, DelegatedTask{
			ID:              uuid.NewString(),
			Description:     brief(description),
			Prompt:          description,
			SubagentType:    string(d),
			Priority:        priority,
			ExpectedOutputs: expectedOutputs(d),
		})
	}
	return out
}

func expectedOutputs(d Domain) []string {
	switch d {
	case DomainFrontend:
		return []string{"component changes", "style updates"}
	case DomainBackend:
		return []string{"api/schema changes", "server-side logic"}
	case DomainDevOps:
		return []string{"pipeline/infra changes"}
	case DomainQA:
		return []string{"test results", "coverage delta"}
	case DomainSemantic:
		return []string{"analysis summary"}
	default:
		return nil
	}
}

const briefMaxLen = 80

func brief(description string) string {
	d := strings.TrimSpace(description)
	if len(d) <= briefMaxLen {
		return d
	}
	return d[:briefMaxLen] + "..."
}

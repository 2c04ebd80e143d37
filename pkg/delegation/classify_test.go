package delegation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kadirpekel/ccswarmd/pkg/task"
)

func TestClassify_SingleDomain(t *testing.T) {
	out := Classify("update the react component styling", task.PriorityMedium)
	assert.Len(t, out, 1)
	assert.Equal(t, string(DomainFrontend), out[0].SubagentType)
	assert.NotEmpty(t, out[0].ID)
}

func TestClassify_MultipleDomains(t *testing.T) {
	out := Classify("add a rest api endpoint and deploy it via docker", task.PriorityLow)
	var kinds []string
	for _, dt := range out {
		kinds = append(kinds, dt.SubagentType)
	}
	assert.Contains(t, kinds, string(DomainBackend))
	assert.Contains(t, kinds, string(DomainDevOps))
}

func TestClassify_NoMatchFallsBackToGeneralPurpose(t *testing.T) {
	out := Classify("say hello to the team", task.PriorityLow)
	assert.Len(t, out, 1)
	assert.Equal(t, "general-purpose", out[0].SubagentType)
}

func TestClassify_CriticalBypassesClassification(t *testing.T) {
	out := Classify("deploy docker containers to kubernetes", task.PriorityCritical)
	assert.Len(t, out, 1)
	assert.Equal(t, systemCriticalHandler, out[0].SubagentType)
	assert.Equal(t, task.PriorityCritical, out[0].Priority)
}

func TestClassify_DescriptionIsBriefedOnOutput(t *testing.T) {
	long := ""
	for i := 0; i < 20; i++ {
		long += "word "
	}
	out := Classify(long, task.PriorityLow)
	assert.LessOrEqual(t, len(out[0].Description), briefMaxLen+3)
	assert.Equal(t, long, out[0].Prompt)
}

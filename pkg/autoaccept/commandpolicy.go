package autoaccept

import (
	"strings"

	"github.com/kadirpekel/ccswarmd/pkg/gitshell"
)

// CommandPolicy matches a Bash action's command against a literal
// deny-set, plus the hardcoded destructive git patterns that are blocked
// regardless of configuration.
type CommandPolicy struct {
	Denied  []string
	Allowed []string
}

// Evaluate decides whether command may run under this policy.
func (p CommandPolicy) Evaluate(command string) Decision {
	for _, denied := range p.Denied {
		if denied != "" && strings.Contains(command, denied) {
			return Deny("command matches denied substring: " + denied)
		}
	}

	explicitlyAllowed := false
	for _, allowed := range p.Allowed {
		if allowed != "" && strings.Contains(command, allowed) {
			explicitlyAllowed = true
			break
		}
	}
	if !explicitlyAllowed && gitshell.IsDangerous(command) {
		return Deny("command matches a destructive git pattern")
	}
	return Allow()
}

package autoaccept

import (
	"path/filepath"
	"strings"
)

// FSPolicy holds three disjoint path sets governing file access. A path
// is allowed iff no denied prefix matches, and either Allowed is empty
// or some allowed prefix matches; Write/Execute additionally deny any
// Readonly prefix.
type FSPolicy struct {
	Allowed  []string
	Denied   []string
	Readonly []string
}

func hasPrefixMatch(path string, prefixes []string) bool {
	clean := filepath.Clean(path)
	for _, p := range prefixes {
		if strings.HasPrefix(clean, filepath.Clean(p)) {
			return true
		}
	}
	return false
}

// Evaluate decides whether path may be accessed in mode under this
// policy.
func (p FSPolicy) Evaluate(path string, mode AccessMode) Decision {
	if hasPrefixMatch(path, p.Denied) {
		return Deny("path is in denied set: " + path)
	}
	if len(p.Allowed) > 0 && !hasPrefixMatch(path, p.Allowed) {
		return Deny("path is not in allowed set: " + path)
	}
	if (mode == AccessWrite || mode == AccessExecute) && hasPrefixMatch(path, p.Readonly) {
		return Deny("path is read-only: " + path)
	}
	return Allow()
}

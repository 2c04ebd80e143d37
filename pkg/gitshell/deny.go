// Package gitshell recognizes the handful of git invocations that are
// destructive enough to deny outright, regardless of any configured
// command allow-list.
package gitshell

import "regexp"

// dangerousPatterns are checked against a command string as received by
// the auto-accept gate, independent of any configured deny-set.
var dangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bgit\s+push\b.*\s--force(\b|=)`),
	regexp.MustCompile(`\bgit\s+push\b.*\s-f\b`),
	regexp.MustCompile(`\bgit\s+reset\b.*\s--hard\b`),
	regexp.MustCompile(`\bgit\s+clean\b.*\s-f`),
}

// IsDangerous reports whether command matches one of the hardcoded
// destructive git patterns (force-push, hard reset, forced clean).
func IsDangerous(command string) bool {
	for _, p := range dangerousPatterns {
		if p.MatchString(command) {
			return true
		}
	}
	return false
}

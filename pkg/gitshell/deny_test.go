package gitshell

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsDangerous(t *testing.T) {
	tests := []struct {
		name    string
		command string
		want    bool
	}{
		{"force push long flag", "git push --force origin main", true},
		{"force push short flag", "git push -f origin main", true},
		{"hard reset", "git reset --hard HEAD~1", true},
		{"force clean", "git clean -fd", true},
		{"plain push", "git push origin main", false},
		{"soft reset", "git reset --soft HEAD~1", false},
		{"dry-run clean", "git clean -n", false},
		{"unrelated command", "ls -la", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDangerous(tt.command))
		})
	}
}

// Package checkpoint implements the file-backed checkpoint and fork
// store: point-in-time snapshots of a session's state, and the fork
// registry that tracks branches created from those snapshots.
package checkpoint

import "time"

// Metadata carries the summary statistics attached to a Checkpoint.
type Metadata struct {
	TasksCompleted     int    `json:"tasks_completed"`
	TokenCount         int    `json:"token_count,omitempty"`
	StateSizeBytes     int    `json:"state_size_bytes"`
	ContextCompressed  bool   `json:"context_compressed"`
	ParentCheckpointID string `json:"parent_checkpoint_id,omitempty"`
}

// Checkpoint is an immutable, point-in-time snapshot of a session.
type Checkpoint struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	Label     string          `json:"label,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	State     []byte          `json:"state"`
	Context   []byte          `json:"context,omitempty"`
	Metadata  Metadata        `json:"metadata"`
}

// ForkStatus is the lifecycle state of a ForkInfo entry.
type ForkStatus string

const (
	ForkStatusCreating  ForkStatus = "creating"
	ForkStatusActive    ForkStatus = "active"
	ForkStatusMerged    ForkStatus = "merged"
	ForkStatusAbandoned ForkStatus = "abandoned"
	ForkStatusArchived  ForkStatus = "archived"
)

// ForkInfo records a branch created from a checkpoint. A fork references
// exactly one checkpoint; a session may have many forks.
type ForkInfo struct {
	ForkID           string         `json:"fork_id"`
	ParentSessionID  string         `json:"parent_session_id"`
	CheckpointID     string         `json:"checkpoint_id"`
	BranchName       string         `json:"branch_name,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	Status           ForkStatus     `json:"status"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// indexEntry is one row of the checkpoint index: enough to find and
// describe a checkpoint file without reading it.
type indexEntry struct {
	SessionID    string    `json:"session_id"`
	Label        string    `json:"label,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	RelativePath string    `json:"relative_path"`
	SizeBytes    int64     `json:"size_bytes"`
}

// forkRegistry is the on-disk shape of forks.json.
type forkRegistry struct {
	Forks    map[string]*ForkInfo `json:"forks"`
	Children map[string][]string  `json:"children"`
}

func newForkRegistry() *forkRegistry {
	return &forkRegistry{
		Forks:    make(map[string]*ForkInfo),
		Children: make(map[string][]string),
	}
}

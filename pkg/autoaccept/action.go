// Package autoaccept implements the auto-accept gate: a pure policy
// check that decides whether a proposed action may proceed without
// asking a human, and the task-level risk gate that decides the same
// for delegated work.
package autoaccept

// AccessMode is the kind of access a FileAccess action requests.
type AccessMode string

const (
	AccessRead    AccessMode = "read"
	AccessWrite   AccessMode = "write"
	AccessExecute AccessMode = "execute"
)

// ActionKind discriminates the Action union.
type ActionKind string

const (
	ActionFileAccess    ActionKind = "file_access"
	ActionNetworkAccess ActionKind = "network_access"
	ActionSystemCall    ActionKind = "system_call"
	ActionAPICall       ActionKind = "api_call"
	ActionBash          ActionKind = "bash"
	ActionWriteEdit     ActionKind = "write_edit"
)

// Action is the union of action kinds the gate can evaluate. Exactly one
// of the kind-specific field groups is populated, selected by Kind; this
// mirrors the wire shape IPC callers submit and that invopop/jsonschema
// validates against.
type Action struct {
	Kind ActionKind `json:"kind"`

	// FileAccess / WriteEdit
	Path string     `json:"path,omitempty"`
	Mode AccessMode `json:"mode,omitempty"`

	// NetworkAccess
	Host string `json:"host,omitempty"`
	Port int    `json:"port,omitempty"`

	// SystemCall
	Name string `json:"name,omitempty"`

	// APICall
	Endpoint string `json:"endpoint,omitempty"`
	Method   string `json:"method,omitempty"`

	// Bash
	Command string `json:"command,omitempty"`
}

// Decision is the gate's verdict on an Action.
type Decision struct {
	Continue bool   `json:"continue"`
	Reason   string `json:"reason,omitempty"`
}

// Allow constructs a Continue decision.
func Allow() Decision { return Decision{Continue: true} }

// Deny constructs a Deny decision with reason.
func Deny(reason string) Decision { return Decision{Continue: false, Reason: reason} }

// Package ccerrors provides the shared error taxonomy used across the
// orchestration core: the PTY engine, session manager, checkpoint store,
// coordination bus, delegation router, and IPC endpoint all surface
// failures through the same Kind enum so callers (in particular the
// resilience wrapper in pkg/delegation, and the IPC endpoint's Error
// envelope) can reason about a failure without type-switching on every
// package's own error type.
package ccerrors

import (
	"errors"
	"fmt"
)

// Kind identifies the category of a failure, per the taxonomy in the
// core's error-handling design.
type Kind string

const (
	NotFound      Kind = "not_found"
	AlreadyExists Kind = "already_exists"
	InvalidState  Kind = "invalid_state"
	PtyError      Kind = "pty_error"
	ProcessError  Kind = "process_error"
	IoError       Kind = "io_error"
	Configuration Kind = "configuration"
	Network       Kind = "network"
	Auth          Kind = "auth"
	TaskKind      Kind = "task"
	SessionKind   Kind = "session"
	AgentKind     Kind = "agent"
	ExtensionKind Kind = "extension"
	ResourceKind  Kind = "resource"
	Git           Kind = "git"
	Template      Kind = "template"
	UserError     Kind = "user_error"
	Unsupported   Kind = "unsupported"
	Other         Kind = "other"
)

// Severity distinguishes kinds that must never be retried from everything else.
type Severity string

const (
	SeverityNormal   Severity = "normal"
	SeverityCritical Severity = "critical"
)

// Error is the core's single structured error type. Every fallible
// operation on the data path returns one of these (wrapped or bare)
// instead of panicking.
type Error struct {
	Kind       Kind
	Message    string
	ID         string // task/session/agent/extension identifier, when applicable
	Suggestion string // for UserError
	Cause      error
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func (e *Error) WithID(id string) *Error {
	e.ID = id
	return e
}

func (e *Error) WithSuggestion(s string) *Error {
	e.Suggestion = s
	return e
}

func (e *Error) Error() string {
	msg := string(e.Kind) + ": " + e.Message
	if e.ID != "" {
		msg += " (id=" + e.ID + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Severity returns the severity of the error's kind. Auth and
// Configuration are Critical: they propagate to the nearest boundary and
// are never retried regardless of caller policy.
func (e *Error) Severity() Severity {
	switch e.Kind {
	case Auth, Configuration:
		return SeverityCritical
	default:
		return SeverityNormal
	}
}

// Retryable reports whether the resilience wrapper (pkg/delegation) may
// retry an operation that failed with this error. Network, IoError,
// ResourceKind, and TaskKind are eligible; everything else, including both
// Critical-severity kinds, is not.
func (e *Error) Retryable() bool {
	if e.Severity() == SeverityCritical {
		return false
	}
	switch e.Kind {
	case Network, IoError, ResourceKind, TaskKind:
		return true
	default:
		return false
	}
}

// Kind is not an error type, so there is no Is method for comparing an
// error against a Kind with errors.Is; callers use KindOf instead.

// KindOf extracts the Kind from err if it (or something it wraps) is an
// *Error, and returns (Other, false) otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return Other, false
}

// IsRetryable reports whether err is retryable; non-*Error values are
// conservatively treated as not retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable()
	}
	return false
}

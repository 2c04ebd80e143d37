// Package tracing implements the span/trace tree that C9 and C8
// instrument as they run tasks: a rooted DAG of spans per trace, with
// bounded retention and optional OpenTelemetry/Prometheus mirroring.
package tracing

import (
	"time"

	"github.com/google/uuid"
)

// SpanStatus is the terminal state of a completed span.
type SpanStatus struct {
	Kind    StatusKind
	Message string
}

// StatusKind enumerates SpanStatus.Kind.
type StatusKind string

const (
	StatusOk        StatusKind = "ok"
	StatusErr       StatusKind = "error"
	StatusCancelled StatusKind = "cancelled"
)

// Ok reports whether the status is success.
func (s SpanStatus) Ok() bool { return s.Kind == StatusOk }

// SpanEvent is a timestamped annotation attached to a span.
type SpanEvent struct {
	Name       string
	Time       time.Time
	Attributes map[string]string
}

// SpanMetadata carries the optional aggregate fields a span may report.
type SpanMetadata struct {
	Tokens *uint64
	Cost   *float64
	Agent  string
}

// Span is one node in a trace's span tree.
type Span struct {
	ID        string
	ParentID  string
	Name      string
	StartTime time.Time
	EndTime   time.Time
	Status    SpanStatus
	Metadata  SpanMetadata
	Events    []SpanEvent
	ended     bool
}

func newSpan(name, parentID string) *Span {
	return &Span{
		ID:        uuid.NewString(),
		ParentID:  parentID,
		Name:      name,
		StartTime: time.Now(),
	}
}

// IsActive reports whether the span has not yet ended.
func (s *Span) IsActive() bool { return !s.ended }

// DurationMS returns the span's duration in milliseconds, or -1 if
// still active.
func (s *Span) DurationMS() int64 {
	if s.IsActive() {
		return -1
	}
	return s.EndTime.Sub(s.StartTime).Milliseconds()
}

func (s *Span) end(status SpanStatus) {
	if s.ended {
		return
	}
	s.EndTime = time.Now()
	s.Status = status
	s.ended = true
}

func (s *Span) addEvent(event SpanEvent) {
	if event.Time.IsZero() {
		event.Time = time.Now()
	}
	s.Events = append(s.Events, event)
}

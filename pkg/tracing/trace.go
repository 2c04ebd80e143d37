package tracing

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Trace is a rooted DAG of spans describing one complete operation.
type Trace struct {
	mu sync.RWMutex

	ID        string
	Name      string
	StartTime time.Time
	EndTime   time.Time
	ended     bool

	spans map[string]*Span
	order []string

	Tags      map[string]string
	UserID    string
	SessionID string
}

// NewTrace starts a new, active trace.
func NewTrace(name string) *Trace {
	return &Trace{
		ID:        uuid.NewString(),
		Name:      name,
		StartTime: time.Now(),
		spans:     make(map[string]*Span),
		Tags:      make(map[string]string),
	}
}

// StartSpan appends a new active span under parentID (empty for a root
// span) and returns its id.
func (t *Trace) StartSpan(name, parentID string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	span := newSpan(name, parentID)
	t.spans[span.ID] = span
	t.order = append(t.order, span.ID)
	return span.ID
}

// EndSpan transitions spanID to status and merges metadata into it. A
// reference to an unknown span is silently ignored, matching the
// collector's no-op-on-miss behavior.
func (t *Trace) EndSpan(spanID string, status SpanStatus, metadata *SpanMetadata) {
	t.mu.Lock()
	defer t.mu.Unlock()
	span, ok := t.spans[spanID]
	if !ok {
		return
	}
	span.end(status)
	if metadata != nil {
		span.Metadata = *metadata
	}
}

// AddEvent appends event to spanID, if it exists.
func (t *Trace) AddEvent(spanID string, event SpanEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if span, ok := t.spans[spanID]; ok {
		span.addEvent(event)
	}
}

// GetSpan returns the span for spanID, if any.
func (t *Trace) GetSpan(spanID string) (*Span, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	span, ok := t.spans[spanID]
	return span, ok
}

// End closes the trace and cancels any spans still active.
func (t *Trace) End() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ended {
		return
	}
	t.EndTime = time.Now()
	t.ended = true
	for _, id := range t.order {
		span := t.spans[id]
		if span.IsActive() {
			span.end(SpanStatus{Kind: StatusCancelled})
		}
	}
}

// IsActive reports whether the trace has not yet ended.
func (t *Trace) IsActive() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return !t.ended
}

// TotalTokens sums the Tokens metadata field across every span.
func (t *Trace) TotalTokens() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var total uint64
	for _, id := range t.order {
		if tok := t.spans[id].Metadata.Tokens; tok != nil {
			total += *tok
		}
	}
	return total
}

// TotalCost sums the Cost metadata field across every span.
func (t *Trace) TotalCost() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var total float64
	for _, id := range t.order {
		if cost := t.spans[id].Metadata.Cost; cost != nil {
			total += *cost
		}
	}
	return total
}

// SpanTreeNode is one node of Trace.SpanTree's output.
type SpanTreeNode struct {
	Span     *Span
	Children []*SpanTreeNode
}

// SpanTree builds the parent/child tree rooted at every span with no
// parent.
func (t *Trace) SpanTree() []*SpanTreeNode {
	t.mu.RLock()
	defer t.mu.RUnlock()

	childrenOf := make(map[string][]string)
	var roots []string
	for _, id := range t.order {
		span := t.spans[id]
		if span.ParentID == "" {
			roots = append(roots, id)
		} else {
			childrenOf[span.ParentID] = append(childrenOf[span.ParentID], id)
		}
	}

	var build func(id string) *SpanTreeNode
	build = func(id string) *SpanTreeNode {
		node := &SpanTreeNode{Span: t.spans[id]}
		for _, childID := range childrenOf[id] {
			node.Children = append(node.Children, build(childID))
		}
		return node
	}

	nodes := make([]*SpanTreeNode, 0, len(roots))
	for _, id := range roots {
		nodes = append(nodes, build(id))
	}
	return nodes
}

// Summary is the trace's aggregate statistics snapshot.
type Summary struct {
	TraceID      string
	Name         string
	TotalSpans   int
	SuccessSpans int
	FailedSpans  int
	TotalTokens  uint64
	TotalCost    float64
	DurationMS   int64
}

// Summarize computes the trace's current aggregate statistics.
func (t *Trace) Summarize() Summary {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := Summary{TraceID: t.ID, Name: t.Name, TotalSpans: len(t.order)}
	for _, id := range t.order {
		span := t.spans[id]
		switch {
		case span.Status.Ok():
			s.SuccessSpans++
		case span.Status.Kind == StatusErr:
			s.FailedSpans++
		}
		if tok := span.Metadata.Tokens; tok != nil {
			s.TotalTokens += *tok
		}
		if cost := span.Metadata.Cost; cost != nil {
			s.TotalCost += *cost
		}
	}
	if t.ended {
		s.DurationMS = t.EndTime.Sub(t.StartTime).Milliseconds()
	}
	return s
}

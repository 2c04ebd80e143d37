package tracing

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CollectorConfig configures a Collector's retention.
type CollectorConfig struct {
	// MaxTraces caps the number of completed traces retained; the oldest
	// completed trace is evicted once the cap is reached. 0 selects a
	// default of 1000, mirroring the upstream collector's default.
	MaxTraces int
}

func (c *CollectorConfig) setDefaults() {
	if c.MaxTraces <= 0 {
		c.MaxTraces = 1000
	}
}

// Collector gathers and manages traces. Active traces are held without
// limit; once a trace ends it moves into an LRU-bounded cache so long
// daemon lifetimes don't grow memory without bound.
type Collector struct {
	mu     sync.RWMutex
	cfg    CollectorConfig
	active map[string]*Trace
	done   *lru.Cache[string, *Trace]
	mirror *Mirror
}

// NewCollector constructs a Collector. mirror may be nil to disable
// OTel/Prometheus mirroring.
func NewCollector(cfg CollectorConfig, mirror *Mirror) *Collector {
	cfg.setDefaults()
	done, err := lru.New[string, *Trace](cfg.MaxTraces)
	if err != nil {
		// Only returns an error for a non-positive size, which
		// setDefaults already rules out.
		panic(err)
	}
	return &Collector{
		cfg:    cfg,
		active: make(map[string]*Trace),
		done:   done,
		mirror: mirror,
	}
}

// StartTrace begins a new trace and returns its id.
func (c *Collector) StartTrace(name string) string {
	t := NewTrace(name)
	c.mu.Lock()
	c.active[t.ID] = t
	c.mu.Unlock()
	c.mirror.onTraceStart(t)
	return t.ID
}

// StartSpan begins a new span within traceID. Returns "" if traceID is
// unknown or already ended.
func (c *Collector) StartSpan(traceID, name, parentID string) string {
	t := c.lookupActive(traceID)
	if t == nil {
		return ""
	}
	spanID := t.StartSpan(name, parentID)
	c.mirror.onSpanStart(t, spanID, name, parentID)
	return spanID
}

// EndSpan ends spanID within traceID, if both exist.
func (c *Collector) EndSpan(traceID, spanID string, status SpanStatus, metadata *SpanMetadata) {
	t := c.lookupActive(traceID)
	if t == nil {
		return
	}
	t.EndSpan(spanID, status, metadata)
	c.mirror.onSpanEnd(t, spanID, status)
}

// AddEvent appends event to spanID within traceID, if both exist.
func (c *Collector) AddEvent(traceID, spanID string, event SpanEvent) {
	t := c.lookupActive(traceID)
	if t == nil {
		return
	}
	t.AddEvent(spanID, event)
}

// EndTrace ends traceID (cancelling any still-active spans) and moves
// it from the active set into the bounded completed cache.
func (c *Collector) EndTrace(traceID string) {
	c.mu.Lock()
	t, ok := c.active[traceID]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(c.active, traceID)
	c.mu.Unlock()

	t.End()
	c.done.Add(traceID, t)
	c.mirror.onTraceEnd(t)
}

func (c *Collector) lookupActive(traceID string) *Trace {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active[traceID]
}

// GetTrace returns a trace by id, checking the active set first, then
// the completed cache.
func (c *Collector) GetTrace(traceID string) (*Trace, bool) {
	if t := c.lookupActive(traceID); t != nil {
		return t, true
	}
	t, ok := c.done.Get(traceID)
	return t, ok
}

// ActiveTraces returns every trace still in progress.
func (c *Collector) ActiveTraces() []*Trace {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Trace, 0, len(c.active))
	for _, t := range c.active {
		out = append(out, t)
	}
	return out
}

// CompletedTraces returns every completed trace still retained in the
// LRU cache, most-recently-used first.
func (c *Collector) CompletedTraces() []*Trace {
	keys := c.done.Keys()
	out := make([]*Trace, 0, len(keys))
	for _, k := range keys {
		if t, ok := c.done.Peek(k); ok {
			out = append(out, t)
		}
	}
	return out
}

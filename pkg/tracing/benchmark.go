package tracing

import (
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BenchmarkSample records one completed operation's duration against a
// named benchmark, feeding both an in-memory percentile view and (when
// a Mirror with Prometheus enabled is attached) a Prometheus summary.
type BenchmarkSample struct {
	Name      string
	Duration  time.Duration
	Timestamp time.Time
}

// Benchmark accumulates samples for a single named operation and
// reports duration percentiles over them. Percentiles are computed
// exactly by sorting the retained samples and taking the one at index
// q*(n-1); the optional Prometheus summary keeps its own estimate.
type Benchmark struct {
	mu      sync.RWMutex
	name    string
	samples []time.Duration
	maxKeep int
	summary prometheus.Summary
}

// NewBenchmark constructs a Benchmark for name, retaining at most
// maxKeep of the most recent samples for local percentile queries (0
// selects a default of 10000). summary may be nil to skip Prometheus
// mirroring.
func NewBenchmark(name string, maxKeep int, summary prometheus.Summary) *Benchmark {
	if maxKeep <= 0 {
		maxKeep = 10000
	}
	return &Benchmark{name: name, maxKeep: maxKeep, summary: summary}
}

// Record appends a sample.
func (b *Benchmark) Record(d time.Duration) {
	b.mu.Lock()
	b.samples = append(b.samples, d)
	if over := len(b.samples) - b.maxKeep; over > 0 {
		b.samples = b.samples[over:]
	}
	b.mu.Unlock()

	if b.summary != nil {
		b.summary.Observe(float64(d.Milliseconds()))
	}
}

// Count returns the number of retained samples.
func (b *Benchmark) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.samples)
}

// Percentile returns the duration at quantile q (0..1) over the
// currently retained samples. Returns 0 if no samples have been
// recorded. q is clamped to [0, 1].
func (b *Benchmark) Percentile(q float64) time.Duration {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.samples) == 0 {
		return 0
	}
	if q < 0 {
		q = 0
	}
	if q > 1 {
		q = 1
	}

	sorted := make([]time.Duration, len(b.samples))
	copy(sorted, b.samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := int(q * float64(len(sorted)-1))
	return sorted[idx]
}

// BenchmarkStats is a point-in-time snapshot of a Benchmark's
// percentile view.
type BenchmarkStats struct {
	Name  string
	Count int
	P50   time.Duration
	P95   time.Duration
	P99   time.Duration
	Max   time.Duration
}

// Stats computes BenchmarkStats over the currently retained samples.
func (b *Benchmark) Stats() BenchmarkStats {
	b.mu.RLock()
	n := len(b.samples)
	sorted := make([]time.Duration, n)
	copy(sorted, b.samples)
	b.mu.RUnlock()

	stats := BenchmarkStats{Name: b.name, Count: n}
	if n == 0 {
		return stats
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	stats.P50 = sorted[int(0.50*float64(n-1))]
	stats.P95 = sorted[int(0.95*float64(n-1))]
	stats.P99 = sorted[int(0.99*float64(n-1))]
	stats.Max = sorted[n-1]
	return stats
}

// BenchmarkRegistry holds one Benchmark per named operation, created
// lazily on first use.
type BenchmarkRegistry struct {
	mu     sync.Mutex
	mirror *Mirror
	byName map[string]*Benchmark
}

// NewBenchmarkRegistry constructs a registry. mirror may be nil.
func NewBenchmarkRegistry(mirror *Mirror) *BenchmarkRegistry {
	return &BenchmarkRegistry{mirror: mirror, byName: make(map[string]*Benchmark)}
}

// Record records a duration sample against name, creating its
// Benchmark on first use.
func (r *BenchmarkRegistry) Record(name string, d time.Duration) {
	r.get(name).Record(d)
}

// Stats returns the current BenchmarkStats for name, or the zero value
// if name has never been recorded.
func (r *BenchmarkRegistry) Stats(name string) BenchmarkStats {
	r.mu.Lock()
	b, ok := r.byName[name]
	r.mu.Unlock()
	if !ok {
		return BenchmarkStats{Name: name}
	}
	return b.Stats()
}

// All returns BenchmarkStats for every operation recorded so far.
func (r *BenchmarkRegistry) All() []BenchmarkStats {
	r.mu.Lock()
	benches := make([]*Benchmark, 0, len(r.byName))
	for _, b := range r.byName {
		benches = append(benches, b)
	}
	r.mu.Unlock()

	out := make([]BenchmarkStats, len(benches))
	for i, b := range benches {
		out[i] = b.Stats()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *BenchmarkRegistry) get(name string) *Benchmark {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.byName[name]; ok {
		return b
	}

	var summary prometheus.Summary
	if reg := r.mirror.Registry(); reg != nil {
		summary = prometheus.NewSummary(prometheus.SummaryOpts{
			Subsystem:   "tracing",
			Name:        "benchmark_duration_ms",
			Help:        "Benchmark operation duration in milliseconds",
			ConstLabels: prometheus.Labels{"name": name},
			Objectives:  map[float64]float64{0.5: 0.05, 0.95: 0.01, 0.99: 0.001},
		})
		reg.MustRegister(summary)
	}

	b := NewBenchmark(name, 0, summary)
	r.byName[name] = b
	return b
}

package tracing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBenchmark_PercentileOverSamples(t *testing.T) {
	b := NewBenchmark("classify", 0, nil)
	for i := 1; i <= 100; i++ {
		b.Record(time.Duration(i) * time.Millisecond)
	}

	assert.Equal(t, 100, b.Count())
	assert.Equal(t, 50*time.Millisecond, b.Percentile(0.5))
	assert.Equal(t, 100*time.Millisecond, b.Percentile(1))
	assert.Equal(t, 1*time.Millisecond, b.Percentile(0))
}

func TestBenchmark_PercentileOnEmptyIsZero(t *testing.T) {
	b := NewBenchmark("classify", 0, nil)
	assert.Equal(t, time.Duration(0), b.Percentile(0.99))
}

func TestBenchmark_RetainsAtMostMaxKeepSamples(t *testing.T) {
	b := NewBenchmark("classify", 10, nil)
	for i := 1; i <= 20; i++ {
		b.Record(time.Duration(i) * time.Millisecond)
	}

	assert.Equal(t, 10, b.Count())
	// only the last 10 samples (11..20ms) should remain, so the minimum
	// observed duration is now 11ms.
	assert.Equal(t, 11*time.Millisecond, b.Percentile(0))
}

func TestBenchmark_StatsComputesP50P95P99Max(t *testing.T) {
	b := NewBenchmark("classify", 0, nil)
	for i := 1; i <= 100; i++ {
		b.Record(time.Duration(i) * time.Millisecond)
	}

	stats := b.Stats()
	assert.Equal(t, "classify", stats.Name)
	assert.Equal(t, 100, stats.Count)
	assert.Equal(t, 50*time.Millisecond, stats.P50)
	assert.Equal(t, 95*time.Millisecond, stats.P95)
	assert.Equal(t, 99*time.Millisecond, stats.P99)
	assert.Equal(t, 100*time.Millisecond, stats.Max)
}

func TestBenchmarkRegistry_RecordsPerName(t *testing.T) {
	r := NewBenchmarkRegistry(nil)
	r.Record("classify", 10*time.Millisecond)
	r.Record("classify", 20*time.Millisecond)
	r.Record("route", 5*time.Millisecond)

	classifyStats := r.Stats("classify")
	assert.Equal(t, 2, classifyStats.Count)

	routeStats := r.Stats("route")
	assert.Equal(t, 1, routeStats.Count)

	all := r.All()
	assert.Len(t, all, 2)
	assert.Equal(t, "classify", all[0].Name)
	assert.Equal(t, "route", all[1].Name)
}

func TestBenchmarkRegistry_StatsOnUnknownNameIsZeroValue(t *testing.T) {
	r := NewBenchmarkRegistry(nil)
	stats := r.Stats("never-recorded")
	assert.Equal(t, "never-recorded", stats.Name)
	assert.Equal(t, 0, stats.Count)
}

func TestBenchmarkRegistry_WithPrometheusMirrorRegistersSummary(t *testing.T) {
	m, err := NewMirror(context.Background(), MirrorConfig{Prometheus: true})
	assert.NoError(t, err)

	r := NewBenchmarkRegistry(m)
	r.Record("classify", 10*time.Millisecond)

	families, err := m.Registry().Gather()
	assert.NoError(t, err)

	found := false
	for _, fam := range families {
		if fam.GetName() == "tracing_benchmark_duration_ms" {
			found = true
		}
	}
	assert.True(t, found)
}

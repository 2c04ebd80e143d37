package tracing

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// MirrorConfig selects which optional observability backends a Mirror
// forwards span/trace lifecycle events to.
type MirrorConfig struct {
	// OTel enables mirroring every span into an OpenTelemetry span via
	// an stdout exporter, in the teacher's "set a global tracer
	// provider, fetch a named Tracer" style.
	OTel bool
	// Prometheus enables the active/completed trace gauges and the
	// span-duration summary.
	Prometheus bool
}

// Mirror forwards Collector lifecycle events into OpenTelemetry and/or
// Prometheus when enabled. A nil *Mirror is safe to call methods on,
// matching pkg/bus.Metrics's nil-receiver convention so a Collector
// built without mirroring costs nothing.
type Mirror struct {
	cfg MirrorConfig

	tracer oteltrace.Tracer

	mu          sync.Mutex
	otelSpans   map[string]oteltrace.Span
	activeGauge prometheus.Gauge
	doneGauge   prometheus.Gauge
	spanSummary *prometheus.SummaryVec
	registry    *prometheus.Registry
}

// NewMirror constructs a Mirror. ctx is used only to build the optional
// stdout OTel exporter.
func NewMirror(ctx context.Context, cfg MirrorConfig) (*Mirror, error) {
	m := &Mirror{cfg: cfg, otelSpans: make(map[string]oteltrace.Span)}

	if cfg.OTel {
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, err
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
		otel.SetTracerProvider(tp)
		m.tracer = otel.Tracer("ccswarmd/tracing")
	}

	if cfg.Prometheus {
		m.registry = prometheus.NewRegistry()
		m.activeGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Subsystem: "tracing",
			Name:      "active_traces",
			Help:      "Number of traces currently in progress",
		})
		m.doneGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Subsystem: "tracing",
			Name:      "completed_traces_total",
			Help:      "Total number of traces that have ended",
		})
		m.spanSummary = prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Subsystem:  "tracing",
			Name:       "span_duration_ms",
			Help:       "Span duration in milliseconds",
			Objectives: map[float64]float64{0.5: 0.05, 0.95: 0.01, 0.99: 0.001},
		}, []string{"status"})
		m.registry.MustRegister(m.activeGauge, m.doneGauge, m.spanSummary)
	}

	return m, nil
}

// Registry exposes the Prometheus registry for an HTTP exporter, if
// Prometheus mirroring is enabled.
func (m *Mirror) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Mirror) onTraceStart(t *Trace) {
	if m == nil {
		return
	}
	if m.activeGauge != nil {
		m.activeGauge.Inc()
	}
}

func (m *Mirror) onTraceEnd(t *Trace) {
	if m == nil {
		return
	}
	if m.activeGauge != nil {
		m.activeGauge.Dec()
	}
	if m.doneGauge != nil {
		m.doneGauge.Inc()
	}
}

func (m *Mirror) onSpanStart(t *Trace, spanID, name, parentID string) {
	if m == nil || m.tracer == nil {
		return
	}
	_, span := m.tracer.Start(context.Background(), name,
		oteltrace.WithAttributes(
			attribute.String("trace_id", t.ID),
			attribute.String("span_id", spanID),
			attribute.String("parent_span_id", parentID),
		),
	)
	m.mu.Lock()
	m.otelSpans[spanID] = span
	m.mu.Unlock()
}

func (m *Mirror) onSpanEnd(t *Trace, spanID string, status SpanStatus) {
	if m == nil {
		return
	}

	if m.spanSummary != nil {
		if span, ok := t.GetSpan(spanID); ok {
			if d := span.DurationMS(); d >= 0 {
				m.spanSummary.WithLabelValues(string(status.Kind)).Observe(float64(d))
			}
		}
	}

	if m.tracer == nil {
		return
	}
	m.mu.Lock()
	span, ok := m.otelSpans[spanID]
	delete(m.otelSpans, spanID)
	m.mu.Unlock()
	if !ok {
		return
	}
	if !status.Ok() {
		span.SetStatus(codesFor(status.Kind), status.Message)
	}
	span.End()
}

func codesFor(kind StatusKind) codes.Code {
	if kind == StatusErr {
		return codes.Error
	}
	return codes.Unset
}

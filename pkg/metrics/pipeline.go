package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics records counters and latencies for the reply pipeline.
type PipelineMetrics struct {
	inbound    *prometheus.CounterVec
	decisions  *prometheus.CounterVec
	dispatches *prometheus.CounterVec
	clicks     prometheus.Counter
	latency    *prometheus.HistogramVec
}

// NewPipelineMetrics registers the pipeline metrics on the provided registerer.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	inbound := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inbound_events_total",
		Help: "Inbound webhook events by channel and result.",
	}, []string{"channel", "result"})
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reply_decisions_total",
		Help: "Reply decisions by outcome and reason.",
	}, []string{"outcome", "reason"})
	dispatches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reply_dispatches_total",
		Help: "Reply dispatch attempts by result.",
	}, []string{"result"})
	clicks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "link_clicks_total",
		Help: "Short-link resolver hits counted as clicks.",
	})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pipeline_stage_duration_seconds",
		Help:    "Duration of pipeline stages in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})
	reg.MustRegister(inbound, decisions, dispatches, clicks, latency)
	return &PipelineMetrics{
		inbound:    inbound,
		decisions:  decisions,
		dispatches: dispatches,
		clicks:     clicks,
		latency:    latency,
	}
}

// IncInbound counts a normalized webhook event.
func (m *PipelineMetrics) IncInbound(channel, result string) {
	if m == nil || m.inbound == nil {
		return
	}
	m.inbound.WithLabelValues(normalizeLabel(channel), normalizeLabel(result)).Inc()
}

// IncDecision counts a decision outcome.
func (m *PipelineMetrics) IncDecision(outcome, reason string) {
	if m == nil || m.decisions == nil {
		return
	}
	m.decisions.WithLabelValues(normalizeLabel(outcome), normalizeLabel(reason)).Inc()
}

// IncDispatch counts a dispatch attempt result.
func (m *PipelineMetrics) IncDispatch(result string) {
	if m == nil || m.dispatches == nil {
		return
	}
	m.dispatches.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncLinkClick counts a resolver hit.
func (m *PipelineMetrics) IncLinkClick() {
	if m == nil || m.clicks == nil {
		return
	}
	m.clicks.Inc()
}

// ObserveStage records the duration of a named pipeline stage.
func (m *PipelineMetrics) ObserveStage(stage string, duration time.Duration) {
	if m == nil || m.latency == nil {
		return
	}
	m.latency.WithLabelValues(normalizeLabel(stage)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

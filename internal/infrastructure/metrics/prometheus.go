package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"SentinelAI/internal/ports"
)

// PrometheusSink consumes the pipeline's structured events and exposes
// them as Prometheus collectors on the given registry.
type PrometheusSink struct {
	stageDuration *prometheus.HistogramVec
	stageFailures *prometheus.CounterVec
	runDuration   prometheus.Histogram
	runFailures   prometheus.Counter
	providerUsage *prometheus.CounterVec
	circuitState  *prometheus.GaugeVec
}

var _ ports.EventSink = (*PrometheusSink)(nil)

// NewPrometheusSink registers the collectors against a registry; pass a
// fresh prometheus.NewRegistry() in tests to avoid global state.
func NewPrometheusSink(registry prometheus.Registerer) *PrometheusSink {
	factory := promauto.With(registry)
	return &PrometheusSink{
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sentinel_stage_duration_seconds",
			Help:    "Wall-clock duration of one enrichment stage.",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		stageFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_stage_failures_total",
			Help: "Stage runs that returned an error.",
		}, []string{"stage"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "sentinel_pipeline_duration_seconds",
			Help:    "Wall-clock duration of one full pipeline run.",
			Buckets: prometheus.DefBuckets,
		}),
		runFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_pipeline_failures_total",
			Help: "Pipeline runs marked enrichment_failed.",
		}),
		providerUsage: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_provider_requests_total",
			Help: "Routing decisions per provider, for cost/usage reporting.",
		}, []string{"provider"}),
		circuitState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sentinel_circuit_state",
			Help: "Circuit state per provider: 0 closed, 1 half-open, 2 open.",
		}, []string{"provider"}),
	}
}

// StageObserved records one stage outcome.
func (s *PrometheusSink) StageObserved(stage string, duration time.Duration, success bool) {
	s.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
	if !success {
		s.stageFailures.WithLabelValues(stage).Inc()
	}
}

// RunObserved records one pipeline run outcome.
func (s *PrometheusSink) RunObserved(duration time.Duration, success bool) {
	s.runDuration.Observe(duration.Seconds())
	if !success {
		s.runFailures.Inc()
	}
}

// ProviderUsed counts one routing decision.
func (s *PrometheusSink) ProviderUsed(provider string) {
	s.providerUsage.WithLabelValues(provider).Inc()
}

// CircuitStateChanged reflects the breaker state into the gauge.
func (s *PrometheusSink) CircuitStateChanged(provider, state string) {
	var value float64
	switch state {
	case "half-open":
		value = 1
	case "open":
		value = 2
	}
	s.circuitState.WithLabelValues(provider).Set(value)
}

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type SagaMetrics struct {
	registry *prometheus.Registry

	submissionsTotal   *prometheus.CounterVec
	submissionDuration *prometheus.HistogramVec
	stageTotal         *prometheus.CounterVec
	compensationsTotal *prometheus.CounterVec
	inFlight           prometheus.Gauge
}

func NewSagaMetrics() *SagaMetrics {
	registry := prometheus.NewRegistry()

	submissionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "onboarding",
			Subsystem: "documents",
			Name:      "submissions_total",
			Help:      "Document submissions by outcome kind.",
		},
		[]string{"outcome"},
	)
	submissionDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "onboarding",
			Subsystem: "documents",
			Name:      "submission_duration_seconds",
			Help:      "Document submission duration in seconds by outcome kind.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)
	stageTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "onboarding",
			Subsystem: "documents",
			Name:      "saga_stage_total",
			Help:      "Saga stage executions by stage and result.",
		},
		[]string{"stage", "result"},
	)
	compensationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "onboarding",
			Subsystem: "documents",
			Name:      "saga_compensations_total",
			Help:      "Compensating deletes by stage and result.",
		},
		[]string{"stage", "result"},
	)
	inFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "onboarding",
			Subsystem: "documents",
			Name:      "submissions_in_flight",
			Help:      "Number of in-flight document submissions.",
		},
	)

	registry.MustRegister(submissionsTotal, submissionDuration, stageTotal, compensationsTotal, inFlight)

	return &SagaMetrics{
		registry:           registry,
		submissionsTotal:   submissionsTotal,
		submissionDuration: submissionDuration,
		stageTotal:         stageTotal,
		compensationsTotal: compensationsTotal,
		inFlight:           inFlight,
	}
}

func (m *SagaMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *SagaMetrics) StartSubmission() {
	m.inFlight.Inc()
}

// FinishSubmission records the outcome; an empty outcome means success.
func (m *SagaMetrics) FinishSubmission(outcome string, duration time.Duration) {
	m.inFlight.Dec()
	if outcome == "" {
		outcome = "success"
	}
	m.submissionsTotal.WithLabelValues(outcome).Inc()
	m.submissionDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (m *SagaMetrics) ObserveStage(stage string, err error) {
	m.stageTotal.WithLabelValues(stage, result(err)).Inc()
}

func (m *SagaMetrics) ObserveCompensation(stage string, err error) {
	m.compensationsTotal.WithLabelValues(stage, result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

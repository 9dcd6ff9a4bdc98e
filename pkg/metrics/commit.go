package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "filazero"
	stepLabel = "step"
)

// CommitMetrics records how long each commit step of an order takes and how it ended.
type CommitMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
}

// NewCommitMetrics registers the commit step metrics on the provided registerer. A nil
// registerer yields a no-op recorder.
func NewCommitMetrics(reg prometheus.Registerer) *CommitMetrics {
	if reg == nil {
		return &CommitMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "commit_step_duration_seconds",
		Help:      "Duration of order commit steps in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{stepLabel})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "commit_step_success_total",
		Help:      "Order commit steps that reached the backend successfully.",
	}, []string{stepLabel})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "commit_step_failure_total",
		Help:      "Order commit steps that failed.",
	}, []string{stepLabel})
	reg.MustRegister(duration, success, failure)
	return &CommitMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
	}
}

// ObserveDuration records the duration of one step run.
func (c *CommitMetrics) ObserveDuration(step string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeStep(step)).Observe(duration.Seconds())
}

func (c *CommitMetrics) IncSuccess(step string) {
	if c == nil || c.success == nil {
		return
	}
	c.success.WithLabelValues(normalizeStep(step)).Inc()
}

func (c *CommitMetrics) IncFailure(step string) {
	if c == nil || c.failure == nil {
		return
	}
	c.failure.WithLabelValues(normalizeStep(step)).Inc()
}

func normalizeStep(step string) string {
	if step == "" {
		return "unknown"
	}
	return step
}

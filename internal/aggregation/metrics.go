package aggregation

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submission outcomes recorded on rating_submissions_total.
const (
	outcomeInserted  = "inserted"
	outcomeUpdated   = "updated"
	outcomeInvalid   = "invalid"
	outcomeNotFound  = "not_found"
	outcomeForbidden = "forbidden"
	outcomeConflict  = "conflict"
	outcomeCanceled  = "canceled"
	outcomeError     = "error"
)

// Metrics holds the aggregation service's Prometheus collectors.
type Metrics struct {
	submissions *prometheus.CounterVec
	retries     prometheus.Counter
	duration    *prometheus.HistogramVec
}

// NewMetrics registers the aggregation collectors with reg. Passing nil uses
// the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		// submissions counts SubmitOrUpdateRating calls by outcome
		submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rating_submissions_total",
			Help: "Total rating submissions by outcome",
		}, []string{"outcome"}),

		// retries counts transaction attempts repeated after a conflict
		retries: factory.NewCounter(prometheus.CounterOpts{
			Name: "rating_submission_retries_total",
			Help: "Total rating transactions retried after serialization failure, deadlock or lock timeout",
		}),

		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rating_submission_duration_seconds",
			Help:    "Rating submission latency in seconds, retries included",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		}, []string{"outcome"}),
	}
}

func (m *Metrics) observe(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (m *Metrics) retried() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

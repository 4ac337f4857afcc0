package processor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks processing outcomes. A nil *Metrics is valid and records
// nothing, which keeps test wiring small.
type Metrics struct {
	outcomes *prometheus.CounterVec
	attempts prometheus.Counter
	duration prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "invoice_processing_total",
				Help: "Processing runs by terminal outcome.",
			},
			[]string{"outcome"},
		),
		attempts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "invoice_extraction_attempts_total",
				Help: "Extraction calls made, including retries.",
			},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "invoice_processing_duration_seconds",
				Help:    "Wall-clock duration of processing runs.",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
	for _, c := range []prometheus.Collector{m.outcomes, m.attempts, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(outcome string, attempts int, d time.Duration) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(outcome).Inc()
	m.attempts.Add(float64(attempts))
	m.duration.Observe(d.Seconds())
}

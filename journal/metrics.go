package journal

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors describing a run.
type Metrics struct {
	Registry *prometheus.Registry

	Items    *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	Attempts *prometheus.CounterVec
}

// Metrics collects the recorded entries.
func (j *Journal) Metrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seeder_items_total",
			Help: "Reconciled items by kind and terminal state.",
		}, []string{"kind", "state"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "seeder_item_duration_seconds",
			Help:    "Time spent reconciling a single item.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		Attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seeder_item_attempts_total",
			Help: "Remote call attempts made for items, including retries.",
		}, []string{"kind"}),
	}
	m.Registry.MustRegister(m.Items, m.Duration, m.Attempts)

	for _, e := range j.Entries() {
		m.Items.WithLabelValues(e.Kind, e.State.String()).Inc()
		m.Duration.WithLabelValues(e.Kind).Observe(e.Duration.Seconds())
		m.Attempts.WithLabelValues(e.Kind).Add(float64(e.Attempts))
	}
	return m
}

// WriteMetrics writes the metrics of the recorded entries to a file in the
// node exporter textfile format.
func (j *Journal) WriteMetrics(path string) error {
	return prometheus.WriteToTextfile(path, j.Metrics().Registry)
}

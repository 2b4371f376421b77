package progress

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes run counts per kind. Runs are batch jobs, so the registry is written once as a
// node_exporter textfile at the end instead of being scraped.
type Metrics struct {
	registry *prometheus.Registry
	records  *prometheus.CounterVec
	errors   *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bulldozer",
			Name:      "records_total",
			Help:      "Source units handled per kind and outcome.",
		}, []string{"kind", "outcome"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bulldozer",
			Name:      "row_errors_total",
			Help:      "Row errors per kind and category.",
		}, []string{"kind", "category"}),
	}
	m.registry.MustRegister(m.records, m.errors)
	return m
}

func (m *Metrics) Observe(c Counts, errs []Category) {
	m.records.WithLabelValues(c.Kind, "processed").Add(float64(c.Processed))
	m.records.WithLabelValues(c.Kind, "imported").Add(float64(c.Imported))
	m.records.WithLabelValues(c.Kind, "skipped_duplicate").Add(float64(c.SkippedDuplicate))
	m.records.WithLabelValues(c.Kind, "skipped_invalid").Add(float64(c.SkippedInvalid))
	m.records.WithLabelValues(c.Kind, "linked").Add(float64(c.Linked))
	for _, e := range errs {
		m.errors.WithLabelValues(c.Kind, e.Name).Add(float64(len(e.Messages)))
	}
}

func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("could not write metrics: %w", err)
	}
	return nil
}

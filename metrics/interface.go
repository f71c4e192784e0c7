package metrics

// MetricsCollector creates metrics on the application registry. Names are
// prefixed with the configured namespace and every series carries the
// service label.
//
// It is implemented by *Metrics and exposes no Prometheus types, so tests
// can substitute their own implementation.
type MetricsCollector interface {
	// CreateCounter registers a counter vector.
	//
	//	c := m.CreateCounter("dead_letters_total", "Messages sent to the DLQ", []string{"topic"})
	//	c.WithLabelValues("orders").Inc()
	CreateCounter(name, help string, labels []string) Counter

	// CreateHistogram registers a histogram vector with the given buckets.
	CreateHistogram(name, help string, labels []string, buckets []float64) Histogram

	// CreateGauge registers a gauge vector.
	CreateGauge(name, help string, labels []string) Gauge

	// CreateSummary registers a summary vector. objectives maps quantiles
	// to their allowed error, e.g. {0.5: 0.05, 0.99: 0.001}.
	CreateSummary(name, help string, labels []string, objectives map[float64]float64) Summary
}

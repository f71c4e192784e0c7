// Package metrics exposes Prometheus metrics for the kafka-avro components.
//
// Two registries are served on separate endpoints: system metrics (Go
// runtime, process, build info) on :9090 and application metrics on :9091.
// Both endpoints can be moved or disabled through Config.
//
// OperationObserver implements observability.Observer, turning every
// registry request, schema cache lookup, produce, consume and decode into
// counters, a latency histogram and a payload size summary:
//
//	m := metrics.NewMetrics(metrics.Config{ServiceName: "orders"})
//	obs := metrics.NewOperationObserver(m, metrics.Config{})
//	client = client.WithObserver(obs)
//
// Further application metrics can be created through MetricsCollector:
//
//	dlq := m.CreateCounter("dead_letters_total", "Messages sent to the DLQ", []string{"topic"})
//	dlq.WithLabelValues("orders").Inc()
//
// With fx, FXModule provides all of the above and manages the servers.
package metrics

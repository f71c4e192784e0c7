package metrics

import (
	"github.com/pleszczy/kafka-avro/observability"
)

const (
	statusSuccess = "success"
	statusError   = "error"

	cacheHit  = "hit"
	cacheMiss = "miss"
)

// OperationObserver implements observability.Observer on top of a
// MetricsCollector. For the default namespace it records:
//
//	kafka_avro_operations_total{component,operation,resource,status}
//	kafka_avro_operation_duration_seconds{component,operation}
//	kafka_avro_operation_payload_bytes{component,operation}
//	kafka_avro_schema_cache_lookups_total{operation,result}
//	kafka_avro_last_error_timestamp_seconds{component,operation}
//
// Cache lookups are counted for operations carrying a "cache_hit" entry in
// their metadata.
type OperationObserver struct {
	operations Counter
	duration   Histogram
	payload    Summary
	cache      Counter
	lastError  Gauge
}

// NewOperationObserver registers the operation metrics on collector.
// It must be called once per collector.
func NewOperationObserver(collector MetricsCollector, cfg Config) *OperationObserver {
	return &OperationObserver{
		operations: collector.CreateCounter(
			"operations_total",
			"Completed schema registry, cache and Kafka operations.",
			[]string{"component", "operation", "resource", "status"},
		),
		duration: collector.CreateHistogram(
			"operation_duration_seconds",
			"Duration of schema registry, cache and Kafka operations.",
			[]string{"component", "operation"},
			cfg.durationBuckets(),
		),
		payload: collector.CreateSummary(
			"operation_payload_bytes",
			"Size of encoded payloads handled by an operation.",
			[]string{"component", "operation"},
			map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		),
		cache: collector.CreateCounter(
			"schema_cache_lookups_total",
			"Schema cache lookups by result.",
			[]string{"operation", "result"},
		),
		lastError: collector.CreateGauge(
			"last_error_timestamp_seconds",
			"Unix time of the most recent failed operation.",
			[]string{"component", "operation"},
		),
	}
}

// ObserveOperation records one completed operation.
func (o *OperationObserver) ObserveOperation(ctx observability.OperationContext) {
	status := statusSuccess
	if ctx.Error != nil {
		status = statusError
		o.lastError.WithLabelValues(ctx.Component, ctx.Operation).SetToCurrentTime()
	}

	o.operations.WithLabelValues(ctx.Component, ctx.Operation, ctx.Resource, status).Inc()
	o.duration.WithLabelValues(ctx.Component, ctx.Operation).Observe(ctx.Duration.Seconds())

	if ctx.Size > 0 {
		o.payload.WithLabelValues(ctx.Component, ctx.Operation).Observe(float64(ctx.Size))
	}

	if hit, ok := ctx.Metadata["cache_hit"].(bool); ok {
		result := cacheMiss
		if hit {
			result = cacheHit
		}
		o.cache.WithLabelValues(ctx.Operation, result).Inc()
	}
}

package observability

import "time"

// Observer receives a notification each time a schema registry, cache or
// transport operation completes. Packages in this module work without one;
// when one is injected it is the single seam for metrics and tracing.
type Observer interface {
	// ObserveOperation is called once per completed operation.
	ObserveOperation(ctx OperationContext)
}

// OperationContext describes one completed operation.
type OperationContext struct {
	// Component is the package that performed the operation:
	// "schema_registry" or "kafka".
	Component string

	// Operation names what was done.
	// Examples:
	//   Registry: "get_schema_by_id", "get_latest_schema", "register_schema"
	//   Cache:    "cache_get_by_id", "cache_get_by_subject", "cache_register"
	//   Kafka:    "produce", "consume", "decode"
	Operation string

	// Resource is the primary object of the operation: a subject name,
	// "registry" for id lookups, or a topic name for transport operations.
	Resource string

	// SubResource narrows Resource: a schema id, a version, or a partition.
	SubResource string

	// Duration is the wall time the operation took.
	Duration time.Duration

	// Error is the operation's error, nil on success.
	Error error

	// Size is the number of payload bytes involved, when meaningful.
	Size int64

	// Metadata carries operation specific details such as
	// {"cache_hit": true} or {"schema_id": 42}.
	Metadata map[string]interface{}
}

// Package observability defines the hook through which the schema registry
// client, the schema cache and the Kafka transport report completed
// operations.
//
// # Overview
//
// Every package in this module accepts an optional Observer. When present, it
// is called once per operation with an OperationContext describing what
// happened. Nothing in the core depends on a concrete metrics or tracing
// backend; metrics.OperationObserver is the Prometheus implementation.
//
// # Emitting Events
//
//	start := time.Now()
//	schema, err := c.fetch(ctx, id)
//	if c.observer != nil {
//	    c.observer.ObserveOperation(observability.OperationContext{
//	        Component:   "schema_registry",
//	        Operation:   "cache_get_by_id",
//	        Resource:    "registry",
//	        SubResource: strconv.Itoa(id),
//	        Duration:    time.Since(start),
//	        Error:       err,
//	        Metadata:    map[string]interface{}{"cache_hit": false},
//	    })
//	}
//
// # Consuming Events
//
//	type countingObserver struct{ fetches atomic.Int64 }
//
//	func (o *countingObserver) ObserveOperation(ctx observability.OperationContext) {
//	    if hit, _ := ctx.Metadata["cache_hit"].(bool); !hit {
//	        o.fetches.Add(1)
//	    }
//	}
//
// Use Multi to attach more than one observer and NewNoOpObserver as an
// explicit default in tests.
package observability

package schema_registry

import (
	"time"

	"github.com/pleszczy/kafka-avro/observability"
)

const componentName = "schema_registry"

// observeOperation notifies the observer about a registry request if one is configured.
//
// Notes:
//   - resource: subject name (for subject-specific operations) or "registry" (for ID lookups)
//   - subResource: schema ID or version information
func (c *Client) observeOperation(operation, resource, subResource string, duration time.Duration, err error, metadata map[string]interface{}) {
	if c == nil || c.observer == nil {
		return
	}

	c.observer.ObserveOperation(observability.OperationContext{
		Component:   componentName,
		Operation:   operation,
		Resource:    resource,
		SubResource: subResource,
		Duration:    duration,
		Error:       err,
		Metadata:    metadata,
	})
}

// observeCache reports one cache lookup. hit is false whenever the registry
// was consulted, including calls that joined another caller's fetch.
func (c *SchemaCache) observeCache(operation, resource, subResource string, start time.Time, err error, hit bool) {
	if c == nil || c.observer == nil {
		return
	}

	c.observer.ObserveOperation(observability.OperationContext{
		Component:   componentName,
		Operation:   operation,
		Resource:    resource,
		SubResource: subResource,
		Duration:    time.Since(start),
		Error:       err,
		Metadata:    map[string]interface{}{"cache_hit": hit},
	})
}

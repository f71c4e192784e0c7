package kafka

import (
	"time"

	"github.com/pleszczy/kafka-avro/observability"
)

const componentName = "kafka"

// observeOperation safely calls the observer if it's not nil.
func (p *Producer) observeOperation(operation, resource, subResource string, duration time.Duration, err error, size int64) {
	observe(p.observer, operation, resource, subResource, duration, err, size)
}

func (c *Consumer) observeOperation(operation, resource, subResource string, duration time.Duration, err error, size int64) {
	observe(c.observer, operation, resource, subResource, duration, err, size)
}

func observe(observer observability.Observer, operation, resource, subResource string, duration time.Duration, err error, size int64) {
	if observer == nil {
		return
	}
	observer.ObserveOperation(observability.OperationContext{
		Component:   componentName,
		Operation:   operation,
		Resource:    resource,
		SubResource: subResource,
		Duration:    duration,
		Error:       err,
		Size:        size,
	})
}

package tracer

import (
	"context"
)

// Tracer is implemented by *TracerClient. GetCarrier and
// SetCarrierOnContext match the kafka package's Propagator, so a
// *TracerClient can be handed to producers and consumers directly.
type Tracer interface {
	// StartSpan starts an internal span as a child of ctx.
	StartSpan(ctx context.Context, name string) (context.Context, Span)

	// StartProducerSpan starts a producer span for a publish to topic.
	StartProducerSpan(ctx context.Context, topic string) (context.Context, Span)

	// StartConsumerSpan starts a consumer span for a message read from topic.
	StartConsumerSpan(ctx context.Context, topic string) (context.Context, Span)

	// GetCarrier returns the W3C trace context and baggage of ctx as
	// header key/value pairs.
	GetCarrier(ctx context.Context) map[string]string

	// SetCarrierOnContext restores trace context from header key/value pairs.
	SetCarrierOnContext(ctx context.Context, carrier map[string]string) context.Context
}

// Span represents a single unit of work in a trace.
type Span interface {
	// End completes the span.
	End()

	// SetAttributes adds key/value attributes. Unsupported value types are
	// recorded with fmt.Sprint.
	SetAttributes(attrs map[string]interface{})

	// RecordError records err and marks the span as failed.
	RecordError(err error)
}

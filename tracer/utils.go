package tracer

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const messagingSystem = "kafka"

type spanImpl struct {
	span trace.Span
}

func (s *spanImpl) End() {
	s.span.End()
}

func (s *spanImpl) SetAttributes(attrs map[string]interface{}) {
	if len(attrs) == 0 {
		return
	}
	s.span.SetAttributes(toAttributes(attrs)...)
}

func (s *spanImpl) RecordError(err error) {
	if err == nil {
		return
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

func toAttributes(attrs map[string]interface{}) []attribute.KeyValue {
	attributes := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		switch val := v.(type) {
		case string:
			attributes = append(attributes, attribute.String(k, val))
		case int:
			attributes = append(attributes, attribute.Int(k, val))
		case int64:
			attributes = append(attributes, attribute.Int64(k, val))
		case float64:
			attributes = append(attributes, attribute.Float64(k, val))
		case bool:
			attributes = append(attributes, attribute.Bool(k, val))
		default:
			attributes = append(attributes, attribute.String(k, fmt.Sprint(val)))
		}
	}
	return attributes
}

// StartSpan starts an internal span. The returned context carries it, so
// spans started from that context become children.
func (t *TracerClient) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name)
	return ctx, &spanImpl{span: span}
}

// StartProducerSpan starts a "<topic> publish" span of kind producer.
// Inject its context into the message with GetCarrier.
func (t *TracerClient) StartProducerSpan(ctx context.Context, topic string) (context.Context, Span) {
	return t.startMessagingSpan(ctx, topic, "publish", trace.SpanKindProducer)
}

// StartConsumerSpan starts a "<topic> process" span of kind consumer. Call
// it with the context restored by SetCarrierOnContext so the span joins the
// producer's trace.
func (t *TracerClient) StartConsumerSpan(ctx context.Context, topic string) (context.Context, Span) {
	return t.startMessagingSpan(ctx, topic, "process", trace.SpanKindConsumer)
}

func (t *TracerClient) startMessagingSpan(ctx context.Context, topic, operation string, kind trace.SpanKind) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, topic+" "+operation,
		trace.WithSpanKind(kind),
		trace.WithAttributes(
			attribute.String("messaging.system", messagingSystem),
			attribute.String("messaging.destination.name", topic),
			attribute.String("messaging.operation", operation),
		),
	)
	return ctx, &spanImpl{span: span}
}

// GetCarrier returns the trace context of ctx as Kafka header values
// ("traceparent", "tracestate", "baggage"). The map is empty when ctx has
// no span.
func (t *TracerClient) GetCarrier(ctx context.Context) map[string]string {
	carrier := propagation.MapCarrier{}
	t.propagator.Inject(ctx, carrier)
	return carrier
}

// SetCarrierOnContext returns ctx with the remote span context found in
// carrier. Headers without trace context leave ctx unchanged.
func (t *TracerClient) SetCarrierOnContext(ctx context.Context, carrier map[string]string) context.Context {
	return t.propagator.Extract(ctx, propagation.MapCarrier(carrier))
}

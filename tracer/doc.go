// Package tracer wraps the OpenTelemetry SDK for kafka-avro services.
//
// A *TracerClient owns the tracer provider (OTLP over HTTP or stdout
// exporter, ratio sampling) and a W3C trace-context + baggage propagator.
// It is installed as the global otel provider, so the logger package picks
// trace_id and span_id up from any span started through it.
//
// # Kafka Header Propagation
//
// GetCarrier and SetCarrierOnContext have the signatures of
// kafka.Propagator, so the client plugs straight into producers and
// consumers:
//
//	producer.WithPropagator(tracerClient)
//	consumer.WithPropagator(tracerClient)
//
// On the consuming side, msg.Context() then carries the producer's span
// context, and a consumer span started from it joins the same trace:
//
//	ctx, span := tracerClient.StartConsumerSpan(msg.Context(), msg.Topic())
//	defer span.End()
//
// # Spans
//
//	ctx, span := tracerClient.StartProducerSpan(ctx, "orders")
//	defer span.End()
//	span.SetAttributes(map[string]interface{}{"schema.subject": "orders-value"})
//	if err := producer.Produce(ctx, "orders", order, order.ID); err != nil {
//		span.RecordError(err)
//	}
//
// # FX Module Integration
//
//	app := fx.New(
//		fx.Supply(tracer.Config{ServiceName: "orders-service", EnableExport: true}),
//		tracer.FXModule,
//	)
//
// The module flushes batched spans when the application stops.
package tracer

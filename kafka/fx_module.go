package kafka

import (
	"context"

	"github.com/pleszczy/kafka-avro/observability"
	"go.uber.org/fx"
)

// FXModule provides the Kafka producer and registers its shutdown hook.
//
// The module provides:
// 1. *Producer (concrete type) for direct use
// 2. MessageProducer interface for dependency injection
//
// Dependencies required by this module:
//   - kafka.Config
//   - kafka.Encoder, Logger, Propagator and observability.Observer (optional)
//
// Usage:
//
//	app := fx.New(
//	    kafka.FXModule,
//	    fx.Provide(func(s *schema_registry.Serde) kafka.Encoder { return s }),
//	)
var FXModule = fx.Module("kafka",
	fx.Provide(
		NewProducerWithDI,
		fx.Annotate(
			func(p *Producer) MessageProducer { return p },
			fx.As(new(MessageProducer)),
		),
	),
	fx.Invoke(RegisterProducerLifecycle),
)

// ConsumerModule provides the Kafka consumer for Config.Consumer and
// registers its shutdown hook. It is separate from FXModule so producer-only
// applications need no consumer configuration.
var ConsumerModule = fx.Module("kafka_consumer",
	fx.Provide(
		NewConsumerWithDI,
		fx.Annotate(
			func(c *Consumer) MessageConsumer { return c },
			fx.As(new(MessageConsumer)),
		),
	),
	fx.Invoke(RegisterConsumerLifecycle),
)

// KafkaParams groups the dependencies needed to create a producer or consumer
type KafkaParams struct {
	fx.In

	Config     Config
	Logger     Logger                 `optional:"true"`
	Encoder    Encoder                `optional:"true"`
	Decoder    Decoder                `optional:"true"`
	Propagator Propagator             `optional:"true"`
	Observer   observability.Observer `optional:"true"`
}

// NewProducerWithDI creates a producer using dependency injection.
func NewProducerWithDI(params KafkaParams) (*Producer, error) {
	producer, err := NewProducer(params.Config, params.Encoder)
	if err != nil {
		return nil, err
	}

	if params.Logger != nil {
		producer.logger = params.Logger
	}
	if params.Propagator != nil {
		producer.propagator = params.Propagator
	}
	if params.Observer != nil {
		producer.observer = params.Observer
	}

	return producer, nil
}

// NewConsumerWithDI creates a consumer using dependency injection.
func NewConsumerWithDI(params KafkaParams) (*Consumer, error) {
	consumer, err := NewConsumer(params.Config, params.Decoder)
	if err != nil {
		return nil, err
	}

	if params.Logger != nil {
		consumer.logger = params.Logger
	}
	if params.Propagator != nil {
		consumer.propagator = params.Propagator
	}
	if params.Observer != nil {
		consumer.observer = params.Observer
	}

	return consumer, nil
}

// RegisterProducerLifecycle closes the producer when the application stops,
// flushing any batched messages.
func RegisterProducerLifecycle(lc fx.Lifecycle, producer *Producer) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			producer.logInfo(ctx, "Kafka producer started", nil)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			producer.logInfo(ctx, "Shutting down Kafka producer", nil)
			producer.GracefulShutdown()
			return nil
		},
	})
}

// RegisterConsumerLifecycle stops the consumer workers and closes the
// reader when the application stops.
func RegisterConsumerLifecycle(lc fx.Lifecycle, consumer *Consumer) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			consumer.logInfo(ctx, "Kafka consumer started", map[string]interface{}{
				"topics": consumer.cfg.Consumer.Topics,
			})
			return nil
		},
		OnStop: func(ctx context.Context) error {
			consumer.logInfo(ctx, "Shutting down Kafka consumer", nil)
			consumer.GracefulShutdown()
			return nil
		},
	})
}

package kafkaavro

import (
	"context"
	"fmt"
	"sync"

	"github.com/pleszczy/kafka-avro/kafka"
	"github.com/pleszczy/kafka-avro/logger"
	"github.com/pleszczy/kafka-avro/metrics"
	"github.com/pleszczy/kafka-avro/observability"
	"github.com/pleszczy/kafka-avro/schema_registry"
	"github.com/pleszczy/kafka-avro/tracer"
)

// KafkaAvro wires a schema registry client, schema cache, resolver and
// serde to Kafka producers and consumers that share them.
//
// Producers and consumers created through it are closed by Close.
type KafkaAvro struct {
	cfg Config

	log      *logger.LoggerClient
	tracer   *tracer.TracerClient
	metrics  *metrics.Metrics
	observer observability.Observer

	client   *schema_registry.Client
	cache    *schema_registry.SchemaCache
	resolver *schema_registry.Resolver
	serde    *schema_registry.Serde

	mu        sync.Mutex
	producers []*kafka.Producer
	consumers []*kafka.Consumer
}

// New builds every component from cfg. It does not contact the registry or
// the brokers; call Init to warm the schema cache.
//
// Example:
//
//	ka, err := kafkaavro.New(cfg)
//	if err != nil {
//		return err
//	}
//	defer ka.Close(context.Background())
//
//	if _, err := ka.Init(ctx); err != nil {
//		return err
//	}
//	producer, err := ka.Producer()
func New(cfg Config) (*KafkaAvro, error) {
	log, err := logger.NewLoggerClient(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return newKafkaAvro(cfg, log)
}

func newKafkaAvro(cfg Config, log *logger.LoggerClient) (*KafkaAvro, error) {
	tr, err := tracer.NewClient(cfg.Tracer)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	m := metrics.NewMetrics(cfg.Metrics)
	observer := metrics.NewOperationObserver(m, cfg.Metrics)

	client, err := schema_registry.NewClient(cfg.SchemaRegistry)
	if err != nil {
		_ = tr.Shutdown(context.Background())
		return nil, err
	}
	client.WithLogger(log).WithObserver(observer)

	cache := schema_registry.NewSchemaCache(client).WithLogger(log).WithObserver(observer)

	resolver, err := schema_registry.NewResolver(cfg.Resolver, cache)
	if err != nil {
		_ = tr.Shutdown(context.Background())
		return nil, err
	}
	resolver.WithLogger(log)

	return &KafkaAvro{
		cfg:      cfg,
		log:      log,
		tracer:   tr,
		metrics:  m,
		observer: observer,
		client:   client,
		cache:    cache,
		resolver: resolver,
		serde:    schema_registry.NewSerde(resolver, cache),
	}, nil
}

// Init warms the schema cache with the latest version of every registered
// subject, or every version when Config.FetchAllVersions is set. It returns
// the number of schemas loaded. With Config.SkipPreload it does nothing.
func (k *KafkaAvro) Init(ctx context.Context) (int, error) {
	if k.cfg.SkipPreload {
		return 0, nil
	}
	loaded, err := k.cache.Preload(ctx, k.cfg.FetchAllVersions)
	if err != nil {
		k.log.ErrorWithContext(ctx, "Failed to preload schemas", err)
		return loaded, err
	}
	k.log.InfoWithContext(ctx, "kafka-avro initialized", nil, map[string]interface{}{
		"schemas":      loaded,
		"all_versions": k.cfg.FetchAllVersions,
	})
	return loaded, nil
}

// Producer creates a producer for Config.Kafka that encodes through the
// shared serde.
func (k *KafkaAvro) Producer() (*kafka.Producer, error) {
	producer, err := kafka.NewProducer(k.cfg.Kafka, k.serde)
	if err != nil {
		return nil, err
	}
	producer.WithLogger(k.log).WithObserver(k.observer).WithPropagator(k.tracer)

	k.mu.Lock()
	k.producers = append(k.producers, producer)
	k.mu.Unlock()
	return producer, nil
}

// Consumer creates a consumer for Config.Kafka with its consumer section
// replaced by consumerCfg. Values are decoded through the shared serde.
func (k *KafkaAvro) Consumer(consumerCfg kafka.ConsumerConfig) (*kafka.Consumer, error) {
	cfg := k.cfg.Kafka
	cfg.Consumer = consumerCfg

	consumer, err := kafka.NewConsumer(cfg, k.serde)
	if err != nil {
		return nil, err
	}
	consumer.WithLogger(k.log).WithObserver(k.observer).WithPropagator(k.tracer)

	k.mu.Lock()
	k.consumers = append(k.consumers, consumer)
	k.mu.Unlock()
	return consumer, nil
}

// SetShouldFailWhenSchemaIsMissing switches publishing between strict mode,
// where a subject without a registered schema fails with
// schema_registry.ErrSchemaRequiredButMissing, and auto-registration.
func (k *KafkaAvro) SetShouldFailWhenSchemaIsMissing(fail bool) {
	k.resolver.SetRequireSchema(fail)
}

// Serde returns the shared serde.
func (k *KafkaAvro) Serde() *schema_registry.Serde { return k.serde }

// Cache returns the shared schema cache.
func (k *KafkaAvro) Cache() *schema_registry.SchemaCache { return k.cache }

// Resolver returns the shared subject resolver.
func (k *KafkaAvro) Resolver() *schema_registry.Resolver { return k.resolver }

// Registry returns the registry client.
func (k *KafkaAvro) Registry() *schema_registry.Client { return k.client }

// Metrics returns the Prometheus registries. Their servers are not started
// by New; run them with ListenAndServe or expose ApplicationRegistry on an
// existing mux.
func (k *KafkaAvro) Metrics() *metrics.Metrics { return k.metrics }

// Logger returns the logger shared by all components.
func (k *KafkaAvro) Logger() *logger.LoggerClient { return k.log }

// Close shuts down every producer and consumer created by k, then flushes
// pending spans and log entries.
func (k *KafkaAvro) Close(ctx context.Context) error {
	k.mu.Lock()
	producers, consumers := k.producers, k.consumers
	k.producers, k.consumers = nil, nil
	k.mu.Unlock()

	for _, c := range consumers {
		c.GracefulShutdown()
	}
	for _, p := range producers {
		p.GracefulShutdown()
	}

	err := k.tracer.Shutdown(ctx)
	// Sync on stderr fails on some platforms with nothing lost.
	_ = k.log.Sync()
	if err != nil {
		return fmt.Errorf("failed to shut down tracer: %w", err)
	}
	return nil
}

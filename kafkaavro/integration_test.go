package kafkaavro

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/redpanda"

	"github.com/pleszczy/kafka-avro/kafka"
	"github.com/pleszczy/kafka-avro/logger"
	"github.com/pleszczy/kafka-avro/metrics"
	"github.com/pleszczy/kafka-avro/schema_registry"
)

const redpandaImage = "docker.redpanda.com/redpandadata/redpanda:v24.2.4"

type user struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

func (user) AvroSchema() string {
	return `{"type":"record","name":"User","namespace":"com.acme","fields":[{"name":"name","type":"string"},{"name":"age","type":"int"}]}`
}

// initializeRedpanda starts a broker with its built-in schema registry.
func initializeRedpanda(ctx context.Context, t *testing.T) (broker, registryURL string) {
	t.Helper()

	container, err := redpanda.Run(ctx, redpandaImage, redpanda.WithAutoCreateTopics())
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	broker, err = container.KafkaSeedBroker(ctx)
	require.NoError(t, err)
	registryURL, err = container.SchemaRegistryAddress(ctx)
	require.NoError(t, err)
	return broker, registryURL
}

// TestProduceConsume_Redpanda registers a schema on first publish, then
// consumes the record back through the writer schema.
func TestProduceConsume_Redpanda(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	broker, registryURL := initializeRedpanda(ctx, t)

	ka, err := New(Config{
		SchemaRegistry: schema_registry.Config{URL: registryURL},
		Resolver:       schema_registry.ResolverConfig{RequireSchema: false},
		Kafka: kafka.Config{
			Brokers:  []string{broker},
			Producer: kafka.ProducerConfig{AllowAutoTopicCreation: true},
		},
		Logger: logger.Config{Level: logger.Info},
		Metrics: metrics.Config{
			SystemMetricsAddress:      metrics.Ptr(""),
			ApplicationMetricsAddress: metrics.Ptr(""),
		},
	})
	require.NoError(t, err)
	defer func() { _ = ka.Close(ctx) }()

	loaded, err := ka.Init(ctx)
	require.NoError(t, err)
	assert.Zero(t, loaded)

	producer, err := ka.Producer()
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return producer.Produce(ctx, "users", user{Name: "ada", Age: 36}, "user-1") == nil
	}, 30*time.Second, time.Second)

	subjects, err := ka.Registry().ListSubjects(ctx)
	require.NoError(t, err)
	assert.Contains(t, subjects, "users-value")

	consumer, err := ka.Consumer(kafka.ConsumerConfig{
		Topics:      []string{"users"},
		GroupID:     "kafka-avro-it",
		StartOffset: kafka.FirstOffset,
	})
	require.NoError(t, err)

	consumeCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()
	wg := &sync.WaitGroup{}

	select {
	case msg := <-consumer.Consume(consumeCtx, wg):
		require.NotNil(t, msg)
		require.NoError(t, msg.DecodeErr())
		assert.Equal(t, []byte("user-1"), msg.Key())
		assert.Equal(t, "users-value", msg.Schema().Subject)

		var got user
		require.NoError(t, msg.BodyAs(&got))
		assert.Equal(t, user{Name: "ada", Age: 36}, got)
		require.NoError(t, msg.CommitMsg())
	case <-consumeCtx.Done():
		t.Fatal("timed out waiting for message")
	}

	cancel()
	wg.Wait()
}

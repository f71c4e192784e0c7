package schema_registry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/pleszczy/kafka-avro/schema_registry"
	"github.com/pleszczy/kafka-avro/schema_registry/mocks"
)

const orderSchema = `{"type":"record","name":"Order","namespace":"com.acme","fields":[{"name":"id","type":"string"}]}`

type Order struct {
	ID string `json:"id"`
}

type describedOrder struct {
	ID string `json:"id"`
}

func (describedOrder) AvroSchema() string { return orderSchema }

func notFound() error {
	return &schema_registry.RegistryError{StatusCode: 404, ErrorCode: 40401, Message: "Subject not found"}
}

func newResolver(t *testing.T, cfg schema_registry.ResolverConfig) (*schema_registry.Resolver, *mocks.MockRegistry) {
	t.Helper()
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockRegistry(ctrl)
	resolver, err := schema_registry.NewResolver(cfg, schema_registry.NewSchemaCache(registry))
	require.NoError(t, err)
	return resolver, registry
}

func TestNewResolver_InvalidStrategy(t *testing.T) {
	t.Parallel()
	cache := schema_registry.NewSchemaCache(nil)

	_, err := schema_registry.NewResolver(schema_registry.ResolverConfig{KeySubjectStrategy: "bogus"}, cache)
	assert.ErrorIs(t, err, schema_registry.ErrInvalidStrategyName)

	_, err = schema_registry.NewResolver(schema_registry.ResolverConfig{ValueSubjectStrategy: "topicname"}, cache)
	assert.ErrorIs(t, err, schema_registry.ErrInvalidStrategyName)

	_, err = schema_registry.NewResolver(schema_registry.ResolverConfig{}, nil)
	assert.Error(t, err)
}

func TestResolver_Subject(t *testing.T) {
	t.Parallel()
	resolver, _ := newResolver(t, schema_registry.ResolverConfig{
		KeySubjectStrategy:   "TopicNameStrategy",
		ValueSubjectStrategy: "recordnamestrategy",
	})

	assert.Equal(t, "orders-key", resolver.Subject("orders", "k-1", true))
	assert.Equal(t, "Order", resolver.Subject("orders", Order{}, false))
	assert.Equal(t, "orders", resolver.Subject("orders", map[string]interface{}{}, false))
}

func TestResolver_ResolveExisting(t *testing.T) {
	t.Parallel()
	resolver, registry := newResolver(t, schema_registry.ResolverConfig{RequireSchema: true})

	registry.EXPECT().
		GetLatestSchema(gomock.Any(), "orders-value").
		Return(&schema_registry.Metadata{ID: 42, Version: 3, Schema: orderSchema}, nil).
		Times(1)

	for i := 0; i < 3; i++ {
		schema, err := resolver.ResolveForPublish(context.Background(), "orders", Order{ID: "1"}, false)
		require.NoError(t, err)
		assert.Equal(t, 42, schema.ID)
		assert.Equal(t, "orders-value", schema.Subject)
	}
}

func TestResolver_StrictModeMissingSchema(t *testing.T) {
	t.Parallel()
	resolver, registry := newResolver(t, schema_registry.ResolverConfig{RequireSchema: true})

	registry.EXPECT().GetLatestSchema(gomock.Any(), "orders-key").Return(nil, notFound())

	_, err := resolver.ResolveForPublish(context.Background(), "orders", "k-1", true)
	require.ErrorIs(t, err, schema_registry.ErrSchemaRequiredButMissing)
	assert.Contains(t, err.Error(), "orders-key")
}

func TestResolver_LenientModeRegistersDerivedSchema(t *testing.T) {
	t.Parallel()
	resolver, registry := newResolver(t, schema_registry.ResolverConfig{
		KeySubjectStrategy: "TopicRecordNameStrategy",
	})

	gomock.InOrder(
		registry.EXPECT().GetLatestSchema(gomock.Any(), "orders-string").Return(nil, notFound()),
		registry.EXPECT().RegisterSchema(gomock.Any(), "orders-string", `"string"`, schema_registry.SchemaTypeAvro).Return(7, nil),
	)

	schema, err := resolver.ResolveForPublish(context.Background(), "orders", "k-1", true)
	require.NoError(t, err)
	assert.Equal(t, 7, schema.ID)

	// the registered schema now serves the subject without another request
	again, err := resolver.ResolveForPublish(context.Background(), "orders", "k-2", true)
	require.NoError(t, err)
	assert.Same(t, schema, again)
}

func TestResolver_LenientModeRegistersTaggedProvider(t *testing.T) {
	t.Parallel()
	resolver, registry := newResolver(t, schema_registry.ResolverConfig{
		ValueSubjectStrategy: "RecordNameStrategy",
	})

	gomock.InOrder(
		registry.EXPECT().GetLatestSchema(gomock.Any(), "com.acme.Order").Return(nil, notFound()),
		registry.EXPECT().RegisterSchema(gomock.Any(), "com.acme.Order", orderSchema, schema_registry.SchemaTypeAvro).Return(11, nil),
	)

	value := schema_registry.WithRecordName("com.acme.Order", describedOrder{ID: "1"})
	schema, err := resolver.ResolveForPublish(context.Background(), "orders", value, false)
	require.NoError(t, err)
	assert.Equal(t, 11, schema.ID)
	assert.Equal(t, "com.acme.Order", schema.Name())
}

func TestResolver_LenientModeUnderivableValue(t *testing.T) {
	t.Parallel()
	resolver, registry := newResolver(t, schema_registry.ResolverConfig{})

	registry.EXPECT().GetLatestSchema(gomock.Any(), "orders-value").Return(nil, notFound())

	_, err := resolver.ResolveForPublish(context.Background(), "orders", map[string]interface{}{"id": "1"}, false)
	assert.ErrorIs(t, err, schema_registry.ErrSchemaNotFound)
}

func TestResolver_RegistryFailureIsPassedThrough(t *testing.T) {
	t.Parallel()
	resolver, registry := newResolver(t, schema_registry.ResolverConfig{})

	down := &schema_registry.RegistryError{StatusCode: 503, Message: "down"}
	registry.EXPECT().GetLatestSchema(gomock.Any(), "orders-value").Return(nil, down).Times(2)
	registry.EXPECT().GetLatestSchema(gomock.Any(), "orders-value").
		Return(&schema_registry.Metadata{ID: 5, Schema: `"string"`}, nil)

	for i := 0; i < 2; i++ {
		_, err := resolver.ResolveForPublish(context.Background(), "orders", "v", false)
		require.Error(t, err)
		assert.True(t, schema_registry.IsRetryable(err))
		assert.False(t, errors.Is(err, schema_registry.ErrSchemaRequiredButMissing))
	}

	schema, err := resolver.ResolveForPublish(context.Background(), "orders", "v", false)
	require.NoError(t, err)
	assert.Equal(t, 5, schema.ID)
}

func TestResolver_SetRequireSchema(t *testing.T) {
	t.Parallel()
	resolver, registry := newResolver(t, schema_registry.ResolverConfig{RequireSchema: false})
	assert.False(t, resolver.RequireSchema())

	resolver.SetRequireSchema(true)
	assert.True(t, resolver.RequireSchema())

	registry.EXPECT().GetLatestSchema(gomock.Any(), "orders-value").Return(nil, notFound())
	_, err := resolver.ResolveForPublish(context.Background(), "orders", "v", false)
	assert.ErrorIs(t, err, schema_registry.ErrSchemaRequiredButMissing)
}

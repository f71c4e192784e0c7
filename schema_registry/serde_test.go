package schema_registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/pleszczy/kafka-avro/observability"
)

func newTestSerde(t *testing.T, reg *fakeRegistry, cfg ResolverConfig) *Serde {
	t.Helper()
	cache := NewSchemaCache(reg.client(t))
	resolver, err := NewResolver(cfg, cache)
	require.NoError(t, err)
	return NewSerde(resolver, cache)
}

func TestSerde_RoundTrip(t *testing.T) {
	t.Parallel()
	reg := newFakeRegistry(t)
	reg.add("users-value", userSchema)
	serde := newTestSerde(t, reg, ResolverConfig{RequireSchema: true})
	ctx := context.Background()

	in := User{Name: "carol", Age: 28}
	data, err := serde.Encode(ctx, "users", in, false)
	require.NoError(t, err)

	id, _, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	schema, native, err := serde.Decode(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, "com.acme.User", schema.Name())
	assert.Equal(t, map[string]interface{}{"name": "carol", "age": int32(28)}, native)

	var out User
	_, err = serde.DecodeInto(ctx, data, &out)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestSerde_DecodeWithFreshCacheFetchesByID(t *testing.T) {
	t.Parallel()
	reg := newFakeRegistry(t)
	reg.add("users-value", userSchema)

	producer := newTestSerde(t, reg, ResolverConfig{RequireSchema: true})
	data, err := producer.Encode(context.Background(), "users", map[string]interface{}{"name": "d", "age": int32(1)}, false)
	require.NoError(t, err)

	consumer := newTestSerde(t, reg, ResolverConfig{})
	schema, value, err := consumer.Decode(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, 1, schema.ID)
	assert.Equal(t, "d", value.(map[string]interface{})["name"])
	assert.EqualValues(t, 1, reg.hitCount("GET", "/schemas/ids/1"))
}

func TestSerde_AutoRegistersStringKey(t *testing.T) {
	t.Parallel()
	reg := newFakeRegistry(t)
	serde := newTestSerde(t, reg, ResolverConfig{RequireSchema: false})
	ctx := context.Background()

	data, err := serde.Encode(ctx, "orders", "order-17", true)
	require.NoError(t, err)

	_, value, err := serde.Decode(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, "order-17", value)
	assert.EqualValues(t, 1, reg.hitCount("POST", "/subjects/orders-key/versions"))
}

func TestSerde_StrictModeMissing(t *testing.T) {
	t.Parallel()
	reg := newFakeRegistry(t)
	serde := newTestSerde(t, reg, ResolverConfig{RequireSchema: true})

	_, err := serde.Encode(context.Background(), "orders", "x", false)
	assert.ErrorIs(t, err, ErrSchemaRequiredButMissing)
}

func TestSerde_DecodeErrors(t *testing.T) {
	t.Parallel()
	reg := newFakeRegistry(t)
	serde := newTestSerde(t, reg, ResolverConfig{})
	ctx := context.Background()

	_, _, err := serde.Decode(ctx, []byte{0, 0, 1})
	assert.ErrorIs(t, err, ErrMalformedWireMessage)

	_, _, err = serde.Decode(ctx, []byte{1, 0, 0, 0, 1, 2})
	assert.ErrorIs(t, err, ErrUnsupportedMagicByte)

	_, _, err = serde.Decode(ctx, append(EncodeSchemaID(77), 0x02))
	assert.ErrorIs(t, err, ErrSchemaNotFound)
}

func TestTopicSerializerAndDeserializer(t *testing.T) {
	t.Parallel()
	reg := newFakeRegistry(t)
	reg.add("users-value", userSchema)
	serde := newTestSerde(t, reg, ResolverConfig{RequireSchema: true})

	_, err := NewTopicSerializer(nil, "users", false)
	assert.Error(t, err)
	_, err = NewTopicSerializer(serde, "", false)
	assert.Error(t, err)
	_, err = NewSerdeDeserializer(nil)
	assert.Error(t, err)

	var ser Serializer
	ser, err = NewTopicSerializer(serde, "users", false)
	require.NoError(t, err)
	var de Deserializer
	de, err = NewSerdeDeserializer(serde)
	require.NoError(t, err)

	data, err := ser.Serialize(User{Name: "e", Age: 5})
	require.NoError(t, err)

	var out User
	require.NoError(t, de.Deserialize(data, &out))
	assert.Equal(t, User{Name: "e", Age: 5}, out)
}

func TestFXModule(t *testing.T) {
	reg := newFakeRegistry(t)
	reg.add("users-value", userSchema)
	obs := &TestObserver{}

	var (
		serde    *Serde
		registry Registry
	)
	app := fxtest.New(t,
		fx.Supply(
			Config{URL: reg.server.URL},
			ResolverConfig{ValueSubjectStrategy: "TopicNameStrategy", RequireSchema: true},
		),
		fx.Provide(
			func() Logger { return &captureLogger{} },
			fx.Annotate(func() *TestObserver { return obs }, fx.As(new(observability.Observer))),
		),
		FXModule,
		fx.Populate(&serde, &registry),
	)
	app.RequireStart()
	defer app.RequireStop()

	require.NotNil(t, registry)
	data, err := serde.Encode(context.Background(), "users", User{Name: "f", Age: 9}, false)
	require.NoError(t, err)
	assert.True(t, IsWireFormat(data))
	assert.NotEmpty(t, obs.GetOperations())
}

func TestFXModule_InvalidStrategyFailsStartup(t *testing.T) {
	app := fx.New(
		fx.NopLogger,
		fx.Supply(
			Config{URL: "http://localhost:8081"},
			ResolverConfig{KeySubjectStrategy: "bogus"},
		),
		FXModule,
		fx.Invoke(func(*Serde) {}),
	)
	assert.ErrorContains(t, app.Err(), "invalid subject name strategy")
}

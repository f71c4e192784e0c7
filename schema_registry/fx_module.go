package schema_registry

import (
	"context"

	"go.uber.org/fx"

	"github.com/pleszczy/kafka-avro/observability"
)

// FXModule provides the registry client, schema cache, resolver and serde.
//
// Dependencies required by this module:
//   - schema_registry.Config
//   - schema_registry.ResolverConfig (optional, zero value means TopicNameStrategy and lenient publish)
//   - Logger and observability.Observer (optional)
//
// Usage:
//
//	app := fx.New(
//	    fx.Supply(schema_registry.Config{URL: "http://localhost:8081"}),
//	    schema_registry.FXModule,
//	)
var FXModule = fx.Module("schema_registry",
	fx.Provide(
		NewClientWithDI,
		fx.Annotate(
			func(c *Client) Registry { return c },
			fx.As(new(Registry)),
		),
		NewSchemaCacheWithDI,
		NewResolverWithDI,
		NewSerde,
	),
	fx.Invoke(RegisterSchemaRegistryLifecycle),
)

// SchemaRegistryParams groups the dependencies needed to create a Schema Registry client
type SchemaRegistryParams struct {
	fx.In

	Config   Config
	Logger   Logger                 `optional:"true"`
	Observer observability.Observer `optional:"true"`
}

// NewClientWithDI creates a new Schema Registry client using dependency injection.
func NewClientWithDI(params SchemaRegistryParams) (*Client, error) {
	client, err := NewClient(params.Config)
	if err != nil {
		return nil, err
	}

	if params.Logger != nil {
		client.logger = params.Logger
	}
	if params.Observer != nil {
		client.observer = params.Observer
	}

	return client, nil
}

// SchemaCacheParams groups the dependencies of the schema cache.
type SchemaCacheParams struct {
	fx.In

	Registry Registry
	Logger   Logger                 `optional:"true"`
	Observer observability.Observer `optional:"true"`
}

// NewSchemaCacheWithDI creates the schema cache using dependency injection.
func NewSchemaCacheWithDI(params SchemaCacheParams) *SchemaCache {
	cache := NewSchemaCache(params.Registry)
	if params.Logger != nil {
		cache.logger = params.Logger
	}
	if params.Observer != nil {
		cache.observer = params.Observer
	}
	return cache
}

// ResolverParams groups the dependencies of the resolver.
type ResolverParams struct {
	fx.In

	Config ResolverConfig `optional:"true"`
	Cache  *SchemaCache
	Logger Logger `optional:"true"`
}

// NewResolverWithDI creates the resolver using dependency injection. An
// invalid strategy name fails application startup.
func NewResolverWithDI(params ResolverParams) (*Resolver, error) {
	resolver, err := NewResolver(params.Config, params.Cache)
	if err != nil {
		return nil, err
	}
	if params.Logger != nil {
		resolver.logger = params.Logger
	}
	return resolver, nil
}

// SchemaRegistryLifecycleParams groups the dependencies needed for Schema Registry lifecycle management
type SchemaRegistryLifecycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Client    *Client
	Cache     *SchemaCache
}

// RegisterSchemaRegistryLifecycle logs startup and, on stop, the number of
// schemas cached during the application's lifetime.
func RegisterSchemaRegistryLifecycle(params SchemaRegistryLifecycleParams) {
	params.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			params.Client.logInfo(ctx, "schema registry client initialized", map[string]interface{}{
				"url": params.Client.url,
			})
			return nil
		},
		OnStop: func(ctx context.Context) error {
			params.Client.logInfo(ctx, "schema registry client shutdown", map[string]interface{}{
				"cached_schemas": params.Cache.Len(),
			})
			params.Client.httpClient.CloseIdleConnections()
			return nil
		},
	})
}

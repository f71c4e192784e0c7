// Package schema_registry resolves, caches and applies Avro schemas from a
// Confluent-compatible schema registry, and frames payloads in the Confluent
// wire format.
//
// # Architecture
//
// The package follows the "accept interfaces, return structs" design pattern:
//   - Registry interface and *Client: the REST API over net/http, no caching
//   - *SchemaCache: id, subject and subject+version lookups, coalesced misses
//   - SubjectNameStrategy: topic/record based subject names
//   - *Resolver: strategy + cache + strict or auto-registering publish
//   - *Serde: resolver + wire framing + goavro codec
//   - FXModule: provides all of the above for dependency injection
//
// # Wire Format
//
//	[0x00][schema id, 4 bytes big-endian][Avro binary payload]
//
// Decode validates the first five bytes and returns the id and the payload
// offset (always 5). The payload is decoded by the writer schema's codec.
//
// # Subject Name Strategies
//
//	TopicNameStrategy        orders-key, orders-value
//	TopicRecordNameStrategy  orders-Order  (orders when no record name)
//	RecordNameStrategy       Order         (orders when no record name)
//
// The record name comes from a RecordNamer implementation or a
// WithRecordName tag, then from the value's named Go type. Maps, slices and
// other anonymous values have none.
//
// # Direct Usage (Without FX)
//
//	client, err := schema_registry.NewClient(schema_registry.Config{
//	    URL:     "http://localhost:8081",
//	    Timeout: 10 * time.Second,
//	})
//	if err != nil {
//	    return err
//	}
//
//	cache := schema_registry.NewSchemaCache(client)
//	resolver, err := schema_registry.NewResolver(schema_registry.ResolverConfig{
//	    ValueSubjectStrategy: "TopicRecordNameStrategy",
//	}, cache)
//	if err != nil {
//	    return err
//	}
//	serde := schema_registry.NewSerde(resolver, cache)
//
//	data, err := serde.Encode(ctx, "orders", order, false)
//	...
//	schema, value, err := serde.Decode(ctx, data)
//
// # FX Module Integration
//
//	app := fx.New(
//	    fx.Supply(
//	        schema_registry.Config{URL: os.Getenv("SCHEMA_REGISTRY_URL")},
//	        schema_registry.ResolverConfig{RequireSchema: true},
//	    ),
//	    schema_registry.FXModule,
//	    fx.Invoke(func(serde *schema_registry.Serde) { ... }),
//	)
//
// # Errors
//
// Registry responses map onto sentinels: ErrSchemaNotFound (404, 40401-40403),
// ErrIncompatibleSchema (409), ErrInvalidSchema (422), ErrUnauthorized
// (401/403) and ErrRegistryUnavailable (5xx, 408, 429, network errors).
// IsRetryable reports whether a later attempt may succeed. Failed lookups are
// never cached.
//
// # Observability
//
// Client and SchemaCache accept an observability.Observer through
// WithObserver. Cache events carry {"cache_hit": bool} in Metadata.
package schema_registry

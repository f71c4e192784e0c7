package schema_registry

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
)

// Resolver maps an outbound value to the schema it must be written with.
// Strategies are fixed at construction; strictness can be toggled at runtime.
type Resolver struct {
	keyStrategy   SubjectNameStrategy
	valueStrategy SubjectNameStrategy
	requireSchema atomic.Bool

	cache  *SchemaCache
	logger Logger
}

// NewResolver parses both strategy names and fails on an unknown one.
//
// Example:
//
//	resolver, err := schema_registry.NewResolver(schema_registry.ResolverConfig{
//	    ValueSubjectStrategy: "TopicRecordNameStrategy",
//	    RequireSchema:        true,
//	}, cache)
func NewResolver(cfg ResolverConfig, cache *SchemaCache) (*Resolver, error) {
	if cache == nil {
		return nil, fmt.Errorf("schema cache is required")
	}

	keyStrategy, err := ParseSubjectNameStrategy(cfg.KeySubjectStrategy)
	if err != nil {
		return nil, fmt.Errorf("key subject strategy: %w", err)
	}
	valueStrategy, err := ParseSubjectNameStrategy(cfg.ValueSubjectStrategy)
	if err != nil {
		return nil, fmt.Errorf("value subject strategy: %w", err)
	}

	r := &Resolver{
		keyStrategy:   keyStrategy,
		valueStrategy: valueStrategy,
		cache:         cache,
	}
	r.requireSchema.Store(cfg.RequireSchema)
	return r, nil
}

// WithLogger sets the logger and returns the resolver.
func (r *Resolver) WithLogger(logger Logger) *Resolver {
	r.logger = logger
	return r
}

// SetRequireSchema switches between strict mode, where a missing schema
// fails the publish, and lenient mode, where a derived schema is registered.
func (r *Resolver) SetRequireSchema(require bool) {
	r.requireSchema.Store(require)
}

// RequireSchema reports whether strict mode is on.
func (r *Resolver) RequireSchema() bool {
	return r.requireSchema.Load()
}

// Subject returns the subject for value under the key or value strategy.
func (r *Resolver) Subject(topic string, value any, isKey bool) string {
	if isKey {
		return r.keyStrategy.Subject(topic, value, true)
	}
	return r.valueStrategy.Subject(topic, value, false)
}

// ResolveForPublish returns the schema value must be written with on topic.
//
// A missing subject fails with ErrSchemaRequiredButMissing in strict mode.
// In lenient mode the schema from DeriveSchema is registered; values with
// no derivable schema fail with ErrSchemaNotFound. Registry failures other
// than not-found are returned as they are.
func (r *Resolver) ResolveForPublish(ctx context.Context, topic string, value any, isKey bool) (*Schema, error) {
	subject := r.Subject(topic, value, isKey)

	schema, err := r.cache.GetOrFetchBySubject(ctx, subject)
	if err == nil {
		return schema, nil
	}
	if !errors.Is(err, ErrSchemaNotFound) {
		return nil, err
	}

	if r.requireSchema.Load() {
		return nil, fmt.Errorf("%w: subject %q", ErrSchemaRequiredButMissing, subject)
	}

	definition, ok := DeriveSchema(value)
	if !ok {
		return nil, fmt.Errorf("%w: subject %q has no schema and none can be derived from %T", ErrSchemaNotFound, subject, unwrapValue(value))
	}

	if r.logger != nil {
		r.logger.InfoWithContext(ctx, "registering derived schema", nil, map[string]interface{}{
			"subject": subject,
			"topic":   topic,
			"is_key":  isKey,
		})
	}
	return r.cache.Register(ctx, subject, definition, SchemaTypeAvro)
}

package schema_registry

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pleszczy/kafka-avro/observability"
)

type subjectVersion struct {
	subject string
	version int
}

// SchemaCache holds every schema this process has resolved, keyed by id, by
// subject (the latest version as first observed) and by subject and version.
//
// Entries are immutable, the first insert for a key wins and nothing is ever
// evicted. Concurrent misses for one key share a single registry request.
// Failed fetches are not cached, so the next lookup retries.
type SchemaCache struct {
	registry Registry

	mu        sync.RWMutex
	byID      map[int]*Schema
	bySubject map[string]*Schema
	byVersion map[subjectVersion]*Schema

	inflight singleflight.Group

	observer observability.Observer
	logger   Logger
}

// NewSchemaCache creates an empty cache backed by registry.
func NewSchemaCache(registry Registry) *SchemaCache {
	return &SchemaCache{
		registry:  registry,
		byID:      make(map[int]*Schema),
		bySubject: make(map[string]*Schema),
		byVersion: make(map[subjectVersion]*Schema),
	}
}

// WithObserver sets the observer for cache lookups and returns the cache.
func (c *SchemaCache) WithObserver(observer observability.Observer) *SchemaCache {
	c.observer = observer
	return c
}

// WithLogger sets the logger and returns the cache.
func (c *SchemaCache) WithLogger(logger Logger) *SchemaCache {
	c.logger = logger
	return c
}

// GetByID returns the schema with the given id, fetching it on a miss.
func (c *SchemaCache) GetByID(ctx context.Context, id int) (*Schema, error) {
	start := time.Now()
	subResource := strconv.Itoa(id)

	c.mu.RLock()
	schema, ok := c.byID[id]
	c.mu.RUnlock()
	if ok {
		c.observeCache("cache_get_by_id", "registry", subResource, start, nil, true)
		return schema, nil
	}

	schema, err := c.load(ctx, "id:"+subResource, func(ctx context.Context) (*Schema, error) {
		return c.fetchByID(ctx, id)
	})
	c.observeCache("cache_get_by_id", "registry", subResource, start, err, false)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve schema id %d: %w", id, err)
	}
	return schema, nil
}

// GetOrFetchBySubject returns the latest schema of subject, fetching it on a
// miss. Once cached, later registrations under the subject are not observed.
func (c *SchemaCache) GetOrFetchBySubject(ctx context.Context, subject string) (*Schema, error) {
	start := time.Now()

	c.mu.RLock()
	schema, ok := c.bySubject[subject]
	c.mu.RUnlock()
	if ok {
		c.observeCache("cache_get_by_subject", subject, "latest", start, nil, true)
		return schema, nil
	}

	schema, err := c.load(ctx, "subject:"+subject, func(ctx context.Context) (*Schema, error) {
		return c.fetchBySubject(ctx, subject)
	})
	c.observeCache("cache_get_by_subject", subject, "latest", start, err, false)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve schema for subject %q: %w", subject, err)
	}
	return schema, nil
}

// GetBySubjectVersion returns one version of subject, fetching it on a miss.
func (c *SchemaCache) GetBySubjectVersion(ctx context.Context, subject string, version int) (*Schema, error) {
	start := time.Now()
	key := subjectVersion{subject: subject, version: version}
	subResource := strconv.Itoa(version)

	c.mu.RLock()
	schema, ok := c.byVersion[key]
	c.mu.RUnlock()
	if ok {
		c.observeCache("cache_get_by_version", subject, subResource, start, nil, true)
		return schema, nil
	}

	schema, err := c.load(ctx, "version:"+subResource+":"+subject, func(ctx context.Context) (*Schema, error) {
		return c.fetchByVersion(ctx, key)
	})
	c.observeCache("cache_get_by_version", subject, subResource, start, err, false)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve version %d of subject %q: %w", version, subject, err)
	}
	return schema, nil
}

// The fetch functions run inside the in-flight group. Each checks the cache
// again first: a fetch for the same key can complete between a caller's miss
// and its joining the group, and singleflight has forgotten it by then.

func (c *SchemaCache) fetchByID(ctx context.Context, id int) (*Schema, error) {
	c.mu.RLock()
	schema, ok := c.byID[id]
	c.mu.RUnlock()
	if ok {
		return schema, nil
	}

	meta, err := c.registry.GetSchemaByID(ctx, id)
	if err != nil {
		return nil, err
	}
	parsed, err := NewSchema(*meta)
	if err != nil {
		return nil, err
	}
	return c.store(parsed, false, keyID), nil
}

func (c *SchemaCache) fetchBySubject(ctx context.Context, subject string) (*Schema, error) {
	c.mu.RLock()
	schema, ok := c.bySubject[subject]
	c.mu.RUnlock()
	if ok {
		return schema, nil
	}

	meta, err := c.registry.GetLatestSchema(ctx, subject)
	if err != nil {
		return nil, err
	}
	meta.Subject = subject
	parsed, err := NewSchema(*meta)
	if err != nil {
		return nil, err
	}
	return c.store(parsed, true, keySubject), nil
}

func (c *SchemaCache) fetchByVersion(ctx context.Context, key subjectVersion) (*Schema, error) {
	c.mu.RLock()
	schema, ok := c.byVersion[key]
	c.mu.RUnlock()
	if ok {
		return schema, nil
	}

	meta, err := c.registry.GetSchemaByVersion(ctx, key.subject, key.version)
	if err != nil {
		return nil, err
	}
	meta.Subject = key.subject
	parsed, err := NewSchema(*meta)
	if err != nil {
		return nil, err
	}
	return c.store(parsed, false, keyVersion), nil
}

// Register compiles definition, registers it under subject and caches the
// result under its id and, if the subject has no entry yet, as the subject's
// latest schema. Definitions that do not compile are rejected before any
// request is made.
func (c *SchemaCache) Register(ctx context.Context, subject, definition, schemaType string) (*Schema, error) {
	start := time.Now()

	if _, err := NewSchema(Metadata{Subject: subject, Schema: definition, Type: schemaType}); err != nil {
		c.observeCache("cache_register", subject, "", start, err, false)
		return nil, err
	}

	schema, err := c.load(ctx, "register:"+subject+"\x00"+definition, func(ctx context.Context) (*Schema, error) {
		id, err := c.registry.RegisterSchema(ctx, subject, definition, schemaType)
		if err != nil {
			return nil, err
		}
		parsed, err := NewSchema(Metadata{ID: id, Subject: subject, Schema: definition, Type: schemaType})
		if err != nil {
			return nil, err
		}
		return c.store(parsed, true, keyID), nil
	})
	c.observeCache("cache_register", subject, "", start, err, false)
	if err != nil {
		return nil, fmt.Errorf("failed to register schema for subject %q: %w", subject, err)
	}
	return schema, nil
}

// Preload warms the cache with the latest schema of every registered subject
// and, when allVersions is set, every version of each subject. Subjects that
// fail to load are logged and skipped. It returns the number of schemas
// loaded.
func (c *SchemaCache) Preload(ctx context.Context, allVersions bool) (int, error) {
	subjects, err := c.registry.ListSubjects(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list subjects: %w", err)
	}

	loaded := 0
	for _, subject := range subjects {
		if ctx.Err() != nil {
			return loaded, ctx.Err()
		}
		if _, err := c.GetOrFetchBySubject(ctx, subject); err != nil {
			c.logWarn(ctx, "skipping subject during preload", err, map[string]interface{}{"subject": subject})
			continue
		}
		loaded++

		if !allVersions {
			continue
		}
		versions, err := c.registry.ListVersions(ctx, subject)
		if err != nil {
			c.logWarn(ctx, "failed to list versions during preload", err, map[string]interface{}{"subject": subject})
			continue
		}
		for _, version := range versions {
			if _, err := c.GetBySubjectVersion(ctx, subject, version); err != nil {
				c.logWarn(ctx, "skipping version during preload", err, map[string]interface{}{
					"subject": subject,
					"version": version,
				})
				continue
			}
			loaded++
		}
	}

	c.logInfo(ctx, "schema cache preloaded", map[string]interface{}{
		"subjects": len(subjects),
		"loaded":   loaded,
	})
	return loaded, nil
}

// Len returns the number of distinct schema ids cached.
func (c *SchemaCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byID)
}

// load runs fetch at most once per key among concurrent callers. The fetch
// is detached from ctx so that a caller giving up does not abort it for the
// others; the HTTP client timeout bounds it instead. A caller whose ctx ends
// first gets a retriable error.
func (c *SchemaCache) load(ctx context.Context, key string, fetch func(context.Context) (*Schema, error)) (*Schema, error) {
	detached := context.WithoutCancel(ctx)
	ch := c.inflight.DoChan(key, func() (interface{}, error) {
		return fetch(detached)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Schema), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: gave up waiting for %s: %w", ErrRegistryUnavailable, key, ctx.Err())
	}
}

type cacheKey int

const (
	keyID cacheKey = iota
	keySubject
	keyVersion
)

// store inserts schema under every key it carries, keeping existing entries,
// and returns the entry now held under the key the caller asked for.
func (c *SchemaCache) store(schema *Schema, latest bool, want cacheKey) *Schema {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.byID[schema.ID]; !ok {
		c.byID[schema.ID] = schema
	}

	version := subjectVersion{subject: schema.Subject, version: schema.Version}
	if schema.Subject != "" && schema.Version > 0 {
		if _, ok := c.byVersion[version]; !ok {
			c.byVersion[version] = schema
		}
	}
	if schema.Subject != "" && latest {
		if _, ok := c.bySubject[schema.Subject]; !ok {
			c.bySubject[schema.Subject] = schema
		}
	}

	switch want {
	case keySubject:
		return c.bySubject[schema.Subject]
	case keyVersion:
		return c.byVersion[version]
	default:
		return c.byID[schema.ID]
	}
}

func (c *SchemaCache) logInfo(ctx context.Context, msg string, fields map[string]interface{}) {
	if c.logger != nil {
		c.logger.InfoWithContext(ctx, msg, nil, fields)
	}
}

func (c *SchemaCache) logWarn(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if c.logger != nil {
		c.logger.WarnWithContext(ctx, msg, err, fields)
	}
}

package schema_registry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaCache_GetByID(t *testing.T) {
	t.Parallel()
	reg := newFakeRegistry(t)
	id := reg.add("users-value", userSchema)
	cache := NewSchemaCache(reg.client(t))
	ctx := context.Background()

	first, err := cache.GetByID(ctx, id)
	require.NoError(t, err)
	second, err := cache.GetByID(ctx, id)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, "com.acme.User", first.Name())
	assert.EqualValues(t, 1, reg.hitCount("GET", "/schemas/ids/1"))
	assert.Equal(t, 1, cache.Len())
}

func TestSchemaCache_GetOrFetchBySubject(t *testing.T) {
	t.Parallel()
	reg := newFakeRegistry(t)
	id := reg.add("users-value", userSchema)
	cache := NewSchemaCache(reg.client(t))
	ctx := context.Background()

	schema, err := cache.GetOrFetchBySubject(ctx, "users-value")
	require.NoError(t, err)
	assert.Equal(t, id, schema.ID)
	assert.Equal(t, "users-value", schema.Subject)
	assert.Equal(t, 1, schema.Version)

	// the id and version indexes were filled by the subject fetch
	byID, err := cache.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Same(t, schema, byID)
	byVersion, err := cache.GetBySubjectVersion(ctx, "users-value", 1)
	require.NoError(t, err)
	assert.Same(t, schema, byVersion)

	assert.EqualValues(t, 1, reg.hitCount("GET", "/subjects/users-value/versions/latest"))
	assert.Zero(t, reg.hitCount("GET", "/schemas/ids/1"))
	assert.Zero(t, reg.hitCount("GET", "/subjects/users-value/versions/1"))
}

func TestSchemaCache_SubjectLatestIsNotRefreshed(t *testing.T) {
	t.Parallel()
	reg := newFakeRegistry(t)
	reg.add("users-value", userSchema)
	cache := NewSchemaCache(reg.client(t))
	ctx := context.Background()

	first, err := cache.GetOrFetchBySubject(ctx, "users-value")
	require.NoError(t, err)

	reg.add("users-value", `{"type":"record","name":"User","namespace":"com.acme","fields":[{"name":"name","type":"string"}]}`)

	again, err := cache.GetOrFetchBySubject(ctx, "users-value")
	require.NoError(t, err)
	assert.Same(t, first, again)

	v2, err := cache.GetBySubjectVersion(ctx, "users-value", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, v2.ID)
	assert.Equal(t, 2, cache.Len())
}

func TestSchemaCache_FirstInsertWins(t *testing.T) {
	t.Parallel()
	reg := newFakeRegistry(t)
	id := reg.add("users-value", userSchema)
	cache := NewSchemaCache(reg.client(t))
	ctx := context.Background()

	byID, err := cache.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, byID.Subject)

	bySubject, err := cache.GetOrFetchBySubject(ctx, "users-value")
	require.NoError(t, err)
	assert.Equal(t, "users-value", bySubject.Subject)

	again, err := cache.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Same(t, byID, again)
	assert.Equal(t, 1, cache.Len())
}

func TestSchemaCache_ConcurrentMissesShareOneFetch(t *testing.T) {
	t.Parallel()
	reg := newFakeRegistry(t)
	id := reg.add("orders-value", userSchema)
	reg.gate = make(chan struct{})
	cache := NewSchemaCache(reg.client(t))

	const callers = 32
	var wg sync.WaitGroup
	results := make([]*Schema, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = cache.GetOrFetchBySubject(context.Background(), "orders-value")
		}(i)
	}

	assert.Eventually(t, func() bool {
		return reg.hitCount("GET", "/subjects/orders-value/versions/latest") == 1
	}, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(reg.gate)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, id, results[i].ID)
		assert.Same(t, results[0], results[i])
	}
	assert.EqualValues(t, 1, reg.hitCount("GET", "/subjects/orders-value/versions/latest"))
}

func TestSchemaCache_FailuresAreNotCached(t *testing.T) {
	t.Parallel()
	reg := newFakeRegistry(t)
	reg.add("orders-value", userSchema)
	reg.failures.Store(2)
	cache := NewSchemaCache(reg.client(t))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := cache.GetOrFetchBySubject(ctx, "orders-value")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrRegistryUnavailable)
		assert.True(t, IsRetryable(err))
	}

	schema, err := cache.GetOrFetchBySubject(ctx, "orders-value")
	require.NoError(t, err)
	assert.Equal(t, 1, schema.ID)
	assert.EqualValues(t, 3, reg.hitCount("GET", "/subjects/orders-value/versions/latest"))
}

func TestSchemaCache_NotFoundIsNotCached(t *testing.T) {
	t.Parallel()
	reg := newFakeRegistry(t)
	cache := NewSchemaCache(reg.client(t))
	ctx := context.Background()

	_, err := cache.GetOrFetchBySubject(ctx, "missing-value")
	assert.ErrorIs(t, err, ErrSchemaNotFound)
	_, err = cache.GetByID(ctx, 99)
	assert.ErrorIs(t, err, ErrSchemaNotFound)

	reg.add("missing-value", userSchema)
	_, err = cache.GetOrFetchBySubject(ctx, "missing-value")
	require.NoError(t, err)
	assert.EqualValues(t, 2, reg.hitCount("GET", "/subjects/missing-value/versions/latest"))
}

func TestSchemaCache_CallerTimeoutDoesNotAbortFetch(t *testing.T) {
	t.Parallel()
	reg := newFakeRegistry(t)
	reg.add("orders-value", userSchema)
	reg.gate = make(chan struct{})
	cache := NewSchemaCache(reg.client(t))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := cache.GetOrFetchBySubject(ctx, "orders-value")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRegistryUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, IsRetryable(err))

	close(reg.gate)
	assert.Eventually(t, func() bool { return cache.Len() == 1 }, time.Second, 5*time.Millisecond)

	schema, err := cache.GetOrFetchBySubject(context.Background(), "orders-value")
	require.NoError(t, err)
	assert.Equal(t, 1, schema.ID)
	assert.EqualValues(t, 1, reg.hitCount("GET", "/subjects/orders-value/versions/latest"))
}

func TestSchemaCache_InvalidRegistrySchemaIsNotCached(t *testing.T) {
	t.Parallel()
	reg := newFakeRegistry(t)
	reg.add("broken-value", `{"type":"record"`)
	cache := NewSchemaCache(reg.client(t))

	_, err := cache.GetOrFetchBySubject(context.Background(), "broken-value")
	assert.ErrorIs(t, err, ErrInvalidSchema)
	assert.Zero(t, cache.Len())
}

func TestSchemaCache_Register(t *testing.T) {
	t.Parallel()
	reg := newFakeRegistry(t)
	cache := NewSchemaCache(reg.client(t))
	ctx := context.Background()

	schema, err := cache.Register(ctx, "orders-key", `"string"`, SchemaTypeAvro)
	require.NoError(t, err)
	assert.Equal(t, 1, schema.ID)
	assert.Equal(t, "orders-key", schema.Subject)

	latest, err := cache.GetOrFetchBySubject(ctx, "orders-key")
	require.NoError(t, err)
	assert.Same(t, schema, latest)
	assert.Zero(t, reg.hitCount("GET", "/subjects/orders-key/versions/latest"))

	_, err = cache.Register(ctx, "orders-key", `{"type":"record"`, SchemaTypeAvro)
	assert.ErrorIs(t, err, ErrInvalidSchema)
	assert.EqualValues(t, 1, reg.hitCount("POST", "/subjects/orders-key/versions"))
}

func TestSchemaCache_Preload(t *testing.T) {
	t.Parallel()
	reg := newFakeRegistry(t)
	reg.add("users-value", userSchema)
	reg.add("users-value", `{"type":"record","name":"User","namespace":"com.acme","fields":[{"name":"name","type":"string"}]}`)
	reg.add("orders-key", `"string"`)
	reg.add("broken-value", `{"type":"record"`)
	logger := &captureLogger{}

	cache := NewSchemaCache(reg.client(t)).WithLogger(logger)
	loaded, err := cache.Preload(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded)
	assert.Equal(t, 2, cache.Len())
	assert.Len(t, logger.warns, 1)

	all := NewSchemaCache(reg.client(t))
	loaded, err = all.Preload(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 5, loaded)
	assert.Equal(t, 3, all.Len())
}

func TestSchemaCache_PreloadListFailure(t *testing.T) {
	t.Parallel()
	reg := newFakeRegistry(t)
	reg.failures.Store(1)

	_, err := NewSchemaCache(reg.client(t)).Preload(context.Background(), false)
	assert.ErrorIs(t, err, ErrRegistryUnavailable)
}

func TestSchemaCache_Observer(t *testing.T) {
	t.Parallel()
	reg := newFakeRegistry(t)
	reg.add("users-value", userSchema)
	obs := &TestObserver{}
	cache := NewSchemaCache(reg.client(t)).WithObserver(obs)
	ctx := context.Background()

	_, err := cache.GetOrFetchBySubject(ctx, "users-value")
	require.NoError(t, err)
	_, err = cache.GetOrFetchBySubject(ctx, "users-value")
	require.NoError(t, err)

	ops := obs.GetOperations()
	require.Len(t, ops, 2)
	for i, wantHit := range []bool{false, true} {
		assert.Equal(t, "schema_registry", ops[i].Component)
		assert.Equal(t, "cache_get_by_subject", ops[i].Operation)
		assert.Equal(t, "users-value", ops[i].Resource)
		assert.Equal(t, wantHit, ops[i].Metadata["cache_hit"])
	}
}

func TestSchemaCache_FetchRechecksEntries(t *testing.T) {
	t.Parallel()
	reg := newFakeRegistry(t)
	id := reg.add("users-value", userSchema)
	cache := NewSchemaCache(reg.client(t))
	ctx := context.Background()

	schema, err := cache.GetOrFetchBySubject(ctx, "users-value")
	require.NoError(t, err)

	// a caller that missed just before the first fetch finished joins an
	// empty in-flight group and must not go to the registry again
	byID, err := cache.fetchByID(ctx, id)
	require.NoError(t, err)
	assert.Same(t, schema, byID)

	bySubject, err := cache.fetchBySubject(ctx, "users-value")
	require.NoError(t, err)
	assert.Same(t, schema, bySubject)

	byVersion, err := cache.fetchByVersion(ctx, subjectVersion{subject: "users-value", version: 1})
	require.NoError(t, err)
	assert.Same(t, schema, byVersion)

	assert.EqualValues(t, 1, reg.hitCount("GET", "/subjects/users-value/versions/latest"))
	assert.Zero(t, reg.hitCount("GET", "/schemas/ids/1"))
	assert.Zero(t, reg.hitCount("GET", "/subjects/users-value/versions/1"))
}

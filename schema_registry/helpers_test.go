package schema_registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pleszczy/kafka-avro/observability"
)

const userSchema = `{"type":"record","name":"User","namespace":"com.acme","fields":[{"name":"name","type":"string"},{"name":"age","type":"int"}]}`

// fakeRegistry is an in-memory Confluent Schema Registry served over httptest.
type fakeRegistry struct {
	t      *testing.T
	server *httptest.Server

	mu       sync.Mutex
	nextID   int
	schemas  map[int]string
	subjects map[string][]int // subject -> ids, index+1 is the version

	hits     map[string]*atomic.Int64
	hitsMu   sync.Mutex
	failures atomic.Int64 // remaining requests answered with 503
	gate     chan struct{}
}

func newFakeRegistry(t *testing.T) *fakeRegistry {
	t.Helper()
	f := &fakeRegistry{
		t:        t,
		nextID:   1,
		schemas:  make(map[int]string),
		subjects: make(map[string][]int),
		hits:     make(map[string]*atomic.Int64),
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.serveHTTP))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeRegistry) client(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient(Config{URL: f.server.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

// add registers definition under subject directly and returns its id.
func (f *fakeRegistry) add(subject, definition string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addLocked(subject, definition)
}

func (f *fakeRegistry) addLocked(subject, definition string) int {
	for id, def := range f.schemas {
		if def == definition {
			for _, existing := range f.subjects[subject] {
				if existing == id {
					return id
				}
			}
			f.subjects[subject] = append(f.subjects[subject], id)
			return id
		}
	}
	id := f.nextID
	f.nextID++
	f.schemas[id] = definition
	f.subjects[subject] = append(f.subjects[subject], id)
	return id
}

// hitCount returns the number of requests received for method+path.
func (f *fakeRegistry) hitCount(method, path string) int64 {
	f.hitsMu.Lock()
	defer f.hitsMu.Unlock()
	if c, ok := f.hits[method+" "+path]; ok {
		return c.Load()
	}
	return 0
}

func (f *fakeRegistry) countHit(r *http.Request) {
	f.hitsMu.Lock()
	c, ok := f.hits[r.Method+" "+r.URL.Path]
	if !ok {
		c = &atomic.Int64{}
		f.hits[r.Method+" "+r.URL.Path] = c
	}
	f.hitsMu.Unlock()
	c.Add(1)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func notFound(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, http.StatusNotFound, map[string]interface{}{"error_code": code, "message": msg})
}

func (f *fakeRegistry) serveHTTP(w http.ResponseWriter, r *http.Request) {
	f.countHit(r)

	if f.gate != nil {
		<-f.gate
	}
	if f.failures.Load() > 0 {
		f.failures.Add(-1)
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"error_code": 50003, "message": "backend down"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case len(parts) == 3 && parts[0] == "schemas" && parts[1] == "ids":
		id, _ := strconv.Atoi(parts[2])
		def, ok := f.schemas[id]
		if !ok {
			notFound(w, 40403, "Schema not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"schema": def})

	case len(parts) == 1 && parts[0] == "subjects":
		subjects := make([]string, 0, len(f.subjects))
		for s := range f.subjects {
			subjects = append(subjects, s)
		}
		writeJSON(w, http.StatusOK, subjects)

	case len(parts) == 3 && parts[0] == "subjects" && parts[2] == "versions" && r.Method == http.MethodPost:
		var body struct {
			Schema string `json:"schema"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Schema == "" {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{"error_code": 42201, "message": "Invalid schema"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"id": f.addLocked(parts[1], body.Schema)})

	case len(parts) == 3 && parts[0] == "subjects" && parts[2] == "versions":
		ids, ok := f.subjects[parts[1]]
		if !ok {
			notFound(w, 40401, "Subject not found")
			return
		}
		versions := make([]int, len(ids))
		for i := range ids {
			versions[i] = i + 1
		}
		writeJSON(w, http.StatusOK, versions)

	case len(parts) == 4 && parts[0] == "subjects" && parts[2] == "versions":
		ids, ok := f.subjects[parts[1]]
		if !ok {
			notFound(w, 40401, "Subject not found")
			return
		}
		version := len(ids)
		if parts[3] != "latest" {
			version, _ = strconv.Atoi(parts[3])
		}
		if version < 1 || version > len(ids) {
			notFound(w, 40402, "Version not found")
			return
		}
		id := ids[version-1]
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"subject": parts[1], "id": id, "version": version, "schema": f.schemas[id],
		})

	case len(parts) == 5 && parts[0] == "compatibility":
		writeJSON(w, http.StatusOK, map[string]interface{}{"is_compatible": true})

	default:
		notFound(w, 404, "not found")
	}
}

type captureLogger struct {
	mu     sync.Mutex
	infos  []string
	warns  []string
	errors []string
}

func (c *captureLogger) InfoWithContext(_ context.Context, msg string, _ error, _ ...map[string]interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.infos = append(c.infos, msg)
}

func (c *captureLogger) WarnWithContext(_ context.Context, msg string, _ error, _ ...map[string]interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warns = append(c.warns, msg)
}

func (c *captureLogger) ErrorWithContext(_ context.Context, msg string, _ error, _ ...map[string]interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors = append(c.errors, msg)
}

// TestObserver records every operation it sees.
type TestObserver struct {
	mu         sync.Mutex
	operations []observability.OperationContext
}

func (t *TestObserver) ObserveOperation(ctx observability.OperationContext) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.operations = append(t.operations, ctx)
}

func (t *TestObserver) GetOperations() []observability.OperationContext {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]observability.OperationContext, len(t.operations))
	copy(out, t.operations)
	return out
}

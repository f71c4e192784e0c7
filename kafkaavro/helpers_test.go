package kafkaavro

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pleszczy/kafka-avro/kafka"
	"github.com/pleszczy/kafka-avro/logger"
	"github.com/pleszczy/kafka-avro/metrics"
	"github.com/pleszczy/kafka-avro/schema_registry"
)

const orderSchema = `{"type":"record","name":"Order","namespace":"com.acme","fields":[{"name":"id","type":"string"},{"name":"amount","type":"long"}]}`

const orderSchemaV2 = `{"type":"record","name":"Order","namespace":"com.acme","fields":[{"name":"id","type":"string"},{"name":"amount","type":"long"},{"name":"note","type":"string","default":""}]}`

// registryStub is a minimal in-memory schema registry.
type registryStub struct {
	server *httptest.Server

	mu       sync.Mutex
	nextID   int
	schemas  map[int]string
	subjects map[string][]int
	requests []string
}

func newRegistryStub(t *testing.T) *registryStub {
	t.Helper()
	r := &registryStub{
		nextID:   1,
		schemas:  map[int]string{},
		subjects: map[string][]int{},
	}
	r.server = httptest.NewServer(http.HandlerFunc(r.serveHTTP))
	t.Cleanup(r.server.Close)
	return r
}

func (r *registryStub) add(subject, definition string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addLocked(subject, definition)
}

func (r *registryStub) addLocked(subject, definition string) int {
	id := 0
	for existing, def := range r.schemas {
		if def == definition {
			id = existing
		}
	}
	if id == 0 {
		id = r.nextID
		r.nextID++
		r.schemas[id] = definition
	}
	for _, existing := range r.subjects[subject] {
		if existing == id {
			return id
		}
	}
	r.subjects[subject] = append(r.subjects[subject], id)
	return id
}

func (r *registryStub) seen(request string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, req := range r.requests {
		if req == request {
			n++
		}
	}
	return n
}

func (r *registryStub) serveHTTP(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req.Method+" "+req.URL.Path)

	w.Header().Set("Content-Type", "application/vnd.schemaregistry.v1+json")
	parts := strings.Split(strings.Trim(req.URL.Path, "/"), "/")

	switch {
	case req.Method == http.MethodGet && len(parts) == 1 && parts[0] == "subjects":
		names := make([]string, 0, len(r.subjects))
		for s := range r.subjects {
			names = append(names, s)
		}
		sort.Strings(names)
		writeJSON(w, names)

	case req.Method == http.MethodGet && len(parts) == 3 && parts[0] == "schemas":
		id, _ := strconv.Atoi(parts[2])
		def, ok := r.schemas[id]
		if !ok {
			notFound(w, 40403, "Schema not found")
			return
		}
		writeJSON(w, map[string]interface{}{"schema": def})

	case req.Method == http.MethodGet && len(parts) == 3 && parts[0] == "subjects":
		ids, ok := r.subjects[parts[1]]
		if !ok {
			notFound(w, 40401, "Subject not found")
			return
		}
		versions := make([]int, len(ids))
		for i := range ids {
			versions[i] = i + 1
		}
		writeJSON(w, versions)

	case req.Method == http.MethodGet && len(parts) == 4 && parts[0] == "subjects":
		ids, ok := r.subjects[parts[1]]
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
		writeJSON(w, map[string]interface{}{
			"subject": parts[1],
			"version": version,
			"id":      id,
			"schema":  r.schemas[id],
		})

	case req.Method == http.MethodPost && len(parts) == 3 && parts[0] == "subjects":
		var body struct {
			Schema string `json:"schema"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		writeJSON(w, map[string]int{"id": r.addLocked(parts[1], body.Schema)})

	default:
		notFound(w, 40400, "Not found")
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	_ = json.NewEncoder(w).Encode(v)
}

func notFound(w http.ResponseWriter, code int, msg string) {
	w.WriteHeader(http.StatusNotFound)
	writeJSON(w, map[string]interface{}{"error_code": code, "message": msg})
}

func testConfig(registryURL string) Config {
	return Config{
		SchemaRegistry: schema_registry.Config{URL: registryURL},
		Resolver:       schema_registry.ResolverConfig{RequireSchema: true},
		Kafka:          kafka.Config{Brokers: []string{"localhost:9092"}},
		Logger:         logger.Config{Level: logger.Error},
		Metrics: metrics.Config{
			SystemMetricsAddress:      metrics.Ptr(""),
			ApplicationMetricsAddress: metrics.Ptr(""),
		},
	}
}

func newTestKafkaAvro(t *testing.T, cfg Config) (*KafkaAvro, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	ka, err := newKafkaAvro(cfg, logger.NewFromZap(zap.New(core), false))
	if err != nil {
		t.Fatalf("new kafka-avro: %v", err)
	}
	return ka, logs
}

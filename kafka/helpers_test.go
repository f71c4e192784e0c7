package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pleszczy/kafka-avro/logger"
	"github.com/pleszczy/kafka-avro/observability"
	"github.com/pleszczy/kafka-avro/schema_registry"
)

// fakeWriter records written messages instead of talking to a broker.
type fakeWriter struct {
	mu      sync.Mutex
	written []kafka.Message
	err     error
	closed  bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.written = append(w.written, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *fakeWriter) messages() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.written...)
}

// fakeReader serves messages pushed onto msgs and returns io.EOF once closed.
type fakeReader struct {
	msgs      chan kafka.Message
	done      chan struct{}
	closeOnce sync.Once

	mu        sync.Mutex
	committed []kafka.Message
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	r := &fakeReader{
		msgs: make(chan kafka.Message, len(msgs)+10),
		done: make(chan struct{}),
	}
	for _, m := range msgs {
		r.msgs <- m
	}
	return r
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.msgs:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	case <-r.done:
		return kafka.Message{}, io.EOF
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error {
	r.closeOnce.Do(func() { close(r.done) })
	return nil
}

func (r *fakeReader) commits() []kafka.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]kafka.Message(nil), r.committed...)
}

type encodeCall struct {
	topic string
	value any
	isKey bool
}

// fakeEncoder frames fmt.Sprint(value) under schema id 1, or id 2 for keys.
type fakeEncoder struct {
	mu    sync.Mutex
	calls []encodeCall
	err   error
}

func (e *fakeEncoder) Encode(_ context.Context, topic string, value any, isKey bool) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, encodeCall{topic: topic, value: value, isKey: isKey})
	if e.err != nil {
		return nil, e.err
	}
	id := 1
	if isKey {
		id = 2
	}
	return append(schema_registry.EncodeSchemaID(id), []byte(fmt.Sprint(value))...), nil
}

// fakeDecoder reads the wire header and returns the payload as a string.
// Schema id 99 is reported as unknown.
type fakeDecoder struct{}

const unknownSchemaID = 99

func (fakeDecoder) Decode(_ context.Context, data []byte) (*schema_registry.Schema, any, error) {
	id, payload, err := schema_registry.DecodeSchemaID(data)
	if err != nil {
		return nil, nil, err
	}
	if id == unknownSchemaID {
		return nil, nil, fmt.Errorf("schema id %d: %w", id, schema_registry.ErrSchemaNotFound)
	}
	return &schema_registry.Schema{ID: id, Subject: fmt.Sprintf("subject-%d", id)}, string(payload), nil
}

func (d fakeDecoder) DecodeInto(ctx context.Context, data []byte, target any) (*schema_registry.Schema, error) {
	schema, value, err := d.Decode(ctx, data)
	if err != nil {
		return nil, err
	}
	s, ok := target.(*string)
	if !ok {
		return nil, errors.New("target must be *string")
	}
	*s = value.(string)
	return schema, nil
}

type traceKey struct{}

// fakePropagator writes the context's trace value into a "traceparent"
// header and restores it on the way back.
type fakePropagator struct{}

func (fakePropagator) GetCarrier(ctx context.Context) map[string]string {
	if v, ok := ctx.Value(traceKey{}).(string); ok {
		return map[string]string{"traceparent": v}
	}
	return map[string]string{}
}

func (fakePropagator) SetCarrierOnContext(ctx context.Context, carrier map[string]string) context.Context {
	if v, ok := carrier["traceparent"]; ok {
		return context.WithValue(ctx, traceKey{}, v)
	}
	return ctx
}

// TestObserver collects observed operations.
type TestObserver struct {
	mu         sync.Mutex
	operations []observability.OperationContext
}

func (t *TestObserver) ObserveOperation(ctx observability.OperationContext) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.operations = append(t.operations, ctx)
}

func (t *TestObserver) GetOperationsByType(operation string) []observability.OperationContext {
	t.mu.Lock()
	defer t.mu.Unlock()
	var result []observability.OperationContext
	for _, op := range t.operations {
		if op.Operation == operation {
			result = append(result, op)
		}
	}
	return result
}

// newObservedLogger returns a logger whose entries can be inspected.
func newObservedLogger() (*logger.LoggerClient, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return logger.NewFromZap(zap.New(core), false), logs
}

func framed(id int, payload string) []byte {
	return append(schema_registry.EncodeSchemaID(id), []byte(payload)...)
}

func newTestProducer(encoder Encoder) (*Producer, *fakeWriter) {
	w := &fakeWriter{}
	return &Producer{cfg: Config{Brokers: []string{"localhost:9092"}}.withDefaults(), writer: w, encoder: encoder}, w
}

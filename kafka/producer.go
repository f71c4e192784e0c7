package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// Produce encodes value and key for topic and writes one message.
// This method is thread-safe and respects context cancellation.
//
// Parameters:
//   - ctx: Context for cancellation control and trace propagation
//   - topic: Destination topic; also selects the registry subject
//   - value: Message value; nil produces a tombstone
//   - key: Message key; []byte and string keys are written as-is, other
//     keys are encoded under the key subject
//   - headers: Optional message headers
//
// When a Propagator is configured, the trace context of ctx is written into
// the headers before the caller's headers, so the caller can override it.
//
// Example:
//
//	err := producer.Produce(ctx, "users", User{Name: "ada", Age: 36}, "user-1")
//	if errors.Is(err, schema_registry.ErrSchemaRequiredButMissing) {
//	    // register the schema or disable strict mode
//	}
func (p *Producer) Produce(ctx context.Context, topic string, value, key any, headers ...map[string]string) error {
	var h map[string]string
	if len(headers) > 0 {
		h = headers[0]
	}
	return p.ProduceRecords(ctx, Record{Topic: topic, Key: key, Value: value, Headers: h})
}

// ProduceRecords encodes every record and writes them in one batch. Nothing
// is written when any record fails to encode.
func (p *Producer) ProduceRecords(ctx context.Context, records ...Record) error {
	start := time.Now()
	var produceErr error
	var size int64

	defer func() {
		p.observeOperation("produce", recordsResource(records), "", time.Since(start), produceErr, size)
	}()

	if err := ctx.Err(); err != nil {
		produceErr = err
		return produceErr
	}
	if len(records) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(records))
	for i := range records {
		msg, err := p.buildMessage(ctx, records[i])
		if err != nil {
			produceErr = err
			return produceErr
		}
		size += int64(len(msg.Value))
		msgs = append(msgs, msg)
	}

	p.mu.RLock()
	writer := p.writer
	p.mu.RUnlock()

	if writer == nil {
		produceErr = ErrWriterNotInitialized
		return produceErr
	}

	if err := writer.WriteMessages(ctx, msgs...); err != nil {
		produceErr = fmt.Errorf("failed to write %d message(s): %w", len(msgs), err)
		return produceErr
	}
	return nil
}

// buildMessage encodes one record into a kafka-go message.
func (p *Producer) buildMessage(ctx context.Context, r Record) (kafka.Message, error) {
	if r.Topic == "" {
		return kafka.Message{}, ErrTopicRequired
	}

	value, err := p.encode(ctx, r.Topic, r.Value, false)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to encode value for topic %s: %w", r.Topic, err)
	}
	key, err := p.encode(ctx, r.Topic, r.Key, true)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to encode key for topic %s: %w", r.Topic, err)
	}

	return kafka.Message{
		Topic:   r.Topic,
		Key:     key,
		Value:   value,
		Headers: p.headers(ctx, r.Headers),
		Time:    r.Time,
	}, nil
}

// encode writes nil, []byte and string payloads as-is and sends everything
// else through the encoder.
func (p *Producer) encode(ctx context.Context, topic string, v any, isKey bool) ([]byte, error) {
	switch raw := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		return raw, nil
	case string:
		if isKey {
			return []byte(raw), nil
		}
	}
	if p.encoder == nil {
		return nil, fmt.Errorf("%w: cannot produce %T", ErrEncoderNotConfigured, v)
	}
	return p.encoder.Encode(ctx, topic, v, isKey)
}

func (p *Producer) headers(ctx context.Context, custom map[string]string) []kafka.Header {
	var carrier map[string]string
	if p.propagator != nil {
		carrier = p.propagator.GetCarrier(ctx)
	}
	if len(carrier) == 0 && len(custom) == 0 {
		return nil
	}

	merged := make(map[string]string, len(carrier)+len(custom))
	for k, v := range carrier {
		merged[k] = v
	}
	for k, v := range custom {
		merged[k] = v
	}

	out := make([]kafka.Header, 0, len(merged))
	for k, v := range merged {
		out = append(out, kafka.Header{Key: k, Value: []byte(v)})
	}
	return out
}

// recordsResource names the topic of a batch, or "" when the batch spans
// several topics.
func recordsResource(records []Record) string {
	if len(records) == 0 {
		return ""
	}
	topic := records[0].Topic
	for _, r := range records[1:] {
		if r.Topic != topic {
			return ""
		}
	}
	return topic
}

// GracefulShutdown flushes pending messages and closes the writer.
// Produce calls made afterwards fail with ErrWriterNotInitialized.
func (p *Producer) GracefulShutdown() {
	p.mu.Lock()
	writer := p.writer
	p.writer = nil
	p.mu.Unlock()

	if writer == nil {
		return
	}

	p.logInfo(context.Background(), "Closing Kafka producer", nil)
	if err := writer.Close(); err != nil {
		p.logWarn(context.Background(), "Failed to close Kafka writer", err, nil)
	}
}

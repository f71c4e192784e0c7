package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/pleszczy/kafka-avro/schema_registry"
)

// Encoder turns a value into registry-framed bytes for a topic.
// *schema_registry.Serde implements it.
type Encoder interface {
	Encode(ctx context.Context, topic string, value any, isKey bool) ([]byte, error)
}

// Decoder turns registry-framed bytes back into values.
// *schema_registry.Serde implements it.
type Decoder interface {
	Decode(ctx context.Context, data []byte) (*schema_registry.Schema, any, error)
	DecodeInto(ctx context.Context, data []byte, target any) (*schema_registry.Schema, error)
}

// Propagator moves trace context in and out of message headers.
// *tracer.TracerClient implements it.
type Propagator interface {
	GetCarrier(ctx context.Context) map[string]string
	SetCarrierOnContext(ctx context.Context, carrier map[string]string) context.Context
}

// MessageProducer is implemented by *Producer.
type MessageProducer interface {
	// Produce encodes value (and key, unless it is raw) and writes one
	// message to topic. Optional headers are added to the message.
	Produce(ctx context.Context, topic string, value, key any, headers ...map[string]string) error

	// ProduceRecords encodes and writes several messages in one call.
	ProduceRecords(ctx context.Context, records ...Record) error

	// GracefulShutdown flushes pending writes and closes the writer.
	GracefulShutdown()
}

// MessageConsumer is implemented by *Consumer.
type MessageConsumer interface {
	// Consume starts consuming messages with a single worker.
	Consume(ctx context.Context, wg *sync.WaitGroup) <-chan Message

	// ConsumeParallel starts consuming messages with multiple concurrent workers.
	ConsumeParallel(ctx context.Context, wg *sync.WaitGroup, numWorkers int) <-chan Message

	// GracefulShutdown stops the workers and closes the reader.
	GracefulShutdown()
}

// Record is one outbound message for ProduceRecords.
type Record struct {
	Topic   string
	Key     any
	Value   any
	Headers map[string]string

	// Time is the message timestamp. Zero means the time of the write.
	Time time.Time
}

// Message is a consumed message with its decoded payload.
type Message interface {
	// CommitMsg commits the message, informing Kafka that the message
	// has been successfully processed.
	CommitMsg() error

	// Topic returns the topic the message was read from.
	Topic() string

	// Body returns the raw message value, including the wire header.
	Body() []byte

	// BodyAs decodes the message value into target using the writer schema.
	BodyAs(target any) error

	// Value returns the decoded value, or nil when decoding failed.
	Value() any

	// Schema returns the writer schema of the value, or nil when decoding failed.
	Schema() *schema_registry.Schema

	// DecodeErr returns the error from decoding the value, if any.
	DecodeErr() error

	// Key returns the raw message key.
	Key() []byte

	// DecodedKey returns the decoded key when the key was registry-framed.
	DecodedKey() any

	// Header returns the headers associated with the message.
	Header() map[string]string

	// Partition returns the partition this message came from.
	Partition() int

	// Offset returns the offset of this message.
	Offset() int64

	// Time returns the message timestamp.
	Time() time.Time

	// Context carries the trace context extracted from the headers.
	Context() context.Context
}

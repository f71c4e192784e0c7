// Package kafka produces and consumes schema-registry framed Avro messages
// over github.com/segmentio/kafka-go.
//
// # Architecture
//
// The package follows the "accept interfaces, return structs" Go idiom:
//   - *Producer: a topic-less kafka-go Writer; every message names its topic
//   - *Consumer: a kafka-go Reader with a pool of fetch-and-decode workers
//   - Encoder / Decoder: the serde contract, implemented by *schema_registry.Serde
//   - Propagator: trace headers, implemented by *tracer.TracerClient
//   - MessageProducer / MessageConsumer / Message: interfaces for callers
//   - FXModule (producer) and ConsumerModule for dependency injection
//
// # Producing
//
//	producer, err := kafka.NewProducer(kafka.Config{
//		Brokers: []string{"localhost:9092"},
//		Producer: kafka.ProducerConfig{CompressionCodec: "snappy"},
//	}, serde)
//	if err != nil {
//		return err
//	}
//	defer producer.GracefulShutdown()
//
//	err = producer.Produce(ctx, "users", User{Name: "ada", Age: 36}, "user-1")
//
// Values are always encoded through the Encoder, with the topic selecting the
// registry subject. Keys given as []byte or string are written unchanged;
// other keys are encoded under the key subject. A nil value produces a
// tombstone.
//
// # Consuming
//
//	consumer, err := kafka.NewConsumer(kafka.Config{
//		Brokers: []string{"localhost:9092"},
//		Consumer: kafka.ConsumerConfig{
//			Topics:  []string{"users"},
//			GroupID: "user-projector",
//		},
//	}, serde)
//	if err != nil {
//		return err
//	}
//	defer consumer.GracefulShutdown()
//
//	wg := &sync.WaitGroup{}
//	for msg := range consumer.ConsumeParallel(ctx, wg, 4) {
//		if msg.DecodeErr() != nil {
//			continue
//		}
//		fmt.Println(msg.Schema().Subject, msg.Value())
//		_ = msg.CommitMsg()
//	}
//
// Each value is decoded with its writer schema, looked up by the id in the
// wire header. A message that fails to decode is still delivered with
// DecodeErr set, so the caller chooses whether to skip, commit or dead-letter
// it. Keys are decoded only when they carry the wire header.
//
// # Error Handling
//
// TranslateError maps kafka-go errors (broker error codes, network and
// context errors) onto sentinels such as ErrTopicNotFound or
// ErrRequestTimedOut. IsRetryableError, IsPermanentError and
// IsAuthenticationError classify them.
//
// # Observability
//
// With an observability.Observer attached, the package reports "produce",
// "consume" and "decode" operations under the "kafka" component, with the
// topic as resource, the partition as sub-resource and the payload size.
//
// # Security
//
// TLS (CA bundle, client certificate) and SASL (PLAIN, SCRAM-SHA-256,
// SCRAM-SHA-512) are configured through Config.TLS and Config.SASL and apply
// to both the writer transport and the reader dialer.
package kafka

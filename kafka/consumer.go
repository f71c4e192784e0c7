package kafka

import (
	"context"
	"errors"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/pleszczy/kafka-avro/schema_registry"
	"github.com/segmentio/kafka-go"
)

// ConsumerMessage implements the Message interface and wraps a Kafka message.
type ConsumerMessage struct {
	ctx       context.Context
	message   kafka.Message
	committer messageReader
	decoder   Decoder

	schema     *schema_registry.Schema
	value      any
	decodedKey any
	decodeErr  error
}

// Consume starts consuming messages with a single worker.
//
// Example:
//
//	wg := &sync.WaitGroup{}
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//
//	for msg := range consumer.Consume(ctx, wg) {
//	    if err := msg.DecodeErr(); err != nil {
//	        log.Printf("skipping undecodable message: %v", err)
//	        continue
//	    }
//	    var user User
//	    if err := msg.BodyAs(&user); err != nil {
//	        continue
//	    }
//	    _ = msg.CommitMsg()
//	}
func (c *Consumer) Consume(ctx context.Context, wg *sync.WaitGroup) <-chan Message {
	return c.ConsumeParallel(ctx, wg, 1)
}

// ConsumeParallel starts numWorkers goroutines that fetch and decode
// messages. numWorkers < 1 uses the configured worker count. The returned
// channel is closed once every worker has stopped.
func (c *Consumer) ConsumeParallel(ctx context.Context, wg *sync.WaitGroup, numWorkers int) <-chan Message {
	if numWorkers < 1 {
		numWorkers = c.cfg.Consumer.Workers
	}
	if numWorkers < 1 {
		numWorkers = 1
	}

	outChan := make(chan Message, 100*numWorkers)

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(outChan)

		workerWg := &sync.WaitGroup{}
		for i := 0; i < numWorkers; i++ {
			workerWg.Add(1)
			go func(workerID int) {
				defer workerWg.Done()
				c.consumeWorker(ctx, outChan, workerID)
			}(i)
		}

		workerWg.Wait()
	}()

	return outChan
}

// consumeWorker is a worker goroutine that fetches, decodes and sends messages
func (c *Consumer) consumeWorker(ctx context.Context, outChan chan<- Message, workerID int) {
	for {
		select {
		case <-c.shutdownSignal:
			c.logInfo(ctx, "Stopping consumer worker due to shutdown signal", map[string]interface{}{
				"worker_id": workerID,
			})
			return
		case <-ctx.Done():
			c.logInfo(ctx, "Stopping consumer worker due to context cancellation", map[string]interface{}{
				"worker_id": workerID,
			})
			return
		default:
		}

		c.mu.RLock()
		reader := c.reader
		c.mu.RUnlock()

		if reader == nil {
			c.logError(ctx, "Kafka reader is not initialized", ErrReaderNotInitialized, map[string]interface{}{
				"worker_id": workerID,
			})
			return
		}

		start := time.Now()
		msg, err := reader.FetchMessage(ctx)
		c.observeOperation("consume", msg.Topic, strconv.Itoa(msg.Partition), time.Since(start), err, int64(len(msg.Value)))

		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.logInfo(ctx, "Consumer worker context cancelled", map[string]interface{}{
					"worker_id": workerID,
				})
				return
			}
			if errors.Is(err, io.EOF) || errors.Is(err, kafka.ErrGroupClosed) {
				c.logInfo(ctx, "Consumer worker stopped, reader closed", map[string]interface{}{
					"worker_id": workerID,
				})
				return
			}
			c.logError(ctx, "Worker failed to fetch message", err, map[string]interface{}{
				"worker_id": workerID,
			})
			continue
		}

		select {
		case outChan <- c.newMessage(ctx, reader, msg):
		case <-ctx.Done():
			return
		case <-c.shutdownSignal:
			return
		}
	}
}

// newMessage restores the trace context and decodes the value and, when it
// is registry-framed, the key. Decode failures are recorded on the message
// rather than dropping it, so the caller decides whether to commit.
func (c *Consumer) newMessage(ctx context.Context, reader messageReader, msg kafka.Message) *ConsumerMessage {
	cm := &ConsumerMessage{
		ctx:       ctx,
		message:   msg,
		committer: reader,
		decoder:   c.decoder,
	}

	if c.propagator != nil && len(msg.Headers) > 0 {
		cm.ctx = c.propagator.SetCarrierOnContext(ctx, cm.Header())
	}

	if c.decoder == nil {
		return cm
	}

	if len(msg.Value) > 0 {
		start := time.Now()
		schema, value, err := c.decoder.Decode(cm.ctx, msg.Value)
		c.observeOperation("decode", msg.Topic, strconv.Itoa(msg.Partition), time.Since(start), err, int64(len(msg.Value)))
		if err != nil {
			cm.decodeErr = err
			c.logWarn(cm.ctx, "Failed to decode message value", err, map[string]interface{}{
				"topic":     msg.Topic,
				"partition": msg.Partition,
				"offset":    msg.Offset,
			})
		} else {
			cm.schema = schema
			cm.value = value
		}
	}

	if schema_registry.IsWireFormat(msg.Key) {
		_, key, err := c.decoder.Decode(cm.ctx, msg.Key)
		if err != nil {
			c.logWarn(cm.ctx, "Failed to decode message key", err, map[string]interface{}{
				"topic":     msg.Topic,
				"partition": msg.Partition,
				"offset":    msg.Offset,
			})
		} else {
			cm.decodedKey = key
		}
	}
	return cm
}

// GracefulShutdown stops the workers and closes the reader.
// Any close error is logged but not propagated.
func (c *Consumer) GracefulShutdown() {
	c.closeShutdownOnce.Do(func() {
		close(c.shutdownSignal)
	})

	c.mu.Lock()
	reader := c.reader
	c.reader = nil
	c.mu.Unlock()

	if reader == nil {
		return
	}

	c.logInfo(context.Background(), "Closing Kafka consumer", nil)
	if err := reader.Close(); err != nil {
		c.logWarn(context.Background(), "Failed to close Kafka reader", err, nil)
	}
}

// CommitMsg commits the message, informing Kafka that the message
// has been successfully processed.
func (cm *ConsumerMessage) CommitMsg() error {
	return cm.committer.CommitMessages(context.Background(), cm.message)
}

// Topic returns the topic the message was read from.
func (cm *ConsumerMessage) Topic() string {
	return cm.message.Topic
}

// Body returns the raw message value.
func (cm *ConsumerMessage) Body() []byte {
	return cm.message.Value
}

// BodyAs decodes the message value into target with the writer schema.
//
//	var user User
//	if err := msg.BodyAs(&user); err != nil {
//	    return err
//	}
func (cm *ConsumerMessage) BodyAs(target any) error {
	if cm.decoder == nil {
		return ErrDecoderNotConfigured
	}
	_, err := cm.decoder.DecodeInto(cm.ctx, cm.message.Value, target)
	return err
}

// Value returns the decoded value.
func (cm *ConsumerMessage) Value() any {
	return cm.value
}

// Schema returns the writer schema of the value.
func (cm *ConsumerMessage) Schema() *schema_registry.Schema {
	return cm.schema
}

// DecodeErr returns the value decoding error, if any.
func (cm *ConsumerMessage) DecodeErr() error {
	return cm.decodeErr
}

// Key returns the raw message key.
func (cm *ConsumerMessage) Key() []byte {
	return cm.message.Key
}

// DecodedKey returns the decoded key, or nil for raw keys.
func (cm *ConsumerMessage) DecodedKey() any {
	return cm.decodedKey
}

// Header returns the headers associated with the message.
func (cm *ConsumerMessage) Header() map[string]string {
	headers := make(map[string]string, len(cm.message.Headers))
	for _, h := range cm.message.Headers {
		headers[h.Key] = string(h.Value)
	}
	return headers
}

// Partition returns the partition this message came from.
func (cm *ConsumerMessage) Partition() int {
	return cm.message.Partition
}

// Offset returns the offset of this message.
func (cm *ConsumerMessage) Offset() int64 {
	return cm.message.Offset
}

// Time returns the message timestamp.
func (cm *ConsumerMessage) Time() time.Time {
	return cm.message.Time
}

// Context returns the context carrying the producer's trace.
func (cm *ConsumerMessage) Context() context.Context {
	return cm.ctx
}

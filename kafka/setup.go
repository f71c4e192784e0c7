package kafka

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/pleszczy/kafka-avro/observability"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"
)

// messageWriter is the part of *kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// messageReader is the part of *kafka.Reader the consumer uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer writes Avro-encoded messages to any topic.
//
// Producer implements the MessageProducer interface.
type Producer struct {
	cfg Config

	writer     messageWriter
	encoder    Encoder
	propagator Propagator

	// observer provides optional observability hooks for tracking operations
	observer observability.Observer

	// logger provides optional logging for lifecycle and background operations
	logger Logger

	// mu protects writer, which is set to nil on shutdown
	mu sync.RWMutex
}

// Consumer reads messages and decodes them through the schema registry.
//
// Consumer implements the MessageConsumer interface.
type Consumer struct {
	cfg Config

	reader     messageReader
	decoder    Decoder
	propagator Propagator

	observer observability.Observer
	logger   Logger

	mu sync.RWMutex

	// shutdownSignal is closed when the consumer is being shut down
	shutdownSignal    chan struct{}
	closeShutdownOnce sync.Once
}

// NewProducer creates a producer from cfg. Values and non-raw keys are
// encoded with encoder; a nil encoder limits the producer to []byte and
// string payloads.
//
// Example:
//
//	producer, err := kafka.NewProducer(cfg, serde)
//	if err != nil {
//		return err
//	}
//	defer producer.GracefulShutdown()
func NewProducer(cfg Config, encoder Encoder) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrNoBrokers
	}
	cfg = cfg.withDefaults()

	transport, err := createTransport(cfg)
	if err != nil {
		return nil, err
	}

	p := &Producer{cfg: cfg, encoder: encoder}
	p.writer = createWriter(cfg, transport, createErrorLogger(func() Logger { return p.logger }))
	return p, nil
}

// NewConsumer creates a consumer for cfg.Consumer.Topics. A nil decoder
// delivers raw messages only.
func NewConsumer(cfg Config, decoder Decoder) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrNoBrokers
	}
	if len(cfg.Consumer.Topics) == 0 {
		return nil, ErrNoTopics
	}
	if len(cfg.Consumer.Topics) > 1 && cfg.Consumer.GroupID == "" {
		return nil, ErrGroupIDRequired
	}
	cfg = cfg.withDefaults()

	dialer, err := createDialer(cfg)
	if err != nil {
		return nil, err
	}

	c := newConsumer(cfg, nil, decoder)
	readerConfig := createReaderConfig(cfg, dialer, createErrorLogger(func() Logger { return c.logger }))
	if err := readerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid consumer config: %w", err)
	}
	c.reader = kafka.NewReader(readerConfig)
	return c, nil
}

func newConsumer(cfg Config, reader messageReader, decoder Decoder) *Consumer {
	return &Consumer{
		cfg:            cfg,
		reader:         reader,
		decoder:        decoder,
		shutdownSignal: make(chan struct{}),
	}
}

// WithObserver attaches an observer to the producer for tracking operations.
func (p *Producer) WithObserver(observer observability.Observer) *Producer {
	p.observer = observer
	return p
}

// WithLogger attaches a logger to the producer for internal logging.
func (p *Producer) WithLogger(logger Logger) *Producer {
	p.logger = logger
	return p
}

// WithPropagator injects the trace context of each Produce call into the
// message headers.
func (p *Producer) WithPropagator(propagator Propagator) *Producer {
	p.propagator = propagator
	return p
}

// WithObserver attaches an observer to the consumer for tracking operations.
func (c *Consumer) WithObserver(observer observability.Observer) *Consumer {
	c.observer = observer
	return c
}

// WithLogger attaches a logger to the consumer. Decode failures and
// worker lifecycle events are logged through it.
func (c *Consumer) WithLogger(logger Logger) *Consumer {
	c.logger = logger
	return c
}

// WithPropagator restores the trace context carried in message headers
// onto each message's Context.
func (c *Consumer) WithPropagator(propagator Propagator) *Consumer {
	c.propagator = propagator
	return c
}

func (p *Producer) logInfo(ctx context.Context, msg string, fields map[string]interface{}) {
	if p.logger != nil {
		p.logger.InfoWithContext(ctx, msg, nil, fields)
	}
}

func (p *Producer) logWarn(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if p.logger != nil {
		p.logger.WarnWithContext(ctx, msg, err, fields)
	}
}

func (c *Consumer) logInfo(ctx context.Context, msg string, fields map[string]interface{}) {
	if c.logger != nil {
		c.logger.InfoWithContext(ctx, msg, nil, fields)
	}
}

func (c *Consumer) logWarn(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if c.logger != nil {
		c.logger.WarnWithContext(ctx, msg, err, fields)
	}
}

// logError is only used for errors in background goroutines that can't be
// returned to the caller.
func (c *Consumer) logError(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if c.logger != nil {
		c.logger.ErrorWithContext(ctx, msg, err, fields)
	}
}

// createErrorLogger forwards kafka-go internal errors to the logger that is
// configured when the error happens.
func createErrorLogger(current func() Logger) kafka.LoggerFunc {
	return kafka.LoggerFunc(func(msg string, args ...interface{}) {
		l := current()
		if l == nil {
			return
		}
		formattedMsg := msg
		if len(args) > 0 {
			formattedMsg = fmt.Sprintf(msg, args...)
		}
		l.ErrorWithContext(context.Background(), "Kafka internal error", nil, map[string]interface{}{
			"error": formattedMsg,
		})
	})
}

// createTransport builds the writer transport with TLS and SASL.
func createTransport(cfg Config) (*kafka.Transport, error) {
	tlsConfig, mechanism, err := createSecurity(cfg)
	if err != nil {
		return nil, err
	}
	return &kafka.Transport{
		ClientID:    cfg.ClientID,
		DialTimeout: cfg.DialTimeout,
		TLS:         tlsConfig,
		SASL:        mechanism,
	}, nil
}

// createDialer builds the reader dialer with TLS and SASL.
func createDialer(cfg Config) (*kafka.Dialer, error) {
	tlsConfig, mechanism, err := createSecurity(cfg)
	if err != nil {
		return nil, err
	}
	return &kafka.Dialer{
		ClientID:      cfg.ClientID,
		Timeout:       cfg.DialTimeout,
		DualStack:     true,
		TLS:           tlsConfig,
		SASLMechanism: mechanism,
	}, nil
}

func createSecurity(cfg Config) (*tls.Config, sasl.Mechanism, error) {
	var tlsConfig *tls.Config
	var err error
	if cfg.TLS.Enabled {
		tlsConfig, err = createTLSConfig(cfg.TLS)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
	}

	var mechanism sasl.Mechanism
	if cfg.SASL.Enabled {
		mechanism, err = createSASLMechanism(cfg.SASL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create SASL mechanism: %w", err)
		}
	}
	return tlsConfig, mechanism, nil
}

// createWriter creates a topic-less writer; every message names its topic.
func createWriter(cfg Config, transport *kafka.Transport, errorLogger kafka.Logger) *kafka.Writer {
	pc := cfg.Producer
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		MaxAttempts:            pc.MaxAttempts,
		WriteTimeout:           pc.WriteTimeout,
		RequiredAcks:           kafka.RequiredAcks(pc.RequiredAcks),
		AllowAutoTopicCreation: pc.AllowAutoTopicCreation,
		Transport:              transport,
		ErrorLogger:            errorLogger,
		Compression:            compressionCodec(pc.CompressionCodec),
	}

	if pc.Async {
		w.Async = true
		w.BatchSize = pc.BatchSize
		w.BatchTimeout = pc.BatchTimeout
	}
	return w
}

func compressionCodec(name string) compress.Compression {
	switch strings.ToLower(name) {
	case "gzip":
		return compress.Gzip
	case "snappy":
		return compress.Snappy
	case "lz4":
		return compress.Lz4
	case "zstd":
		return compress.Zstd
	default:
		return compress.None
	}
}

// createReaderConfig creates the reader configuration. A group reader
// subscribes to every topic; a group-less reader reads one partition of the
// single configured topic.
func createReaderConfig(cfg Config, dialer *kafka.Dialer, errorLogger kafka.Logger) kafka.ReaderConfig {
	cc := cfg.Consumer
	readerConfig := kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		MinBytes:    cc.MinBytes,
		MaxBytes:    cc.MaxBytes,
		MaxWait:     cc.MaxWait,
		StartOffset: cc.StartOffset,
		Dialer:      dialer,
		ErrorLogger: errorLogger,
	}

	if cc.GroupID != "" {
		readerConfig.GroupID = cc.GroupID
		readerConfig.GroupTopics = cc.Topics
	} else {
		readerConfig.Topic = cc.Topics[0]
		readerConfig.Partition = cc.Partition
	}

	if cc.EnableAutoCommit {
		readerConfig.CommitInterval = cc.CommitInterval
	}
	return readerConfig
}

// createTLSConfig creates a TLS configuration from the provided config
func createTLSConfig(cfg TLSConfig) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec
	}

	if cfg.CACertPath != "" {
		caCert, err := os.ReadFile(cfg.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA cert: %w", err)
		}
		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA cert")
		}
		tlsConfig.RootCAs = caCertPool
	}

	if cfg.ClientCertPath != "" && cfg.ClientKeyPath != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCertPath, cfg.ClientKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load client cert: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}

// createSASLMechanism creates a SASL mechanism from the provided config
func createSASLMechanism(cfg SASLConfig) (sasl.Mechanism, error) {
	switch strings.ToUpper(cfg.Mechanism) {
	case "PLAIN":
		return plain.Mechanism{
			Username: cfg.Username,
			Password: cfg.Password,
		}, nil
	case "SCRAM-SHA-256":
		return scram.Mechanism(scram.SHA256, cfg.Username, cfg.Password)
	case "SCRAM-SHA-512":
		return scram.Mechanism(scram.SHA512, cfg.Username, cfg.Password)
	default:
		return nil, fmt.Errorf("unsupported SASL mechanism: %s", cfg.Mechanism)
	}
}

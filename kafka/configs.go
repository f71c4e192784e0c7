package kafka

import (
	"context"
	"time"
)

// Config defines the connection settings shared by producers and consumers,
// plus one section for each role.
type Config struct {
	// Brokers is a list of Kafka broker addresses
	Brokers []string `yaml:"brokers" envconfig:"KAFKA_BROKERS" required:"true"`

	// ClientID identifies this process to the brokers.
	// Default: "kafka-avro"
	ClientID string `yaml:"client_id" envconfig:"KAFKA_CLIENT_ID"`

	// DialTimeout bounds establishing a broker connection.
	// Default: 10s
	DialTimeout time.Duration `yaml:"dial_timeout" envconfig:"KAFKA_DIAL_TIMEOUT"`

	// TLS contains TLS/SSL configuration
	TLS TLSConfig `yaml:"tls" envconfig:"KAFKA_TLS"`

	// SASL contains SASL authentication configuration
	SASL SASLConfig `yaml:"sasl" envconfig:"KAFKA_SASL"`

	// Producer holds the writer settings.
	Producer ProducerConfig `yaml:"producer" envconfig:"KAFKA_PRODUCER"`

	// Consumer holds the reader settings.
	Consumer ConsumerConfig `yaml:"consumer" envconfig:"KAFKA_CONSUMER"`
}

// ProducerConfig controls the Kafka writer. The topic is chosen per message,
// so it is not part of the configuration.
type ProducerConfig struct {
	// RequiredAcks determines how many replica acknowledgments to wait for
	// Options:
	//   RequireNone (0): Don't wait for acknowledgment
	//   RequireOne (1): Wait for leader only
	//   RequireAll (-1): Wait for all in-sync replicas
	// Default: RequireAll (-1)
	RequiredAcks int `yaml:"required_acks" envconfig:"REQUIRED_ACKS"`

	// WriteTimeout is the timeout for write operations
	// Default: 10s
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`

	// Async enables fire-and-forget batching. Produce returns before the
	// broker acknowledges; failures are only logged.
	// Default: false
	Async bool `yaml:"async" envconfig:"ASYNC"`

	// BatchSize is the maximum number of messages to batch together
	// Default: 100
	BatchSize int `yaml:"batch_size" envconfig:"BATCH_SIZE"`

	// BatchTimeout is the maximum time to wait before sending a batch
	// Default: 1s
	BatchTimeout time.Duration `yaml:"batch_timeout" envconfig:"BATCH_TIMEOUT"`

	// CompressionCodec specifies the compression algorithm to use
	// Options: "" (no compression), gzip, snappy, lz4, zstd
	CompressionCodec string `yaml:"compression_codec" envconfig:"COMPRESSION_CODEC"`

	// MaxAttempts is the maximum number of attempts to deliver a message
	// Default: 10
	MaxAttempts int `yaml:"max_attempts" envconfig:"MAX_ATTEMPTS"`

	// AllowAutoTopicCreation lets the brokers create unknown topics on write.
	AllowAutoTopicCreation bool `yaml:"allow_auto_topic_creation" envconfig:"ALLOW_AUTO_TOPIC_CREATION"`
}

// ConsumerConfig controls the Kafka reader.
type ConsumerConfig struct {
	// Topics to consume. More than one topic requires a GroupID.
	Topics []string `yaml:"topics" envconfig:"TOPICS"`

	// GroupID is the consumer group ID for coordinated consumption
	GroupID string `yaml:"group_id" envconfig:"GROUP_ID"`

	// MinBytes is the minimum number of bytes to fetch in a single request
	// Default: 1 byte
	MinBytes int `yaml:"min_bytes" envconfig:"MIN_BYTES"`

	// MaxBytes is the maximum number of bytes to fetch in a single request
	// Default: 10MB
	MaxBytes int `yaml:"max_bytes" envconfig:"MAX_BYTES"`

	// MaxWait is the maximum amount of time to wait for MinBytes to become available
	// Default: 10s
	MaxWait time.Duration `yaml:"max_wait" envconfig:"MAX_WAIT"`

	// CommitInterval is how often to commit offsets automatically
	// Only used when EnableAutoCommit is true
	// Default: 1s
	CommitInterval time.Duration `yaml:"commit_interval" envconfig:"COMMIT_INTERVAL"`

	// EnableAutoCommit determines whether offsets are committed automatically.
	// When false, you must call msg.CommitMsg() manually.
	// Default: false
	EnableAutoCommit bool `yaml:"enable_auto_commit" envconfig:"ENABLE_AUTO_COMMIT"`

	// StartOffset determines where to start consuming from when there's no committed offset
	// Options: FirstOffset (-2), LastOffset (-1)
	// Default: FirstOffset
	StartOffset int64 `yaml:"start_offset" envconfig:"START_OFFSET"`

	// Partition pins a group-less reader to one partition.
	// Default: 0
	Partition int `yaml:"partition" envconfig:"PARTITION"`

	// Workers is the number of fetch goroutines used by ConsumeParallel
	// when called with numWorkers < 1.
	// Default: 1
	Workers int `yaml:"workers" envconfig:"WORKERS"`
}

// Logger is an interface that matches the logger.Logger interface.
// It provides context-aware structured logging with optional error and field parameters.
type Logger interface {
	// InfoWithContext logs an informational message with trace context.
	InfoWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})

	// WarnWithContext logs a warning message with trace context.
	WarnWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})

	// ErrorWithContext logs an error message with trace context.
	ErrorWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
}

// TLSConfig contains TLS/SSL configuration parameters.
type TLSConfig struct {
	// Enabled determines whether to use TLS/SSL for the connection
	Enabled bool `yaml:"enabled" envconfig:"ENABLED"`

	// CACertPath is the file path to the CA certificate for verifying the broker
	CACertPath string `yaml:"ca_cert_path" envconfig:"CA_CERT_PATH"`

	// ClientCertPath is the file path to the client certificate
	ClientCertPath string `yaml:"client_cert_path" envconfig:"CLIENT_CERT_PATH"`

	// ClientKeyPath is the file path to the client certificate's private key
	ClientKeyPath string `yaml:"client_key_path" envconfig:"CLIENT_KEY_PATH"`

	// InsecureSkipVerify controls whether to skip verification of the server's certificate
	// WARNING: Setting this to true is insecure and should only be used in testing
	InsecureSkipVerify bool `yaml:"insecure_skip_verify" envconfig:"INSECURE_SKIP_VERIFY"`
}

// SASLConfig contains SASL authentication configuration parameters.
type SASLConfig struct {
	// Enabled determines whether to use SASL authentication
	Enabled bool `yaml:"enabled" envconfig:"ENABLED"`

	// Mechanism specifies the SASL mechanism to use
	// Options: "PLAIN", "SCRAM-SHA-256", "SCRAM-SHA-512"
	Mechanism string `yaml:"mechanism" envconfig:"MECHANISM"`

	// Username is the SASL username
	Username string `yaml:"username" envconfig:"USERNAME"`

	// Password is the SASL password
	Password string `yaml:"password" envconfig:"PASSWORD" json:"-"` //nolint:gosec
}

// Default values for configuration
const (
	DefaultClientID       = "kafka-avro"
	DefaultDialTimeout    = 10 * time.Second
	DefaultMinBytes       = 1
	DefaultMaxBytes       = 10e6 // 10MB
	DefaultMaxWait        = 10 * time.Second
	DefaultCommitInterval = 1 * time.Second
	DefaultStartOffset    = -2 // FirstOffset
	DefaultRequiredAcks   = -1 // WaitForAll
	DefaultBatchSize      = 100
	DefaultBatchTimeout   = 1 * time.Second
	DefaultMaxAttempts    = 10
	DefaultWriteTimeout   = 10 * time.Second
	DefaultWorkers        = 1

	// Producer acknowledgment modes
	RequireNone = 0
	RequireOne  = 1
	RequireAll  = -1

	// Consumer offset modes
	FirstOffset = -2 // Start from the beginning
	LastOffset  = -1 // Start from the end
)

// withDefaults fills zero values with the package defaults.
func (c Config) withDefaults() Config {
	if c.ClientID == "" {
		c.ClientID = DefaultClientID
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = DefaultDialTimeout
	}

	p := &c.Producer
	if p.RequiredAcks == 0 {
		p.RequiredAcks = DefaultRequiredAcks
	}
	if p.WriteTimeout == 0 {
		p.WriteTimeout = DefaultWriteTimeout
	}
	if p.BatchSize == 0 {
		p.BatchSize = DefaultBatchSize
	}
	if p.BatchTimeout == 0 {
		p.BatchTimeout = DefaultBatchTimeout
	}
	if p.MaxAttempts == 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}

	r := &c.Consumer
	if r.MinBytes == 0 {
		r.MinBytes = DefaultMinBytes
	}
	if r.MaxBytes == 0 {
		r.MaxBytes = DefaultMaxBytes
	}
	if r.MaxWait == 0 {
		r.MaxWait = DefaultMaxWait
	}
	if r.CommitInterval == 0 {
		r.CommitInterval = DefaultCommitInterval
	}
	if r.StartOffset == 0 {
		r.StartOffset = DefaultStartOffset
	}
	if r.Workers == 0 {
		r.Workers = DefaultWorkers
	}
	return c
}

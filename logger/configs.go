package logger

// Log levels accepted by Config.Level.
const (
	Debug   = "debug"
	Info    = "info"
	Warning = "warning"
	Error   = "error"
)

// Config controls the zap logger built by NewLoggerClient.
type Config struct {
	// Level is the minimum level written. Unknown values fall back to "info".
	// "warn" is accepted as an alias of "warning".
	Level string `yaml:"level" envconfig:"LOGGER_LEVEL" default:"info"`

	// EnableTracing adds trace_id and span_id from the context's active
	// span to every *WithContext entry.
	EnableTracing bool `yaml:"enable_tracing" envconfig:"LOGGER_ENABLE_TRACING"`

	// ServiceName populates the "service" field of every entry.
	ServiceName string `yaml:"service_name" envconfig:"LOGGER_SERVICE_NAME" default:"kafka-avro"`

	// CallerSkip is the number of wrapper frames between the call site and
	// zap. Values <= 0 mean 1.
	CallerSkip int `yaml:"caller_skip" envconfig:"LOGGER_CALLER_SKIP"`

	// OutputPaths overrides the zap sinks. Defaults to stderr.
	OutputPaths []string `yaml:"output_paths" envconfig:"LOGGER_OUTPUT_PATHS"`
}

func (c Config) callerSkip() int {
	if c.CallerSkip <= 0 {
		return 1
	}
	return c.CallerSkip
}

func (c Config) outputPaths() []string {
	if len(c.OutputPaths) == 0 {
		return []string{"stderr"}
	}
	return c.OutputPaths
}

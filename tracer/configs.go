package tracer

// Exporter names accepted by Config.Exporter.
const (
	ExporterOTLP   = "otlp"
	ExporterStdout = "stdout"
)

// Config defines the configuration for the OpenTelemetry tracer.
type Config struct {
	// ServiceName appears as service.name on every span.
	ServiceName string `yaml:"service_name" envconfig:"TRACER_SERVICE_NAME" default:"kafka-avro"`

	// AppEnv is the deployment environment, e.g. "staging" or "production".
	// It sets the "deployment.environment" and "environment" resource attributes.
	AppEnv string `yaml:"app_env" envconfig:"TRACER_APP_ENV"`

	// EnableExport controls whether spans leave the process. When false,
	// spans are still created so trace context propagates through Kafka
	// headers, but nothing is exported.
	EnableExport bool `yaml:"enable_export" envconfig:"TRACER_ENABLE_EXPORT"`

	// Exporter selects the backend when EnableExport is true: "otlp"
	// (OTLP over HTTP, the default) or "stdout" (pretty-printed spans).
	Exporter string `yaml:"exporter" envconfig:"TRACER_EXPORTER"`

	// Endpoint overrides the OTLP collector host:port. Empty uses the
	// OTEL_EXPORTER_OTLP_* environment variables.
	Endpoint string `yaml:"endpoint" envconfig:"TRACER_ENDPOINT"`

	// Insecure disables TLS towards the OTLP collector.
	Insecure bool `yaml:"insecure" envconfig:"TRACER_INSECURE"`

	// SampleRatio is the fraction of new traces that are sampled. Zero or
	// values >= 1 sample everything. Remote parents are always respected.
	SampleRatio float64 `yaml:"sample_ratio" envconfig:"TRACER_SAMPLE_RATIO"`
}

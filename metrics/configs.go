package metrics

// Default addresses for the metrics servers.
const (
	DefaultSystemMetricsAddress      = ":9090"
	DefaultApplicationMetricsAddress = ":9091"

	// DefaultNamespace prefixes every application metric name.
	DefaultNamespace = "kafka_avro"
)

// DefaultDurationBuckets covers sub-millisecond cache hits up to slow
// registry round trips.
var DefaultDurationBuckets = []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// Config defines the Prometheus metrics servers and the names of the
// operation metrics.
//
// Two endpoints are exposed:
//  1. System metrics (default :9090): Go runtime, process and build info.
//  2. Application metrics (default :9091): operation counters and latencies
//     recorded by OperationObserver, plus anything created through
//     MetricsCollector.
type Config struct {
	// SystemMetricsAddress is the listen address of the system endpoint.
	// nil means DefaultSystemMetricsAddress; an empty string disables it:
	//
	//	SystemMetricsAddress: metrics.Ptr(""),
	SystemMetricsAddress *string `yaml:"system_metrics_address" envconfig:"METRICS_SYSTEM_ADDRESS"`

	// ApplicationMetricsAddress is the listen address of the application
	// endpoint. nil means DefaultApplicationMetricsAddress; an empty string
	// disables the server while metrics are still recorded in
	// ApplicationRegistry.
	ApplicationMetricsAddress *string `yaml:"application_metrics_address" envconfig:"METRICS_APPLICATION_ADDRESS"`

	// ServiceName is attached to every series as the "service" label.
	ServiceName string `yaml:"service_name" envconfig:"METRICS_SERVICE_NAME" default:"kafka-avro"`

	// Namespace prefixes application metric names, e.g.
	// kafka_avro_operations_total. Empty means DefaultNamespace.
	Namespace string `yaml:"namespace" envconfig:"METRICS_NAMESPACE"`

	// DurationBuckets overrides DefaultDurationBuckets for the operation
	// duration histogram, in seconds.
	DurationBuckets []float64 `yaml:"duration_buckets" envconfig:"METRICS_DURATION_BUCKETS"`
}

func (c Config) namespace() string {
	if c.Namespace == "" {
		return DefaultNamespace
	}
	return c.Namespace
}

func (c Config) durationBuckets() []float64 {
	if len(c.DurationBuckets) == 0 {
		return DefaultDurationBuckets
	}
	return c.DurationBuckets
}

func addressOr(addr *string, def string) string {
	if addr == nil {
		return def
	}
	return *addr
}

// Ptr returns a pointer to s, for disabling an endpoint in Config.
func Ptr(s string) *string {
	return &s
}

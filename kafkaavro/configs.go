package kafkaavro

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"

	"github.com/pleszczy/kafka-avro/kafka"
	"github.com/pleszczy/kafka-avro/logger"
	"github.com/pleszczy/kafka-avro/metrics"
	"github.com/pleszczy/kafka-avro/schema_registry"
	"github.com/pleszczy/kafka-avro/tracer"
)

// Config gathers the configuration of every component assembled by New and
// FXModule.
type Config struct {
	SchemaRegistry schema_registry.Config         `yaml:"schema_registry"`
	Resolver       schema_registry.ResolverConfig `yaml:"resolver"`
	Kafka          kafka.Config                   `yaml:"kafka"`
	Logger         logger.Config                  `yaml:"logger"`
	Tracer         tracer.Config                  `yaml:"tracer"`
	Metrics        metrics.Config                 `yaml:"metrics"`

	// FetchAllVersions makes Init load every version of every subject
	// instead of only the latest ones.
	FetchAllVersions bool `yaml:"fetch_all_versions" envconfig:"FETCH_ALL_VERSIONS"`

	// SkipPreload disables the cache warm-up performed by Init and on fx
	// start. Schemas are then fetched on first use.
	SkipPreload bool `yaml:"skip_preload" envconfig:"SKIP_PRELOAD"`
}

// LoadConfig reads Config from the environment. Each section keeps its own
// variable names (SCHEMA_REGISTRY_URL, KAFKA_BROKERS, LOGGER_LEVEL, ...);
// a non-empty prefix is prepended to them, with the unprefixed name still
// accepted as a fallback.
//
// Example:
//
//	cfg, err := kafkaavro.LoadConfig("")
//	if err != nil {
//		log.Fatal(err)
//	}
func LoadConfig(prefix string) (Config, error) {
	var cfg Config

	sections := []struct {
		name   string
		target interface{}
	}{
		{"schema registry", &cfg.SchemaRegistry},
		{"resolver", &cfg.Resolver},
		{"kafka", &cfg.Kafka},
		{"logger", &cfg.Logger},
		{"tracer", &cfg.Tracer},
		{"metrics", &cfg.Metrics},
	}
	for _, s := range sections {
		if err := envconfig.Process(prefix, s.target); err != nil {
			return Config{}, fmt.Errorf("failed to load %s config: %w", s.name, err)
		}
	}

	var flags struct {
		FetchAllVersions bool `envconfig:"FETCH_ALL_VERSIONS"`
		SkipPreload      bool `envconfig:"SKIP_PRELOAD"`
	}
	if err := envconfig.Process(prefix, &flags); err != nil {
		return Config{}, fmt.Errorf("failed to load preload config: %w", err)
	}
	cfg.FetchAllVersions = flags.FetchAllVersions
	cfg.SkipPreload = flags.SkipPreload

	return cfg, nil
}

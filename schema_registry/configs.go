package schema_registry

import "time"

// Config holds configuration for the schema registry client.
type Config struct {
	// URL is the schema registry endpoint (e.g., "http://localhost:8081")
	URL string `yaml:"url" envconfig:"SCHEMA_REGISTRY_URL" required:"true"`

	// Username for basic auth (optional)
	Username string `yaml:"username" envconfig:"SCHEMA_REGISTRY_USERNAME"`

	// Password for basic auth (optional)
	Password string `yaml:"password" envconfig:"SCHEMA_REGISTRY_PASSWORD" json:"-"` //nolint:gosec

	// Timeout bounds every HTTP request, including fetches that outlive the
	// caller that started them. Defaults to 10s.
	Timeout time.Duration `yaml:"timeout" envconfig:"SCHEMA_REGISTRY_TIMEOUT" default:"10s"`
}

// ResolverConfig selects subject strategies and publish strictness.
type ResolverConfig struct {
	// KeySubjectStrategy is the strategy name for message keys, matched
	// case-insensitively. Empty means TopicNameStrategy.
	KeySubjectStrategy string `yaml:"key_subject_strategy" envconfig:"KEY_SUBJECT_STRATEGY"`

	// ValueSubjectStrategy is the strategy name for message values.
	ValueSubjectStrategy string `yaml:"value_subject_strategy" envconfig:"VALUE_SUBJECT_STRATEGY"`

	// RequireSchema makes publishing fail with ErrSchemaRequiredButMissing
	// when the subject has no registered schema. When false, a schema
	// derived from the value is registered instead.
	RequireSchema bool `yaml:"require_schema" envconfig:"REQUIRE_SCHEMA" default:"true"`
}

const defaultTimeout = 10 * time.Second

package config

import "github.com/leapstack-labs/querytables/internal/introspect"

// Default configuration values.
const (
	DefaultTargetType = "postgres"
	DefaultHost       = "localhost"
	DefaultPort       = 5432
	DefaultListen     = ":8080"
	DefaultStateFile  = ".querytables/index.db"

	LogFormatText = "text"
	LogFormatJSON = "json"
)

// ApplyTargetDefaults fills unset target fields.
func ApplyTargetDefaults(t *TargetConfig) {
	if t == nil {
		return
	}
	if t.Type == "" {
		t.Type = DefaultTargetType
	}
	if t.Type == "postgres" {
		if t.Host == "" {
			t.Host = DefaultHost
		}
		if t.Port == 0 {
			t.Port = DefaultPort
		}
	}
}

// ApplyIntrospectDefaults fills unset introspection settings.
func ApplyIntrospectDefaults(c *IntrospectConfig) {
	if c == nil {
		return
	}
	if c.Concurrency == 0 {
		c.Concurrency = introspect.DefaultConcurrency
	}
}

// IntrospectOptions converts the settings into orchestrator options.
func (c IntrospectConfig) IntrospectOptions() introspect.Options {
	return introspect.Options{
		MetadataTable: c.MetadataTable,
		Concurrency:   c.Concurrency,
	}
}

// Package config holds the configuration types shared by the CLI and the
// HTTP service, with their defaults and validation.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/querytables/pkg/adapter"
)

// TargetConfig describes the database whose queries are introspected.
type TargetConfig struct {
	Type     string            `koanf:"type"`
	Host     string            `koanf:"host"`
	Port     int               `koanf:"port"`
	Database string            `koanf:"database"`
	User     string            `koanf:"user"`
	Password string            `koanf:"password"`
	Options  map[string]string `koanf:"options"`
}

// ValidateType checks the target type against the adapter registry.
func (t *TargetConfig) ValidateType() error {
	if t.Type == "" {
		return fmt.Errorf("target type is required")
	}
	if !adapter.IsRegistered(t.Type) {
		return &adapter.UnknownAdapterError{
			Type:      t.Type,
			Available: adapter.ListAdapters(),
		}
	}
	return nil
}

// Validate checks that the target can be connected to.
func (t *TargetConfig) Validate() error {
	if err := t.ValidateType(); err != nil {
		return err
	}
	if t.Database == "" {
		return fmt.Errorf("target database is required")
	}
	if t.Port < 0 || t.Port > 65535 {
		return fmt.Errorf("target port %d out of range", t.Port)
	}
	return nil
}

// AdapterConfig converts the target into an adapter connection config.
func (t *TargetConfig) AdapterConfig() adapter.Config {
	opts := make(map[string]string, len(t.Options))
	for k, v := range t.Options {
		opts[k] = v
	}
	typ := strings.ToLower(t.Type)
	if c, ok := adapter.Canonical(typ); ok {
		typ = c
	}
	return adapter.Config{
		Type:     typ,
		Host:     t.Host,
		Port:     t.Port,
		Database: t.Database,
		Username: t.User,
		Password: t.Password,
		Options:  opts,
	}
}

// IntrospectConfig tunes query introspection.
type IntrospectConfig struct {
	// MetadataTable supplies per-table last modification times, e.g.
	// cartodb.cdb_tablemetadata. Empty disables freshness lookups.
	MetadataTable string `koanf:"metadata_table"`
	Concurrency   int    `koanf:"concurrency"`
}

// ServerConfig configures the HTTP service.
type ServerConfig struct {
	Listen string `koanf:"listen"`
	// Record stores every introspected query in the invalidation index.
	Record bool `koanf:"record"`
}

// LogConfig configures logging.
type LogConfig struct {
	Format string `koanf:"format"` // text or json
	Level  string `koanf:"level"`
	SeqURL string `koanf:"seq_url"`
}

// SlogLevel parses Level, falling back to info.
func (l LogConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Validate checks format and level.
func (l LogConfig) Validate() error {
	switch l.Format {
	case "", LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf("unknown log format %q (expected %s or %s)", l.Format, LogFormatText, LogFormatJSON)
	}
	if l.Level != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(l.Level)); err != nil {
			return fmt.Errorf("invalid log level %q: %w", l.Level, err)
		}
	}
	return nil
}

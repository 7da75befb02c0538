// Package config loads the querytables CLI configuration.
//
// Settings come from, lowest to highest precedence: built-in defaults,
// querytables.yaml, QUERYTABLES_* environment variables and command-line
// flags. Shared types live in internal/config and are aliased here.
package config

import (
	sharedcfg "github.com/leapstack-labs/querytables/internal/config"
)

// TargetConfig is an alias for the shared target configuration.
type TargetConfig = sharedcfg.TargetConfig

// IntrospectConfig is an alias for the shared introspection settings.
type IntrospectConfig = sharedcfg.IntrospectConfig

// ServerConfig is an alias for the shared HTTP service settings.
type ServerConfig = sharedcfg.ServerConfig

// LogConfig is an alias for the shared logging settings.
type LogConfig = sharedcfg.LogConfig

// Config holds all CLI configuration options.
type Config struct {
	StatePath    string               `koanf:"state_path"`
	Environment  string               `koanf:"environment"`
	Verbose      bool                 `koanf:"verbose"`
	OutputFormat string               `koanf:"output"`
	Target       *TargetConfig        `koanf:"target"`
	Introspect   IntrospectConfig     `koanf:"introspect"`
	Server       ServerConfig         `koanf:"server"`
	Log          LogConfig            `koanf:"log"`
	Environments map[string]EnvConfig `koanf:"environments"`
}

// EnvConfig holds per-environment overrides.
type EnvConfig struct {
	Target *TargetConfig `koanf:"target"`
}

// Default configuration values.
const (
	DefaultStateFile = sharedcfg.DefaultStateFile
	DefaultOutput    = "auto" // text on a terminal, JSON otherwise
	DefaultLogFormat = sharedcfg.LogFormatText
	DefaultLogLevel  = "info"
	envPrefix        = "QUERYTABLES_"
)

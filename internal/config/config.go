// Package config loads service configuration for programs embedding the
// claim engine.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the YAML configuration for a claimflow deployment.
type Config struct {
	// Listen is the HTTP listen address, e.g. ":8080".
	Listen string `yaml:"listen"`

	// Storage selects the checkpoint backend: "memory", "sqlite",
	// "postgres", "redis" or "mongo".
	Storage StorageConfig `yaml:"storage"`

	// Policy tunes the decision rules.
	Policy PolicyConfig `yaml:"policy"`

	// Log configures structured logging.
	Log LogConfig `yaml:"log"`
}

type StorageConfig struct {
	Backend string `yaml:"backend"`

	// DSN applies to the sqlite and postgres backends.
	DSN string `yaml:"dsn"`

	// URL applies to the redis and mongo backends.
	URL string `yaml:"url"`
}

type PolicyConfig struct {
	// ManualReviewThreshold is the order value above which valid damage
	// claims require a manager. Zero means the engine default.
	ManualReviewThreshold float64 `yaml:"manual_review_threshold"`
}

type LogConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is provided.
func Default() Config {
	return Config{
		Listen: ":8080",
		Storage: StorageConfig{
			Backend: "sqlite",
			DSN:     "file:claimflow.db?_journal=WAL",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads a YAML configuration file, filling unset fields from
// Default.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for obvious mistakes.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case "memory", "sqlite", "postgres", "redis", "mongo":
	default:
		return fmt.Errorf("unknown storage backend: %q", c.Storage.Backend)
	}

	if c.Policy.ManualReviewThreshold < 0 {
		return fmt.Errorf("manual_review_threshold must not be negative")
	}

	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level: %q", c.Log.Level)
	}

	return nil
}

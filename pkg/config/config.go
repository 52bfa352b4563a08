// Package config loads the one tuning knob the coordination core exposes
// (the drain deadline) plus the demo server's own addresses, following the
// teacher's YAML-plus-hot-reload shape rather than inventing a bespoke
// flag parser.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// StoreBackend selects which core.SessionStore implementation the demo
// server wires up.
type StoreBackend string

const (
	StoreBackendMemory   StoreBackend = "memory"
	StoreBackendRedis    StoreBackend = "redis"
	StoreBackendPostgres StoreBackend = "postgres"
)

// Config is the full configuration surface of the reference server. Only
// DrainDeadline is part of the spec's contract (§6: "One knob: drain
// deadline"); the rest exists to make the demo runnable end to end.
type Config struct {
	// DrainDeadline bounds how long ShutdownHook waits for in-flight
	// executions to finish before force-checkpointing them. Defaults to
	// 30s, the spec's mandated default.
	DrainDeadline time.Duration `yaml:"drain_deadline"`

	// HTTPAddr is the address the demo HTTP server listens on.
	HTTPAddr string `yaml:"http_addr"`

	// MetricsAddr is loaded from the file and AGENTDRAIN_METRICS_ADDR.
	// cmd/agentdraind does not read it: /metrics is always served on the
	// main HTTP router at HTTPAddr, and no separate metrics listener starts.
	MetricsAddr string `yaml:"metrics_addr"`

	StoreBackend StoreBackend   `yaml:"store_backend"`
	Redis        RedisConfig    `yaml:"redis"`
	Postgres     PostgresConfig `yaml:"postgres"`
}

// RedisConfig configures store/redisstore.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// PostgresConfig configures store/pgstore.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// Default returns the spec-mandated defaults, then applies any
// AGENTDRAIN_*-prefixed environment overrides (see env.go) so a deployment
// with no config file on disk can still be tuned purely through the
// environment.
func Default() *Config {
	cfg := &Config{
		DrainDeadline: 30 * time.Second,
		HTTPAddr:      ":8080",
		StoreBackend:  StoreBackendMemory,
	}
	applyEnvOverrides(cfg)
	return cfg
}

// Load reads a YAML config file, overlaying it onto Default. Before
// parsing, ${VAR}/${VAR:-default}/$VAR references in the file are expanded
// against the environment (env.go's expandEnvVars, grounded on the
// teacher's pkg/config/env.go); after parsing, AGENTDRAIN_*-prefixed
// environment variables take precedence over both the file and the
// defaults, the override-of-last-resort an operator reaches for without
// editing a checked-in file.
func Load(path string) (*Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	expanded := expandEnvVars(string(raw))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.DrainDeadline <= 0 {
		cfg.DrainDeadline = 30 * time.Second
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Clone returns a deep-enough copy for safe handoff across the reload
// channel (all fields are value types or already-copied structs).
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

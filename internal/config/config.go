// Package config loads server settings from defaults, an optional TOML or
// YAML file, and environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"

	TracingNone   = "none"
	TracingStdout = "stdout"
	TracingOTLP   = "otlp"
)

type Config struct {
	Addr           string        `toml:"addr" yaml:"addr"`
	LogLevel       string        `toml:"log_level" yaml:"log_level"`
	RequestTimeout time.Duration `toml:"request_timeout" yaml:"request_timeout"`

	Store     StoreConfig     `toml:"store" yaml:"store"`
	RateLimit RateLimitConfig `toml:"rate_limit" yaml:"rate_limit"`
	Tracing   TracingConfig   `toml:"tracing" yaml:"tracing"`
	CORS      CORSConfig      `toml:"cors" yaml:"cors"`
}

type StoreConfig struct {
	Backend    string `toml:"backend" yaml:"backend"`
	File       string `toml:"file" yaml:"file"`
	SQLitePath string `toml:"sqlite_path" yaml:"sqlite_path"`
}

// RateLimitConfig disables limiting when RPS <= 0.
type RateLimitConfig struct {
	RPS   float64 `toml:"rps" yaml:"rps"`
	Burst int     `toml:"burst" yaml:"burst"`
}

type TracingConfig struct {
	Exporter    string `toml:"exporter" yaml:"exporter"`
	ServiceName string `toml:"service_name" yaml:"service_name"`
}

type CORSConfig struct {
	AllowedOrigins []string `toml:"allowed_origins" yaml:"allowed_origins"`
}

func Default() Config {
	return Config{
		Addr:           ":3000",
		LogLevel:       "info",
		RequestTimeout: 15 * time.Second,
		Store: StoreConfig{
			Backend:    StoreFile,
			File:       "todos.json",
			SQLitePath: "data/todos.db",
		},
		RateLimit: RateLimitConfig{Burst: 10},
		Tracing: TracingConfig{
			Exporter:    TracingNone,
			ServiceName: "todos-api",
		},
		CORS: CORSConfig{AllowedOrigins: []string{"*"}},
	}
}

// Load returns defaults overlaid with the file at path (if non-empty) and then
// with environment variables.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := loadFromEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return fmt.Errorf("decode toml config %s: %w", path, err)
		}
	case ".yaml", ".yml":
		b, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return fmt.Errorf("decode yaml config %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config format %q (want .toml, .yaml or .yml)", filepath.Ext(path))
	}
	return nil
}

func loadFromEnv(cfg *Config) error {
	if v := os.Getenv("TODOS_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("TODOS_STORE"); v != "" {
		cfg.Store.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("TODOS_FILE"); v != "" {
		cfg.Store.File = v
	}
	if v := os.Getenv("TODOS_SQLITE_PATH"); v != "" {
		cfg.Store.SQLitePath = v
	}
	if v := os.Getenv("TODOS_RATE_LIMIT_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("TODOS_RATE_LIMIT_RPS: %w", err)
		}
		cfg.RateLimit.RPS = rps
	}
	if v := os.Getenv("TODOS_RATE_LIMIT_BURST"); v != "" {
		burst, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TODOS_RATE_LIMIT_BURST: %w", err)
		}
		cfg.RateLimit.Burst = burst
	}
	if v := os.Getenv("TODOS_REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TODOS_REQUEST_TIMEOUT: %w", err)
		}
		cfg.RequestTimeout = d
	}
	if v := os.Getenv("TODOS_TRACING"); v != "" {
		cfg.Tracing.Exporter = strings.ToLower(v)
	}
	return nil
}

func (c Config) Validate() error {
	switch c.Store.Backend {
	case StoreFile:
		if c.Store.File == "" {
			return fmt.Errorf("store.file is required for the file backend")
		}
	case StoreSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required for the sqlite backend")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}

	switch c.Tracing.Exporter {
	case TracingNone, TracingStdout, TracingOTLP:
	default:
		return fmt.Errorf("unknown tracing exporter %q", c.Tracing.Exporter)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate_limit.burst must be positive when rate limiting is enabled")
	}
	return nil
}

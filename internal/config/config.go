// Package config loads pdasim settings from defaults, an optional YAML file,
// PDASIM_* environment variables and command-line flags, in increasing order
// of precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix is the prefix of environment overrides. Nested keys use a
// double underscore: PDASIM_REDIS__ADDR sets redis.addr.
const EnvPrefix = "PDASIM_"

// DefaultFiles are searched in the working directory when no file is given.
var DefaultFiles = []string{"pdasim.yaml", "pdasim.yml"}

// Store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Config holds every tunable of the CLI and servers.
type Config struct {
	LogLevel     string        `koanf:"log_level"`
	Budget       int           `koanf:"budget"`
	Delay        time.Duration `koanf:"delay"`
	Dedup        bool          `koanf:"dedup"`
	StopOnAccept bool          `koanf:"stop_on_accept"`
	Format       string        `koanf:"format"`
	Traces       bool          `koanf:"traces"`

	Store    string `koanf:"store"`
	StoreDir string `koanf:"store_dir"`
	Library  string `koanf:"library"`

	Redis      RedisConfig      `koanf:"redis"`
	HTTP       HTTPConfig       `koanf:"http"`
	Metrics    MetricsConfig    `koanf:"metrics"`
	Encryption EncryptionConfig `koanf:"encryption"`
}

// EncryptionConfig seals stored runs with AES-256-GCM when Key is set.
// Keys are base64-encoded 32-byte values.
type EncryptionConfig struct {
	Key          string   `koanf:"key"`
	FallbackKeys []string `koanf:"fallback_keys"`
}

// RedisConfig configures the redis run store and distributed locker.
type RedisConfig struct {
	Addr     string        `koanf:"addr"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	Prefix   string        `koanf:"prefix"`
	TTL      time.Duration `koanf:"ttl"`
}

// HTTPConfig configures the HTTP adapter.
type HTTPConfig struct {
	Addr string `koanf:"addr"`
}

// MetricsConfig toggles the prometheus collectors.
type MetricsConfig struct {
	Enabled bool `koanf:"enabled"`
}

// Defaults returns the baseline configuration as a flat koanf map.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"log_level":       "info",
		"budget":          1000,
		"delay":           "0s",
		"dedup":           false,
		"stop_on_accept":  false,
		"format":          "text",
		"traces":          true,
		"store":           StoreMemory,
		"store_dir":       ".pdasim/runs",
		"library":         "",
		"redis.addr":      "localhost:6379",
		"redis.password":  "",
		"redis.db":        0,
		"redis.prefix":    "pdasim:run:",
		"redis.ttl":       "0s",
		"http.addr":       ":8080",
		"metrics.enabled": true,
		"encryption.key":  "",
	}
}

// Load builds a Config. path may be empty, in which case DefaultFiles are
// tried; a missing explicit path is an error. flags may be nil. Only flags
// the user changed override lower layers, and dashes in flag names map to
// underscores ("stop-on-accept" sets stop_on_accept, "redis-addr" sets
// redis.addr).
func Load(path string, flags *pflag.FlagSet) (*Config, string, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	used := findConfigFile(path)
	if path != "" && used == "" {
		return nil, "", fmt.Errorf("config file %s not found", path)
	}
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, "", fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// 3. Environment: PDASIM_LOG_LEVEL -> log_level, PDASIM_REDIS__ADDR -> redis.addr
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return flagKey(f.Name), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, "", fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, "", fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, used, nil
}

// Validate rejects values no command can act on.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreMemory, StoreFile, StoreRedis:
	default:
		return fmt.Errorf("invalid store %q (want memory, file or redis)", c.Store)
	}
	switch c.Format {
	case "text", "json", "table":
	default:
		return fmt.Errorf("invalid format %q (want text, json or table)", c.Format)
	}
	if c.Budget < 0 {
		return fmt.Errorf("budget must be >= 0, got %d", c.Budget)
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay must be >= 0, got %s", c.Delay)
	}
	return nil
}

func findConfigFile(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return ""
		}
		return explicit
	}
	for _, name := range DefaultFiles {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

func flagKey(name string) string {
	for _, section := range []string{"redis", "http", "metrics", "encryption"} {
		if rest, ok := strings.CutPrefix(name, section+"-"); ok {
			return section + "." + strings.ReplaceAll(rest, "-", "_")
		}
	}
	return strings.ReplaceAll(name, "-", "_")
}

// Package config loads server configuration from config.yaml and .env files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the server configuration. Values come from config.yaml in the
// data directory; flags and .env entries override on top.
type Config struct {
	// Addr is the address to listen on.
	Addr string `yaml:"addr"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// ShareSecret signs share link tokens. Generated on first run when empty.
	ShareSecret string `yaml:"share_secret"`
	// Git controls data directory versioning.
	Git GitConfig `yaml:"git"`
	// RateLimit bounds request throughput per client.
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// GitConfig identifies the author of data snapshots.
type GitConfig struct {
	Enabled bool   `yaml:"enabled"`
	Name    string `yaml:"name"`
	Email   string `yaml:"email"`
}

// RateLimitConfig bounds request throughput per client IP.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// Default returns the configuration used when config.yaml is absent.
func Default() *Config {
	return &Config{
		Addr:     "localhost:8080",
		LogLevel: "info",
		Git: GitConfig{
			Enabled: true,
			Name:    "notedb",
			Email:   "notedb@localhost",
		},
		RateLimit: RateLimitConfig{RPS: 50, Burst: 100},
	}
}

// Load reads config.yaml from the data directory, falling back to defaults
// for a missing file or missing fields.
func Load(dataDir string) (*Config, error) {
	cfg := Default()
	path := filepath.Join(dataDir, "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config.yaml: %w", err)
	}
	if cfg.Addr == "" {
		cfg.Addr = "localhost:8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.RateLimit.RPS <= 0 {
		cfg.RateLimit.RPS = 50
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 100
	}
	return cfg, nil
}

// Save writes config.yaml to the data directory. Used to persist the share
// secret generated on first run.
func (c *Config) Save(dataDir string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(filepath.Join(dataDir, "config.yaml"), data, 0o600)
}

// LoadDotEnv reads simple KEY=VALUE pairs from the data directory's .env
// file. A missing file yields an empty map. Double-quoted values are
// unquoted; single quotes are rejected.
func LoadDotEnv(dataDir string) (map[string]string, error) {
	env := make(map[string]string)
	path := filepath.Join(dataDir, ".env")
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return env, nil
		}
		return nil, err
	}

	for line := range strings.SplitSeq(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])
		if strings.HasPrefix(val, "'") || strings.HasSuffix(val, "'") {
			return nil, fmt.Errorf("single quotes are not supported in .env: %s", line)
		}
		if strings.HasPrefix(val, "\"") {
			unquoted, err := strconv.Unquote(val)
			if err != nil {
				return nil, fmt.Errorf("failed to unquote %s: %w", key, err)
			}
			val = unquoted
		}
		env[key] = val
	}
	return env, nil
}

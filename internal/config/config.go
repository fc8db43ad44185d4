// SPDX-License-Identifier: MIT

// Package config loads the gateway's typed configuration from YAML with
// environment-variable overrides, following the teacher's env-override
// merge pattern (internal/config/env.go's ParseString/ParseInt/ParseBool).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wavelink/gateway/internal/registry"
)

// Config is the gateway's startup configuration, covering spec.md §6.3's
// recognized options plus the ambient fields every teacher config carries.
type Config struct {
	Piped     []string `yaml:"piped"`
	Invidious []string `yaml:"invidious"`
	Hyperpipe []string `yaml:"hyperpipe"`
	Proxy     []string `yaml:"proxy"`
	HLS       []string `yaml:"hls"`

	Jiosaavn string `yaml:"jiosaavn"`
	Health   string `yaml:"health"` // "Y" or "N"; reserved for future active probing

	MusicRegion string `yaml:"music_region"`

	ListenAddr     string        `yaml:"listen_addr"`
	LogLevel       string        `yaml:"log_level"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	JWTSecret string `yaml:"jwt_secret"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	MaxConcurrentStreams int64 `yaml:"max_concurrent_streams"`
}

// Default returns the configuration's zero-value-safe defaults.
func Default() Config {
	return Config{
		MusicRegion:          "IN",
		ListenAddr:           ":8080",
		LogLevel:             "info",
		RequestTimeout:       12 * time.Second,
		Health:               "N",
		MaxConcurrentStreams: 64,
	}
}

// Load reads a YAML configuration file from path (if non-empty) and applies
// environment-variable overrides on top of it.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

// applyEnvOverrides mutates cfg in place from recognized environment
// variables, mirroring the teacher's ParseString/ParseInt/ParseBool helpers.
func applyEnvOverrides(cfg *Config) {
	cfg.MusicRegion = envString("MUSIC_REGION", cfg.MusicRegion)
	cfg.JWTSecret = envString("JWT_SECRET", cfg.JWTSecret)
	cfg.ListenAddr = envString("LISTEN_ADDR", cfg.ListenAddr)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.RedisAddr = envString("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = envString("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = envInt("REDIS_DB", cfg.RedisDB)
	cfg.MaxConcurrentStreams = int64(envInt("MAX_CONCURRENT_STREAMS", int(cfg.MaxConcurrentStreams)))

	if v := envList("PIPED_INSTANCES"); v != nil {
		cfg.Piped = v
	}
	if v := envList("INVIDIOUS_INSTANCES"); v != nil {
		cfg.Invidious = v
	}
	if v := envList("HYPERPIPE_INSTANCES"); v != nil {
		cfg.Hyperpipe = v
	}
	if v := envList("PROXY_INSTANCES"); v != nil {
		cfg.Proxy = v
	}
	if v := envList("HLS_INSTANCES"); v != nil {
		cfg.HLS = v
	}
}

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// envList splits a comma-separated environment variable into a trimmed,
// non-empty string slice. Returns nil when the variable is unset.
func envList(key string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// RegistryConfig projects the upstream-instance lists out as a
// registry.Config, ready to hand to registry.New/Replace.
func (c Config) RegistryConfig() registry.Config {
	return registry.Config{
		Piped:     c.Piped,
		Invidious: c.Invidious,
		Hyperpipe: c.Hyperpipe,
		HLS:       c.HLS,
		Proxy:     c.Proxy,
	}
}

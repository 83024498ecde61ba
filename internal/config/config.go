// Package config holds configuration for the demo host application.
// Precedence, lowest to highest: built-in defaults, optional YAML file,
// environment variables.
package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all demo host configuration.
type Config struct {
	Server  ServerConfig `yaml:"server"`
	Verify  VerifyConfig `yaml:"verify"`
	Logging LogConfig    `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `yaml:"host" envconfig:"HOST"`
	Port string `yaml:"port" envconfig:"PORT"`
}

// VerifyConfig holds verification service configuration.
type VerifyConfig struct {
	// APIBaseURL is the session REST API endpoint.
	APIBaseURL string `yaml:"api_base_url" envconfig:"VERIFY_API_URL"`
	// APIKey authenticates session creation. Empty disables the session API
	// and the demo falls back to locally generated session ids.
	APIKey string `yaml:"api_key" envconfig:"VERIFY_API_KEY"`
	// Service selects the default service type for demo sessions.
	Service string `yaml:"service" envconfig:"VERIFY_SERVICE"`
	// Language is the default flow language.
	Language string `yaml:"language" envconfig:"VERIFY_LANG"`
	// ProxyTargets names the capabilities proxied into the remote context.
	ProxyTargets []string `yaml:"proxy_targets" envconfig:"VERIFY_PROXY_TARGETS"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Development bool   `yaml:"development" envconfig:"LOG_DEV"`
}

// Default returns built-in defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: "8080"},
		Verify: VerifyConfig{
			APIBaseURL:   "https://api.verikit.io",
			Service:      "individual",
			Language:     "en",
			ProxyTargets: []string{"ethereum"},
		},
		Logging: LogConfig{Level: "info"},
	}
}

// Load builds configuration from an optional YAML file path plus the
// environment. Pass an empty path to skip the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// Environment variables override file values; unset variables leave the
	// current value in place.
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("load config from environment: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault loads from the environment only, falling back to defaults on
// error.
func LoadOrDefault() *Config {
	cfg, err := Load("")
	if err != nil {
		return Default()
	}
	return cfg
}

// Package config loads and validates the per-user configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// Provider configures one completion endpoint.
type Provider struct {
	Type          string            `json:"type"`
	BaseURL       string            `json:"base_url"`
	APIKey        string            `json:"api_key"`
	CustomHeaders map[string]string `json:"custom_headers,omitempty"`
}

// Model configures one model entry, referencing a provider by name.
type Model struct {
	Provider       string `json:"provider"`
	Model          string `json:"model"`
	MaxContextSize int    `json:"max_context_size"`
}

// LoopControl bounds the run loop.
type LoopControl struct {
	MaxStepsPerRun    int `json:"max_steps_per_run"`
	MaxRetriesPerStep int `json:"max_retries_per_step"`
}

// Config is the full configuration file shape.
type Config struct {
	DefaultModel string              `json:"default_model"`
	Models       map[string]Model    `json:"models"`
	Providers    map[string]Provider `json:"providers"`
	LoopControl  LoopControl         `json:"loop_control"`
}

// Overrides are environment-variable overrides applied after the file loads.
type Overrides struct {
	APIKey    string `env:"QUILL_API_KEY"`
	BaseURL   string `env:"QUILL_BASE_URL"`
	ModelName string `env:"QUILL_MODEL_NAME"`
}

// Default returns an empty configuration with loop defaults.
func Default() *Config {
	return &Config{
		Models:    map[string]Model{},
		Providers: map[string]Provider{},
		LoopControl: LoopControl{
			MaxStepsPerRun:    100,
			MaxRetriesPerStep: 3,
		},
	}
}

// ShareDir returns the per-user data directory, creating it if needed.
func ShareDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	dir := filepath.Join(home, ".quill")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	return dir, nil
}

// File returns the default config file path.
func File() (string, error) {
	dir, err := ShareDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from path. A missing file writes and returns the
// default config. Environment overrides are applied after parsing.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = File()
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg := Default()
		if saveErr := Save(cfg, path); saveErr != nil {
			return nil, saveErr
		}
		return applyOverrides(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid JSON in configuration file: %w", err)
	}
	if cfg.Models == nil {
		cfg.Models = map[string]Model{}
	}
	if cfg.Providers == nil {
		cfg.Providers = map[string]Provider{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return applyOverrides(cfg)
}

// Save writes the config as indented JSON.
func Save(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate checks referential integrity between models and providers.
func (c *Config) Validate() error {
	if c.DefaultModel != "" {
		if _, ok := c.Models[c.DefaultModel]; !ok {
			return fmt.Errorf("default model %q not found in models", c.DefaultModel)
		}
	}
	for name, model := range c.Models {
		if _, ok := c.Providers[model.Provider]; !ok {
			return fmt.Errorf("model %q references unknown provider %q", name, model.Provider)
		}
	}
	if c.LoopControl.MaxStepsPerRun <= 0 {
		return fmt.Errorf("loop_control.max_steps_per_run must be positive")
	}
	if c.LoopControl.MaxRetriesPerStep <= 0 {
		return fmt.Errorf("loop_control.max_retries_per_step must be positive")
	}
	return nil
}

// applyOverrides layers QUILL_* environment variables onto the loaded config.
// QUILL_API_KEY and QUILL_BASE_URL apply to the default model's provider.
func applyOverrides(cfg *Config) (*Config, error) {
	var o Overrides
	if err := env.Parse(&o); err != nil {
		return nil, fmt.Errorf("parse environment overrides: %w", err)
	}

	if o.ModelName != "" {
		if _, ok := cfg.Models[o.ModelName]; ok {
			cfg.DefaultModel = o.ModelName
		}
	}
	if o.APIKey != "" || o.BaseURL != "" {
		if model, ok := cfg.Models[cfg.DefaultModel]; ok {
			provider := cfg.Providers[model.Provider]
			if o.APIKey != "" {
				provider.APIKey = o.APIKey
			}
			if o.BaseURL != "" {
				provider.BaseURL = o.BaseURL
			}
			cfg.Providers[model.Provider] = provider
		}
	}
	return cfg, nil
}

// Package config loads duet's TOML configuration.
//
// Configuration is read from ~/.config/duet/config.toml unless a path is
// given. A missing file is not an error; built-in defaults apply. A few
// environment variables override the file:
//   - DUET_DB_PATH
//   - DUET_LOG_FILE
//   - DUET_MODEL1_API_KEY, DUET_MODEL2_API_KEY
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"duet/internal/models"

	"github.com/BurntSushi/toml"
)

const (
	AppName         = "duet"
	DefaultURL      = "https://api.groq.com/openai/v1/chat/completions"
	DefaultModel    = "llama-3.1-8b-instant"
	DefaultTheme    = "modern"
	DefaultCharsPer = 4
)

// Config is the complete duet configuration.
type Config struct {
	DBPath  string `toml:"db_path"`
	LogFile string `toml:"log_file"`

	Generation GenerationConfig       `toml:"generation"`
	Selection  SelectionConfig        `toml:"selection"`
	Estimator  EstimatorConfig        `toml:"estimator"`
	Models     map[string]ModelConfig `toml:"models"`
}

// GenerationConfig holds the parameters sent with every request.
type GenerationConfig struct {
	Temperature float64 `toml:"temperature"`
	MaxTokens   int     `toml:"max_tokens"`
	// RequestTimeoutSecs bounds each upstream call. A hung endpoint fails the
	// turn instead of leaving the send control disabled.
	RequestTimeoutSecs int `toml:"request_timeout_secs"`
}

type SelectionConfig struct {
	// DeactivateLoser turns the losing model off for the rest of the session
	// after the user picks a winner.
	DeactivateLoser bool `toml:"deactivate_loser"`
}

type EstimatorConfig struct {
	CharsPerToken int `toml:"chars_per_token"`
}

// ModelConfig seeds the defaults for one endpoint slot. Credentials entered
// in the settings modal are persisted in the store and win over these.
type ModelConfig struct {
	Label string `toml:"label"`
	Model string `toml:"model"`
	URL   string `toml:"url"`
	// Kind is "openai" or "gemini". Empty means inferred from URL.
	Kind string `toml:"kind"`
	// APIKey is normally supplied through the environment.
	APIKey string `toml:"api_key"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Generation: GenerationConfig{
			Temperature:        0.7,
			MaxTokens:          1000,
			RequestTimeoutSecs: 120,
		},
		Selection: SelectionConfig{DeactivateLoser: true},
		Estimator: EstimatorConfig{CharsPerToken: DefaultCharsPer},
		Models: map[string]ModelConfig{
			string(models.ModelOne): {Label: models.ModelOne.Label(), Model: DefaultModel, URL: DefaultURL},
			string(models.ModelTwo): {Label: models.ModelTwo.Label(), Model: DefaultModel, URL: DefaultURL},
		},
	}
}

// Dir returns the directory duet keeps its files in.
func Dir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, herr := os.UserHomeDir()
		if herr != nil {
			return "", err
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, AppName), nil
}

// DefaultPath returns the config file location used when none is given.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the config at path (or the default path when empty), applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if !errors.Is(err, fs.ErrNotExist) || explicit {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.fillDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DUET_DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("DUET_LOG_FILE"); v != "" {
		c.LogFile = v
	}
	for _, id := range models.AllModels {
		key := "DUET_" + strings.ToUpper(string(id)) + "_API_KEY"
		if v := os.Getenv(key); v != "" {
			mc := c.Models[string(id)]
			mc.APIKey = v
			c.Models[string(id)] = mc
		}
	}
}

func (c *Config) fillDefaults() {
	if c.Models == nil {
		c.Models = map[string]ModelConfig{}
	}
	for _, id := range models.AllModels {
		mc := c.Models[string(id)]
		if mc.Label == "" {
			mc.Label = id.Label()
		}
		if mc.Model == "" {
			mc.Model = DefaultModel
		}
		if mc.URL == "" {
			mc.URL = DefaultURL
		}
		c.Models[string(id)] = mc
	}
	if c.DBPath == "" {
		if dir, err := Dir(); err == nil {
			c.DBPath = filepath.Join(dir, AppName+".db")
		}
	}
	if c.LogFile == "" {
		if dir, err := Dir(); err == nil {
			c.LogFile = filepath.Join(dir, AppName+".log")
		}
	}
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		return fmt.Errorf("config: generation.temperature must be in [0, 2], got %v", c.Generation.Temperature)
	}
	if c.Generation.MaxTokens <= 0 {
		return fmt.Errorf("config: generation.max_tokens must be positive, got %d", c.Generation.MaxTokens)
	}
	if c.Generation.RequestTimeoutSecs <= 0 {
		return fmt.Errorf("config: generation.request_timeout_secs must be positive, got %d", c.Generation.RequestTimeoutSecs)
	}
	if c.Estimator.CharsPerToken <= 0 {
		return fmt.Errorf("config: estimator.chars_per_token must be positive, got %d", c.Estimator.CharsPerToken)
	}
	for name, mc := range c.Models {
		if !models.ModelID(name).Valid() {
			return fmt.Errorf("config: unknown model slot %q (want model1 or model2)", name)
		}
		switch mc.Kind {
		case "", models.KindOpenAI, models.KindGemini:
		default:
			return fmt.Errorf("config: models.%s.kind must be %q or %q, got %q", name, models.KindOpenAI, models.KindGemini, mc.Kind)
		}
	}
	return nil
}

// RequestTimeout returns the per-request bound as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Generation.RequestTimeoutSecs) * time.Second
}

// Model returns the slot config for id.
func (c *Config) Model(id models.ModelID) ModelConfig {
	return c.Models[string(id)]
}

// DefaultSettings builds the settings used before the user saved any.
func (c *Config) DefaultSettings() models.Settings {
	var s models.Settings
	for _, id := range models.AllModels {
		mc := c.Model(id)
		s.SetEndpoint(id, models.Endpoint{
			Enabled: true,
			APIKey:  mc.APIKey,
			URL:     mc.URL,
			Kind:    mc.Kind,
			Model:   mc.Model,
		})
	}
	return s
}

// Seed fills gaps in persisted settings from the config: credentials from
// the environment, URLs, kinds and model names.
func (c *Config) Seed(s models.Settings) models.Settings {
	for _, id := range models.AllModels {
		mc := c.Model(id)
		e := s.Endpoint(id)
		if e.APIKey == "" {
			e.APIKey = mc.APIKey
		}
		if e.URL == "" {
			e.URL = mc.URL
		}
		if e.Kind == "" {
			e.Kind = mc.Kind
		}
		if e.Model == "" {
			e.Model = mc.Model
		}
		s.SetEndpoint(id, e)
	}
	return s
}

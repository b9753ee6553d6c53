// Package config loads buebu settings from a YAML file and BUEBU_ environment
// variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "BUEBU_"

// Primary store names.
const (
	PrimarySQLite = "sqlite"
	PrimaryRedis  = "redis"
	PrimaryNone   = "none"
)

// Provider names.
const (
	ProviderAnthropic = "anthropic"
	ProviderLorem     = "lorem"
)

// Config is the full application configuration.
type Config struct {
	Storage  StorageConfig  `koanf:"storage"`
	Provider ProviderConfig `koanf:"provider"`
	Log      LogConfig      `koanf:"log"`
	Notify   NotifyConfig   `koanf:"notify"`
}

// StorageConfig selects where projects are kept.
type StorageConfig struct {
	DataDir      string        `koanf:"data_dir"`
	Primary      string        `koanf:"primary"`
	RedisAddr    string        `koanf:"redis_addr"`
	SaveDebounce time.Duration `koanf:"save_debounce"`
}

// ProviderConfig selects the AI provider.
type ProviderConfig struct {
	Name      string `koanf:"name"`
	Model     string `koanf:"model"`
	APIKey    string `koanf:"api_key"`
	MaxTokens int64  `koanf:"max_tokens"`
}

type LogConfig struct {
	Level string `koanf:"level"`
}

type NotifyConfig struct {
	Enabled bool `koanf:"enabled"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			DataDir:      DefaultDataDir(),
			Primary:      PrimarySQLite,
			RedisAddr:    "localhost:6379",
			SaveDebounce: 500 * time.Millisecond,
		},
		Provider: ProviderConfig{
			Name:      ProviderAnthropic,
			Model:     "claude-sonnet-4-5",
			MaxTokens: 16000,
		},
		Log:    LogConfig{Level: "info"},
		Notify: NotifyConfig{Enabled: true},
	}
}

// DefaultDataDir returns ~/.local/share/buebu.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".buebu"
	}
	return filepath.Join(home, ".local", "share", "buebu")
}

// DefaultPath returns ~/.config/buebu/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".config", "buebu", "config.yaml")
}

// Load reads configuration. Precedence, highest first:
//  1. BUEBU_ environment variables (BUEBU_STORAGE_PRIMARY -> storage.primary)
//  2. the YAML file at path, or DefaultPath when path is empty
//  3. Default
//
// A missing file is not an error unless path was given explicitly.
// ANTHROPIC_API_KEY fills provider.api_key when nothing else set it.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Provider.APIKey == "" {
		cfg.Provider.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	cfg.Storage.DataDir = expandHome(cfg.Storage.DataDir)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the values Load cannot fix up on its own.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(&c.Storage,
		validation.Field(&c.Storage.DataDir, validation.Required),
		validation.Field(&c.Storage.Primary, validation.In(PrimarySQLite, PrimaryRedis, PrimaryNone)),
		validation.Field(&c.Storage.RedisAddr, validation.When(c.Storage.Primary == PrimaryRedis, validation.Required)),
		validation.Field(&c.Storage.SaveDebounce, validation.Required, validation.Min(time.Millisecond)),
	); err != nil {
		return fmt.Errorf("storage: %w", err)
	}

	if err := validation.ValidateStruct(&c.Provider,
		validation.Field(&c.Provider.Name, validation.Required, validation.In(ProviderAnthropic, ProviderLorem)),
		validation.Field(&c.Provider.Model, validation.When(c.Provider.Name == ProviderAnthropic, validation.Required)),
		validation.Field(&c.Provider.MaxTokens, validation.Min(int64(1))),
	); err != nil {
		return fmt.Errorf("provider: %w", err)
	}

	if err := validation.Validate(c.Log.Level, validation.In("debug", "info", "warn", "error")); err != nil {
		return fmt.Errorf("log: level: %w", err)
	}
	return nil
}

// envKey maps BUEBU_STORAGE_SAVE_DEBOUNCE to storage.save_debounce. Only the
// first underscore separates the section from the field.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, ok := strings.Cut(lower, "_")
	if !ok {
		return lower
	}
	return section + "." + field
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// Package config loads the service configuration from defaults, an optional
// YAML file and CAMPUSBLOGS_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable the config reads.
const EnvPrefix = "CAMPUSBLOGS_"

type Config struct {
	Server  ServerConfig  `yaml:"server" envPrefix:"SERVER_"`
	Store   StoreConfig   `yaml:"store" envPrefix:"STORE_"`
	Blobs   BlobsConfig   `yaml:"blobs" envPrefix:"BLOBS_"`
	Auth    AuthConfig    `yaml:"auth" envPrefix:"AUTH_"`
	Log     LogConfig     `yaml:"log" envPrefix:"LOG_"`
	Feed    FeedConfig    `yaml:"feed" envPrefix:"FEED_"`
	Content ContentConfig `yaml:"content" envPrefix:"CONTENT_"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"ADDR" validate:"required"`
	RequestTimeout  time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes" env:"MAX_UPLOAD_BYTES" validate:"gt=0"`
}

type StoreConfig struct {
	Path            string `yaml:"path" env:"PATH" validate:"required_without=InMemory"`
	InMemory        bool   `yaml:"in_memory" env:"IN_MEMORY"`
	ConflictRetries int    `yaml:"conflict_retries" env:"CONFLICT_RETRIES" validate:"gte=1"`
	BackupDir       string `yaml:"backup_dir" env:"BACKUP_DIR"`
}

type BlobsConfig struct {
	Dir           string `yaml:"dir" env:"DIR" validate:"required"`
	PublicBaseURL string `yaml:"public_base_url" env:"PUBLIC_BASE_URL" validate:"required"`
}

type AuthConfig struct {
	Secret   string        `yaml:"secret" env:"SECRET"`
	Issuer   string        `yaml:"issuer" env:"ISSUER"`
	TokenTTL time.Duration `yaml:"token_ttl" env:"TOKEN_TTL" validate:"gt=0"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" env:"FORMAT" validate:"oneof=json console"`
}

type FeedConfig struct {
	LatestLimit   int `yaml:"latest_limit" env:"LATEST_LIMIT" validate:"gte=1"`
	ExcerptLength int `yaml:"excerpt_length" env:"EXCERPT_LENGTH" validate:"gte=1"`
}

type ContentConfig struct {
	CascadeCommentDeletes bool `yaml:"cascade_comment_deletes" env:"CASCADE_COMMENT_DELETES"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			RequestTimeout:  15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxUploadBytes:  8 << 20,
		},
		Store: StoreConfig{
			Path:            "data/badger",
			ConflictRetries: 16,
			BackupDir:       "data/backups",
		},
		Blobs: BlobsConfig{
			Dir:           "data/blobs",
			PublicBaseURL: "/blobs",
		},
		Auth: AuthConfig{
			Issuer:   "campusblogs",
			TokenTTL: 24 * time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Feed: FeedConfig{
			LatestLimit:   4,
			ExcerptLength: 100,
		},
	}
}

// Load reads path (if non-empty and present) over the defaults, then
// applies environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

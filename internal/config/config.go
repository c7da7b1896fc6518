// Package config loads the storefront server configuration from YAML.
//
// Unknown keys are rejected so typos surface at startup. Secrets are never
// read from the file: S3 credentials come from the environment (see
// Environment variables below).
//
// Environment variables:
//   - STOREFRONT_S3_ACCESS_KEY_ID / AWS_ACCESS_KEY_ID
//   - STOREFRONT_S3_SECRET_ACCESS_KEY / AWS_SECRET_ACCESS_KEY
//   - STOREFRONT_DATABASE_DSN overrides database.dsn
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/storefront/internal/notify"
)

// Backend names.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite3"
	BackendPostgres = "postgres"
	BackendDisk     = "disk"
	BackendS3       = "s3"
)

// Config is the server configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`

	Log Log `yaml:"log"`

	// Catalog is a CUE catalog file. Empty uses the built-in catalog.
	Catalog string `yaml:"catalog,omitempty"`

	// NotificationGap is the pause between dismissing a notification and
	// showing the next one.
	NotificationGap time.Duration `yaml:"notification_gap"`

	// DefaultAvatarURL is written as the avatar of new accounts.
	DefaultAvatarURL string `yaml:"default_avatar_url,omitempty"`

	Database Database `yaml:"database"`
	Blob     Blob     `yaml:"blob"`
}

// Log configures slog.
type Log struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // text|json
}

// Database selects where accounts and profiles live.
type Database struct {
	Driver string `yaml:"driver"` // memory|sqlite3|postgres
	DSN    string `yaml:"dsn,omitempty"`
}

// Blob selects where avatars are stored.
type Blob struct {
	Backend string `yaml:"backend"` // memory|disk|s3
	MaxSize int64  `yaml:"max_size,omitempty"`
	Disk    Disk   `yaml:"disk,omitempty"`
	S3      S3     `yaml:"s3,omitempty"`
}

// Disk configures blob.DiskStore.
type Disk struct {
	Dir     string `yaml:"dir"`
	BaseURL string `yaml:"base_url,omitempty"`
}

// S3 configures blob.S3Store.
type S3 struct {
	Bucket        string        `yaml:"bucket"`
	Region        string        `yaml:"region"`
	Endpoint      string        `yaml:"endpoint,omitempty"`
	UsePathStyle  bool          `yaml:"use_path_style,omitempty"`
	Prefix        string        `yaml:"prefix,omitempty"`
	PublicBaseURL string        `yaml:"public_base_url,omitempty"`
	URLExpiry     time.Duration `yaml:"url_expiry,omitempty"`

	// Credentials, from the environment only.
	AccessKeyID     string `yaml:"-"`
	SecretAccessKey string `yaml:"-"`
}

// Default returns the configuration used when no file is given: in-memory
// services on :8080.
func Default() Config {
	return Config{
		Listen:          ":8080",
		Log:             Log{Level: "info", Format: "text"},
		NotificationGap: notify.DefaultGap,
		Database:        Database{Driver: BackendMemory},
		Blob:            Blob{Backend: BackendMemory},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data, os.Getenv)
}

// Parse decodes YAML over the defaults. getenv supplies environment values.
func Parse(data []byte, getenv func(string) string) (Config, error) {
	cfg := Default()

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.ApplyEnv(getenv)
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv fills credentials and overrides from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	first := func(keys ...string) string {
		for _, k := range keys {
			if v := getenv(k); v != "" {
				return v
			}
		}
		return ""
	}
	c.Blob.S3.AccessKeyID = first("STOREFRONT_S3_ACCESS_KEY_ID", "AWS_ACCESS_KEY_ID")
	c.Blob.S3.SecretAccessKey = first("STOREFRONT_S3_SECRET_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY")
	if dsn := getenv("STOREFRONT_DATABASE_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	if c.Listen == "" {
		return errors.New("listen is required")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q: must be debug, info, warn or error", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q: must be text or json", c.Log.Format)
	}
	if c.NotificationGap <= 0 {
		return errors.New("notification_gap must be positive")
	}

	switch c.Database.Driver {
	case BackendMemory:
	case BackendSQLite, BackendPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for driver %s", c.Database.Driver)
		}
	default:
		return fmt.Errorf("database.driver %q: must be memory, sqlite3 or postgres", c.Database.Driver)
	}

	if c.Blob.MaxSize < 0 {
		return errors.New("blob.max_size must not be negative")
	}
	switch c.Blob.Backend {
	case BackendMemory:
	case BackendDisk:
		if c.Blob.Disk.Dir == "" {
			return errors.New("blob.disk.dir is required for the disk backend")
		}
	case BackendS3:
		s := c.Blob.S3
		if s.Bucket == "" || s.Region == "" {
			return errors.New("blob.s3.bucket and blob.s3.region are required for the s3 backend")
		}
		if s.AccessKeyID == "" || s.SecretAccessKey == "" {
			return errors.New("S3 credentials missing: set STOREFRONT_S3_ACCESS_KEY_ID and STOREFRONT_S3_SECRET_ACCESS_KEY")
		}
	default:
		return fmt.Errorf("blob.backend %q: must be memory, disk or s3", c.Blob.Backend)
	}
	return nil
}

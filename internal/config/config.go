// Package config loads and persists the daemon configuration: a YAML
// file with sensible defaults, first-run creation, and MINICAL_*
// environment overrides on top.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"minical/internal/storage"
)

// StorageConfig selects the persistence backend for the event index.
type StorageConfig struct {
	// Driver is "file" or "sqlite".
	Driver string `yaml:"driver" json:"driver"`
	// Path is the index file or database file location.
	Path string `yaml:"path" json:"path"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone used for "today" and reminder
	// wall-clock math (e.g. "Europe/Berlin"). Empty means time.Local.
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart controls which weekday the UI treats as first.
	// Supported: "monday" (default), "sunday".
	WeekStart string `yaml:"week_start" json:"week_start"`

	Storage StorageConfig `yaml:"storage" json:"storage"`

	// ReminderRefresh is a cron expression for the periodic full
	// reminder reschedule that rolls the 24-hour horizon forward.
	ReminderRefresh string `yaml:"reminder_refresh" json:"reminder_refresh"`

	// ReminderHorizonHours bounds how far ahead reminders may be
	// scheduled.
	ReminderHorizonHours int `yaml:"reminder_horizon_hours" json:"reminder_horizon_hours"`
}

// envOverrides are applied after the YAML file, highest precedence.
type envOverrides struct {
	Listen        string `envconfig:"LISTEN"`
	Timezone      string `envconfig:"TIMEZONE"`
	StorageDriver string `envconfig:"STORAGE_DRIVER"`
	StoragePath   string `envconfig:"STORAGE_PATH"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:    "127.0.0.1:8080",
		WeekStart: "monday",
		Storage: StorageConfig{
			Driver: storage.DriverFile,
			Path:   "./var/minical/index.json",
		},
		ReminderRefresh:      "@every 15m",
		ReminderHorizonHours: 24,
	}
}

// Normalize fills missing/zero values with defaults so partially-filled
// configs from older versions keep working.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	switch c.WeekStart {
	case "monday", "sunday":
	default:
		c.WeekStart = def.WeekStart
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = def.Storage.Driver
	}
	if c.Storage.Path == "" {
		c.Storage.Path = def.Storage.Path
	}
	if c.ReminderRefresh == "" {
		c.ReminderRefresh = def.ReminderRefresh
	}
	if c.ReminderHorizonHours <= 0 {
		c.ReminderHorizonHours = def.ReminderHorizonHours
	}
}

// applyEnv overlays MINICAL_* environment variables.
func (c *Config) applyEnv() error {
	var o envOverrides
	if err := envconfig.Process("minical", &o); err != nil {
		return err
	}
	if o.Listen != "" {
		c.Listen = o.Listen
	}
	if o.Timezone != "" {
		c.Timezone = o.Timezone
	}
	if o.StorageDriver != "" {
		c.Storage.Driver = o.StorageDriver
	}
	if o.StoragePath != "" {
		c.Storage.Path = o.StoragePath
	}
	return nil
}

// Load loads configuration from the given YAML path.
//
// If the file does not exist, a default config is written there (0600)
// and returned. Environment overrides are applied in either case.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			if err := cfg.applyEnv(); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	if err := cfg.applyEnv(); err != nil {
		return &cfg, err
	}
	return &cfg, nil
}

// Save writes the configuration atomically (temp file + rename) with
// 0600 permissions, creating the parent directory as needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".minical-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

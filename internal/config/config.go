package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gookit/validate"
	"gopkg.in/yaml.v3"
)

// Default config file path.
const DefaultConfigPath = "~/.config/tally/config.yaml"

// Config holds all tally configuration.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
	Export  ExportConfig  `yaml:"export"`
}

type StorageConfig struct {
	Path          string `yaml:"path" validate:"required"`
	SQLiteFile    string `yaml:"sqlite_file" validate:"required"`
	JournalMode   string `yaml:"journal_mode" validate:"in:delete,truncate,persist,memory,wal,off"`
	BusyTimeoutMS int    `yaml:"busy_timeout_ms" validate:"min:0"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" validate:"required|in:debug,info,warn,error"`
	Format string `yaml:"format" validate:"required|in:console,json"`
}

type ExportConfig struct {
	Dir string `yaml:"dir"`
}

// Validate checks every section and reports the first offending field.
func (c *Config) Validate() error {
	sections := []struct {
		name string
		v    interface{}
	}{
		{"storage", &c.Storage},
		{"logging", &c.Logging},
		{"export", &c.Export},
	}
	for _, s := range sections {
		val := validate.Struct(s.v)
		if !val.Validate() {
			return fmt.Errorf("invalid %s config: %s", s.name, val.Errors.One())
		}
	}
	return nil
}

// DatabasePath returns the SQLite file location with ~ expanded.
func (c *Config) DatabasePath() (string, error) {
	dir, err := expandPath(c.Storage.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.Storage.SQLiteFile), nil
}

// ExportDir returns the directory CSV exports are written to. An empty
// setting means the current directory.
func (c *Config) ExportDir() (string, error) {
	if c.Export.Dir == "" {
		return ".", nil
	}
	return expandPath(c.Export.Dir)
}

// BusyTimeout returns the configured lock wait.
func (c *Config) BusyTimeout() time.Duration {
	return time.Duration(c.Storage.BusyTimeoutMS) * time.Millisecond
}

// Load reads a YAML config file at path and merges it with defaults.
// Returns an error if the file cannot be read, contains invalid YAML or
// fails validation.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// LoadOrCreate loads the config from the default path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreate() (*Config, error) {
	path, err := expandPath(DefaultConfigPath)
	if err != nil {
		return nil, err
	}
	return LoadOrCreateAt(path)
}

// LoadOrCreateAt loads the config from the given path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreateAt(path string) (*Config, error) {
	path, err := expandPath(path)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()

		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating config directory: %w", err)
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("marshaling default config: %w", err)
		}

		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}

		return cfg, nil
	}

	return Load(path)
}

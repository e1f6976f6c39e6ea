package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"

	"github.com/jamesainslie/fixity/pkg/fixity/size"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Daily      bool   `mapstructure:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// DigestConfig configures the hashing loop.
type DigestConfig struct {
	BufferSize string `mapstructure:"buffer_size"`
}

// Config represents the application configuration.
type Config struct {
	// Out is where create writes the manifest.
	Out string `mapstructure:"out"`

	// Gitignore applies .gitignore, info/exclude and global excludes.
	Gitignore bool `mapstructure:"gitignore"`

	// Exclude holds extra doublestar globs skipped by create.
	Exclude []string `mapstructure:"exclude"`

	// Format selects the verify report formatter.
	Format string `mapstructure:"format"`

	Digest  DigestConfig  `mapstructure:"digest"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// BufferSize returns the configured hashing chunk size in bytes.
func (c *Config) BufferSize() (int, error) {
	if c.Digest.BufferSize == "" {
		c.Digest.BufferSize = DefaultBufferSize
	}
	n, err := size.Parse(c.Digest.BufferSize)
	if err != nil {
		return 0, fmt.Errorf("digest.buffer_size: %w", err)
	}
	if n < 1 {
		return 0, fmt.Errorf("digest.buffer_size: must be at least one byte, got %q", c.Digest.BufferSize)
	}
	return int(n), nil
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("out", DefaultOut)
	v.SetDefault("gitignore", DefaultGitignore)
	v.SetDefault("exclude", []string{})
	v.SetDefault("format", DefaultFormat)
	v.SetDefault("digest.buffer_size", DefaultBufferSize)

	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.path", "") // empty means DefaultLogPath
	v.SetDefault("logging.rotation.max_size", "10MB")
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", map[string]string{})
}

// SetSearchPaths points v at config.yaml, searched in order:
//   - $XDG_CONFIG_HOME/fixity/config.yaml
//   - $HOME/.config/fixity/config.yaml
//
// and enables FIXITY_ environment overrides (e.g., FIXITY_GITIGNORE).
func SetSearchPaths(v *viper.Viper) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		v.AddConfigPath(filepath.Join(xdgConfigHome, AppName))
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(homeDir, ".config", AppName))
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// ReadInConfig reads the config file; a missing file is not an error.
func ReadInConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// FromViper decodes the settings held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Logging.Path != "" {
		expanded, err := ExpandPath(cfg.Logging.Path)
		if err != nil {
			return nil, err
		}
		cfg.Logging.Path = expanded
	}

	return &cfg, nil
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, AppName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", AppName), nil
}

// ConfigPath returns the path of config.yaml inside ConfigDir.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// WriteDefault writes a default config file if none exists and returns its
// path. An existing file is left untouched.
func WriteDefault() (string, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to check config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	defaultConfig := fmt.Sprintf(`# fixity configuration

# Manifest path written by 'fixity create' when --out is not given
out: %s

# Honour .gitignore, .git/info/exclude and the global excludes file
gitignore: %t

# Extra glob patterns (doublestar syntax) that create never records
exclude: []

# Report format for 'fixity verify': plain, pretty, json, jsonl, yaml,
# csv, markdown, paths, null
format: %s

digest:
  # Read chunk size while hashing; does not affect digests
  buffer_size: %s

logging:
  # Log level: debug, info, warn, error
  level: %s
  # Log file path (empty means $XDG_STATE_HOME/fixity/fixity.log)
  path: ""
  rotation:
    max_size: 10MB
    max_age: 30       # days
    max_backups: 5
    daily: true
`, DefaultOut, DefaultGitignore, DefaultFormat, DefaultBufferSize, DefaultLogLevel)

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return "", fmt.Errorf("failed to write default config: %w", err)
	}

	return configPath, nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}

// StateDir returns $XDG_STATE_HOME/fixity/ for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, AppName)
}

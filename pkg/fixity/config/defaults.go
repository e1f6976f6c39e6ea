// Package config provides configuration management for fixity.
package config

// Default configuration values.
const (
	// DefaultOut is the manifest path written by create.
	DefaultOut = "manifest.json"

	// DefaultGitignore enables ignore-file rules during create.
	DefaultGitignore = true

	// DefaultFormat is the verify report format.
	DefaultFormat = "plain"

	// DefaultBufferSize is the read chunk used while hashing.
	DefaultBufferSize = "64KiB"

	// DefaultLogLevel is the level written to the log file.
	DefaultLogLevel = "info"

	// AppName names the config, state and env-prefix directories.
	AppName = "fixity"

	// EnvPrefix prefixes environment overrides, e.g. FIXITY_GITIGNORE.
	EnvPrefix = "FIXITY"
)

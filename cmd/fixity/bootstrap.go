package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/fixity/pkg/fixity/config"
	"github.com/jamesainslie/fixity/pkg/fixity/logging"
	"github.com/jamesainslie/fixity/pkg/fixity/size"
)

// runID identifies this invocation in the shared log file.
var runID = uuid.NewString()

// initializeLogging is the root PersistentPreRunE hook. A log file that
// cannot be opened downgrades logging to the console; it never fails the
// command.
func initializeLogging(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(config.StateDir(), 0o755); err != nil {
		printVerbose("Could not create state directory: %v", err)
	}

	lc := logging.Config{
		Level:      cfg.Logging.Level,
		Path:       cfg.Logging.Path,
		Rotation:   parseRotationConfig(cfg.Logging.Rotation),
		Components: cfg.Logging.Components,
		RunID:      runID,
	}
	if getVerbose() {
		lc.ConsoleLevel = "debug"
	}

	if err := logging.Init(lc); err != nil {
		printVerbose("File logging disabled: %v", err)

		lc.FileDisabled = true
		lc.Level = config.DefaultLogLevel
		lc.Components = nil
		if err := logging.Init(lc); err != nil {
			return fmt.Errorf("initializing logging: %w", err)
		}
	}

	logging.Get("cli").Debug("command started", "command", cmd.CommandPath(), "args", args)
	return nil
}

// parseRotationConfig converts the config file's rotation settings. An
// empty or unparseable max_size falls back to the default.
func parseRotationConfig(rc config.RotationConfig) logging.RotationConfig {
	out := logging.DefaultRotationConfig()
	out.MaxAge = rc.MaxAge
	out.MaxBackups = rc.MaxBackups
	out.Daily = rc.Daily

	if rc.MaxSize != "" {
		if n, err := size.Parse(rc.MaxSize); err == nil && n > 0 {
			out.MaxSize = n
		}
	}
	return out
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/fixity/pkg/fixity/config"
)

var (
	cfgFile string

	// configErr holds a config file read failure; commands report it when
	// they load the configuration.
	configErr error

	rootCmd = &cobra.Command{
		Use:   "fixity",
		Short: "Create and verify content-integrity manifests",
		Long: `Fixity records the SHA-256 digest and size of every regular file in a
directory tree, and later checks the tree against that record.

Examples:
  fixity create ./data                    # Write manifest.json for ./data
  fixity create --out data.json ./data    # Choose the manifest path
  fixity create --gitignore=false ./repo  # Include ignored files
  fixity verify manifest.json             # Report OK / CHANGED / MISSING
  fixity verify -f json manifest.json     # Machine-readable report

Exit status is 0 on success, 2 when verify finds changed or missing files,
and 1 on any other error.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: initializeLogging,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/fixity/config.yaml)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")
}

// bindFlags ties config keys to the flags that override them.
func bindFlags(v *viper.Viper) {
	_ = v.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = v.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = v.BindPFlag("out", createCmd.Flags().Lookup("out"))
	_ = v.BindPFlag("gitignore", createCmd.Flags().Lookup("gitignore"))
	_ = v.BindPFlag("exclude", createCmd.Flags().Lookup("exclude"))
	_ = v.BindPFlag("format", verifyCmd.Flags().Lookup("format"))
}

// initConfig reads in config file and environment variables.
func initConfig() {
	v := viper.GetViper()
	bindFlags(v)
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	}
	config.SetSearchPaths(v)
	config.SetDefaults(v)

	if cfgFile != "" {
		if _, err := os.Stat(cfgFile); err != nil {
			configErr = fmt.Errorf("config file: %w", err)
			return
		}
	}
	configErr = config.ReadInConfig(v)
}

// loadConfig decodes the merged flag, env, file and default settings.
func loadConfig() (*config.Config, error) {
	if configErr != nil {
		return nil, configErr
	}
	return config.FromViper(viper.GetViper())
}

// ExecuteContext runs the root command with ctx available to subcommands.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func getVerbose() bool {
	return viper.GetBool("verbose")
}

func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Fprintf(rootCmd.OutOrStdout(), format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: "+format+"\n", args...)
}

package main

import (
	"github.com/spf13/cobra"

	"github.com/jamesainslie/fixity/pkg/fixity/manifest"
	"github.com/jamesainslie/fixity/pkg/fixity/size"
)

var createCmd = &cobra.Command{
	Use:   "create <path>",
	Short: "Write a manifest for a directory tree",
	Long: `Walk <path>, hash every regular file with SHA-256 and write the digests
and sizes to a JSON manifest.

Entry paths are stored relative to <path>, so the tree can be moved and
verified elsewhere. Symbolic links and special files are skipped. Files
matched by .gitignore, .git/info/exclude or the global excludes file are
skipped unless --gitignore=false is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runCreate,
}

func init() {
	createCmd.Flags().StringP("out", "o", "", "manifest path (default: manifest.json)")
	createCmd.Flags().Bool("gitignore", true, "honor .gitignore, info/exclude and global excludes")
	createCmd.Flags().StringSliceP("exclude", "e", nil, "additional exclude globs (can be specified multiple times)")

	rootCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	bufSize, err := cfg.BufferSize()
	if err != nil {
		return err
	}

	root := args[0]
	out := cfg.Out
	logger := cliLogger().With("root", root, "out", out)
	logger.Info("create started", "gitignore", cfg.Gitignore, "exclude", cfg.Exclude)

	m, err := manifest.Create(cmd.Context(), out, manifest.CreateOptions{
		Root:       root,
		Gitignore:  cfg.Gitignore,
		Exclude:    cfg.Exclude,
		BufferSize: bufSize,
		OnEntry: func(e manifest.Entry) {
			printVerbose("%s  %s", e.SHA256, e.Path)
		},
	})
	if err != nil {
		return err
	}

	logger.Info("create finished", "entries", len(m.Entries), "bytes", m.TotalSize())
	printVerbose("Hashed %d files, %s", len(m.Entries), size.Format(m.TotalSize()))
	printInfo("Wrote manifest to %s", out)
	return nil
}

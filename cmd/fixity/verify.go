package main

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/fixity/pkg/fixity/logging"
	"github.com/jamesainslie/fixity/pkg/fixity/manifest"
	"github.com/jamesainslie/fixity/pkg/fixity/output"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <manifest>",
	Short: "Check a directory tree against a manifest",
	Long: `Re-hash every file recorded in <manifest> and report each one as
OK, CHANGED or MISSING, followed by a summary.

Files added to the tree after the manifest was written are not reported.
Exit status is 2 when any file is CHANGED or MISSING.

Formats: ` + strings.Join(output.Available(), ", "),
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringP("format", "f", "", "report format (default: plain)")
	verifyCmd.Flags().String("template", "", "text/template for the report (implies --format template)")
	verifyCmd.Flags().Bool("all", false, "pretty format: list OK entries too")

	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	bufSize, err := cfg.BufferSize()
	if err != nil {
		return err
	}

	formatter, err := selectFormatter(cmd, cfg.Format)
	if err != nil {
		return err
	}

	path := args[0]
	logger := cliLogger().With("manifest", path)

	m, err := manifest.Read(path)
	if err != nil {
		return err
	}
	logger.Info("verify started", "root", m.Root, "entries", len(m.Entries))

	w := cmd.OutOrStdout()
	if getQuiet() {
		w = io.Discard
	}

	streamer, streaming := formatter.(output.Streamer)
	var buf bytes.Buffer
	opts := manifest.VerifyOptions{BufferSize: bufSize}
	if streaming {
		opts.OnCheck = func(c manifest.Check) {
			buf.Reset()
			if err := streamer.FormatCheck(&buf, c); err == nil {
				_, _ = w.Write(buf.Bytes())
			}
		}
	}

	report, err := manifest.Verify(cmd.Context(), m, opts)
	if err != nil {
		return err
	}
	report.Manifest = path

	buf.Reset()
	if streaming {
		err = streamer.FormatSummary(&buf, report)
	} else {
		err = formatter.Format(&buf, report)
	}
	if err != nil {
		return fmt.Errorf("formatting report: %w", err)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	logger.Info("verify finished", "ok", report.Counts.OK, "changed", report.Counts.Changed, "missing", report.Counts.Missing)

	if !report.Clean() {
		return &ExitError{Code: exitDiscrepancies}
	}
	return nil
}

// selectFormatter resolves --template, --format and --all into a formatter.
func selectFormatter(cmd *cobra.Command, format string) (output.Formatter, error) {
	tmpl, _ := cmd.Flags().GetString("template")
	if tmpl != "" {
		return output.NewTemplateFormatter(tmpl), nil
	}

	f, err := output.Get(format)
	if err != nil {
		return nil, err
	}
	if pretty, ok := f.(*output.PrettyFormatter); ok {
		pretty.All, _ = cmd.Flags().GetBool("all")
	}
	return f, nil
}

func cliLogger() *logging.Logger {
	return logging.Get("cli")
}

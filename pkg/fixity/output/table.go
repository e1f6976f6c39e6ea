package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/jamesainslie/fixity/pkg/fixity/manifest"
)

var tableHeader = []string{"STATUS", "PATH", "SIZE", "EXPECTED", "ACTUAL"}

func tableRow(c manifest.Check) []string {
	return []string{
		string(c.Status),
		c.Path,
		strconv.FormatInt(c.Size, 10),
		string(c.Expected),
		string(c.Actual),
	}
}

// CSVFormatter writes RFC 4180 CSV with one row per check.
type CSVFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *CSVFormatter) Format(w *bytes.Buffer, r *manifest.Report) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(tableHeader); err != nil {
		return err
	}
	for _, c := range r.Checks {
		if err := writer.Write(tableRow(c)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func init() {
	Register("csv", func() Formatter {
		return &CSVFormatter{}
	})
}

var _ Formatter = (*CSVFormatter)(nil)

// MarkdownFormatter writes a GitHub-flavored Markdown table followed by the
// summary line.
type MarkdownFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *MarkdownFormatter) Format(w *bytes.Buffer, r *manifest.Report) error {
	w.WriteString("| " + strings.Join(tableHeader, " | ") + " |\n")
	w.WriteString("|" + strings.Repeat("---|", len(tableHeader)) + "\n")

	for _, c := range r.Checks {
		cells := tableRow(c)
		for i := range cells {
			cells[i] = escapeMarkdownPipe(cells[i])
		}
		fmt.Fprintf(w, "| %s |\n", strings.Join(cells, " | "))
	}

	w.WriteString("\n")
	w.WriteString(SummaryLine(r.Counts))
	w.WriteString("\n")
	return nil
}

func escapeMarkdownPipe(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func init() {
	Register("markdown", func() Formatter {
		return &MarkdownFormatter{}
	})
}

var _ Formatter = (*MarkdownFormatter)(nil)

package output

import (
	"bytes"
	"fmt"

	"github.com/jamesainslie/fixity/pkg/fixity/manifest"
)

// PlainFormatter writes one unstyled line per check, a summary line and,
// for a clean report, the all-clear line.
type PlainFormatter struct{}

// Format writes the whole report.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *manifest.Report) error {
	for _, c := range r.Checks {
		if err := f.FormatCheck(w, c); err != nil {
			return err
		}
	}
	return f.FormatSummary(w, r)
}

// FormatCheck writes the status padded to eight columns and the path.
func (f *PlainFormatter) FormatCheck(w *bytes.Buffer, c manifest.Check) error {
	_, err := fmt.Fprintf(w, "%-8s %s\n", c.Status, c.Path)
	return err
}

// FormatSummary writes the counts and the all-clear line.
func (f *PlainFormatter) FormatSummary(w *bytes.Buffer, r *manifest.Report) error {
	w.WriteString(SummaryLine(r.Counts))
	w.WriteByte('\n')
	if r.Clean() {
		w.WriteString(AllClearLine)
		w.WriteByte('\n')
	}
	return nil
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

var _ Streamer = (*PlainFormatter)(nil)

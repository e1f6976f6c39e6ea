package output

import (
	"bytes"

	"github.com/jamesainslie/fixity/pkg/fixity/manifest"
)

// PathsFormatter writes the path of every CHANGED or MISSING entry, one per
// line, for piping into other tools.
type PathsFormatter struct {
	// Sep terminates each path.
	Sep byte
}

// Format writes the formatted output to the buffer.
func (f *PathsFormatter) Format(w *bytes.Buffer, r *manifest.Report) error {
	for _, c := range r.Checks {
		if err := f.FormatCheck(w, c); err != nil {
			return err
		}
	}
	return nil
}

// FormatCheck writes c's path if it is a discrepancy.
func (f *PathsFormatter) FormatCheck(w *bytes.Buffer, c manifest.Check) error {
	if c.Status == manifest.StatusOK {
		return nil
	}
	w.WriteString(c.Path)
	w.WriteByte(f.Sep)
	return nil
}

// FormatSummary writes nothing; the exit code carries the outcome.
func (f *PathsFormatter) FormatSummary(*bytes.Buffer, *manifest.Report) error {
	return nil
}

func init() {
	Register("paths", func() Formatter {
		return &PathsFormatter{Sep: '\n'}
	})
	// Null-delimited for xargs -0.
	Register("null", func() Formatter {
		return &PathsFormatter{Sep: 0}
	})
}

var _ Streamer = (*PathsFormatter)(nil)

package output

import (
	"bytes"

	json "github.com/goccy/go-json"

	"github.com/jamesainslie/fixity/pkg/fixity/manifest"
)

// structuredReport is the document shape shared by the json and yaml
// formats.
type structuredReport struct {
	Manifest string           `json:"manifest,omitempty" yaml:"manifest,omitempty"`
	Root     string           `json:"root" yaml:"root"`
	Checks   []manifest.Check `json:"checks" yaml:"checks"`
	Counts   manifest.Counts  `json:"counts" yaml:"counts"`
	Clean    bool             `json:"clean" yaml:"clean"`
}

func newStructuredReport(r *manifest.Report) structuredReport {
	checks := r.Checks
	if checks == nil {
		checks = []manifest.Check{}
	}
	return structuredReport{
		Manifest: r.Manifest,
		Root:     r.Root,
		Checks:   checks,
		Counts:   r.Counts,
		Clean:    r.Clean(),
	}
}

// JSONFormatter writes the report as one indented JSON document.
type JSONFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *manifest.Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(newStructuredReport(r))
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

var _ Formatter = (*JSONFormatter)(nil)

// JSONLFormatter writes one compact JSON object per check, then a final
// object carrying the counts.
type JSONLFormatter struct{}

type jsonlSummary struct {
	Counts manifest.Counts `json:"counts"`
	Clean  bool            `json:"clean"`
}

// Format writes the formatted output to the buffer.
func (f *JSONLFormatter) Format(w *bytes.Buffer, r *manifest.Report) error {
	for _, c := range r.Checks {
		if err := f.FormatCheck(w, c); err != nil {
			return err
		}
	}
	return f.FormatSummary(w, r)
}

// FormatCheck writes a single check line.
func (f *JSONLFormatter) FormatCheck(w *bytes.Buffer, c manifest.Check) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	w.Write(data)
	w.WriteByte('\n')
	return nil
}

// FormatSummary writes the counts line.
func (f *JSONLFormatter) FormatSummary(w *bytes.Buffer, r *manifest.Report) error {
	data, err := json.Marshal(jsonlSummary{Counts: r.Counts, Clean: r.Clean()})
	if err != nil {
		return err
	}
	w.Write(data)
	w.WriteByte('\n')
	return nil
}

func init() {
	Register("jsonl", func() Formatter {
		return &JSONLFormatter{}
	})
}

var _ Streamer = (*JSONLFormatter)(nil)

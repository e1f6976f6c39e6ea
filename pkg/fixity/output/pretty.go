package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jamesainslie/fixity/pkg/fixity/manifest"
	"github.com/jamesainslie/fixity/pkg/fixity/size"
)

// PrettyFormatter renders a report with lipgloss styling for terminals.
type PrettyFormatter struct {
	// All lists OK checks too; by default only discrepancies are shown.
	All bool
}

// Format writes the header, the check table and the footer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *manifest.Report) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")
	w.WriteString(f.formatTable(r))
	w.WriteString(f.formatFooter(r))
	w.WriteString("\n")
	return nil
}

func (f *PrettyFormatter) formatHeader(r *manifest.Report) string {
	var lines []string
	if r.Manifest != "" {
		lines = append(lines, LabelStyle.Render("Manifest:")+" "+ValueStyle.Render(r.Manifest))
	}
	lines = append(lines, LabelStyle.Render("Root:")+" "+ValueStyle.Render(r.Root))
	lines = append(lines, LabelStyle.Render("Entries:")+" "+ValueStyle.Render(fmt.Sprintf("%d", len(r.Checks))))
	return HeaderBox.Render(strings.Join(lines, "\n"))
}

func (f *PrettyFormatter) formatTable(r *manifest.Report) string {
	var rows []manifest.Check
	for _, c := range r.Checks {
		if f.All || c.Status != manifest.StatusOK {
			rows = append(rows, c)
		}
	}
	if len(rows) == 0 {
		if len(r.Checks) == 0 {
			return MutedStyle.Render("  Manifest has no entries") + "\n"
		}
		return SuccessStyle.Render("  "+AllClearLine) + "\n"
	}

	sizes := make([]string, len(rows))
	sizeWidth := len("SIZE")
	for i, c := range rows {
		sizes[i] = size.Format(c.Size)
		if len(sizes[i]) > sizeWidth {
			sizeWidth = len(sizes[i])
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("  %s %s %s\n",
		TableHeaderStyle.Render(padRight("STATUS", 8)),
		TableHeaderStyle.Render(padLeft("SIZE", sizeWidth)),
		TableHeaderStyle.Render("PATH")))

	for i, c := range rows {
		sb.WriteString(fmt.Sprintf("  %s %s %s\n",
			StatusStyle(c.Status).Render(padRight(string(c.Status), 8)),
			SizeStyle.Render(padLeft(sizes[i], sizeWidth)),
			PathStyle.Render(c.Path)))
	}
	return sb.String()
}

func (f *PrettyFormatter) formatFooter(r *manifest.Report) string {
	parts := []string{
		LabelStyle.Render("OK:") + " " + SuccessStyle.Render(fmt.Sprintf("%d", r.Counts.OK)),
		LabelStyle.Render("Changed:") + " " + StatusStyle(manifest.StatusChanged).Render(fmt.Sprintf("%d", r.Counts.Changed)),
		LabelStyle.Render("Missing:") + " " + StatusStyle(manifest.StatusMissing).Render(fmt.Sprintf("%d", r.Counts.Missing)),
		LabelStyle.Render("Verified:") + " " + SizeStyle.Render(size.Format(verifiedBytes(r))),
	}
	return FooterBox.Render(strings.Join(parts, "  "))
}

// verifiedBytes sums the sizes of files that were actually read.
func verifiedBytes(r *manifest.Report) int64 {
	var total int64
	for _, c := range r.Checks {
		if c.Status != manifest.StatusMissing {
			total += c.Size
		}
	}
	return total
}

func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

var _ Formatter = (*PrettyFormatter)(nil)

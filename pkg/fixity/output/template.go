package output

import (
	"bytes"
	"sync"
	"text/template"

	"github.com/jamesainslie/fixity/pkg/fixity/manifest"
	"github.com/jamesainslie/fixity/pkg/fixity/size"
)

// TemplateFormatter renders a report through a text/template. The
// template receives the report plus Clean and Summary fields.
type TemplateFormatter struct {
	templateStr string
	template    *template.Template
	mu          sync.Mutex
}

type templateData struct {
	*manifest.Report
	Clean   bool
	Summary string
}

// NewTemplateFormatter creates a formatter for the given template text.
func NewTemplateFormatter(templateStr string) *TemplateFormatter {
	return &TemplateFormatter{templateStr: templateStr}
}

// SetTemplate replaces the template text.
func (f *TemplateFormatter) SetTemplate(templateStr string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.templateStr = templateStr
	f.template = nil
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		// {{bytes .Size}}
		"bytes": size.Format,
		// {{short .Expected}} gives the first 12 hex digits.
		"short": func(d any) string {
			s := toString(d)
			if len(s) > 12 {
				return s[:12]
			}
			return s
		},
	}
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case interface{ String() string }:
		return s.String()
	default:
		return ""
	}
}

// Format writes the formatted output to the buffer.
func (f *TemplateFormatter) Format(w *bytes.Buffer, r *manifest.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.template == nil {
		tmpl, err := template.New("report").Funcs(templateFuncs()).Parse(f.templateStr)
		if err != nil {
			return err
		}
		f.template = tmpl
	}

	return f.template.Execute(w, templateData{
		Report:  r,
		Clean:   r.Clean(),
		Summary: SummaryLine(r.Counts),
	})
}

const defaultTemplate = `{{range .Checks}}{{printf "%-8s" .Status}} {{short .Expected}} {{.Path}}
{{end}}{{.Summary}}
`

func init() {
	Register("template", func() Formatter {
		return NewTemplateFormatter(defaultTemplate)
	})
}

var _ Formatter = (*TemplateFormatter)(nil)

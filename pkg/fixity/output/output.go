// Package output renders verification reports in the formats offered by
// `fixity verify --format`.
//
// Formatters are kept in a registry so the CLI can select one by name:
//
//	f, err := output.Get("pretty")
//	if err != nil {
//	    return err
//	}
//	var buf bytes.Buffer
//	if err := f.Format(&buf, report); err != nil {
//	    return err
//	}
//
// Formatters that also implement Streamer can render each check as soon as
// it is made, followed by the summary once verification finishes.
package output

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"github.com/jamesainslie/fixity/pkg/fixity/manifest"
)

// Formatter renders a complete report.
type Formatter interface {
	Format(w *bytes.Buffer, r *manifest.Report) error
}

// Streamer renders a report incrementally.
type Streamer interface {
	Formatter

	// FormatCheck writes the line for a single check.
	FormatCheck(w *bytes.Buffer, c manifest.Check) error

	// FormatSummary writes everything that follows the checks.
	FormatSummary(w *bytes.Buffer, r *manifest.Report) error
}

// FormatterFactory creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry maps format names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a factory, replacing any previous one with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown format %q (available: %v)", name, r.availableLocked())
	}
	return factory(), nil
}

// Available returns the registered names, sorted.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.availableLocked()
}

func (r *Registry) availableLocked() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry holds the built-in formatters.
var DefaultRegistry = NewRegistry()

// Register adds a factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a formatter from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available lists the default registry's formats.
func Available() []string {
	return DefaultRegistry.Available()
}

// SummaryLine is the counts line printed after the checks.
func SummaryLine(c manifest.Counts) string {
	return fmt.Sprintf("Summary: OK=%d CHANGED=%d MISSING=%d", c.OK, c.Changed, c.Missing)
}

// AllClearLine is printed when a report has no discrepancies.
const AllClearLine = "All files verified."

package manifest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"

	"github.com/jamesainslie/fixity/pkg/fixity/digest"
	"github.com/jamesainslie/fixity/pkg/fixity/ignore"
	"github.com/jamesainslie/fixity/pkg/fixity/logging"
	"github.com/jamesainslie/fixity/pkg/fixity/walker"
)

var logger = logging.Get("manifest")

// Error reports a failure to read, parse or write a manifest file.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// CreateOptions configures Build.
type CreateOptions struct {
	// Root is recorded in the manifest exactly as given.
	Root string

	Gitignore bool
	Exclude   []string

	// BufferSize is the digest read chunk size; zero uses the default.
	BufferSize int

	// Loader reads ignore files; nil uses ignore.NewLoader().
	Loader *ignore.Loader

	// OnEntry, if set, is called after each entry is recorded.
	OnEntry func(Entry)
}

// Build walks opts.Root and records one entry per regular file in the
// order the walk encounters them. Any walk or digest error aborts the build.
func Build(ctx context.Context, opts CreateOptions) (*Manifest, error) {
	bufSize := opts.BufferSize
	if bufSize <= 0 {
		bufSize = digest.DefaultBufferSize
	}

	m := &Manifest{Root: opts.Root, Entries: []Entry{}}

	stats, err := walker.Walk(ctx, walker.Options{
		Root:      opts.Root,
		Gitignore: opts.Gitignore,
		Exclude:   opts.Exclude,
		Loader:    opts.Loader,
	}, func(f walker.File) error {
		sum, n, err := digest.File(f.Path, bufSize)
		if err != nil {
			return err
		}
		e := Entry{Path: f.Rel, SHA256: sum, Size: n}
		m.Entries = append(m.Entries, e)
		if opts.OnEntry != nil {
			opts.OnEntry(e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("manifest built", "root", opts.Root, "algorithm", digest.Algorithm, "entries", len(m.Entries), "ignored", stats.Ignored, "skipped", stats.Skipped)
	return m, nil
}

// Create builds a manifest for opts.Root and writes it to out.
func Create(ctx context.Context, out string, opts CreateOptions) (*Manifest, error) {
	m, err := Build(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := Write(out, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Write stores m at path as indented JSON. The data goes to a temporary
// file in the same directory which is then renamed over path.
func Write(path string, m *Manifest) error {
	out := *m
	if out.Entries == nil {
		out.Entries = []Entry{}
	}

	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return &Error{Op: "write", Path: path, Err: err}
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &Error{Op: "write", Path: path, Err: unwrapPathError(err)}
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return &Error{Op: "write", Path: path, Err: unwrapPathError(err)}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return &Error{Op: "write", Path: path, Err: unwrapPathError(err)}
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return &Error{Op: "write", Path: path, Err: unwrapPathError(err)}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return &Error{Op: "write", Path: path, Err: unwrapPathError(err)}
	}

	logger.Debug("manifest written", "path", path, "bytes", len(data))
	return nil
}

// wireManifest mirrors Manifest with pointer fields so that absent keys
// can be told apart from zero values.
type wireManifest struct {
	Root    *string      `json:"root"`
	Entries *[]wireEntry `json:"entries"`
}

type wireEntry struct {
	Path   *string        `json:"path"`
	SHA256 *digest.Digest `json:"sha256"`
	Size   *int64         `json:"size"`
}

// Read loads and validates the manifest at path. Every field of the
// manifest and of each entry must be present.
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Op: "read", Path: path, Err: unwrapPathError(err)}
	}

	var w *wireManifest
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, &Error{Op: "parse", Path: path, Err: err}
	}
	m, err := w.manifest()
	if err != nil {
		return nil, &Error{Op: "parse", Path: path, Err: err}
	}
	if err := m.Validate(); err != nil {
		return nil, &Error{Op: "parse", Path: path, Err: err}
	}
	return m, nil
}

func (w *wireManifest) manifest() (*Manifest, error) {
	if w == nil {
		return nil, errors.New("not a manifest object")
	}
	if w.Root == nil {
		return nil, errors.New("missing root")
	}
	if *w.Root == "" {
		return nil, errors.New("empty root")
	}
	if w.Entries == nil {
		return nil, errors.New("missing entries")
	}

	m := &Manifest{Root: *w.Root, Entries: make([]Entry, 0, len(*w.Entries))}
	for i, e := range *w.Entries {
		switch {
		case e.Path == nil:
			return nil, fmt.Errorf("entry %d: missing path", i)
		case e.SHA256 == nil:
			return nil, fmt.Errorf("entry %d (%s): missing sha256", i, *e.Path)
		case e.Size == nil:
			return nil, fmt.Errorf("entry %d (%s): missing size", i, *e.Path)
		}
		m.Entries = append(m.Entries, Entry{Path: *e.Path, SHA256: *e.SHA256, Size: *e.Size})
	}
	return m, nil
}

// Validate checks that every entry has a path, a well-formed digest and a
// non-negative size.
func (m *Manifest) Validate() error {
	for i, e := range m.Entries {
		if e.Path == "" {
			return fmt.Errorf("entry %d: empty path", i)
		}
		if !e.SHA256.Valid() {
			return fmt.Errorf("entry %d (%s): invalid sha256 %q", i, e.Path, e.SHA256)
		}
		if e.Size < 0 {
			return fmt.Errorf("entry %d (%s): negative size %d", i, e.Path, e.Size)
		}
	}
	return nil
}

// unwrapPathError drops the *os.PathError layer so the path is not
// repeated in Error's message.
func unwrapPathError(err error) error {
	var pe *os.PathError
	if errors.As(err, &pe) {
		return pe.Err
	}
	return err
}

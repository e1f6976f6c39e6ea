// Package walker enumerates the regular files under a root for manifest
// creation. It wraps fastwalk with a single worker so files are produced
// one at a time, applies ignore rules and exclude globs, and turns every
// file into a root-relative, slash-separated entry path.
package walker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"

	"github.com/jamesainslie/fixity/pkg/fixity/ignore"
	"github.com/jamesainslie/fixity/pkg/fixity/logging"
)

var logger = logging.Get("walker")

// Options configures a walk.
type Options struct {
	// Root is the directory to enumerate.
	Root string

	// Gitignore enables the ignore-file tiers.
	Gitignore bool

	// Exclude holds doublestar globs matched against each relative path
	// and its base name. Matching directories are not descended into.
	Exclude []string

	// Loader reads ignore files. Nil uses ignore.NewLoader().
	Loader *ignore.Loader
}

// File is one regular file found by Walk.
type File struct {
	// Path is the file's path as produced by the walk (Root joined with
	// the names below it).
	Path string

	// Rel is the entry path: Path relative to Root with '/' separators, or
	// Path unchanged when no relative form exists.
	Rel string
}

// Stats summarizes a finished walk.
type Stats struct {
	Dirs    int64
	Files   int64
	Ignored int64
	Skipped int64 // symlinks and special files
}

// Error reports a traversal failure. Any such failure aborts the walk.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Validate checks the options.
func (o *Options) Validate() error {
	if o.Root == "" {
		return errors.New("walker: root is required")
	}
	for _, pattern := range o.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("walker: invalid exclude pattern %q", pattern)
		}
	}
	if o.Loader == nil {
		o.Loader = ignore.NewLoader()
	}
	return nil
}

// Walk calls fn for every regular file under opts.Root. Traversal order is
// whatever the filesystem returns; it is not sorted. The first error from
// the filesystem, the ignore loader, ctx or fn stops the walk and is
// returned.
func Walk(ctx context.Context, opts Options, fn func(File) error) (Stats, error) {
	if err := opts.Validate(); err != nil {
		return Stats{}, err
	}

	info, err := os.Stat(opts.Root)
	if err != nil {
		return Stats{}, &Error{Op: "walk", Path: opts.Root, Err: unwrapPathError(err)}
	}
	if !info.IsDir() {
		return Stats{}, &Error{Op: "walk", Path: opts.Root, Err: errors.New("not a directory")}
	}

	w := &walk{opts: opts, ctx: ctx, fn: fn}
	if opts.Gitignore {
		rs, prefix, err := opts.Loader.Root(opts.Root)
		if err != nil {
			return Stats{}, &Error{Op: "walk", Path: opts.Root, Err: err}
		}
		w.prefix = prefix
		w.rules = map[string]ignore.RuleSet{filepath.Clean(opts.Root): rs}
	}

	conf := fastwalk.Config{
		Follow:     false,
		NumWorkers: 1,
	}

	logger.Debug("walk started", "root", opts.Root, "gitignore", opts.Gitignore, "exclude", len(opts.Exclude))

	if err := fastwalk.Walk(&conf, opts.Root, w.visit); err != nil {
		return w.stats, err
	}

	logger.Debug("walk finished", "root", opts.Root, "files", w.stats.Files, "dirs", w.stats.Dirs, "ignored", w.stats.Ignored)
	return w.stats, nil
}

// walk carries per-run state. fastwalk runs with one worker, so visit is
// never called concurrently.
type walk struct {
	opts   Options
	ctx    context.Context
	fn     func(File) error
	stats  Stats
	prefix []string
	rules  map[string]ignore.RuleSet
}

func (w *walk) visit(path string, d fs.DirEntry, err error) error {
	if err != nil {
		return &Error{Op: "walk", Path: path, Err: unwrapPathError(err)}
	}
	if ctxErr := w.ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	if filepath.Clean(path) == filepath.Clean(w.opts.Root) {
		return nil
	}

	rel := RelPath(w.opts.Root, path)
	isDir := d.IsDir()

	if w.excluded(rel) || !w.included(path, rel, isDir) {
		w.stats.Ignored++
		if isDir {
			return fastwalk.SkipDir
		}
		return nil
	}

	if isDir {
		w.stats.Dirs++
		return w.enterDir(path)
	}

	if !d.Type().IsRegular() {
		w.stats.Skipped++
		return nil
	}

	w.stats.Files++
	return w.fn(File{Path: path, Rel: rel})
}

// included consults the rule set of path's parent directory.
func (w *walk) included(path, rel string, isDir bool) bool {
	if w.rules == nil {
		return true
	}
	rs := w.rules[filepath.Dir(filepath.Clean(path))]
	return rs.Included(w.matchPath(rel), isDir)
}

// enterDir loads the ignore files a directory contributes before fastwalk
// reads its children.
func (w *walk) enterDir(path string) error {
	if w.rules == nil {
		return nil
	}
	clean := filepath.Clean(path)
	parent := w.rules[filepath.Dir(clean)]
	rs, err := w.opts.Loader.Dir(parent, clean, w.matchPath(RelPath(w.opts.Root, path)))
	if err != nil {
		return &Error{Op: "walk", Path: path, Err: err}
	}
	w.rules[clean] = rs
	return nil
}

// matchPath places rel below the ignore base.
func (w *walk) matchPath(rel string) []string {
	parts := ignore.SplitPath(rel)
	if len(w.prefix) == 0 {
		return parts
	}
	out := make([]string, 0, len(w.prefix)+len(parts))
	out = append(out, w.prefix...)
	return append(out, parts...)
}

func (w *walk) excluded(rel string) bool {
	for _, pattern := range w.opts.Exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, filepath.Base(filepath.FromSlash(rel))); ok {
			return true
		}
	}
	return false
}

// RelPath converts path to a slash-separated path relative to root. When
// filepath.Rel cannot relate the two, path is returned as encountered.
func RelPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

func unwrapPathError(err error) error {
	var pe *os.PathError
	if errors.As(err, &pe) {
		return pe.Err
	}
	return err
}

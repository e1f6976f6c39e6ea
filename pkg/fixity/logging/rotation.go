package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	// MaxSize is the size in bytes at which the file is rotated.
	// Zero uses the default of 10 MiB.
	MaxSize int64

	// MaxAge is the number of days rotated files are kept. Zero keeps them
	// regardless of age.
	MaxAge int

	// MaxBackups is the number of rotated files kept. Zero keeps all of
	// them, subject to MaxAge.
	MaxBackups int

	// Daily rotates on the first write after local midnight.
	Daily bool
}

// DefaultRotationConfig returns the rotation used when none is configured.
func DefaultRotationConfig() RotationConfig {
	return RotationConfig{
		MaxSize:    10 * 1024 * 1024,
		MaxAge:     30,
		MaxBackups: 5,
		Daily:      true,
	}
}

// rotatedLayout is the timestamp inserted between the log name and its
// extension, e.g. fixity.20250102T150405.123.log.
const rotatedLayout = "20060102T150405.000"

// RotatingWriter is an io.WriteCloser that appends to a log file and
// rotates it by size or day. Several fixity processes may share one file,
// so each write holds an exclusive flock and reopens the path if another
// process rotated it in the meantime.
type RotatingWriter struct {
	path string
	cfg  RotationConfig

	mu     sync.Mutex
	file   *os.File
	opened time.Time
}

// NewRotatingWriter opens path for appending, creating parent directories
// as needed, and prunes old rotated files.
func NewRotatingWriter(path string, cfg RotationConfig) (*RotatingWriter, error) {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultRotationConfig().MaxSize
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	w := &RotatingWriter{path: path, cfg: cfg}
	if err := w.open(); err != nil {
		return nil, err
	}
	w.prune()
	return w, nil
}

// Write appends p, rotating first when p would push the file past
// MaxSize or the day has changed.
func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return 0, os.ErrClosed
	}

	if err := unix.Flock(int(w.file.Fd()), unix.LOCK_EX); err != nil {
		return 0, fmt.Errorf("acquiring file lock: %w", err)
	}
	locked := w.file

	size, err := w.sync()
	if err == nil && size > 0 && w.due(size+int64(len(p))) {
		err = w.rotate(locked)
	}
	if err != nil {
		_ = unix.Flock(int(locked.Fd()), unix.LOCK_UN)
		return 0, fmt.Errorf("rotating log file: %w", err)
	}

	n, err := w.file.Write(p)
	_ = unix.Flock(int(locked.Fd()), unix.LOCK_UN)
	if w.file != locked {
		_ = locked.Close()
	}
	if err != nil {
		return n, fmt.Errorf("writing to log file: %w", err)
	}
	return n, nil
}

// Close syncs and closes the log file.
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	syncErr := w.file.Sync()
	closeErr := w.file.Close()
	w.file = nil
	if syncErr != nil {
		return fmt.Errorf("syncing log file: %w", syncErr)
	}
	return closeErr
}

func (w *RotatingWriter) open() error {
	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return fmt.Errorf("stat log file: %w", err)
	}
	w.file = file
	w.opened = info.ModTime()
	if info.Size() == 0 {
		w.opened = time.Now()
	}
	return nil
}

// sync returns the current size of the file at w.path. When another
// process has rotated the path away from the open descriptor, the old
// descriptor is kept for the caller to unlock and the path is reopened.
func (w *RotatingWriter) sync() (int64, error) {
	held, err := w.file.Stat()
	if err != nil {
		return 0, err
	}
	current, err := os.Stat(w.path)
	if err == nil && os.SameFile(held, current) {
		return held.Size(), nil
	}

	// Rotated or removed underneath us.
	old := w.file
	if err := w.open(); err != nil {
		w.file = old
		return 0, err
	}
	info, err := w.file.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (w *RotatingWriter) due(size int64) bool {
	if size > w.cfg.MaxSize {
		return true
	}
	if w.cfg.Daily {
		now := time.Now()
		y1, m1, d1 := now.Date()
		y2, m2, d2 := w.opened.Date()
		return y1 != y2 || m1 != m2 || d1 != d2
	}
	return false
}

// rotate renames the log to a timestamped sibling and opens a fresh file.
// locked stays open for Write to unlock and close.
func (w *RotatingWriter) rotate(locked *os.File) error {
	target := w.rotatedName(time.Now())
	if err := os.Rename(w.path, target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("renaming log file: %w", err)
	}
	prev := w.file
	if err := w.open(); err != nil {
		return err
	}
	if prev != locked {
		_ = prev.Close()
	}
	w.opened = time.Now()
	w.prune()
	return nil
}

// rotatedName returns an unused name for a file rotated at t.
func (w *RotatingWriter) rotatedName(t time.Time) string {
	ext := filepath.Ext(w.path)
	base := strings.TrimSuffix(w.path, ext)
	stamp := t.Format(rotatedLayout)

	name := fmt.Sprintf("%s.%s%s", base, stamp, ext)
	for i := 1; ; i++ {
		if _, err := os.Lstat(name); os.IsNotExist(err) {
			return name
		}
		name = fmt.Sprintf("%s.%s-%d%s", base, stamp, i, ext)
	}
}

// rotatedFiles lists the rotated siblings of the log, newest first.
func (w *RotatingWriter) rotatedFiles() []string {
	dir := filepath.Dir(w.path)
	base := filepath.Base(w.path)
	ext := filepath.Ext(base)
	prefix := strings.TrimSuffix(base, ext) + "."

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	type rotated struct {
		path string
		mod  time.Time
	}
	var found []rotated
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == base || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ext) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		found = append(found, rotated{path: filepath.Join(dir, name), mod: info.ModTime()})
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].mod.Equal(found[j].mod) {
			return found[i].path > found[j].path
		}
		return found[i].mod.After(found[j].mod)
	})

	out := make([]string, len(found))
	for i, f := range found {
		out[i] = f.path
	}
	return out
}

// prune deletes rotated files beyond MaxBackups or older than MaxAge.
// Failures are ignored; a leftover backup is harmless.
func (w *RotatingWriter) prune() {
	maxAge := time.Duration(w.cfg.MaxAge) * 24 * time.Hour
	now := time.Now()

	for i, path := range w.rotatedFiles() {
		drop := w.cfg.MaxBackups > 0 && i >= w.cfg.MaxBackups
		if !drop && w.cfg.MaxAge > 0 {
			if info, err := os.Stat(path); err == nil && now.Sub(info.ModTime()) > maxAge {
				drop = true
			}
		}
		if drop {
			_ = os.Remove(path)
		}
	}
}

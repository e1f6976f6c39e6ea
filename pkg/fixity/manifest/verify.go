package manifest

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jamesainslie/fixity/pkg/fixity/digest"
)

// VerifyOptions configures Verify.
type VerifyOptions struct {
	// BufferSize is the digest read chunk size; zero uses the default.
	BufferSize int

	// OnCheck, if set, receives each check as soon as it is made.
	OnCheck func(Check)
}

// Resolve returns the filesystem location of an entry. Entry paths that are
// already absolute are used unchanged.
func (m *Manifest) Resolve(e Entry) string {
	p := filepath.FromSlash(e.Path)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Root, p)
}

// Verify recomputes the digest of every entry in stored order and
// classifies it. A file that does not exist is MISSING. Any other failure
// to stat or read a file aborts verification with an error.
func Verify(ctx context.Context, m *Manifest, opts VerifyOptions) (*Report, error) {
	bufSize := opts.BufferSize
	if bufSize <= 0 {
		bufSize = digest.DefaultBufferSize
	}

	report := &Report{Root: m.Root, Checks: make([]Check, 0, len(m.Entries))}

	for _, e := range m.Entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		check, err := verifyEntry(m.Resolve(e), e, bufSize)
		if err != nil {
			return nil, err
		}

		report.Checks = append(report.Checks, check)
		report.Counts.Add(check.Status)
		if opts.OnCheck != nil {
			opts.OnCheck(check)
		}
	}

	logger.Info("manifest verified", "root", m.Root, "algorithm", digest.Algorithm,
		"ok", report.Counts.OK, "changed", report.Counts.Changed, "missing", report.Counts.Missing)
	return report, nil
}

func verifyEntry(path string, e Entry, bufSize int) (Check, error) {
	check := Check{Path: e.Path, Expected: e.SHA256, Size: e.Size}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			check.Status = StatusMissing
			logger.Debug("entry missing", "path", e.Path)
			return check, nil
		}
		return Check{}, &digest.Error{Op: "stat", Path: path, Err: unwrapPathError(err)}
	}

	sum, n, err := digest.File(path, bufSize)
	if err != nil {
		return Check{}, err
	}

	check.Actual = sum
	check.Size = n
	if sum == e.SHA256 {
		check.Status = StatusOK
	} else {
		check.Status = StatusChanged
		logger.Debug("entry changed", "path", e.Path, "expected", e.SHA256, "actual", sum)
	}
	return check, nil
}

package ignore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/jamesainslie/fixity/pkg/fixity/logging"
)

// File names of the ignore tiers.
const (
	GitignoreFile = ".gitignore"
	GitDir        = ".git"
	ExcludeFile   = "info/exclude"
)

var logger = logging.Get("ignore")

// GlobalFunc loads the user's global excludes patterns.
type GlobalFunc func() ([]gitignore.Pattern, string, error)

// Loader reads ignore files from disk.
type Loader struct {
	global GlobalFunc
}

// NewLoader returns a Loader that reads the global excludes file from
// core.excludesFile in ~/.gitconfig, falling back to
// $XDG_CONFIG_HOME/git/ignore.
func NewLoader() *Loader {
	return &Loader{global: loadGlobal}
}

// NewLoaderWithGlobal returns a Loader with a custom global tier.
// A nil fn disables the global tier.
func NewLoaderWithGlobal(fn GlobalFunc) *Loader {
	return &Loader{global: fn}
}

// Base locates the matching base for root: the nearest directory at or above
// root containing a .git entry, or root itself outside a repository.
// prefix is root's position below base as path components.
func Base(root string) (base string, prefix []string, err error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", nil, fmt.Errorf("resolving %s: %w", root, err)
	}

	for dir := abs; ; {
		if _, err := os.Lstat(filepath.Join(dir, GitDir)); err == nil {
			rel, relErr := filepath.Rel(dir, abs)
			if relErr != nil {
				return abs, nil, nil
			}
			return dir, SplitPath(filepath.ToSlash(rel)), nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return abs, nil, nil
		}
		dir = parent
	}
}

// Root builds the RuleSet in effect at root: the global tier, the enclosing
// repository's exclude file, and every .gitignore from the repository top
// down to root. It returns the set and root's prefix below the base.
func (l *Loader) Root(root string) (RuleSet, []string, error) {
	base, prefix, err := Base(root)
	if err != nil {
		return RuleSet{}, nil, err
	}

	var rs RuleSet
	if l.global != nil {
		ps, name, err := l.global()
		if err != nil {
			// A broken ~/.gitconfig should not stop a manifest run.
			logger.Warn("skipping global excludes", "err", err)
		} else if len(ps) > 0 {
			rs = rs.With(Source{Name: name, Tier: TierGlobal, Patterns: ps})
		}
	}

	rs, err = l.Dir(rs, base, nil)
	if err != nil {
		return RuleSet{}, nil, err
	}
	dir := base
	for i := range prefix {
		dir = filepath.Join(dir, prefix[i])
		rs, err = l.Dir(rs, dir, prefix[:i+1])
		if err != nil {
			return RuleSet{}, nil, err
		}
	}

	logger.Debug("ignore rules loaded", "root", root, "base", base, "sources", rs.Len())
	return rs, prefix, nil
}

// Dir extends parent with the rules a directory contributes, then dir's
// own .gitignore. A directory holding a .git entry is a repository
// boundary: only the global tier of parent carries over, topped with the
// repository's exclude file when .git is a directory. domain is dir's
// position below the base.
func (l *Loader) Dir(parent RuleSet, dir string, domain []string) (RuleSet, error) {
	rs := parent

	if info, err := os.Lstat(filepath.Join(dir, GitDir)); err == nil {
		rs = parent.Tier(TierGlobal)
		if info.IsDir() {
			src, err := readSource(filepath.Join(dir, GitDir, filepath.FromSlash(ExcludeFile)), TierRepoExclude, domain)
			if err != nil {
				return RuleSet{}, err
			}
			rs = rs.With(src)
		}
		if len(domain) > 0 {
			logger.Debug("nested repository resets ignore rules", "dir", dir)
		}
	}

	src, err := readSource(filepath.Join(dir, GitignoreFile), TierDirectory, domain)
	if err != nil {
		return RuleSet{}, err
	}
	return rs.With(src), nil
}

// readSource parses an ignore file; a missing file yields an empty source.
func readSource(path string, tier Tier, domain []string) (Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Source{Name: path, Tier: tier}, nil
		}
		return Source{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return ParseSource(path, tier, data, domain), nil
}

// loadGlobal reads core.excludesFile through go-git, then the XDG default.
func loadGlobal() ([]gitignore.Pattern, string, error) {
	ps, err := gitignore.LoadGlobalPatterns(osfs.New("/"))
	if err != nil {
		return nil, "", fmt.Errorf("loading core.excludesFile: %w", err)
	}
	if len(ps) > 0 {
		return ps, "core.excludesFile", nil
	}

	path := filepath.Join(xdg.ConfigHome, "git", "ignore")
	src, err := readSource(path, TierGlobal, nil)
	if err != nil {
		return nil, "", err
	}
	return src.Patterns, path, nil
}

// Package ignore evaluates git-style ignore rules for the tree walker.
//
// Rules come from three tiers: the user's global excludes file, a
// repository's info/exclude file, and per-directory .gitignore files. A
// RuleSet keeps its sources ordered from least to most specific and decides
// inclusion by asking the most specific source first.
package ignore

import (
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// Tier identifies where a rule source came from.
type Tier int

const (
	// TierGlobal is the user-wide excludes file.
	TierGlobal Tier = iota
	// TierRepoExclude is a repository's info/exclude file.
	TierRepoExclude
	// TierDirectory is a .gitignore file inside the tree.
	TierDirectory
)

// String returns the tier name used in log output.
func (t Tier) String() string {
	switch t {
	case TierGlobal:
		return "global"
	case TierRepoExclude:
		return "exclude"
	case TierDirectory:
		return "gitignore"
	default:
		return "unknown"
	}
}

// Source is one parsed ignore file.
type Source struct {
	// Name is the file the patterns were read from.
	Name string
	// Tier is the precedence class of the file.
	Tier Tier
	// Patterns are in file order; later patterns override earlier ones.
	Patterns []gitignore.Pattern
}

// ParseSource parses ignore-file content. domain is the directory the file
// applies to, as path components relative to the matching base; global
// and exclude files use the base itself (nil).
func ParseSource(name string, tier Tier, content []byte, domain []string) Source {
	src := Source{Name: name, Tier: tier}
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "" {
			continue
		}
		src.Patterns = append(src.Patterns, gitignore.ParsePattern(line, domain))
	}
	return src
}

// RuleSet is an immutable, ordered stack of sources. The zero value
// includes everything.
type RuleSet struct {
	sources []Source
}

// NewRuleSet returns a RuleSet over sources given least specific first.
func NewRuleSet(sources ...Source) RuleSet {
	var rs RuleSet
	for _, s := range sources {
		rs = rs.With(s)
	}
	return rs
}

// With returns a RuleSet with src stacked on top. The receiver is not
// modified, so sibling directories can share a parent's set.
func (rs RuleSet) With(src Source) RuleSet {
	if len(src.Patterns) == 0 {
		return rs
	}
	next := make([]Source, len(rs.sources), len(rs.sources)+1)
	copy(next, rs.sources)
	return RuleSet{sources: append(next, src)}
}

// Len returns the number of non-empty sources.
func (rs RuleSet) Len() int { return len(rs.sources) }

// Tier returns the subset of rs read from tier, in order.
func (rs RuleSet) Tier(tier Tier) RuleSet {
	var out RuleSet
	for _, s := range rs.sources {
		if s.Tier == tier {
			out.sources = append(out.sources, s)
		}
	}
	return out
}

// Sources returns the sources, least specific first.
func (rs RuleSet) Sources() []Source {
	out := make([]Source, len(rs.sources))
	copy(out, rs.sources)
	return out
}

// Included reports whether path (components relative to the matching base)
// survives the rules. The most specific source is consulted first, and
// within a source the last pattern wins; the first decisive match settles
// the answer. A path no rule mentions is included.
func (rs RuleSet) Included(path []string, isDir bool) bool {
	for i := len(rs.sources) - 1; i >= 0; i-- {
		ps := rs.sources[i].Patterns
		for j := len(ps) - 1; j >= 0; j-- {
			switch ps[j].Match(path, isDir) {
			case gitignore.Exclude:
				return false
			case gitignore.Include:
				return true
			}
		}
	}
	return true
}

// SplitPath splits a slash-separated relative path into components,
// dropping empty and "." elements.
func SplitPath(rel string) []string {
	if rel == "" || rel == "." {
		return nil
	}
	parts := strings.Split(rel, "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" && p != "." {
			out = append(out, p)
		}
	}
	return out
}

package ignore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleSet_ZeroValueIncludesEverything(t *testing.T) {
	var rs RuleSet
	assert.True(t, rs.Included([]string{"a", "b.txt"}, false))
	assert.True(t, rs.Included([]string{".hidden"}, true))
}

func TestRuleSet_Included(t *testing.T) {
	global := ParseSource("global", TierGlobal, []byte("*.tmp\n*.bak\n"), nil)
	exclude := ParseSource("exclude", TierRepoExclude, []byte("secrets/\n!keep.bak\n"), nil)
	top := ParseSource(".gitignore", TierDirectory, []byte("# comment\n\n*.log\n!important.tmp\n"), nil)
	sub := ParseSource("sub/.gitignore", TierDirectory, []byte("!debug.log\n"), []string{"sub"})

	rs := NewRuleSet(global, exclude, top, sub)

	tests := []struct {
		name  string
		path  string
		isDir bool
		want  bool
	}{
		{name: "unmatched file", path: "main.go", want: true},
		{name: "global excludes", path: "x.tmp", want: false},
		{name: "directory file overrides global", path: "important.tmp", want: true},
		{name: "exclude file overrides global", path: "keep.bak", want: true},
		{name: "global still applies to others", path: "other.bak", want: false},
		{name: "dir-only pattern on directory", path: "secrets", isDir: true, want: false},
		{name: "dir-only pattern ignores same-named file", path: "secrets", want: true},
		{name: "top-level gitignore", path: "app.log", want: false},
		{name: "nested gitignore re-includes", path: "sub/debug.log", want: true},
		{name: "nested scope is limited", path: "debug.log", want: false},
		{name: "hidden files are not special", path: ".env", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rs.Included(SplitPath(tt.path), tt.isDir)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRuleSet_WithDoesNotMutateParent(t *testing.T) {
	parent := NewRuleSet(ParseSource("a", TierDirectory, []byte("*.a\n"), nil))
	child := parent.With(ParseSource("b", TierDirectory, []byte("*.b\n"), nil))
	sibling := parent.With(ParseSource("c", TierDirectory, []byte("*.c\n"), nil))

	assert.Equal(t, 1, parent.Len())
	assert.Equal(t, 2, child.Len())
	assert.True(t, child.Included([]string{"x.c"}, false))
	assert.False(t, sibling.Included([]string{"x.c"}, false))
	assert.True(t, sibling.Included([]string{"x.b"}, false))
}

func TestRuleSet_WithSkipsEmptySources(t *testing.T) {
	rs := NewRuleSet(ParseSource("empty", TierDirectory, []byte("# only a comment\n\n"), nil))
	assert.Equal(t, 0, rs.Len())
}

func TestSplitPath(t *testing.T) {
	assert.Nil(t, SplitPath(""))
	assert.Nil(t, SplitPath("."))
	assert.Equal(t, []string{"a", "b"}, SplitPath("./a//b"))
}

func TestTier_String(t *testing.T) {
	assert.Equal(t, "global", TierGlobal.String())
	assert.Equal(t, "exclude", TierRepoExclude.String())
	assert.Equal(t, "gitignore", TierDirectory.String())
	assert.Equal(t, "unknown", Tier(42).String())
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestBase(t *testing.T) {
	repo := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(repo, GitDir), 0o755))
	sub := filepath.Join(repo, "a", "b")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	base, prefix, err := Base(sub)
	require.NoError(t, err)
	assert.Equal(t, repo, base)
	assert.Equal(t, []string{"a", "b"}, prefix)

	base, prefix, err = Base(repo)
	require.NoError(t, err)
	assert.Equal(t, repo, base)
	assert.Empty(t, prefix)
}

func TestLoader_Root(t *testing.T) {
	repo := t.TempDir()
	writeFile(t, filepath.Join(repo, GitDir, "info", "exclude"), "*.swp\n")
	writeFile(t, filepath.Join(repo, GitignoreFile), "*.log\n")
	writeFile(t, filepath.Join(repo, "pkg", GitignoreFile), "gen/\n")
	root := filepath.Join(repo, "pkg")

	global := func() ([]gitignore.Pattern, string, error) {
		return []gitignore.Pattern{gitignore.ParsePattern("*.orig", nil)}, "test-global", nil
	}

	rs, prefix, err := NewLoaderWithGlobal(global).Root(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"pkg"}, prefix)
	require.Equal(t, 4, rs.Len())

	tiers := []Tier{}
	for _, s := range rs.Sources() {
		tiers = append(tiers, s.Tier)
	}
	assert.Equal(t, []Tier{TierGlobal, TierRepoExclude, TierDirectory, TierDirectory}, tiers)

	assert.False(t, rs.Included([]string{"pkg", "a.orig"}, false))
	assert.False(t, rs.Included([]string{"pkg", "a.swp"}, false))
	assert.False(t, rs.Included([]string{"pkg", "a.log"}, false))
	assert.False(t, rs.Included([]string{"pkg", "gen"}, true))
	assert.True(t, rs.Included([]string{"pkg", "main.go"}, false))
}

func TestLoader_GlobalErrorIsNotFatal(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, GitDir), 0o755))

	broken := func() ([]gitignore.Pattern, string, error) {
		return nil, "", errors.New("bad gitconfig")
	}

	rs, _, err := NewLoaderWithGlobal(broken).Root(root)
	require.NoError(t, err)
	assert.Equal(t, 0, rs.Len())
}

func TestLoader_DirNestedRepository(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "vendor", "lib")
	writeFile(t, filepath.Join(nested, GitDir, "info", "exclude"), "local.txt\n")
	writeFile(t, filepath.Join(nested, GitignoreFile), "*.tmp\n")

	parent := NewRuleSet(
		Source{Name: "global", Tier: TierGlobal, Patterns: []gitignore.Pattern{gitignore.ParsePattern("*.orig", nil)}},
		Source{Name: "outer", Tier: TierDirectory, Patterns: []gitignore.Pattern{gitignore.ParsePattern("*.log", nil)}},
	)

	domain := []string{"vendor", "lib"}
	rs, err := NewLoaderWithGlobal(nil).Dir(parent, nested, domain)
	require.NoError(t, err)

	tiers := []Tier{}
	for _, s := range rs.Sources() {
		tiers = append(tiers, s.Tier)
	}
	assert.Equal(t, []Tier{TierGlobal, TierRepoExclude, TierDirectory}, tiers)

	assert.False(t, rs.Included([]string{"vendor", "lib", "local.txt"}, false))
	assert.False(t, rs.Included([]string{"vendor", "lib", "x.tmp"}, false))
	assert.False(t, rs.Included([]string{"vendor", "lib", "x.orig"}, false))
	assert.True(t, rs.Included([]string{"vendor", "lib", "x.log"}, false), "outer .gitignore must stop at the repository boundary")
	assert.True(t, rs.Included([]string{"local.txt"}, false))
}

func TestLoader_DirGitFileIsBoundary(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "module")
	writeFile(t, filepath.Join(sub, GitDir), "gitdir: ../.git/modules/module\n")

	parent := NewRuleSet(Source{Name: "outer", Tier: TierDirectory, Patterns: []gitignore.Pattern{gitignore.ParsePattern("*.log", nil)}})

	rs, err := NewLoaderWithGlobal(nil).Dir(parent, sub, []string{"module"})
	require.NoError(t, err)
	assert.Equal(t, 0, rs.Len())
	assert.True(t, rs.Included([]string{"module", "x.log"}, false))
}

func TestLoader_DirKeepsParentOutsideRepositories(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "sub")
	writeFile(t, filepath.Join(sub, GitignoreFile), "*.tmp\n")

	parent := NewRuleSet(Source{Name: "outer", Tier: TierDirectory, Patterns: []gitignore.Pattern{gitignore.ParsePattern("*.log", nil)}})

	rs, err := NewLoaderWithGlobal(nil).Dir(parent, sub, []string{"sub"})
	require.NoError(t, err)
	assert.Equal(t, 2, rs.Len())
	assert.False(t, rs.Included([]string{"sub", "x.log"}, false))
	assert.False(t, rs.Included([]string{"sub", "x.tmp"}, false))
}

func TestRuleSet_Tier(t *testing.T) {
	g := Source{Name: "g", Tier: TierGlobal, Patterns: []gitignore.Pattern{gitignore.ParsePattern("a", nil)}}
	d := Source{Name: "d", Tier: TierDirectory, Patterns: []gitignore.Pattern{gitignore.ParsePattern("b", nil)}}
	rs := NewRuleSet(g, d)

	assert.Equal(t, []Source{g}, rs.Tier(TierGlobal).Sources())
	assert.Equal(t, 2, rs.Len())
	assert.Equal(t, 0, rs.Tier(TierRepoExclude).Len())
}

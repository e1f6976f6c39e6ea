package manifest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/fixity/pkg/fixity/digest"
	"github.com/jamesainslie/fixity/pkg/fixity/ignore"
)

const (
	emptySHA = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	helloSHA = "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func build(t *testing.T, root string, gitignore bool) *Manifest {
	t.Helper()
	m, err := Build(context.Background(), CreateOptions{
		Root:      root,
		Gitignore: gitignore,
		Loader:    ignore.NewLoaderWithGlobal(nil),
	})
	require.NoError(t, err)
	return m
}

func paths(m *Manifest) []string {
	out := make([]string, 0, len(m.Entries))
	for _, e := range m.Entries {
		out = append(out, e.Path)
	}
	return out
}

func TestBuild_RecordsDigestAndSize(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "hello.txt"), "hello world")
	writeFile(t, filepath.Join(root, "empty"), "")

	m := build(t, root, true)

	assert.Equal(t, root, m.Root)
	byPath := map[string]Entry{}
	for _, e := range m.Entries {
		byPath[e.Path] = e
	}
	require.Len(t, byPath, 2)
	assert.Equal(t, digest.Digest(helloSHA), byPath["hello.txt"].SHA256)
	assert.Equal(t, int64(11), byPath["hello.txt"].Size)
	assert.Equal(t, digest.Digest(emptySHA), byPath["empty"].SHA256)
	assert.Equal(t, int64(0), byPath["empty"].Size)
	assert.Equal(t, int64(11), m.TotalSize())
}

func TestBuild_EmptyTree(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(t.TempDir(), "manifest.json")

	m, err := Create(context.Background(), out, CreateOptions{Root: root, Loader: ignore.NewLoaderWithGlobal(nil)})
	require.NoError(t, err)
	assert.Empty(t, m.Entries)

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"entries": []`)

	read, err := Read(out)
	require.NoError(t, err)
	report, err := Verify(context.Background(), read, VerifyOptions{})
	require.NoError(t, err)
	assert.Equal(t, Counts{}, report.Counts)
	assert.True(t, report.Clean())
}

func TestBuild_IgnoreRuleEffect(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".gitignore"), "*.log\n")
	writeFile(t, filepath.Join(root, "a.log"), "log")
	writeFile(t, filepath.Join(root, "a.txt"), "txt")

	with := build(t, root, true)
	without := build(t, root, false)

	assert.ElementsMatch(t, []string{".gitignore", "a.txt"}, paths(with))
	assert.ElementsMatch(t, []string{".gitignore", "a.log", "a.txt"}, paths(without))
}

func TestBuild_OnEntry(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a"), "a")
	writeFile(t, filepath.Join(root, "b"), "b")

	var seen []string
	m, err := Build(context.Background(), CreateOptions{
		Root:   root,
		Loader: ignore.NewLoaderWithGlobal(nil),
		OnEntry: func(e Entry) {
			seen = append(seen, e.Path)
		},
	})
	require.NoError(t, err)

	assert.Equal(t, paths(m), seen)
}

func TestBuild_WalkErrorIsFatal(t *testing.T) {
	_, err := Build(context.Background(), CreateOptions{Root: filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestBuild_UnreadableFileIsFatal(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}
	root := t.TempDir()
	locked := filepath.Join(root, "locked")
	writeFile(t, locked, "x")
	require.NoError(t, os.Chmod(locked, 0o000))

	_, err := Build(context.Background(), CreateOptions{Root: root, Loader: ignore.NewLoaderWithGlobal(nil)})

	var derr *digest.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "open", derr.Op)
}

func TestWrite_Format(t *testing.T) {
	out := filepath.Join(t.TempDir(), "m.json")
	m := &Manifest{Root: "data", Entries: []Entry{{Path: "a/b.txt", SHA256: helloSHA, Size: 11}}}

	require.NoError(t, Write(out, m))

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	want := `{
  "root": "data",
  "entries": [
    {
      "path": "a/b.txt",
      "sha256": "` + helloSHA + `",
      "size": 11
    }
  ]
}
`
	assert.Equal(t, want, string(raw))
}

func TestWrite_OverwritesAndLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "m.json")
	writeFile(t, out, "old content")

	require.NoError(t, Write(out, &Manifest{Root: "r"}))

	read, err := Read(out)
	require.NoError(t, err)
	assert.Equal(t, "r", read.Root)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWrite_UnwritableDestination(t *testing.T) {
	out := filepath.Join(t.TempDir(), "no", "such", "dir", "m.json")

	err := Write(out, &Manifest{Root: "r"})

	var merr *Error
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, "write", merr.Op)
	assert.Equal(t, out, merr.Path)
}

func TestRead_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content *string
		op      string
		msg     string
	}{
		{name: "missing file", content: nil, op: "read"},
		{name: "not json", content: ptr("not json"), op: "parse"},
		{name: "wrong shape", content: ptr(`{"root": 5}`), op: "parse"},
		{name: "bad digest", content: ptr(`{"root":"r","entries":[{"path":"a","sha256":"xyz","size":1}]}`), op: "parse", msg: "invalid sha256"},
		{name: "uppercase digest", content: ptr(`{"root":"r","entries":[{"path":"a","sha256":"` + upper(helloSHA) + `","size":1}]}`), op: "parse", msg: "invalid sha256"},
		{name: "negative size", content: ptr(`{"root":"r","entries":[{"path":"a","sha256":"` + helloSHA + `","size":-1}]}`), op: "parse", msg: "negative size"},
		{name: "empty path", content: ptr(`{"root":"r","entries":[{"path":"","sha256":"` + helloSHA + `","size":1}]}`), op: "parse", msg: "empty path"},
		{name: "null document", content: ptr(`null`), op: "parse", msg: "not a manifest object"},
		{name: "empty object", content: ptr(`{}`), op: "parse", msg: "missing root"},
		{name: "missing root", content: ptr(`{"entries":[]}`), op: "parse", msg: "missing root"},
		{name: "empty root", content: ptr(`{"root":"","entries":[]}`), op: "parse", msg: "empty root"},
		{name: "missing entries", content: ptr(`{"root":"r"}`), op: "parse", msg: "missing entries"},
		{name: "null entries", content: ptr(`{"root":"r","entries":null}`), op: "parse", msg: "missing entries"},
		{name: "entry without path", content: ptr(`{"root":"r","entries":[{"sha256":"` + helloSHA + `","size":1}]}`), op: "parse", msg: "missing path"},
		{name: "entry without digest", content: ptr(`{"root":"r","entries":[{"path":"a","size":1}]}`), op: "parse", msg: "missing sha256"},
		{name: "entry without size", content: ptr(`{"root":"r","entries":[{"path":"a","sha256":"` + helloSHA + `"}]}`), op: "parse", msg: "missing size"},
		{name: "null entry", content: ptr(`{"root":"r","entries":[null]}`), op: "parse", msg: "missing path"},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, fmt.Sprintf("case%02d.json", i))
			if tt.content != nil {
				writeFile(t, path, *tt.content)
			}

			_, err := Read(path)

			var merr *Error
			require.ErrorAs(t, err, &merr)
			assert.Equal(t, tt.op, merr.Op)
			assert.Equal(t, path, merr.Path)
			if tt.msg != "" {
				assert.Contains(t, err.Error(), tt.msg)
			}
		})
	}
}

func TestRead_EmptyEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.json")
	writeFile(t, path, `{"root":"r","entries":[]}`)

	m, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, "r", m.Root)
	assert.NotNil(t, m.Entries)
	assert.Empty(t, m.Entries)
}

func TestRead_ZeroSizeIsKept(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.json")
	writeFile(t, path, `{"root":"r","entries":[{"path":"empty","sha256":"`+emptySHA+`","size":0}]}`)

	m, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{Path: "empty", SHA256: emptySHA, Size: 0}}, m.Entries)
}

func TestRead_MissingFileMessage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.json")

	_, err := Read(path)

	require.ErrorIs(t, err, fs.ErrNotExist)
	assert.Equal(t, 1, strings.Count(err.Error(), path))
}

func TestUnwrapPathError(t *testing.T) {
	pe := &os.PathError{Op: "open", Path: "/x", Err: fs.ErrPermission}

	assert.Equal(t, fs.ErrPermission, unwrapPathError(pe))
	assert.Equal(t, fs.ErrPermission, unwrapPathError(fmt.Errorf("wrapped: %w", pe)))

	plain := errors.New("plain")
	assert.Equal(t, plain, unwrapPathError(plain))
}

func TestRoundTrip(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "alpha")
	writeFile(t, filepath.Join(root, "dir", "b.bin"), string([]byte{0, 1, 2, 3}))
	writeFile(t, filepath.Join(root, ".hidden"), "h")
	out := filepath.Join(t.TempDir(), "manifest.json")

	created, err := Create(context.Background(), out, CreateOptions{Root: root, Loader: ignore.NewLoaderWithGlobal(nil)})
	require.NoError(t, err)

	read, err := Read(out)
	require.NoError(t, err)
	assert.Equal(t, created, read)

	report, err := Verify(context.Background(), read, VerifyOptions{})
	require.NoError(t, err)
	assert.Equal(t, Counts{OK: 3}, report.Counts)
	assert.True(t, report.Clean())
}

func TestManifest_JSONFieldNames(t *testing.T) {
	raw, err := json.Marshal(&Manifest{Root: "r", Entries: []Entry{{Path: "p", SHA256: emptySHA, Size: 0}}})
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(raw, &generic))
	assert.Contains(t, generic, "root")
	entries := generic["entries"].([]any)
	entry := entries[0].(map[string]any)
	assert.ElementsMatch(t, []string{"path", "sha256", "size"}, keys(entry))
}

func ptr(s string) *string { return &s }

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'f' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

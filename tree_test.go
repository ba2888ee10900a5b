package fmf

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// createTestDir creates a metadata tree root with the given files.
func createTestDir(t *testing.T, files map[string]string) string {
	t.Helper()
	tmpDir := t.TempDir()
	files[".fmf/version"] = "1\n"
	for path, content := range files {
		fullPath := filepath.Join(tmpDir, path)
		if err := os.MkdirAll(filepath.Dir(fullPath), 0o700); err != nil {
			t.Fatalf("Failed to create directory for %q: %v", path, err)
		}
		if err := os.WriteFile(fullPath, []byte(content), 0o600); err != nil {
			t.Fatalf("Failed to create file %q: %v", path, err)
		}
	}
	return tmpDir
}

// buildTree builds a tree over the given files.
func buildTree(t *testing.T, files map[string]string) *Tree {
	t.Helper()
	dir := createTestDir(t, files)
	tree, err := NewTree(context.Background(), TreeOptions{Path: dir})
	if err != nil {
		t.Fatalf("NewTree() error = %v", err)
	}
	return tree
}

// nodeData returns the plain data of a named node, failing the test
// when the node does not exist.
func nodeData(t *testing.T, tree *Tree, name string) map[string]any {
	t.Helper()
	node := tree.Find(name)
	if node == nil {
		t.Fatalf("node %q not found", name)
	}
	return node.Data().ToMap()
}

func TestNewTree_SimpleInheritance(t *testing.T) {
	tree := buildTree(t, map[string]string{
		"main.fmf":   "tag: [a]\ntest: run.sh\n",
		"c/main.fmf": "tag+: [b]\n",
	})

	want := map[string]any{"tag": []any{"a"}, "test": "run.sh"}
	if diff := cmp.Diff(want, nodeData(t, tree, "/")); diff != "" {
		t.Errorf("root data mismatch (-want +got):\n%s", diff)
	}

	want = map[string]any{"tag": []any{"a", "b"}, "test": "run.sh"}
	if diff := cmp.Diff(want, nodeData(t, tree, "/c")); diff != "" {
		t.Errorf("/c data mismatch (-want +got):\n%s", diff)
	}
}

func TestNewTree_InheritFalse(t *testing.T) {
	tree := buildTree(t, map[string]string{
		"main.fmf": `
x: 1
/child:
    /:
        inherit: false
    y: 2
`,
	})

	if diff := cmp.Diff(map[string]any{"x": 1}, nodeData(t, tree, "/")); diff != "" {
		t.Errorf("root data mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]any{"y": 2}, nodeData(t, tree, "/child")); diff != "" {
		t.Errorf("/child data mismatch (-want +got):\n%s", diff)
	}
}

func TestNewTree_RegexpSubstitute(t *testing.T) {
	tree := buildTree(t, map[string]string{
		"main.fmf": `
require: [python2-foo, bar]
/c:
    require~: /python2-/python3-/
`,
	})

	want := map[string]any{"require": []any{"python3-foo", "bar"}}
	if diff := cmp.Diff(want, nodeData(t, tree, "/c")); diff != "" {
		t.Errorf("/c data mismatch (-want +got):\n%s", diff)
	}
}

func TestNewTree_CompoundScopeKeys(t *testing.T) {
	tree := buildTree(t, map[string]string{
		"main.fmf": "x: 1\n/a/b/c:\n    y: 2\n",
	})

	for _, name := range []string{"/", "/a", "/a/b", "/a/b/c"} {
		if tree.Find(name) == nil {
			t.Errorf("node %q not found", name)
		}
	}
	want := map[string]any{"x": 1, "y": 2}
	if diff := cmp.Diff(want, nodeData(t, tree, "/a/b/c")); diff != "" {
		t.Errorf("/a/b/c data mismatch (-want +got):\n%s", diff)
	}
	// Intermediate nodes inherit but carry no own data.
	if diff := cmp.Diff(map[string]any{"x": 1}, nodeData(t, tree, "/a/b")); diff != "" {
		t.Errorf("/a/b data mismatch (-want +got):\n%s", diff)
	}
}

func TestNewTree_VirtualFiles(t *testing.T) {
	// 'X.fmf' maps to the child 'X', 'main.fmf' to the directory.
	tree := buildTree(t, map[string]string{
		"tests/main.fmf":  "tier: 1\n",
		"tests/smoke.fmf": "test: smoke.sh\n",
	})

	want := map[string]any{"tier": 1, "test": "smoke.sh"}
	if diff := cmp.Diff(want, nodeData(t, tree, "/tests/smoke")); diff != "" {
		t.Errorf("/tests/smoke data mismatch (-want +got):\n%s", diff)
	}
}

func TestNewTree_ScatteredFileAndDirectory(t *testing.T) {
	// A sibling 'x.fmf' file and the 'x' directory both feed the same
	// node; the file merges first, the directory content on top.
	tree := buildTree(t, map[string]string{
		"main.fmf":     "tag: [a]\n",
		"x.fmf":        "tier: 1\ntag+: [file]\n",
		"x/main.fmf":   "tag+: [dir]\n",
		"x/y/main.fmf": "test: run.sh\n",
	})

	want := map[string]any{"tag": []any{"a", "file", "dir"}, "tier": 1}
	if diff := cmp.Diff(want, nodeData(t, tree, "/x")); diff != "" {
		t.Errorf("/x data mismatch (-want +got):\n%s", diff)
	}
	want = map[string]any{"tag": []any{"a", "file", "dir"}, "tier": 1, "test": "run.sh"}
	if diff := cmp.Diff(want, nodeData(t, tree, "/x/y")); diff != "" {
		t.Errorf("/x/y data mismatch (-want +got):\n%s", diff)
	}
}

func TestNewTree_InvalidDirective(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown key", "/:\n    wrong: true\n"},
		{"not a mapping", "/: inherit\n"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			dir := createTestDir(t, map[string]string{"main.fmf": test.content})
			_, err := NewTree(context.Background(), TreeOptions{Path: dir})
			if err == nil {
				t.Fatal("expected directive error")
			}
			if !errors.Is(err, ErrInvalidDirective) {
				t.Errorf("error should be ErrInvalidDirective, got: %v", err)
			}
		})
	}
}

func TestNewTree_RootMissing(t *testing.T) {
	dir := t.TempDir()
	_, err := NewTree(context.Background(), TreeOptions{Path: dir})
	if err == nil {
		t.Fatal("expected root missing error")
	}
	if !errors.Is(err, ErrRootMissing) {
		t.Errorf("error should be ErrRootMissing, got: %v", err)
	}
}

func TestNewTree_DuplicateKey(t *testing.T) {
	dir := createTestDir(t, map[string]string{"main.fmf": "x: 1\nx: 2\n"})
	_, err := NewTree(context.Background(), TreeOptions{Path: dir})
	if err == nil {
		t.Fatal("expected duplicate key error")
	}
	if !errors.Is(err, ErrFile) {
		t.Errorf("error should be ErrFile, got: %v", err)
	}
}

func TestNewTree_InvalidSyntax(t *testing.T) {
	dir := createTestDir(t, map[string]string{"main.fmf": "- just\n- a list\n"})
	_, err := NewTree(context.Background(), TreeOptions{Path: dir})
	if err == nil {
		t.Fatal("expected syntax error")
	}
	if !errors.Is(err, ErrYaml) {
		t.Errorf("error should be ErrYaml, got: %v", err)
	}
}

func TestNewTree_EmptyFile(t *testing.T) {
	tree := buildTree(t, map[string]string{
		"main.fmf":       "x: 1\n",
		"empty/main.fmf": "",
	})
	if diff := cmp.Diff(map[string]any{"x": 1}, nodeData(t, tree, "/empty")); diff != "" {
		t.Errorf("/empty data mismatch (-want +got):\n%s", diff)
	}
}

func TestNewTree_FromData(t *testing.T) {
	data := parseMap(t, `
tag: [a]
/child:
    tag+: [b]
`)
	tree, err := NewTree(context.Background(), TreeOptions{Data: data})
	if err != nil {
		t.Fatalf("NewTree() error = %v", err)
	}
	want := map[string]any{"tag": []any{"a", "b"}}
	if diff := cmp.Diff(want, nodeData(t, tree, "/child")); diff != "" {
		t.Errorf("/child data mismatch (-want +got):\n%s", diff)
	}
}

func TestNewTree_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewTree(ctx, TreeOptions{Path: "."})
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error should wrap context.Canceled, got: %v", err)
	}
}

func TestNewTree_Version(t *testing.T) {
	tree := buildTree(t, map[string]string{"main.fmf": "x: 1\n"})
	if tree.Version() != 1 {
		t.Errorf("Version() = %d, want 1", tree.Version())
	}
	if tree.Path() == "" {
		t.Error("Path() should return the tree root")
	}
}

func TestNode_UniqueNames(t *testing.T) {
	tree := buildTree(t, map[string]string{
		"main.fmf":       "/a:\n    x: 1\n/b:\n    y: 2\n",
		"a/deep/main.fmf": "z: 3\n",
	})
	seen := make(map[string]bool)
	for _, node := range tree.Climb(true, false) {
		if seen[node.Name()] {
			t.Errorf("duplicate node name %q", node.Name())
		}
		seen[node.Name()] = true
	}
}

func TestNode_Sources(t *testing.T) {
	tree := buildTree(t, map[string]string{
		"main.fmf":   "x: 1\n",
		"c/main.fmf": "y: 2\n",
	})
	node := tree.Find("/c")
	sources := node.Sources()
	if len(sources) != 2 {
		t.Fatalf("Sources() = %v, want two entries", sources)
	}
	if filepath.Base(sources[0]) != "main.fmf" || filepath.Dir(sources[1]) == filepath.Dir(sources[0]) {
		t.Errorf("unexpected sources: %v", sources)
	}
}

func TestNode_Get(t *testing.T) {
	tree := buildTree(t, map[string]string{
		"main.fmf": "env:\n    nested:\n        value: deep\n",
	})
	value, ok := tree.Root().Get("env", "nested", "value")
	if !ok || value != "deep" {
		t.Errorf("Get() = (%v, %v), want (deep, true)", value, ok)
	}
	if _, ok := tree.Root().Get("env", "missing"); ok {
		t.Error("Get() should report missing keys")
	}
}

func TestNode_CopyIndependent(t *testing.T) {
	tree := buildTree(t, map[string]string{"main.fmf": "tag: [a]\n"})
	clone := tree.Root().Copy()
	clone.Data().Set("tag", []any{"changed"})
	if diff := cmp.Diff(map[string]any{"tag": []any{"a"}}, nodeData(t, tree, "/")); diff != "" {
		t.Errorf("copy shares state with origin (-want +got):\n%s", diff)
	}
}

func TestNode_SaveRoundTrip(t *testing.T) {
	files := map[string]string{
		"main.fmf":   "tag: [a]\ntest: run.sh\n",
		"c/main.fmf": "tag+: [b]\n",
	}
	dir := createTestDir(t, files)
	tree, err := NewTree(context.Background(), TreeOptions{Path: dir})
	if err != nil {
		t.Fatalf("NewTree() error = %v", err)
	}

	// Edit the child's own data and write it back.
	child := tree.Find("/c")
	child.OriginalData().Set("tier", 2)
	if err := child.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	reparsed, err := NewTree(context.Background(), TreeOptions{Path: dir})
	if err != nil {
		t.Fatalf("NewTree() after save error = %v", err)
	}
	want := map[string]any{"tag": []any{"a", "b"}, "test": "run.sh", "tier": 2}
	if diff := cmp.Diff(want, nodeData(t, reparsed, "/c")); diff != "" {
		t.Errorf("reparsed data mismatch (-want +got):\n%s", diff)
	}
}

func TestNode_SaveUntouchedRoundTrip(t *testing.T) {
	// Writing every node back without edits must not change the tree.
	files := map[string]string{
		"main.fmf":   "tag: [a]\n/inline:\n    x: 1\n",
		"c/main.fmf": "tag+: [b]\n",
	}
	dir := createTestDir(t, files)
	tree, err := NewTree(context.Background(), TreeOptions{Path: dir})
	if err != nil {
		t.Fatalf("NewTree() error = %v", err)
	}
	before := make(map[string]map[string]any)
	for _, node := range tree.Climb(true, false) {
		before[node.Name()] = node.Data().ToMap()
		if err := node.Save(); err != nil {
			t.Fatalf("Save(%s) error = %v", node.Name(), err)
		}
	}
	reparsed, err := NewTree(context.Background(), TreeOptions{Path: dir})
	if err != nil {
		t.Fatalf("NewTree() after save error = %v", err)
	}
	for _, node := range reparsed.Climb(true, false) {
		if diff := cmp.Diff(before[node.Name()], node.Data().ToMap()); diff != "" {
			t.Errorf("node %s changed after round trip (-want +got):\n%s",
				node.Name(), diff)
		}
	}
}

func TestNode_Accessors(t *testing.T) {
	tree := buildTree(t, map[string]string{
		"main.fmf":   "tier: 1\n",
		"c/main.fmf": "test: run.sh\n",
	})
	root := tree.Root()
	child := tree.Find("/c")

	if child.Parent() != root {
		t.Error("Parent() should return the root node")
	}
	if child.Tree() != tree {
		t.Error("Tree() should return the owning tree")
	}
	if root.IsLeaf() || !child.IsLeaf() {
		t.Error("IsLeaf() mismatch: root is a branch, /c is a leaf")
	}
	if child.Root() != tree.Path() {
		t.Errorf("Root() = %q, want %q", child.Root(), tree.Path())
	}
	if root.Child("c") != child {
		t.Error("Child(c) should return the /c node")
	}

	shown := child.Show()
	for _, needle := range []string{"/c", "test: run.sh", "tier: 1"} {
		if !strings.Contains(shown, needle) {
			t.Errorf("Show() output missing %q:\n%s", needle, shown)
		}
	}
}

func TestTree_Find(t *testing.T) {
	tree := buildTree(t, map[string]string{"a/b/main.fmf": "x: 1\n"})
	if tree.Find("/a/b") == nil {
		t.Error("Find(/a/b) returned nil")
	}
	if tree.Find("/") != tree.Root() {
		t.Error("Find(/) should return the root")
	}
	if tree.Find("/missing") != nil {
		t.Error("Find(/missing) should return nil")
	}
}

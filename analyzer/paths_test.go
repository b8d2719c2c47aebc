package analyzer

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func relAll(t *testing.T, root string, paths []string) []string {
	t.Helper()
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		rel, err := filepath.Rel(root, p)
		if err != nil {
			t.Fatalf("rel: %v", err)
		}
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

func TestExpandPaths_Directory(t *testing.T) {
	root := writeTree(t, map[string]string{
		"src/domain/entity.py":      "",
		"src/domain/script.pyw":     "",
		"src/service/handler.py":    "",
		"README.md":                 "",
		"src/notes.txt":             "",
		"venv/lib/installed.py":     "",
		"__pycache__/cached.py":     "",
		".git/hooks/something.py":   "",
		"src/.hidden/secret.py":     "",
		"node_modules/pkg/setup.py": "",
	})

	files, err := newTestAnalyzer(t).ExpandPaths([]string{root})
	if err != nil {
		t.Fatalf("ExpandPaths: %v", err)
	}

	got := relAll(t, root, files)
	want := []string{
		"src/domain/entity.py",
		"src/domain/script.pyw",
		"src/service/handler.py",
	}
	sort.Strings(want)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestExpandPaths_ExplicitFileWithoutExtension(t *testing.T) {
	root := writeTree(t, map[string]string{"hook-script": "x = 1\n"})
	path := filepath.Join(root, "hook-script")

	files, err := newTestAnalyzer(t).ExpandPaths([]string{path})
	if err != nil {
		t.Fatalf("ExpandPaths: %v", err)
	}
	if len(files) != 1 || files[0] != path {
		t.Errorf("explicitly named file should be included, got %v", files)
	}
}

func TestExpandPaths_Glob(t *testing.T) {
	root := writeTree(t, map[string]string{
		"src/domain/a.py":  "",
		"src/domain/b.py":  "",
		"src/service/c.py": "",
	})

	files, err := newTestAnalyzer(t).ExpandPaths(
		[]string{filepath.Join(root, "src", "domain", "*.py")})
	if err != nil {
		t.Fatalf("ExpandPaths: %v", err)
	}

	got := relAll(t, root, files)
	if len(got) != 2 || got[0] != "src/domain/a.py" || got[1] != "src/domain/b.py" {
		t.Errorf("got %v", got)
	}
}

func TestExpandPaths_DoublestarGlob(t *testing.T) {
	root := writeTree(t, map[string]string{
		"src/domain/deep/nested/a.py": "",
		"src/top.py":                  "",
	})

	files, err := newTestAnalyzer(t).ExpandPaths(
		[]string{filepath.Join(root, "src", "**", "*.py")})
	if err != nil {
		t.Fatalf("ExpandPaths: %v", err)
	}
	if len(files) != 2 {
		t.Errorf("got %v, want both files", relAll(t, root, files))
	}
}

func TestExpandPaths_Dedupe(t *testing.T) {
	root := writeTree(t, map[string]string{"src/a.py": ""})
	path := filepath.Join(root, "src", "a.py")

	files, err := newTestAnalyzer(t).ExpandPaths(
		[]string{path, path, filepath.Join(root, "src")})
	if err != nil {
		t.Fatalf("ExpandPaths: %v", err)
	}
	if len(files) != 1 {
		t.Errorf("got %v, want one entry", files)
	}
}

func TestExpandPaths_SortedOutput(t *testing.T) {
	root := writeTree(t, map[string]string{
		"src/z.py": "",
		"src/a.py": "",
		"src/m.py": "",
	})

	files, err := newTestAnalyzer(t).ExpandPaths([]string{root})
	if err != nil {
		t.Fatalf("ExpandPaths: %v", err)
	}
	if !sort.StringsAreSorted(files) {
		t.Errorf("output not sorted: %v", files)
	}
}

func TestExpandPaths_MissingPath(t *testing.T) {
	if _, err := newTestAnalyzer(t).ExpandPaths([]string{"/no/such/path"}); err == nil {
		t.Error("expected an error for a missing path")
	}
}

func TestExpandPaths_HiddenWalkRootIsScanned(t *testing.T) {
	base := t.TempDir()
	hidden := filepath.Join(base, ".project")
	if err := os.MkdirAll(filepath.Join(hidden, "src"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(hidden, "src", "a.py"), nil, 0644); err != nil {
		t.Fatal(err)
	}

	files, err := newTestAnalyzer(t).ExpandPaths([]string{hidden})
	if err != nil {
		t.Fatalf("ExpandPaths: %v", err)
	}
	if len(files) != 1 {
		t.Errorf("explicit hidden root should be scanned, got %v", files)
	}
}

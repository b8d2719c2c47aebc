package analyzer

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ExpandPaths resolves the CLI path arguments to a deduplicated, sorted list
// of Python files. Arguments may be concrete files, directories (scanned
// recursively), or doublestar glob patterns. A path that cannot be read is an
// error: input I/O failures are fatal to the invocation.
func (a *Analyzer) ExpandPaths(patterns []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)

	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, pattern := range patterns {
		if containsGlob(pattern) {
			matches, err := doublestar.FilepathGlob(pattern)
			if err != nil {
				return nil, fmt.Errorf("resolve pattern %q: %w", pattern, err)
			}
			for _, match := range matches {
				if err := a.expandOne(match, false, add); err != nil {
					return nil, err
				}
			}
			continue
		}

		if err := a.expandOne(pattern, true, add); err != nil {
			return nil, err
		}
	}

	sort.Strings(files)
	return files, nil
}

// expandOne resolves a single concrete path. explicit marks paths the caller
// named directly, which are included even without a .py extension.
func (a *Analyzer) expandOne(path string, explicit bool, add func(string)) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	if !info.IsDir() {
		if explicit || isPythonFile(path) {
			add(path)
		}
		return nil
	}

	return filepath.WalkDir(path, func(sub string, entry fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk %s: %w", sub, err)
		}
		if entry.IsDir() {
			if a.shouldSkipDir(entry.Name(), sub != path) {
				return filepath.SkipDir
			}
			return nil
		}
		if isPythonFile(sub) {
			add(sub)
		}
		return nil
	})
}

// shouldSkipDir excludes virtual envs, caches, and hidden directories from
// directory walks. The walk root itself is never skipped, so analyzing
// ".hidden-project/" explicitly still works.
func (a *Analyzer) shouldSkipDir(name string, nested bool) bool {
	if !nested {
		return false
	}
	if strings.HasPrefix(name, ".") {
		return true
	}
	return a.skipDirs[name]
}

func isPythonFile(path string) bool {
	return strings.HasSuffix(path, ".py") || strings.HasSuffix(path, ".pyw")
}

// containsGlob checks if a pattern contains glob characters.
func containsGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

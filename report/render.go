package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// NoViolationsMarker is written to the report file when a scan finds nothing.
// Keeping an explicit marker (rather than an empty file) lets a concurrent
// reader distinguish "clean scan" from "never ran".
const NoViolationsMarker = "no violations"

// Render serializes a report to its stable text form, one line per violation:
//
//	<path>:<line>: <rule_id> - <message>
//
// The output is a pure function of the report; equal reports render
// byte-identical text.
func Render(r Report) string {
	if r.Empty() {
		return NoViolationsMarker + "\n"
	}

	var sb strings.Builder
	for _, v := range r.Violations {
		sb.WriteString(fmt.Sprintf("%s:%d: %s - %s\n", v.Path, v.Line, v.Rule, v.Message))
	}
	return sb.String()
}

// WriteFile renders the report and atomically overwrites the file at path.
// The render is committed via a temporary file in the same directory followed
// by a rename, so a concurrent reader never observes a partial report.
func WriteFile(r Report, path string) error {
	return writeAtomic(path, Render(r))
}

// ClearFile atomically truncates the report file, removing any prior findings.
// Used at session end; a missing file is not an error.
func ClearFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return writeAtomic(path, "")
}

// WriteStream writes the rendered report to w and returns the process exit
// status for CLI mode: 0 when the report is empty, 1 otherwise.
func WriteStream(r Report, w io.Writer) (int, error) {
	if _, err := io.WriteString(w, Render(r)); err != nil {
		return 0, fmt.Errorf("write report: %w", err)
	}
	if r.Empty() {
		return 0, nil
	}
	return 1, nil
}

// writeAtomic writes content to path via a temp file and rename.
func writeAtomic(path, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp report: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp report: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("commit report: %w", err)
	}
	return nil
}

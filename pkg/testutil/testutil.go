// Package testutil contains helpers for tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// Must panics if err is non-nil. For use in tests and test fixtures only.
func Must(err error) {
	if err != nil {
		panic(err)
	}
}

// Must1 returns v, panicking if err is non-nil.
func Must1[T any](v T, err error) T {
	Must(err)
	return v
}

// TempDBFile returns a path for a temporary database file inside a test's
// temp directory.
func TempDBFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "quill.db")
}

// ApplyDir writes the given files (name to content) into dir.
func ApplyDir(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

// T is a fixed reference instant used by tests that need a stable "now":
// 2024-05-20 10:00 UTC.
var T = time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC)

// ClockAt returns a clock function frozen at the given instant.
func ClockAt(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

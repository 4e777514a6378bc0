package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// MiniName is the file name WriteMini uses.
const MiniName = "test.mini"

// CreateFile creates a file with the given content in the specified directory.
// Parent directories are created as needed.
func CreateFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create parent directories for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create file %s: %v", path, err)
	}
	return path
}

// WriteMini writes content to a meta ini file in a fresh temporary
// directory and returns its path.
func WriteMini(t *testing.T, content string) string {
	t.Helper()
	return CreateFile(t, t.TempDir(), MiniName, content)
}

// ReadFile returns the content of path.
func ReadFile(t *testing.T, path string) string {
	t.Helper()

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

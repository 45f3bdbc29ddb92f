package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates a file with the given contents, creating parent
// directories as needed, and returns its path.
func WriteFile(t testing.TB, dir, name string, contents []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, contents, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// WriteModelFile drops a placeholder model file into dir and returns its path.
func WriteModelFile(t testing.TB, dir, name string) string {
	t.Helper()
	return WriteFile(t, dir, name, []byte("solid plinth\nendsolid plinth\n"))
}

package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/fnser/internal/ir"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestTriple creates an unhashed arrow function triple.
func createTestTriple(param, body string) ir.Triple {
	return ir.Triple{
		Params: []string{param},
		Body:   body,
		Type:   ir.ShapeArrowFunction,
	}
}

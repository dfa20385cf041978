package store

import (
	"context"
	"path/filepath"
	"testing"
)

// createTestStore creates a new file-backed store in a temp dir.
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

// seedOrders loads a small orders table.
func seedOrders(t *testing.T, s *Store) {
	t.Helper()
	err := s.CreateTable(context.Background(), Table{
		Name: "orders",
		Rows: []map[string]any{
			{"id": 1, "customerId": "c1", "total": 120.5},
			{"id": 2, "customerId": "c2", "total": 80},
			{"id": 3, "customerId": "c1", "tags": []any{"rush"}},
		},
	})
	if err != nil {
		t.Fatalf("CreateTable() failed: %v", err)
	}
}

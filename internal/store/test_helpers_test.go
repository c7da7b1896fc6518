package store

import (
	"path/filepath"
	"testing"
)

// createTestDB creates a new SQLite database in a temp dir for testing.
func createTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	d, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite() failed: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

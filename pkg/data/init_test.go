package data

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInitDuckDB(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "test-init-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	dbPath := filepath.Join(tmpDir, "test.db")

	db, err := InitDuckDB(dbPath)
	if err != nil {
		t.Fatalf("Failed to initialize DB: %v", err)
	}
	defer db.Close()

	var tableCount int
	err = db.QueryRow(`SELECT COUNT(*) FROM information_schema.tables WHERE table_name = 'kv'`).Scan(&tableCount)
	if err != nil {
		t.Fatalf("Failed to query tables: %v", err)
	}

	if tableCount != 1 {
		t.Errorf("Expected kv table, got %d tables", tableCount)
	}
}

func TestInitDuckDBCreatesDirectory(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "test-init-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	dbPath := filepath.Join(tmpDir, "nested", "dir", "test.db")

	db, err := InitDuckDB(dbPath)
	if err != nil {
		t.Fatalf("Failed to initialize DB: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(filepath.Dir(dbPath)); os.IsNotExist(err) {
		t.Error("Database directory was not created")
	}
}

func TestInitDuckDBIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := InitDuckDB(dbPath)
	if err != nil {
		t.Fatalf("Failed to initialize DB: %v", err)
	}
	db.Close()

	db, err = InitDuckDB(dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen DB: %v", err)
	}
	db.Close()
}

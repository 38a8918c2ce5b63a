package data

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb/v2"
)

const createKVTable = `CREATE TABLE IF NOT EXISTS kv (
	key VARCHAR PRIMARY KEY,
	value VARCHAR NOT NULL,
	updated_at TIMESTAMP DEFAULT current_timestamp
)`

// InitDuckDB opens (creating if needed) the database at path and ensures the schema.
func InitDuckDB(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(createKVTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return db, nil
}

// DuckDBStore is a Store backed by the kv table of a DuckDB file.
type DuckDBStore struct {
	db *sql.DB
}

// NewDuckDBStore opens the database at path.
func NewDuckDBStore(path string) (*DuckDBStore, error) {
	db, err := InitDuckDB(path)
	if err != nil {
		return nil, err
	}
	return &DuckDBStore{db: db}, nil
}

func (s *DuckDBStore) Get(key string) ([]byte, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return []byte(value), true, nil
}

func (s *DuckDBStore) Put(key string, value []byte) error {
	_, err := s.db.Exec(`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, current_timestamp)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(value))
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Keys lists stored keys in order.
func (s *DuckDBStore) Keys() ([]string, error) {
	rows, err := s.db.Query(`SELECT key FROM kv ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *DuckDBStore) Close() error {
	return s.db.Close()
}

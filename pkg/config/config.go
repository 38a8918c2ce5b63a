package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kerbaras/adxport/pkg/data"
)

const (
	StoreFile   = "file"
	StoreDuckDB = "duckdb"

	// DefaultTargetPackage is the package id of the AstroDX player on Android.
	DefaultTargetPackage = "com.Reflektone.AstroDX"
)

// Config holds the runtime configuration resolved from defaults and flags.
type Config struct {
	DataDir           string
	Store             string
	Timeout           time.Duration
	Grace             time.Duration
	TargetPackage     string
	LogLevel          string
	RequestsPerSecond float64
}

// Default returns the configuration rooted at ~/.adxport.
func Default() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Config{
		DataDir:           filepath.Join(home, ".adxport"),
		Store:             StoreFile,
		Timeout:           60 * time.Second,
		Grace:             2 * time.Second,
		TargetPackage:     DefaultTargetPackage,
		LogLevel:          "info",
		RequestsPerSecond: 8,
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.DataDir == "" {
		errs = append(errs, errors.New("data dir is required"))
	}
	if c.Store != StoreFile && c.Store != StoreDuckDB {
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if c.Grace <= 0 {
		errs = append(errs, fmt.Errorf("grace period must be positive, got %s", c.Grace))
	}
	if c.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("requests per second must not be negative"))
	}
	return errors.Join(errs...)
}

// LibraryDir is where songs and archives live.
func (c Config) LibraryDir() string {
	return filepath.Join(c.DataDir, "library")
}

// StoreDir is where the file store keeps its keys.
func (c Config) StoreDir() string {
	return filepath.Join(c.DataDir, "data")
}

// DatabasePath is the DuckDB file used by the duckdb store backend.
func (c Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "adxport.db")
}

// OpenStore opens the configured persistence backend. The returned closer
// must be called on shutdown.
func (c Config) OpenStore() (data.Store, func() error, error) {
	switch c.Store {
	case StoreDuckDB:
		store, err := data.NewDuckDBStore(c.DatabasePath())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		return store, store.Close, nil
	case StoreFile:
		return data.NewFileStore(c.StoreDir()), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", c.Store)
	}
}

package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/kerbaras/adxport/pkg/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ".adxport", filepath.Base(cfg.DataDir))
	assert.Equal(t, 60*time.Second, cfg.Timeout)
	assert.Equal(t, DefaultTargetPackage, cfg.TargetPackage)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Store = "redis"
	cfg.Timeout = 0
	cfg.Grace = -time.Second

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis")
	assert.Contains(t, err.Error(), "timeout")
	assert.Contains(t, err.Error(), "grace")
}

func TestOpenStoreFile(t *testing.T) {
	cfg := Default()
	cfg.DataDir = t.TempDir()

	store, closeFn, err := cfg.OpenStore()
	require.NoError(t, err)
	defer closeFn()

	_, ok := store.(*data.FileStore)
	assert.True(t, ok)
	require.NoError(t, store.Put("k", []byte("v")))
	assert.FileExists(t, filepath.Join(cfg.StoreDir(), "k"))
}

func TestOpenStoreDuckDB(t *testing.T) {
	cfg := Default()
	cfg.DataDir = t.TempDir()
	cfg.Store = StoreDuckDB

	store, closeFn, err := cfg.OpenStore()
	require.NoError(t, err)
	defer closeFn()

	require.NoError(t, store.Put("k", []byte("v")))
	value, ok, err := store.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", string(value))
}

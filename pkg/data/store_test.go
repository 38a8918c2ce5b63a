package data

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	store := NewFileStore(dir)

	_, ok, err := store.Get("sources.json")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Put("sources.json", []byte(`[{"id":"a"}]`)))

	value, ok, err := store.Get("sources.json")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"a"}]`, string(value))

	raw, err := os.ReadFile(filepath.Join(dir, "sources.json"))
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"a"}]`, string(raw))
}

func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)

	require.NoError(t, store.Put("settings.json", []byte("{}")))
	require.NoError(t, store.Put("settings.json", []byte(`{"downloadVideos":false}`)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, "settings.json", entries[0].Name())
}

func TestFileStoreRejectsPathKeys(t *testing.T) {
	store := NewFileStore(t.TempDir())

	for _, key := range []string{"", "..", "a/b", `a\b`} {
		err := store.Put(key, []byte("x"))
		assert.Error(t, err, "key %q", key)
	}
}

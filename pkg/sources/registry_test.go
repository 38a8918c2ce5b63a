package sources

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/kerbaras/adxport/pkg/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) (*Registry, *data.FileStore) {
	t.Helper()
	store := data.NewFileStore(t.TempDir())
	return NewRegistry(store), store
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestRegistryLoadSeedsDefaults(t *testing.T) {
	registry, store := newTestRegistry(t)

	sources, err := registry.Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultSources(), sources)

	raw, ok, err := store.Get("sources.json")
	require.NoError(t, err)
	require.True(t, ok, "defaults should be persisted on first load")

	var stored []data.Source
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.Equal(t, "https://majdata.net/api3/api/maichart", stored[0].BaseURL)
}

func TestRegistryLoadCorruptReturnsDefaults(t *testing.T) {
	registry, store := newTestRegistry(t)
	require.NoError(t, store.Put("sources.json", []byte("{broken")))

	sources, err := registry.Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultSources(), sources)
}

func TestRegistryAdd(t *testing.T) {
	registry, _ := newTestRegistry(t)

	err := registry.Add(data.Source{ID: "mirror", Name: "Mirror", BaseURL: "https://mirror.example/api/", Enabled: true})
	require.NoError(t, err)

	source, ok, err := registry.Get("mirror")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "https://mirror.example/api", source.BaseURL)

	count, err := registry.EnabledCount()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRegistryAddDuplicate(t *testing.T) {
	registry, _ := newTestRegistry(t)

	err := registry.Add(data.Source{ID: "majdata", Name: "Again", BaseURL: "https://x"})
	assert.True(t, errors.Is(err, ErrDuplicateID))
}

func TestRegistryAddValidates(t *testing.T) {
	registry, _ := newTestRegistry(t)

	assert.Error(t, registry.Add(data.Source{ID: "", BaseURL: "https://x"}))
	assert.Error(t, registry.Add(data.Source{ID: "x", BaseURL: "  "}))
}

func TestRegistryUpdatePreservesID(t *testing.T) {
	registry, _ := newTestRegistry(t)

	err := registry.Update("majdata", SourcePatch{Name: strPtr("Renamed"), Enabled: boolPtr(false)})
	require.NoError(t, err)

	source, ok, err := registry.Get("majdata")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "majdata", source.ID)
	assert.Equal(t, "Renamed", source.Name)
	assert.False(t, source.Enabled)
	assert.Equal(t, "https://majdata.net/api3/api/maichart", source.BaseURL)

	enabled, err := registry.Enabled()
	require.NoError(t, err)
	assert.Empty(t, enabled)
}

func TestRegistryUpdateNotFound(t *testing.T) {
	registry, _ := newTestRegistry(t)

	err := registry.Update("nope", SourcePatch{Name: strPtr("x")})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRegistryDelete(t *testing.T) {
	registry, _ := newTestRegistry(t)

	require.NoError(t, registry.Delete("majdata"))

	sources, err := registry.Load()
	require.NoError(t, err)
	assert.Empty(t, sources, "an emptied list stays empty instead of reseeding")

	err = registry.Delete("majdata")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRegistrySave(t *testing.T) {
	registry, _ := newTestRegistry(t)

	list := []data.Source{{ID: "a", Name: "A", BaseURL: "https://a", Enabled: true}}
	require.NoError(t, registry.Save(list))

	sources, err := registry.Load()
	require.NoError(t, err)
	assert.Equal(t, list, sources)
}

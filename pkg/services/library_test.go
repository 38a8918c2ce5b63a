package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kerbaras/adxport/pkg/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSongDir(t *testing.T, dir string, files ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	for _, f := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte(f), 0644))
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Normal Title", "Normal-Title"},
		{"Title/With/Slashes", "Title-With-Slashes"},
		{"v1.2_final-mix", "v1.2_final-mix"},
		{"千本桜", "---"},
		{`a:b*c?"d<e>f|`, "a-b-c--d-e-f-"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeFilename(tt.input))
		})
	}
}

func TestSongDirNameFallsBackToID(t *testing.T) {
	assert.Equal(t, "Song", SongDirName(data.Song{ID: "1", Title: "Song"}))
	assert.Equal(t, "abc123", SongDirName(data.Song{ID: "abc123", Title: "千本桜"}))
	assert.Equal(t, "song", SongDirName(data.Song{}))
}

func TestLibraryLayout(t *testing.T) {
	lib := NewLibrary("/root/lib")
	song := data.Song{ID: "42", SourceID: "majdata"}

	assert.Equal(t, filepath.Join("/root/lib", "songs", "majdata-42"), lib.FolderForSong(song))
	assert.Equal(t, filepath.Join("/root/lib", "archives", "majdata-42.adx"), lib.ArchiveForSong(song))
	assert.Equal(t, filepath.Join("/root/lib", "combined-songs.adx"), lib.CombinedArchive())
}

func TestLibraryIsCached(t *testing.T) {
	lib := NewLibrary(t.TempDir())
	song := data.Song{ID: "1", SourceID: "s", Title: "Song"}

	assert.False(t, lib.IsCached(song))

	// an empty folder left behind by a failed download is not a cache hit
	require.NoError(t, os.MkdirAll(lib.FolderForSong(song), 0755))
	assert.False(t, lib.IsCached(song))

	songDir := filepath.Join(lib.FolderForSong(song), "Song")
	writeSongDir(t, songDir, TrackFile, ChartFile)
	assert.False(t, lib.IsCached(song))

	writeSongDir(t, songDir, ImageFile)
	assert.True(t, lib.IsCached(song))
}

func TestLibraryIsCachedByArchive(t *testing.T) {
	lib := NewLibrary(t.TempDir())
	song := data.Song{ID: "1", SourceID: "s"}

	require.NoError(t, os.MkdirAll(lib.ArchivesDir(), 0755))
	require.NoError(t, os.WriteFile(lib.ArchiveForSong(song), []byte("zip"), 0644))
	assert.True(t, lib.IsCached(song))
}

func TestLibraryList(t *testing.T) {
	lib := NewLibrary(t.TempDir())

	list, err := lib.List()
	require.NoError(t, err)
	assert.Empty(t, list)

	a := data.Song{ID: "1", SourceID: "s", Title: "Alpha"}
	b := data.Song{ID: "2", SourceID: "s", Title: "Beta"}
	writeSongDir(t, filepath.Join(lib.FolderForSong(a), "Alpha"), TrackFile, ChartFile, ImageFile)
	require.NoError(t, os.MkdirAll(lib.ArchivesDir(), 0755))
	require.NoError(t, os.WriteFile(lib.ArchiveForSong(a), []byte("12345"), 0644))
	require.NoError(t, os.WriteFile(lib.ArchiveForSong(b), []byte("123"), 0644))

	list, err = lib.List()
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, "s-1", list[0].Key)
	assert.Equal(t, "Alpha", list[0].Title)
	assert.NotEmpty(t, list[0].Folder)
	assert.Equal(t, int64(len(TrackFile)+len(ChartFile)+len(ImageFile)), list[0].FolderSize)
	assert.Equal(t, int64(5), list[0].ArchiveSize)

	assert.Equal(t, "s-2", list[1].Key)
	assert.Empty(t, list[1].Folder)
	assert.Equal(t, int64(3), list[1].ArchiveSize)
}

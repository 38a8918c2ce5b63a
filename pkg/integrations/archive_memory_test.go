package integrations

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func craftZip(t *testing.T, name, content string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create(name)
	require.NoError(t, err)
	_, err = f.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestMemoryCodecZipBytesLayout(t *testing.T) {
	folder := filepath.Join(t.TempDir(), "majdata-9")
	writeSong(t, folder, "Song", false)

	archive, err := NewMemoryCodec().ZipBytes(context.Background(), []string{folder})
	require.NoError(t, err)

	r, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	require.NoError(t, err)

	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
		assert.Equal(t, zip.Deflate, f.Method)
	}
	assert.Equal(t, []string{"Song/bg.png", "Song/maidata.txt", "Song/track.mp3"}, names)
}

func TestMemoryCodecUnzipBytesCreatesDirectories(t *testing.T) {
	archive := craftZip(t, "deep/nested/dir/maidata.txt", "&title=x")
	dest := filepath.Join(t.TempDir(), "a", "b")

	require.NoError(t, NewMemoryCodec().UnzipBytes(context.Background(), archive, dest))
	assert.Equal(t, map[string]string{"deep/nested/dir/maidata.txt": "&title=x"}, readTree(t, dest))
}

func TestMemoryCodecHonorsCancellation(t *testing.T) {
	folder := filepath.Join(t.TempDir(), "song")
	writeSong(t, folder, "Song", false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemoryCodec().ZipBytes(ctx, []string{folder})
	assert.ErrorIs(t, err, context.Canceled)
}

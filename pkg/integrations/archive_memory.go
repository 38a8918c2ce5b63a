package integrations

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

// MemoryCodec builds archives in memory with klauspost/compress. It works
// everywhere and is the reference the other codecs are checked against.
type MemoryCodec struct{}

func NewMemoryCodec() *MemoryCodec {
	return &MemoryCodec{}
}

func (c *MemoryCodec) Name() string {
	return "memory"
}

// ZipBytes returns the archive of folders.
func (c *MemoryCodec) ZipBytes(ctx context.Context, folders []string) ([]byte, error) {
	entries, err := planEntries(folders)
	if err != nil {
		return nil, err
	}
	files, err := planFiles(entries)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			w.Close()
			return nil, err
		}
		if err := addFile(w, f); err != nil {
			w.Close()
			return nil, fmt.Errorf("failed to add %s: %w", f.name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish archive: %w", err)
	}
	return buf.Bytes(), nil
}

func addFile(w *zip.Writer, f file) error {
	header, err := zip.FileInfoHeader(f.info)
	if err != nil {
		return err
	}
	header.Name = f.name
	header.Method = zip.Deflate

	dst, err := w.CreateHeader(header)
	if err != nil {
		return err
	}
	src, err := os.Open(f.path)
	if err != nil {
		return err
	}
	defer src.Close()
	_, err = io.Copy(dst, src)
	return err
}

func (c *MemoryCodec) ZipFolders(ctx context.Context, folders []string, dest string) error {
	archive, err := c.ZipBytes(ctx, folders)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}
	tmp := dest + ".part"
	if err := os.WriteFile(tmp, archive, 0644); err != nil {
		return fmt.Errorf("failed to write archive: %w", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write archive: %w", err)
	}
	return nil
}

// UnzipBytes extracts archive into dest, creating directories as needed.
// Entries that would land outside dest are rejected.
func (c *MemoryCodec) UnzipBytes(ctx context.Context, archive []byte, dest string) error {
	r, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	if err := os.MkdirAll(dest, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}

	root, err := filepath.Abs(dest)
	if err != nil {
		return err
	}
	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		target := filepath.Join(root, filepath.FromSlash(f.Name))
		if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			return fmt.Errorf("illegal path in archive: %s", f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
			continue
		}
		if err := extractFile(f, target); err != nil {
			return fmt.Errorf("failed to extract %s: %w", f.Name, err)
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

func (c *MemoryCodec) Unzip(ctx context.Context, archive, dest string) error {
	raw, err := os.ReadFile(archive)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrArchiveMissing, archive)
		}
		return fmt.Errorf("failed to read archive: %w", err)
	}
	return c.UnzipBytes(ctx, raw, dest)
}

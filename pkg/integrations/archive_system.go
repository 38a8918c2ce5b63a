package integrations

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// SystemCodec shells out to the zip and unzip binaries.
type SystemCodec struct {
	zipPath   string
	unzipPath string
}

// NewSystemCodec fails when either binary is missing from PATH.
func NewSystemCodec() (*SystemCodec, error) {
	zipPath, err := exec.LookPath("zip")
	if err != nil {
		return nil, fmt.Errorf("zip not found: %w", err)
	}
	unzipPath, err := exec.LookPath("unzip")
	if err != nil {
		return nil, fmt.Errorf("unzip not found: %w", err)
	}
	return &SystemCodec{zipPath: zipPath, unzipPath: unzipPath}, nil
}

func (c *SystemCodec) Name() string {
	return "system"
}

// ZipFolders links every planned entry into a staging directory and zips
// that, so the archive layout matches MemoryCodec.
func (c *SystemCodec) ZipFolders(ctx context.Context, folders []string, dest string) error {
	entries, err := planEntries(folders)
	if err != nil {
		return err
	}

	staging, err := os.MkdirTemp("", "adxport-zip-*")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	for _, e := range entries {
		abs, err := filepath.Abs(e.path)
		if err != nil {
			return err
		}
		if err := os.Symlink(abs, filepath.Join(staging, e.name)); err != nil {
			return fmt.Errorf("failed to stage %s: %w", e.name, err)
		}
	}

	out, err := filepath.Abs(dest)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}
	// zip updates an existing archive in place instead of replacing it
	if err := os.Remove(out); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if len(entries) == 0 {
		// zip refuses to create an empty archive
		return NewMemoryCodec().ZipFolders(ctx, nil, out)
	}

	return c.run(ctx, staging, c.zipPath, "-r", "-q", "-X", out, ".")
}

func (c *SystemCodec) Unzip(ctx context.Context, archive, dest string) error {
	if _, err := os.Stat(archive); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrArchiveMissing, archive)
		}
		return err
	}
	if err := os.MkdirAll(dest, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	return c.run(ctx, "", c.unzipPath, "-o", "-q", archive, "-d", dest)
}

func (c *SystemCodec) run(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s failed: %w: %s", filepath.Base(name), err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

package integrations

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"
)

var (
	ErrSourceFolderMissing = errors.New("source folder does not exist")
	ErrArchiveMissing      = errors.New("archive does not exist")
)

// Codec packs song folders into a zip archive and unpacks them again.
//
// ZipFolders writes the contents of every folder at the root of dest, so a
// folder holding one song directory yields "<song>/track.mp3" and so on.
type Codec interface {
	Name() string
	ZipFolders(ctx context.Context, folders []string, dest string) error
	Unzip(ctx context.Context, archive, dest string) error
}

// ZipFolder packs a single folder.
func ZipFolder(ctx context.Context, codec Codec, folder, dest string) error {
	return codec.ZipFolders(ctx, []string{folder}, dest)
}

// entry is one top-level item of an archive and where it comes from on disk.
type entry struct {
	name string
	path string
}

// planEntries lists the top-level items of every folder. When two folders
// carry an item with the same name the later one is renamed to
// "<name>-<folder base>".
func planEntries(folders []string) ([]entry, error) {
	used := map[string]bool{}
	var entries []entry

	for _, folder := range folders {
		info, err := os.Stat(folder)
		if err != nil || !info.IsDir() {
			return nil, fmt.Errorf("%w: %s", ErrSourceFolderMissing, folder)
		}

		children, err := os.ReadDir(folder)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", folder, err)
		}
		for _, child := range children {
			name := child.Name()
			if used[name] {
				name = name + "-" + filepath.Base(folder)
			}
			for i := 2; used[name]; i++ {
				name = fmt.Sprintf("%s-%s-%d", child.Name(), filepath.Base(folder), i)
			}
			used[name] = true
			entries = append(entries, entry{name: name, path: filepath.Join(folder, child.Name())})
		}
	}
	return entries, nil
}

// file is a regular file to store, with its slash-separated archive path.
type file struct {
	name string
	path string
	info fs.FileInfo
}

// planFiles expands entries into the regular files below them, sorted by
// archive path.
func planFiles(entries []entry) ([]file, error) {
	var files []file
	for _, e := range entries {
		err := filepath.WalkDir(e.path, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			if !info.Mode().IsRegular() {
				return nil
			}
			rel, err := filepath.Rel(e.path, path)
			if err != nil {
				return err
			}
			name := e.name
			if rel != "." {
				name = e.name + "/" + filepath.ToSlash(rel)
			}
			files = append(files, file{name: name, path: path, info: info})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", e.path, err)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].name < files[j].name })
	return files, nil
}

// FallbackCodec tries Primary and falls back to Fallback when it fails for a
// reason other than a missing input.
type FallbackCodec struct {
	Primary  Codec
	Fallback Codec
	Log      zerolog.Logger
}

func (c *FallbackCodec) Name() string {
	return c.Primary.Name() + "+" + c.Fallback.Name()
}

func (c *FallbackCodec) ZipFolders(ctx context.Context, folders []string, dest string) error {
	err := c.Primary.ZipFolders(ctx, folders, dest)
	if !c.shouldFallBack(ctx, err) {
		return err
	}
	c.Log.Warn().Err(err).Str("codec", c.Primary.Name()).Msg("zip failed, falling back")
	return c.Fallback.ZipFolders(ctx, folders, dest)
}

func (c *FallbackCodec) Unzip(ctx context.Context, archive, dest string) error {
	err := c.Primary.Unzip(ctx, archive, dest)
	if !c.shouldFallBack(ctx, err) {
		return err
	}
	c.Log.Warn().Err(err).Str("codec", c.Primary.Name()).Msg("unzip failed, falling back")
	return c.Fallback.Unzip(ctx, archive, dest)
}

func (c *FallbackCodec) shouldFallBack(ctx context.Context, err error) bool {
	if err == nil || ctx.Err() != nil {
		return false
	}
	return !errors.Is(err, ErrSourceFolderMissing) && !errors.Is(err, ErrArchiveMissing)
}

// NewCodec picks the best codec available on this machine. The in-memory
// codec is always the last resort.
func NewCodec(log zerolog.Logger) Codec {
	memory := NewMemoryCodec()
	if system, err := NewSystemCodec(); err == nil {
		log.Debug().Str("codec", system.Name()).Msg("using system zip")
		return &FallbackCodec{Primary: system, Fallback: memory, Log: log}
	}
	log.Debug().Str("codec", memory.Name()).Msg("system zip not available")
	return memory
}

package services

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/kerbaras/adxport/pkg/data"
)

const (
	TrackFile = "track.mp3"
	ChartFile = "maidata.txt"
	ImageFile = "bg.png"
	VideoFile = "pv.mp4"

	ArchiveExt = ".adx"

	// CombinedTitle is the display title of a multi-song archive.
	CombinedTitle = "Combined Songs"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// SanitizeFilename replaces every character outside [a-zA-Z0-9._-] with a dash.
func SanitizeFilename(s string) string {
	return unsafeChars.ReplaceAllString(s, "-")
}

// SongDirName is the directory a song's assets are stored in, inside its folder.
func SongDirName(song data.Song) string {
	name := SanitizeFilename(song.Title)
	if strings.Trim(name, "-.") == "" {
		name = SanitizeFilename(song.ID)
	}
	if strings.Trim(name, "-.") == "" {
		name = "song"
	}
	return name
}

// Library lays songs out on disk:
//
//	<root>/songs/<sourceId>-<id>/<title>/{track.mp3,maidata.txt,bg.png,pv.mp4}
//	<root>/archives/<sourceId>-<id>.adx
//	<root>/combined-songs.adx
type Library struct {
	root string
}

func NewLibrary(root string) *Library {
	return &Library{root: root}
}

func (l *Library) Root() string {
	return l.root
}

func songBase(sourceID, id string) string {
	return SanitizeFilename(sourceID) + "-" + SanitizeFilename(id)
}

func (l *Library) SongsDir() string {
	return filepath.Join(l.root, "songs")
}

func (l *Library) ArchivesDir() string {
	return filepath.Join(l.root, "archives")
}

func (l *Library) FolderForSong(song data.Song) string {
	return filepath.Join(l.SongsDir(), songBase(song.SourceID, song.ID))
}

func (l *Library) ArchiveForSong(song data.Song) string {
	return filepath.Join(l.ArchivesDir(), songBase(song.SourceID, song.ID)+ArchiveExt)
}

func (l *Library) CombinedArchive() string {
	return filepath.Join(l.root, "combined-songs"+ArchiveExt)
}

// IsCached reports whether the song is already on disk, either packaged or
// as a folder holding a complete song directory.
func (l *Library) IsCached(song data.Song) bool {
	if fileExists(l.ArchiveForSong(song)) {
		return true
	}
	return hasCompleteSongDir(l.FolderForSong(song))
}

func hasCompleteSongDir(folder string) bool {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(folder, e.Name())
		if fileExists(filepath.Join(dir, TrackFile)) &&
			fileExists(filepath.Join(dir, ChartFile)) &&
			fileExists(filepath.Join(dir, ImageFile)) {
			return true
		}
	}
	return false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// LocalSong is a song found in the library.
type LocalSong struct {
	Key         string
	Folder      string
	Archive     string
	Title       string
	FolderSize  int64
	ArchiveSize int64
}

// List returns every song present as a folder or an archive, sorted by key.
func (l *Library) List() ([]LocalSong, error) {
	songs := map[string]*LocalSong{}
	get := func(key string) *LocalSong {
		if s, ok := songs[key]; ok {
			return s
		}
		s := &LocalSong{Key: key}
		songs[key] = s
		return s
	}

	folders, err := os.ReadDir(l.SongsDir())
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read songs directory: %w", err)
	}
	for _, e := range folders {
		if !e.IsDir() {
			continue
		}
		folder := filepath.Join(l.SongsDir(), e.Name())
		s := get(e.Name())
		s.Folder = folder
		s.FolderSize = dirSize(folder)
		if inner, err := os.ReadDir(folder); err == nil {
			for _, d := range inner {
				if d.IsDir() {
					s.Title = d.Name()
					break
				}
			}
		}
	}

	archives, err := os.ReadDir(l.ArchivesDir())
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read archives directory: %w", err)
	}
	for _, e := range archives {
		if e.IsDir() || filepath.Ext(e.Name()) != ArchiveExt {
			continue
		}
		s := get(strings.TrimSuffix(e.Name(), ArchiveExt))
		s.Archive = filepath.Join(l.ArchivesDir(), e.Name())
		if info, err := e.Info(); err == nil {
			s.ArchiveSize = info.Size()
		}
	}

	list := make([]LocalSong, 0, len(songs))
	for _, s := range songs {
		list = append(list, *s)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Key < list[j].Key })
	return list, nil
}

func dirSize(root string) int64 {
	var size int64
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			if info, err := d.Info(); err == nil {
				size += info.Size()
			}
		}
		return nil
	})
	return size
}

package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/kerbaras/adxport/pkg/data"
	"github.com/kerbaras/adxport/pkg/sources"
	"github.com/kerbaras/adxport/pkg/utils"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DownloadOptions tunes a single song download.
type DownloadOptions struct {
	IncludeVideo bool
	// OnAssetDone is called after each asset lands with the number of assets
	// finished so far and the number expected.
	OnAssetDone func(done, total int)
}

// SongFetcher downloads one song into a folder and returns the song directory.
type SongFetcher interface {
	DownloadSong(ctx context.Context, song data.Song, outputFolder string, opts DownloadOptions) (string, error)
}

type FetcherOption func(*Fetcher)

func WithFetcherLogger(log zerolog.Logger) FetcherOption {
	return func(f *Fetcher) { f.log = log }
}

// Fetcher downloads a song's assets from its source.
type Fetcher struct {
	sources sources.Resolver
	api     *utils.API
	log     zerolog.Logger
}

func NewFetcher(resolver sources.Resolver, api *utils.API, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{sources: resolver, api: api, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

type asset struct {
	url  string
	name string
}

// DownloadSong fetches track, chart and image concurrently, plus the video
// when requested. Either everything lands or the song directory is removed.
func (f *Fetcher) DownloadSong(ctx context.Context, song data.Song, outputFolder string, opts DownloadOptions) (string, error) {
	source, ok, err := f.sources.Get(song.SourceID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve source %q: %w", song.SourceID, err)
	}
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrSourceNotFound, song.SourceID)
	}

	songDir := filepath.Join(outputFolder, SongDirName(song))
	if err := os.MkdirAll(songDir, 0755); err != nil {
		return "", fmt.Errorf("%w: failed to create song directory: %w", ErrDownloadFailed, err)
	}

	mandatory := []asset{
		{url: sources.TrackURL(source, song.ID), name: TrackFile},
		{url: sources.ChartURL(source, song.ID), name: ChartFile},
		{url: sources.ImageURL(source, song.ID), name: ImageFile},
	}

	total := len(mandatory)
	if opts.IncludeVideo {
		total++
	}
	var (
		mu   sync.Mutex
		done int
	)
	finished := func() {
		if opts.OnAssetDone == nil {
			return
		}
		mu.Lock()
		done++
		n := done
		mu.Unlock()
		opts.OnAssetDone(n, total)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, a := range mandatory {
		g.Go(func() error {
			if err := f.fetchTo(gctx, a.url, filepath.Join(songDir, a.name)); err != nil {
				return fmt.Errorf("%s: %w", a.name, err)
			}
			finished()
			return nil
		})
	}
	if opts.IncludeVideo {
		g.Go(func() error {
			if err := f.fetchVideo(gctx, sources.VideoURL(source, song.ID), filepath.Join(songDir, VideoFile)); err != nil {
				return fmt.Errorf("%s: %w", VideoFile, err)
			}
			finished()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if rmErr := os.RemoveAll(songDir); rmErr != nil {
			f.log.Warn().Err(rmErr).Str("dir", songDir).Msg("failed to clean up song directory")
		}
		return "", fmt.Errorf("%w: %s: %w", ErrDownloadFailed, song.Key(), err)
	}

	f.log.Debug().Str("song", song.Key()).Str("dir", songDir).Msg("song downloaded")
	return songDir, nil
}

func (f *Fetcher) fetchTo(ctx context.Context, rawURL, path string) error {
	resp, err := f.api.Open(ctx, rawURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return writeFile(path, resp.Body)
}

// fetchVideo treats 404 as "no video" and removes any stale file.
func (f *Fetcher) fetchVideo(ctx context.Context, rawURL, path string) error {
	resp, err := f.api.Open(ctx, rawURL)
	if err != nil {
		var httpErr *utils.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
			if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			return nil
		}
		return err
	}
	defer resp.Body.Close()

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType != "video/mp4" {
		return fmt.Errorf("content type is %q, not video/mp4", resp.Header.Get("Content-Type"))
	}
	return writeFile(path, resp.Body)
}

// writeFile streams r into a temp file next to path and renames it into place.
func writeFile(path string, r io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

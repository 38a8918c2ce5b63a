package sources

import (
	"context"
	"sync"

	"github.com/kerbaras/adxport/pkg/data"
	"github.com/rs/zerolog"
)

// LoadProgress is reported once per fetched source during LoadNextPage.
type LoadProgress struct {
	SourceID string
	Songs    []data.Song
	// Pagination is a snapshot of the state accumulated so far.
	Pagination data.PaginationState
	Remaining  int
	Total      int
	Err        error
}

type PaginatorOption func(*Paginator)

func WithPaginatorLogger(log zerolog.Logger) PaginatorOption {
	return func(p *Paginator) { p.log = log }
}

// Paginator loads the next page of every enabled source concurrently.
type Paginator struct {
	sources Lister
	catalog Catalog
	log     zerolog.Logger
}

func NewPaginator(sources Lister, catalog Catalog, opts ...PaginatorOption) *Paginator {
	p := &Paginator{sources: sources, catalog: catalog, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// LoadNextPage fetches the next page of every enabled source that still has
// more pages. Per-source failures stop that source and are logged; only a
// failure to list the sources is returned. Songs are concatenated in
// enabled-source order.
func (p *Paginator) LoadNextPage(ctx context.Context, state data.PaginationState, search string, onLoaded func(LoadProgress)) ([]data.Song, data.PaginationState, error) {
	enabled, err := p.sources.Enabled()
	if err != nil {
		return nil, state, err
	}

	next := state.Clone()
	if len(enabled) == 0 {
		return nil, next, nil
	}

	var toFetch []data.Source
	for _, source := range enabled {
		st, ok := next[source.ID]
		if !ok {
			st = data.PageState{CurrentPage: 0, HasMore: true}
			next[source.ID] = st
		}
		if st.HasMore {
			toFetch = append(toFetch, source)
		}
	}
	if len(toFetch) == 0 {
		return nil, next, nil
	}

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		results   = make([][]data.Song, len(toFetch))
		remaining = len(toFetch)
		total     = len(toFetch)
	)

	for i, source := range toFetch {
		wg.Add(1)
		go func(i int, source data.Source) {
			defer wg.Done()

			mu.Lock()
			st := next[source.ID]
			mu.Unlock()

			songs, err := p.catalog.FetchPage(ctx, source, st.CurrentPage, search)

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err != nil:
				p.log.Warn().Err(err).Str("source", source.ID).Int("page", st.CurrentPage).Msg("failed to fetch page")
				next[source.ID] = data.PageState{CurrentPage: st.CurrentPage, HasMore: false, Failed: true}
				songs = nil
			case len(songs) == 0:
				next[source.ID] = data.PageState{CurrentPage: st.CurrentPage, HasMore: false}
			default:
				results[i] = songs
				next[source.ID] = data.PageState{CurrentPage: st.CurrentPage + 1, HasMore: true}
			}

			remaining--
			if onLoaded != nil {
				onLoaded(LoadProgress{
					SourceID:   source.ID,
					Songs:      songs,
					Pagination: next.Clone(),
					Remaining:  remaining,
					Total:      total,
					Err:        err,
				})
			}
		}(i, source)
	}
	wg.Wait()

	var all []data.Song
	for _, songs := range results {
		all = append(all, songs...)
	}
	return all, next, nil
}

// ResetPaginationState starts a fresh browsing session.
func ResetPaginationState() data.PaginationState {
	return data.PaginationState{}
}

// HasMorePages is true before anything was fetched or while any source has more.
func HasMorePages(state data.PaginationState) bool {
	if len(state) == 0 {
		return true
	}
	for _, st := range state {
		if st.HasMore {
			return true
		}
	}
	return false
}

// RetryFailed re-enables sources that were stopped by a fetch error, keeping
// their page cursor.
func RetryFailed(state data.PaginationState) data.PaginationState {
	next := state.Clone()
	for id, st := range next {
		if st.Failed {
			next[id] = data.PageState{CurrentPage: st.CurrentPage, HasMore: true}
		}
	}
	return next
}

// MergeSongs appends incoming songs that are not already present, keyed by
// (sourceId, id). The first occurrence wins.
func MergeSongs(existing, incoming []data.Song) []data.Song {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	merged := make([]data.Song, 0, len(existing)+len(incoming))
	for _, list := range [][]data.Song{existing, incoming} {
		for _, s := range list {
			key := s.Key()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, s)
		}
	}
	return merged
}

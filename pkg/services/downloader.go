package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kerbaras/adxport/pkg/data"
	"github.com/rs/zerolog"
)

// DefaultSongTimeout bounds a single song download.
const DefaultSongTimeout = 60 * time.Second

// Batch is the set of jobs created by one StartDownloads call.
//
// Failed jobs are removed from Jobs and counted in Failed. Total counts every
// song that entered the batch, so "N of M" progress keeps the dropped ones.
type Batch struct {
	ID        string
	Jobs      []data.DownloadJob
	HasErrors bool
	Total     int
	Failed    int
}

// Completed counts jobs in the COMPLETED state.
func (b Batch) Completed() int {
	n := 0
	for _, j := range b.Jobs {
		if j.Status == data.JobCompleted {
			n++
		}
	}
	return n
}

// Settled reports whether every job reached COMPLETED or was dropped.
func (b Batch) Settled() bool {
	return b.Total > 0 && b.Completed()+b.Failed == b.Total
}

// AllComplete reports whether every job completed without errors.
func (b Batch) AllComplete() bool {
	return b.Total > 0 && !b.HasErrors && b.Completed() == b.Total
}

// IsDownloading reports whether any job is still queued or in progress.
func (b Batch) IsDownloading() bool {
	for _, j := range b.Jobs {
		if j.Status != data.JobCompleted {
			return true
		}
	}
	return false
}

func (b Batch) indexOf(key string) int {
	for i, j := range b.Jobs {
		if j.Key() == key {
			return i
		}
	}
	return -1
}

// StartResult tells the caller whether to show progress or go straight to packaging.
type StartResult struct {
	HasPendingDownloads bool
	CompletedCount      int
	TotalCount          int
}

// CompletedItem is a finished song and where it lives on disk. Folder and
// Archive are empty when absent.
type CompletedItem struct {
	Song    data.Song
	Folder  string
	Archive string
	Title   string
}

type OrchestratorOption func(*Orchestrator)

func WithOrchestratorLogger(log zerolog.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.log = log }
}

// WithSongTimeout overrides DefaultSongTimeout.
func WithSongTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.timeout = d }
}

// WithIncludeVideo sets how the orchestrator decides whether to fetch videos.
// It is consulted once per song.
func WithIncludeVideo(fn func() bool) OrchestratorOption {
	return func(o *Orchestrator) { o.includeVideo = fn }
}

// Orchestrator drives concurrent per-song downloads for one batch at a time.
type Orchestrator struct {
	library      *Library
	fetcher      SongFetcher
	includeVideo func() bool
	timeout      time.Duration
	log          zerolog.Logger

	batch *Store[Batch]
	songs sync.Map // song key -> data.Song
	wg    sync.WaitGroup
}

func NewOrchestrator(library *Library, fetcher SongFetcher, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		library:      library,
		fetcher:      fetcher,
		includeVideo: func() bool { return true },
		timeout:      DefaultSongTimeout,
		log:          zerolog.Nop(),
		batch:        NewStore(Batch{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func dedupeSongs(songs []data.Song) []data.Song {
	seen := make(map[string]struct{}, len(songs))
	out := make([]data.Song, 0, len(songs))
	for _, s := range songs {
		if _, ok := seen[s.Key()]; ok {
			continue
		}
		seen[s.Key()] = struct{}{}
		out = append(out, s)
	}
	return out
}

// StartDownloads replaces the current batch with one job per song. Cached
// songs start COMPLETED, the rest are fetched in the background.
func (o *Orchestrator) StartDownloads(songs []data.Song) StartResult {
	songs = dedupeSongs(songs)
	if len(songs) == 0 {
		return StartResult{}
	}

	jobs := make([]data.DownloadJob, 0, len(songs))
	var pending []data.Song
	for _, song := range songs {
		o.songs.Store(song.Key(), song)
		if o.library.IsCached(song) {
			jobs = append(jobs, data.NewJob(song, data.JobCompleted))
			continue
		}
		jobs = append(jobs, data.NewJob(song, data.JobQueued))
		pending = append(pending, song)
	}

	batch := Batch{
		ID:    uuid.Must(uuid.NewV7()).String(),
		Jobs:  jobs,
		Total: len(jobs),
	}
	o.log.Info().Str("batch", batch.ID).Int("total", batch.Total).Int("pending", len(pending)).Msg("starting downloads")
	o.batch.Set(batch)

	for _, song := range pending {
		o.spawn(batch.ID, song)
	}

	return StartResult{
		HasPendingDownloads: len(pending) > 0,
		CompletedCount:      len(jobs) - len(pending),
		TotalCount:          len(jobs),
	}
}

// AddDownloads extends the running batch without touching jobs already in it.
// Without a batch it behaves like StartDownloads.
func (o *Orchestrator) AddDownloads(songs []data.Song) StartResult {
	current := o.batch.Get()
	if current.Total == 0 {
		return o.StartDownloads(songs)
	}

	var pending []data.Song
	next, _ := o.batch.UpdateIf(func(b Batch) (Batch, bool) {
		if b.ID != current.ID {
			return b, false
		}
		jobs := append([]data.DownloadJob(nil), b.Jobs...)
		added := 0
		for _, song := range dedupeSongs(songs) {
			if b.indexOf(song.Key()) >= 0 {
				continue
			}
			o.songs.Store(song.Key(), song)
			added++
			if o.library.IsCached(song) {
				jobs = append(jobs, data.NewJob(song, data.JobCompleted))
				continue
			}
			jobs = append(jobs, data.NewJob(song, data.JobQueued))
			pending = append(pending, song)
		}
		if added == 0 {
			return b, false
		}
		b.Jobs = jobs
		b.Total += added
		return b, true
	})

	for _, song := range pending {
		o.spawn(next.ID, song)
	}

	completed := next.Completed()
	return StartResult{
		HasPendingDownloads: completed+next.Failed < next.Total,
		CompletedCount:      completed,
		TotalCount:          next.Total,
	}
}

func (o *Orchestrator) spawn(batchID string, song data.Song) {
	o.wg.Add(1)
	go o.download(batchID, song)
}

// download runs on a context detached from any caller so that closing the
// UI does not abandon a transfer halfway.
func (o *Orchestrator) download(batchID string, song data.Song) {
	defer o.wg.Done()

	key := song.Key()
	log := o.log.With().Str("batch", batchID).Str("song", key).Logger()

	o.updateJob(batchID, key, func(j *data.DownloadJob) bool {
		if j.Status != data.JobQueued {
			return false
		}
		j.Status = data.JobInProgress
		j.PercentDone = 0
		return true
	})

	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	_, err := o.fetcher.DownloadSong(ctx, song, o.library.FolderForSong(song), DownloadOptions{
		IncludeVideo: o.includeVideo(),
		OnAssetDone: func(done, total int) {
			percent := done * 100 / total
			if percent > 99 {
				percent = 99
			}
			o.updateJob(batchID, key, func(j *data.DownloadJob) bool {
				if j.Status != data.JobInProgress || percent <= j.PercentDone {
					return false
				}
				j.PercentDone = percent
				return true
			})
		},
	})
	if err != nil {
		log.Warn().Err(err).Msg("download failed")
		o.batch.UpdateIf(func(b Batch) (Batch, bool) {
			i := b.indexOf(key)
			if b.ID != batchID || i < 0 {
				return b, false
			}
			jobs := make([]data.DownloadJob, 0, len(b.Jobs)-1)
			jobs = append(jobs, b.Jobs[:i]...)
			jobs = append(jobs, b.Jobs[i+1:]...)
			b.Jobs = jobs
			b.HasErrors = true
			b.Failed++
			return b, true
		})
		return
	}

	log.Debug().Msg("download completed")
	o.updateJob(batchID, key, func(j *data.DownloadJob) bool {
		j.Status = data.JobCompleted
		j.PercentDone = 100
		return true
	})
}

// updateJob applies fn to a copy of the job and publishes it when fn reports
// a change. Updates for a batch that is no longer current are ignored.
func (o *Orchestrator) updateJob(batchID, key string, fn func(*data.DownloadJob) bool) {
	o.batch.UpdateIf(func(b Batch) (Batch, bool) {
		if b.ID != batchID {
			return b, false
		}
		i := b.indexOf(key)
		if i < 0 {
			return b, false
		}
		job := b.Jobs[i]
		if !fn(&job) {
			return b, false
		}
		jobs := append([]data.DownloadJob(nil), b.Jobs...)
		jobs[i] = job
		b.Jobs = jobs
		return b, true
	})
}

// Batch returns the current batch snapshot.
func (o *Orchestrator) Batch() Batch {
	return o.batch.Get()
}

// Subscribe registers fn for every batch change. fn runs synchronously on the
// goroutine that made the change and must not call back into the orchestrator.
func (o *Orchestrator) Subscribe(fn func(Batch)) func() {
	return o.batch.Subscribe(fn)
}

// CompletedItems lists the completed jobs of the current batch with their
// on-disk locations.
func (o *Orchestrator) CompletedItems() []CompletedItem {
	batch := o.batch.Get()
	items := make([]CompletedItem, 0, len(batch.Jobs))
	for _, job := range batch.Jobs {
		if job.Status != data.JobCompleted {
			continue
		}
		song := data.Song{ID: job.ID, SourceID: job.SourceID, Title: job.Title, Artist: job.Artist}
		if v, ok := o.songs.Load(job.Key()); ok {
			song = v.(data.Song)
		}
		item := CompletedItem{Song: song, Title: job.Title}
		if folder := o.library.FolderForSong(song); dirExists(folder) {
			item.Folder = folder
		}
		if archive := o.library.ArchiveForSong(song); fileExists(archive) {
			item.Archive = archive
		}
		items = append(items, item)
	}
	return items
}

// Clear discards the current batch. Running workers finish but no longer
// touch batch state.
func (o *Orchestrator) Clear() {
	o.batch.Set(Batch{})
}

// Discard clears the batch only if it is still the one with the given id.
func (o *Orchestrator) Discard(batchID string) {
	o.batch.UpdateIf(func(b Batch) (Batch, bool) {
		if b.ID != batchID {
			return b, false
		}
		return Batch{}, true
	})
}

// Wait blocks until every worker started so far has returned.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

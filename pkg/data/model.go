package data

// Source is a remote catalog endpoint exposing the list/track/chart/image/video API.
type Source struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	BaseURL string `json:"baseUrl"`
	Enabled bool   `json:"enabled"`
}

// Song is one chart in a source catalog. Songs are identified by (SourceID, ID).
type Song struct {
	ID                string   `json:"id"`
	SourceID          string   `json:"sourceId"`
	Title             string   `json:"title"`
	Artist            string   `json:"artist"`
	RomanizedTitle    string   `json:"romanizedTitle,omitempty"`
	RomanizedArtist   string   `json:"romanizedArtist,omitempty"`
	Designer          string   `json:"designer,omitempty"`
	RomanizedDesigner string   `json:"romanizedDesigner,omitempty"`
	CommunityNames    []string `json:"communityNames,omitempty"`
}

// Key returns the composite identity of the song.
func (s Song) Key() string {
	return SongKey(s.SourceID, s.ID)
}

// DisplayTitle prefers the romanized title when asked to and one exists.
func (s Song) DisplayTitle(romanized bool) string {
	if romanized && s.RomanizedTitle != "" {
		return s.RomanizedTitle
	}
	return s.Title
}

// DisplayArtist prefers the romanized artist when asked to and one exists.
func (s Song) DisplayArtist(romanized bool) string {
	if romanized && s.RomanizedArtist != "" {
		return s.RomanizedArtist
	}
	return s.Artist
}

// SongKey builds the "<sourceId>:<id>" key used for deduplication.
func SongKey(sourceID, id string) string {
	return sourceID + ":" + id
}

// JobStatus is the state of a single download job
type JobStatus string

const (
	// JobQueued means the song is waiting for its download to start
	JobQueued JobStatus = "QUEUED"

	// JobInProgress means the assets are being transferred
	JobInProgress JobStatus = "IN_PROGRESS"

	// JobCompleted means the song is on disk
	JobCompleted JobStatus = "COMPLETED"
)

// String returns the string representation of JobStatus
func (s JobStatus) String() string {
	return string(s)
}

// IsFinished reports whether the status is terminal.
func (s JobStatus) IsFinished() bool {
	return s == JobCompleted
}

// DownloadJob tracks one song inside a download batch.
type DownloadJob struct {
	ID                string    `json:"id"`
	SourceID          string    `json:"sourceId"`
	Title             string    `json:"title"`
	Artist            string    `json:"artist,omitempty"`
	Designer          string    `json:"designer,omitempty"`
	RomanizedDesigner string    `json:"romanizedDesigner,omitempty"`
	Status            JobStatus `json:"status"`
	PercentDone       int       `json:"percentDone"`
}

// Key returns the composite identity of the job's song.
func (j DownloadJob) Key() string {
	return SongKey(j.SourceID, j.ID)
}

// NewJob seeds a job for song in the given status.
func NewJob(song Song, status JobStatus) DownloadJob {
	percent := 0
	if status == JobCompleted {
		percent = 100
	}
	return DownloadJob{
		ID:                song.ID,
		SourceID:          song.SourceID,
		Title:             song.Title,
		Artist:            song.Artist,
		Designer:          song.Designer,
		RomanizedDesigner: song.RomanizedDesigner,
		Status:            status,
		PercentDone:       percent,
	}
}

// PageState is the pagination cursor of one source.
type PageState struct {
	CurrentPage int  `json:"currentPage"`
	HasMore     bool `json:"hasMore"`
	// Failed is set when the last fetch errored and stopped pagination.
	Failed bool `json:"failed,omitempty"`
}

// PaginationState maps source ids to their cursor. A missing source has not
// been queried yet and is treated as having more pages.
type PaginationState map[string]PageState

// Clone returns an independent copy.
func (p PaginationState) Clone() PaginationState {
	out := make(PaginationState, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Settings are the user preferences persisted in settings.json.
type Settings struct {
	DownloadVideos       bool `json:"downloadVideos"`
	UseRomanizedMetadata bool `json:"useRomanizedMetadata"`
}

// DefaultSettings are used on first run and to back-fill missing keys.
func DefaultSettings() Settings {
	return Settings{DownloadVideos: true, UseRomanizedMetadata: false}
}

package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobStatusString(t *testing.T) {
	tests := []struct {
		status   JobStatus
		expected string
	}{
		{JobQueued, "QUEUED"},
		{JobInProgress, "IN_PROGRESS"},
		{JobCompleted, "COMPLETED"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.status.String(); got != tt.expected {
				t.Errorf("JobStatus.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestSongKey(t *testing.T) {
	song := Song{ID: "42", SourceID: "majdata"}
	assert.Equal(t, "majdata:42", song.Key())

	job := NewJob(song, JobQueued)
	assert.Equal(t, song.Key(), job.Key())
}

func TestSongDisplayTitle(t *testing.T) {
	song := Song{Title: "千本桜", RomanizedTitle: "Senbonzakura", Artist: "黒うさP"}

	assert.Equal(t, "千本桜", song.DisplayTitle(false))
	assert.Equal(t, "Senbonzakura", song.DisplayTitle(true))
	assert.Equal(t, "黒うさP", song.DisplayArtist(true), "falls back when no romanized artist")
}

func TestNewJob(t *testing.T) {
	song := Song{ID: "1", SourceID: "s", Title: "T", Artist: "A", Designer: "D"}

	queued := NewJob(song, JobQueued)
	assert.Equal(t, JobQueued, queued.Status)
	assert.Equal(t, 0, queued.PercentDone)
	assert.Equal(t, "D", queued.Designer)

	done := NewJob(song, JobCompleted)
	assert.Equal(t, 100, done.PercentDone)
	assert.True(t, done.Status.IsFinished())
}

func TestPaginationStateClone(t *testing.T) {
	state := PaginationState{"a": {CurrentPage: 2, HasMore: true}}
	clone := state.Clone()
	clone["a"] = PageState{CurrentPage: 5}

	assert.Equal(t, 2, state["a"].CurrentPage)
}

func TestItemVariants(t *testing.T) {
	song := Song{ID: "1", SourceID: "s", Title: "T", RomanizedTitle: "R", Artist: "A", Designer: "D", RomanizedDesigner: "RD"}
	item := SongItem(song)

	assert.Equal(t, "s:1", item.Key())
	assert.Equal(t, "R", item.Title(true))
	assert.Equal(t, "A · RD", item.Subtitle(true))
	assert.Equal(t, "A · D", item.Subtitle(false))

	job := JobItem(NewJob(Song{ID: "2", SourceID: "s", Title: "J"}, JobQueued))
	assert.Equal(t, "s:2", job.Key())
	assert.Equal(t, "J", job.Title(true))
	assert.Equal(t, "", job.Subtitle(false))
}

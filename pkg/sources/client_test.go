package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kerbaras/adxport/pkg/data"
	"github.com/kerbaras/adxport/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientFetchPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/list", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		assert.Equal(t, "sakura", r.URL.Query().Get("search"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id":"1","title":"千本桜","artist":"黒うさP","romanizedTitle":"Senbonzakura","designer":"mai"},
			{"title":null},
			{"id":"3","artist":"x"}
		]`))
	}))
	defer server.Close()

	client := NewClient(utils.NewAPI(server.Client(), 0))
	source := data.Source{ID: "test", Name: "Test", BaseURL: server.URL + "/api"}

	songs, err := client.FetchPage(context.Background(), source, 1, "sakura")
	require.NoError(t, err)
	require.Len(t, songs, 3)

	assert.Equal(t, data.Song{ID: "1", SourceID: "test", Title: "千本桜", Artist: "黒うさP", RomanizedTitle: "Senbonzakura", Designer: "mai"}, songs[0])
	assert.Equal(t, "", songs[1].ID)
	assert.Equal(t, "Unknown", songs[1].Title)
	assert.Equal(t, "", songs[1].Artist)
	assert.Equal(t, "Unknown", songs[2].Title)
	for _, s := range songs {
		assert.Equal(t, "test", s.SourceID)
	}
}

func TestClientFetchPageOmitsEmptySearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present := r.URL.Query()["search"]
		assert.False(t, present)
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewClient(utils.NewAPI(nil, 0))
	songs, err := client.FetchPage(context.Background(), data.Source{ID: "t", BaseURL: server.URL}, 0, "")
	require.NoError(t, err)
	assert.Empty(t, songs)
}

func TestClientFetchPageUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(utils.NewAPI(nil, 0))
	_, err := client.FetchPage(context.Background(), data.Source{ID: "t", BaseURL: server.URL}, 0, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSourceUnreachable))

	var httpErr *utils.HTTPError
	assert.True(t, errors.As(err, &httpErr))
}

func TestAssetURLs(t *testing.T) {
	source := data.Source{BaseURL: "https://majdata.net/api3/api/maichart"}

	assert.Equal(t, "https://majdata.net/api3/api/maichart/abc/track", TrackURL(source, "abc"))
	assert.Equal(t, "https://majdata.net/api3/api/maichart/abc/chart", ChartURL(source, "abc"))
	assert.Equal(t, "https://majdata.net/api3/api/maichart/abc/image?fullImage=true", ImageURL(source, "abc"))
	assert.Equal(t, "https://majdata.net/api3/api/maichart/abc/video", VideoURL(source, "abc"))
}

package sources

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/kerbaras/adxport/pkg/data"
	"github.com/kerbaras/adxport/pkg/utils"
)

// chart is a song as returned by a source's list endpoint.
type chart struct {
	ID                *string  `json:"id"`
	Title             *string  `json:"title"`
	Artist            *string  `json:"artist"`
	RomanizedTitle    string   `json:"romanizedTitle"`
	RomanizedArtist   string   `json:"romanizedArtist"`
	Designer          string   `json:"designer"`
	RomanizedDesigner string   `json:"romanizedDesigner"`
	CommunityNames    []string `json:"communityNames"`
}

func orDefault(v *string, def string) string {
	if v == nil || *v == "" {
		return def
	}
	return *v
}

func (c *chart) ToSong(sourceID string) data.Song {
	return data.Song{
		ID:                orDefault(c.ID, ""),
		SourceID:          sourceID,
		Title:             orDefault(c.Title, "Unknown"),
		Artist:            orDefault(c.Artist, ""),
		RomanizedTitle:    c.RomanizedTitle,
		RomanizedArtist:   c.RomanizedArtist,
		Designer:          c.Designer,
		RomanizedDesigner: c.RomanizedDesigner,
		CommunityNames:    c.CommunityNames,
	}
}

// Client talks to the per-source HTTP API.
type Client struct {
	api *utils.API
}

func NewClient(api *utils.API) *Client {
	return &Client{api: api}
}

// FetchPage requests {baseUrl}/list?page=N[&search=Q] and stamps every song
// with the source id.
func (c *Client) FetchPage(ctx context.Context, source data.Source, page int, search string) ([]data.Song, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	if search != "" {
		params.Set("search", search)
	}

	var charts []chart
	if err := c.api.GetJSON(ctx, source.BaseURL+"/list", params, &charts); err != nil {
		return nil, fmt.Errorf("%w: failed to fetch from %s: %w", ErrSourceUnreachable, source.Name, err)
	}

	songs := make([]data.Song, 0, len(charts))
	for i := range charts {
		songs = append(songs, charts[i].ToSong(source.ID))
	}
	return songs, nil
}

func songURL(source data.Source, songID, asset string) string {
	return fmt.Sprintf("%s/%s/%s", source.BaseURL, url.PathEscape(songID), asset)
}

func TrackURL(source data.Source, songID string) string {
	return songURL(source, songID, "track")
}

func ChartURL(source data.Source, songID string) string {
	return songURL(source, songID, "chart")
}

func ImageURL(source data.Source, songID string) string {
	return songURL(source, songID, "image?fullImage=true")
}

func VideoURL(source data.Source, songID string) string {
	return songURL(source, songID, "video")
}

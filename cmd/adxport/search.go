package cmd

import (
	"fmt"
	"strings"

	"github.com/kerbaras/adxport/pkg/data"
	"github.com/kerbaras/adxport/pkg/sources"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search songs across enabled sources",
	Long:  "Search every enabled source and display results in a table. Without a query the latest songs are listed.",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.Close()

		pages, _ := cmd.Flags().GetInt("pages")
		songs, err := searchSongs(cmd, e, strings.Join(args, " "), pages)
		if err != nil {
			return err
		}
		if len(songs) == 0 {
			fmt.Println("No results found.")
			return nil
		}

		settings, err := e.settings.Load()
		if err != nil {
			return err
		}
		romanized := settings.UseRomanizedMetadata

		t := newTable("#", "Source", "ID", "Title", "Artist", "Designer")
		for i, s := range songs {
			designer := s.Designer
			if romanized && s.RomanizedDesigner != "" {
				designer = s.RomanizedDesigner
			}
			t.Row(fmt.Sprintf("%d", i+1), s.SourceID, s.ID,
				truncateString(s.DisplayTitle(romanized), 40),
				truncateString(s.DisplayArtist(romanized), 30),
				truncateString(designer, 20))
		}
		fmt.Println(t)
		return nil
	},
}

// searchSongs loads up to pages pages of results, logging sources that fail.
func searchSongs(cmd *cobra.Command, e *env, query string, pages int) ([]data.Song, error) {
	paginator := sources.NewPaginator(e.registry, e.client, sources.WithPaginatorLogger(e.log))

	var songs []data.Song
	state := sources.ResetPaginationState()
	for page := 0; page < pages && sources.HasMorePages(state); page++ {
		var (
			loaded []data.Song
			err    error
		)
		loaded, state, err = paginator.LoadNextPage(cmd.Context(), state, query, func(p sources.LoadProgress) {
			if p.Err != nil {
				e.log.Warn().Err(p.Err).Str("source", p.SourceID).Msg("source failed")
			}
		})
		if err != nil {
			return nil, err
		}
		songs = sources.MergeSongs(songs, loaded)
	}
	return songs, nil
}

func init() {
	searchCmd.Flags().IntP("pages", "p", 1, "number of pages to load per source")
	rootCmd.AddCommand(searchCmd)
}

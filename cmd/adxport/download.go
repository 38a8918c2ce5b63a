package cmd

import (
	"errors"
	"fmt"
	"sync"

	"github.com/kerbaras/adxport/pkg/data"
	"github.com/kerbaras/adxport/pkg/integrations"
	"github.com/kerbaras/adxport/pkg/services"
	"github.com/spf13/cobra"
)

var downloadCmd = &cobra.Command{
	Use:   "download [song-id...]",
	Short: "Download songs and import them into AstroDX",
	Long: `Download songs by id, or every result of a search, then package them and
hand the archive to AstroDX. Songs already in the library are not downloaded again.

Examples:
  adxport download 1234 5678 --source majdata
  adxport download --search "bad apple"
  adxport download --search "bad apple" --no-import`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.Close()

		sourceID, _ := cmd.Flags().GetString("source")
		query, _ := cmd.Flags().GetString("search")
		noImport, _ := cmd.Flags().GetBool("no-import")
		noVideo, _ := cmd.Flags().GetBool("no-video")

		songs, err := resolveSongs(cmd, e, args, sourceID, query)
		if err != nil {
			return err
		}
		if len(songs) == 0 {
			fmt.Println("Nothing to download.")
			return nil
		}

		includeVideo := e.settings.IncludeVideo
		if noVideo {
			includeVideo = func() bool { return false }
		}
		dispatcher := e.dispatcher(prompter(), integrations.NewForegroundFlag(true))
		controller := e.controller(dispatcher, includeVideo)
		defer controller.Close()

		printer := newJobPrinter()
		unsubscribe := controller.Subscribe(printer.print)
		defer unsubscribe()

		mode := services.FlowDownloadAndImport
		if noImport {
			mode = services.FlowDownloadOnly
		}
		result, err := controller.StartFlow(songs, mode)
		if err != nil {
			return err
		}
		fmt.Printf("Downloading %d song(s), %d already in library\n", result.TotalCount-result.CompletedCount, result.CompletedCount)
		controller.Wait()

		state := controller.State()
		var failed error
		if state.ShowDownloading() && state.Batch.HasErrors {
			failed = fmt.Errorf("%d of %d downloads failed", state.Batch.Failed, state.Batch.Total)
			if noImport {
				controller.Dismiss()
			} else if err := controller.Import(cmd.Context()); err != nil && !errors.Is(err, services.ErrNothingToImport) {
				return errors.Join(failed, err)
			}
			state = controller.State()
		}
		if state.LastErr != nil {
			return errors.Join(failed, state.LastErr)
		}
		if failed != nil {
			return failed
		}

		if noImport {
			fmt.Printf("Songs saved to %s\n", e.library.SongsDir())
		} else {
			fmt.Println("Import complete")
		}
		return nil
	},
}

func resolveSongs(cmd *cobra.Command, e *env, ids []string, sourceID, query string) ([]data.Song, error) {
	if query != "" {
		found, err := searchSongs(cmd, e, query, 1)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return found, nil
		}
		wanted := make(map[string]bool, len(ids))
		for _, id := range ids {
			wanted[id] = true
		}
		var songs []data.Song
		for _, s := range found {
			if wanted[s.ID] && (sourceID == "" || s.SourceID == sourceID) {
				songs = append(songs, s)
			}
		}
		return songs, nil
	}

	if len(ids) == 0 {
		return nil, errors.New("give song ids or --search")
	}
	if sourceID == "" {
		enabled, err := e.registry.Enabled()
		if err != nil {
			return nil, err
		}
		if len(enabled) == 0 {
			return nil, errors.New("no enabled sources")
		}
		sourceID = enabled[0].ID
	}

	songs := make([]data.Song, len(ids))
	for i, id := range ids {
		// the title is unknown without a catalog lookup; the id names the folder
		songs[i] = data.Song{ID: id, SourceID: sourceID, Title: id, Artist: "Unknown"}
	}
	return songs, nil
}

// jobPrinter prints each job once per status change.
type jobPrinter struct {
	mu    sync.Mutex
	seen  map[string]data.JobStatus
	phase services.FlowPhase
}

func newJobPrinter() *jobPrinter {
	return &jobPrinter{seen: map[string]data.JobStatus{}}
}

func (p *jobPrinter) print(state services.FlowState) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, job := range state.Batch.Jobs {
		if p.seen[job.Key()] == job.Status {
			continue
		}
		p.seen[job.Key()] = job.Status
		if job.Status == data.JobQueued {
			continue
		}
		fmt.Printf("  %-11s %s\n", job.Status, job.Title)
	}

	if state.Phase != p.phase {
		p.phase = state.Phase
		switch {
		case state.ShowImporting():
			fmt.Printf("Importing %d song(s)...\n", state.ImportingCount)
		case state.ShowDownloading():
			done, total := state.Progress()
			fmt.Printf("Downloaded %d of %d\n", done, total)
		}
	}
	if state.Compressing {
		fmt.Println("Compressing...")
	}
}

func init() {
	downloadCmd.Flags().StringP("source", "s", "", "source id (default: first enabled source)")
	downloadCmd.Flags().String("search", "", "download the results of this search")
	downloadCmd.Flags().Bool("no-import", false, "only download, do not hand off to AstroDX")
	downloadCmd.Flags().Bool("no-video", false, "skip background videos")
	rootCmd.AddCommand(downloadCmd)
}

package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/kerbaras/adxport/pkg/data"
	"github.com/kerbaras/adxport/pkg/integrations"
	"github.com/rs/zerolog"
)

var (
	ErrFlowBusy        = errors.New("an import is already running")
	ErrNothingToImport = errors.New("no completed songs to import")
)

// FlowMode selects whether a finished batch is handed off automatically.
type FlowMode int

const (
	FlowDownloadAndImport FlowMode = iota
	FlowDownloadOnly
)

func (m FlowMode) String() string {
	if m == FlowDownloadOnly {
		return "download-only"
	}
	return "download-and-import"
}

type FlowPhase int

const (
	PhaseIdle FlowPhase = iota
	PhaseDownloading
	PhaseImporting
)

func (p FlowPhase) String() string {
	switch p {
	case PhaseDownloading:
		return "downloading"
	case PhaseImporting:
		return "importing"
	default:
		return "idle"
	}
}

// FlowState is what a UI renders for the download/import flow.
type FlowState struct {
	Phase          FlowPhase
	Mode           FlowMode
	Batch          Batch
	ImportingCount int
	Compressing    bool
	LastErr        error
}

func (s FlowState) ShowDownloading() bool {
	return s.Phase == PhaseDownloading
}

func (s FlowState) ShowImporting() bool {
	return s.Phase == PhaseImporting
}

// Progress returns completed and total job counts of the batch.
func (s FlowState) Progress() (done, total int) {
	return s.Batch.Completed(), s.Batch.Total
}

// Packager builds and extracts song archives.
type Packager interface {
	ZipFolders(ctx context.Context, folders []string, dest string) error
	Unzip(ctx context.Context, archive, dest string) error
}

// Deliverer hands a finished archive to the consumer application.
type Deliverer interface {
	Deliver(ctx context.Context, file, title string) (integrations.Outcome, error)
}

type ControllerOption func(*Controller)

func WithControllerLogger(log zerolog.Logger) ControllerOption {
	return func(c *Controller) { c.log = log }
}

// Controller sequences downloads, packaging and handoff.
type Controller struct {
	orch      *Orchestrator
	library   *Library
	packager  Packager
	deliverer Deliverer
	log       zerolog.Logger

	state       *Store[FlowState]
	importing   atomic.Bool
	wg          sync.WaitGroup
	unsubscribe func()
}

func NewController(orch *Orchestrator, library *Library, packager Packager, deliverer Deliverer, opts ...ControllerOption) *Controller {
	c := &Controller{
		orch:      orch,
		library:   library,
		packager:  packager,
		deliverer: deliverer,
		log:       zerolog.Nop(),
		state:     NewStore(FlowState{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.unsubscribe = orch.Subscribe(c.onBatch)
	return c
}

// StartFlow starts a new batch for songs.
func (c *Controller) StartFlow(songs []data.Song, mode FlowMode) (StartResult, error) {
	if len(songs) == 0 {
		return StartResult{}, nil
	}
	if c.importing.Load() {
		return StartResult{}, ErrFlowBusy
	}

	c.state.Update(func(s FlowState) FlowState {
		return FlowState{Phase: PhaseDownloading, Mode: mode}
	})
	return c.orch.StartDownloads(songs), nil
}

// AddToFlow adds songs to the running batch, or starts a download-and-import
// flow when idle.
func (c *Controller) AddToFlow(songs []data.Song) (StartResult, error) {
	switch c.state.Get().Phase {
	case PhaseIdle:
		return c.StartFlow(songs, FlowDownloadAndImport)
	case PhaseImporting:
		return StartResult{}, ErrFlowBusy
	}
	return c.orch.AddDownloads(songs), nil
}

// onBatch runs synchronously for every orchestrator change.
func (c *Controller) onBatch(b Batch) {
	var (
		startImport bool
		downloaded  bool
	)
	c.state.Update(func(s FlowState) FlowState {
		s.Batch = b
		if s.Phase != PhaseDownloading || !b.Settled() || b.HasErrors {
			return s
		}
		if s.Mode == FlowDownloadOnly {
			downloaded = true
			return FlowState{Phase: PhaseIdle, Mode: s.Mode}
		}
		s.Phase = PhaseImporting
		s.ImportingCount = b.Completed()
		startImport = true
		return s
	})

	switch {
	case downloaded:
		c.log.Info().Str("batch", b.ID).Int("songs", b.Completed()).Msg("download-only flow finished")
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.orch.Discard(b.ID)
		}()
	case startImport:
		if !c.importing.CompareAndSwap(false, true) {
			return
		}
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			defer c.importing.Store(false)
			err := c.importCompleted(context.Background())
			c.finish(b.ID, err)
		}()
	}
}

// Import packages and delivers whatever completed in the current batch. It is
// used after a batch settled with errors and the user chooses to continue.
func (c *Controller) Import(ctx context.Context) error {
	if !c.importing.CompareAndSwap(false, true) {
		return ErrFlowBusy
	}
	defer c.importing.Store(false)

	batch := c.orch.Batch()
	c.state.Update(func(s FlowState) FlowState {
		s.Phase = PhaseImporting
		s.ImportingCount = batch.Completed()
		s.LastErr = nil
		return s
	})

	err := c.importCompleted(ctx)
	c.finish(batch.ID, err)
	return err
}

func (c *Controller) importCompleted(ctx context.Context) error {
	items := c.orch.CompletedItems()
	if len(items) == 0 {
		return ErrNothingToImport
	}
	c.state.Update(func(s FlowState) FlowState {
		s.ImportingCount = len(items)
		return s
	})

	if len(items) == 1 {
		return c.importSingle(ctx, items[0])
	}
	return c.importCombined(ctx, items)
}

func (c *Controller) importSingle(ctx context.Context, item CompletedItem) error {
	archive := item.Archive
	if archive == "" {
		if item.Folder == "" {
			return fmt.Errorf("failed to prepare files: %w", integrations.ErrSourceFolderMissing)
		}
		archive = c.library.ArchiveForSong(item.Song)
		if err := os.MkdirAll(c.library.ArchivesDir(), 0755); err != nil {
			return fmt.Errorf("failed to prepare files: %w", err)
		}
		if err := c.packager.ZipFolders(ctx, []string{item.Folder}, archive); err != nil {
			return fmt.Errorf("failed to prepare files: %w", err)
		}
	}

	outcome, err := c.deliverer.Deliver(ctx, archive, item.Title)
	if err != nil {
		return fmt.Errorf("failed to hand off %s: %w", item.Title, err)
	}
	c.log.Info().Str("song", item.Song.Key()).Str("outcome", outcome.String()).Msg("song handed off")
	return nil
}

func (c *Controller) importCombined(ctx context.Context, items []CompletedItem) error {
	folders := make([]string, 0, len(items))
	for _, item := range items {
		folder := item.Folder
		if folder == "" {
			if item.Archive == "" {
				return fmt.Errorf("failed to prepare files: %s: %w", item.Song.Key(), integrations.ErrArchiveMissing)
			}
			folder = c.library.FolderForSong(item.Song)
			if err := c.packager.Unzip(ctx, item.Archive, folder); err != nil {
				return fmt.Errorf("failed to prepare files: %w", err)
			}
		}
		folders = append(folders, folder)
	}

	combined := c.library.CombinedArchive()
	if err := os.Remove(combined); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to prepare files: %w", err)
	}

	c.setCompressing(true)
	err := c.packager.ZipFolders(ctx, folders, combined)
	c.setCompressing(false)
	if err != nil {
		return fmt.Errorf("failed to prepare files: %w", err)
	}

	outcome, err := c.deliverer.Deliver(ctx, combined, CombinedTitle)
	if err != nil {
		return fmt.Errorf("failed to hand off combined archive: %w", err)
	}
	c.log.Info().Int("songs", len(items)).Str("outcome", outcome.String()).Msg("combined archive handed off")
	return nil
}

func (c *Controller) setCompressing(v bool) {
	c.state.Update(func(s FlowState) FlowState {
		s.Compressing = v
		return s
	})
}

// finish returns the flow to idle and discards the batch, whatever happened.
func (c *Controller) finish(batchID string, err error) {
	if errors.Is(err, ErrNothingToImport) {
		err = nil
	}
	if err != nil {
		c.log.Error().Err(err).Str("batch", batchID).Msg("import failed")
	}
	c.state.Update(func(s FlowState) FlowState {
		return FlowState{Phase: PhaseIdle, Mode: s.Mode, LastErr: err}
	})
	c.orch.Discard(batchID)
}

// Dismiss hides the flow and clears the batch. A running import is not
// interrupted.
func (c *Controller) Dismiss() {
	if c.importing.Load() {
		return
	}
	c.state.Update(func(s FlowState) FlowState {
		return FlowState{Phase: PhaseIdle, Mode: s.Mode}
	})
	c.orch.Clear()
}

func (c *Controller) State() FlowState {
	return c.state.Get()
}

// Subscribe registers fn for every flow state change. fn runs synchronously
// and must not call back into the controller.
func (c *Controller) Subscribe(fn func(FlowState)) func() {
	return c.state.Subscribe(fn)
}

// Wait blocks until running downloads and imports have finished.
func (c *Controller) Wait() {
	c.orch.Wait()
	c.wg.Wait()
}

// Close stops watching the orchestrator.
func (c *Controller) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
}

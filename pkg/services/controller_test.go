package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/kerbaras/adxport/pkg/data"
	"github.com/kerbaras/adxport/pkg/integrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type zipCall struct {
	folders []string
	dest    string
}

type mockPackager struct {
	mu        sync.Mutex
	zips      []zipCall
	unzips    []string
	zipFunc   func(ctx context.Context, folders []string, dest string) error
	unzipFunc func(ctx context.Context, archive, dest string) error
}

func (m *mockPackager) ZipFolders(ctx context.Context, folders []string, dest string) error {
	m.mu.Lock()
	m.zips = append(m.zips, zipCall{folders: folders, dest: dest})
	m.mu.Unlock()
	if m.zipFunc != nil {
		return m.zipFunc(ctx, folders, dest)
	}
	return os.WriteFile(dest, []byte("zip"), 0644)
}

func (m *mockPackager) Unzip(ctx context.Context, archive, dest string) error {
	m.mu.Lock()
	m.unzips = append(m.unzips, archive)
	m.mu.Unlock()
	if m.unzipFunc != nil {
		return m.unzipFunc(ctx, archive, dest)
	}
	return os.MkdirAll(dest, 0755)
}

type delivery struct {
	file  string
	title string
}

type mockDeliverer struct {
	mu          sync.Mutex
	deliveries  []delivery
	deliverFunc func(ctx context.Context, file, title string) (integrations.Outcome, error)
}

func (m *mockDeliverer) Deliver(ctx context.Context, file, title string) (integrations.Outcome, error) {
	m.mu.Lock()
	m.deliveries = append(m.deliveries, delivery{file: file, title: title})
	m.mu.Unlock()
	if m.deliverFunc != nil {
		return m.deliverFunc(ctx, file, title)
	}
	return integrations.OutcomeLaunched, nil
}

func (m *mockDeliverer) calls() []delivery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]delivery(nil), m.deliveries...)
}

type controllerFixture struct {
	ctrl      *Controller
	orch      *Orchestrator
	lib       *Library
	fetcher   *mockFetcher
	packager  *mockPackager
	deliverer *mockDeliverer
}

func newControllerFixture(t *testing.T) *controllerFixture {
	t.Helper()
	f := &controllerFixture{
		lib:       NewLibrary(t.TempDir()),
		fetcher:   &mockFetcher{},
		packager:  &mockPackager{},
		deliverer: &mockDeliverer{},
	}
	f.orch = NewOrchestrator(f.lib, f.fetcher)
	f.ctrl = NewController(f.orch, f.lib, f.packager, f.deliverer)
	t.Cleanup(func() {
		f.ctrl.Wait()
		f.ctrl.Close()
	})
	return f
}

func TestFlowSingleSong(t *testing.T) {
	f := newControllerFixture(t)
	s := song("a")

	result, err := f.ctrl.StartFlow([]data.Song{s}, FlowDownloadAndImport)
	require.NoError(t, err)
	assert.True(t, result.HasPendingDownloads)
	f.ctrl.Wait()

	require.Len(t, f.packager.zips, 1)
	assert.Equal(t, []string{f.lib.FolderForSong(s)}, f.packager.zips[0].folders)
	assert.Equal(t, f.lib.ArchiveForSong(s), f.packager.zips[0].dest)
	assert.Equal(t, []delivery{{file: f.lib.ArchiveForSong(s), title: "Song a"}}, f.deliverer.calls())

	state := f.ctrl.State()
	assert.Equal(t, PhaseIdle, state.Phase)
	assert.NoError(t, state.LastErr)
	assert.Equal(t, 0, f.orch.Batch().Total)
}

func TestFlowSingleSongReusesArchive(t *testing.T) {
	f := newControllerFixture(t)
	s := song("a")
	require.NoError(t, os.MkdirAll(f.lib.ArchivesDir(), 0755))
	require.NoError(t, os.WriteFile(f.lib.ArchiveForSong(s), []byte("zip"), 0644))

	result, err := f.ctrl.StartFlow([]data.Song{s}, FlowDownloadAndImport)
	require.NoError(t, err)
	assert.False(t, result.HasPendingDownloads)
	f.ctrl.Wait()

	assert.Empty(t, f.packager.zips)
	assert.Equal(t, []delivery{{file: f.lib.ArchiveForSong(s), title: "Song a"}}, f.deliverer.calls())
}

func TestFlowCombined(t *testing.T) {
	f := newControllerFixture(t)
	a, b, c := song("a"), song("b"), song("c")

	// c exists only as an archive and has to be unpacked first
	require.NoError(t, os.MkdirAll(f.lib.ArchivesDir(), 0755))
	require.NoError(t, os.WriteFile(f.lib.ArchiveForSong(c), []byte("zip"), 0644))

	// a stale combined archive is replaced
	require.NoError(t, os.WriteFile(f.lib.CombinedArchive(), []byte("old"), 0644))

	var sawCompressing bool
	f.packager.zipFunc = func(ctx context.Context, folders []string, dest string) error {
		sawCompressing = f.ctrl.State().Compressing
		_, err := os.Stat(dest)
		assert.True(t, errors.Is(err, os.ErrNotExist), "stale combined archive should be removed first")
		return os.WriteFile(dest, []byte("zip"), 0644)
	}

	_, err := f.ctrl.StartFlow([]data.Song{a, b, c}, FlowDownloadAndImport)
	require.NoError(t, err)
	f.ctrl.Wait()

	assert.Equal(t, []string{f.lib.ArchiveForSong(c)}, f.packager.unzips)
	require.Len(t, f.packager.zips, 1)
	assert.ElementsMatch(t, []string{
		f.lib.FolderForSong(a), f.lib.FolderForSong(b), f.lib.FolderForSong(c),
	}, f.packager.zips[0].folders)
	assert.Equal(t, f.lib.CombinedArchive(), f.packager.zips[0].dest)
	assert.True(t, sawCompressing)
	assert.False(t, f.ctrl.State().Compressing)
	assert.Equal(t, []delivery{{file: f.lib.CombinedArchive(), title: CombinedTitle}}, f.deliverer.calls())
}

func TestFlowDownloadOnly(t *testing.T) {
	f := newControllerFixture(t)

	_, err := f.ctrl.StartFlow([]data.Song{song("a"), song("b")}, FlowDownloadOnly)
	require.NoError(t, err)
	f.ctrl.Wait()

	assert.Empty(t, f.deliverer.calls())
	assert.Empty(t, f.packager.zips)
	assert.Equal(t, PhaseIdle, f.ctrl.State().Phase)
	assert.Equal(t, 0, f.orch.Batch().Total)
	assert.True(t, f.lib.IsCached(song("a")))
}

func TestFlowWithErrorsWaitsForUser(t *testing.T) {
	f := newControllerFixture(t)
	f.fetcher.downloadFunc = func(ctx context.Context, s data.Song, out string, opts DownloadOptions) (string, error) {
		if s.ID == "bad" {
			return "", ErrDownloadFailed
		}
		return writeFakeSong(s, out)
	}

	_, err := f.ctrl.StartFlow([]data.Song{song("good"), song("bad")}, FlowDownloadAndImport)
	require.NoError(t, err)
	f.ctrl.Wait()

	state := f.ctrl.State()
	assert.Equal(t, PhaseDownloading, state.Phase)
	assert.True(t, state.Batch.HasErrors)
	done, total := state.Progress()
	assert.Equal(t, 1, done)
	assert.Equal(t, 2, total)
	assert.Empty(t, f.deliverer.calls())

	require.NoError(t, f.ctrl.Import(context.Background()))
	assert.Equal(t, []delivery{{file: f.lib.ArchiveForSong(song("good")), title: "Song good"}}, f.deliverer.calls())
	assert.Equal(t, PhaseIdle, f.ctrl.State().Phase)
}

func TestFlowAllFailed(t *testing.T) {
	f := newControllerFixture(t)
	f.fetcher.downloadFunc = func(context.Context, data.Song, string, DownloadOptions) (string, error) {
		return "", ErrDownloadFailed
	}

	_, err := f.ctrl.StartFlow([]data.Song{song("a")}, FlowDownloadAndImport)
	require.NoError(t, err)
	f.ctrl.Wait()

	assert.ErrorIs(t, f.ctrl.Import(context.Background()), ErrNothingToImport)
	assert.Empty(t, f.deliverer.calls())
	assert.Equal(t, PhaseIdle, f.ctrl.State().Phase)
	assert.NoError(t, f.ctrl.State().LastErr)
}

func TestFlowPackagingFailure(t *testing.T) {
	f := newControllerFixture(t)
	f.packager.zipFunc = func(context.Context, []string, string) error {
		return errors.New("disk full")
	}

	_, err := f.ctrl.StartFlow([]data.Song{song("a")}, FlowDownloadAndImport)
	require.NoError(t, err)
	f.ctrl.Wait()

	state := f.ctrl.State()
	assert.Equal(t, PhaseIdle, state.Phase)
	require.Error(t, state.LastErr)
	assert.Contains(t, state.LastErr.Error(), "failed to prepare files")
	assert.Empty(t, f.deliverer.calls())
	assert.Equal(t, 0, f.orch.Batch().Total)
}

func TestFlowHandoffFailure(t *testing.T) {
	f := newControllerFixture(t)
	f.deliverer.deliverFunc = func(context.Context, string, string) (integrations.Outcome, error) {
		return integrations.OutcomeDropped, integrations.ErrHandoffUnavailable
	}

	_, err := f.ctrl.StartFlow([]data.Song{song("a")}, FlowDownloadAndImport)
	require.NoError(t, err)
	f.ctrl.Wait()

	assert.ErrorIs(t, f.ctrl.State().LastErr, integrations.ErrHandoffUnavailable)
	assert.Equal(t, PhaseIdle, f.ctrl.State().Phase)
}

func TestFlowBusyWhileImporting(t *testing.T) {
	f := newControllerFixture(t)
	release := make(chan struct{})
	entered := make(chan struct{})
	f.deliverer.deliverFunc = func(context.Context, string, string) (integrations.Outcome, error) {
		close(entered)
		<-release
		return integrations.OutcomeLaunched, nil
	}

	_, err := f.ctrl.StartFlow([]data.Song{song("a")}, FlowDownloadAndImport)
	require.NoError(t, err)

	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("import did not start")
	}
	assert.Equal(t, PhaseImporting, f.ctrl.State().Phase)
	assert.Equal(t, 1, f.ctrl.State().ImportingCount)

	_, err = f.ctrl.StartFlow([]data.Song{song("b")}, FlowDownloadAndImport)
	assert.ErrorIs(t, err, ErrFlowBusy)
	_, err = f.ctrl.AddToFlow([]data.Song{song("b")})
	assert.ErrorIs(t, err, ErrFlowBusy)
	assert.ErrorIs(t, f.ctrl.Import(context.Background()), ErrFlowBusy)

	f.ctrl.Dismiss()
	assert.Equal(t, PhaseImporting, f.ctrl.State().Phase)

	close(release)
	f.ctrl.Wait()
	assert.Equal(t, PhaseIdle, f.ctrl.State().Phase)
	assert.Len(t, f.deliverer.calls(), 1)
}

func TestAddToFlowExtendsBatch(t *testing.T) {
	f := newControllerFixture(t)
	g := newGate("a")
	f.fetcher.downloadFunc = func(ctx context.Context, s data.Song, out string, opts DownloadOptions) (string, error) {
		g.wait(s.ID)
		return writeFakeSong(s, out)
	}

	_, err := f.ctrl.StartFlow([]data.Song{song("a")}, FlowDownloadAndImport)
	require.NoError(t, err)

	result, err := f.ctrl.AddToFlow([]data.Song{song("b")})
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalCount)

	g.release("a")
	f.ctrl.Wait()

	assert.Equal(t, []delivery{{file: f.lib.CombinedArchive(), title: CombinedTitle}}, f.deliverer.calls())
}

func TestAddToFlowWhenIdleStarts(t *testing.T) {
	f := newControllerFixture(t)

	_, err := f.ctrl.AddToFlow([]data.Song{song("a")})
	require.NoError(t, err)
	f.ctrl.Wait()

	assert.Len(t, f.deliverer.calls(), 1)
}

func TestDismiss(t *testing.T) {
	f := newControllerFixture(t)
	f.fetcher.downloadFunc = func(ctx context.Context, s data.Song, out string, opts DownloadOptions) (string, error) {
		if s.ID == "bad" {
			return "", ErrDownloadFailed
		}
		return writeFakeSong(s, out)
	}

	_, err := f.ctrl.StartFlow([]data.Song{song("good"), song("bad")}, FlowDownloadAndImport)
	require.NoError(t, err)
	f.ctrl.Wait()
	require.Equal(t, PhaseDownloading, f.ctrl.State().Phase)

	f.ctrl.Dismiss()

	assert.Equal(t, PhaseIdle, f.ctrl.State().Phase)
	assert.Equal(t, 0, f.orch.Batch().Total)
	assert.Empty(t, f.deliverer.calls())
	// downloaded files stay in the library
	assert.DirExists(t, filepath.Join(f.lib.FolderForSong(song("good")), "Song-good"))
}

func TestStartFlowEmpty(t *testing.T) {
	f := newControllerFixture(t)

	result, err := f.ctrl.StartFlow(nil, FlowDownloadAndImport)
	require.NoError(t, err)
	assert.Equal(t, StartResult{}, result)
	assert.Equal(t, PhaseIdle, f.ctrl.State().Phase)
}

func TestFlowSubscribers(t *testing.T) {
	f := newControllerFixture(t)

	var (
		mu     sync.Mutex
		phases []FlowPhase
	)
	f.ctrl.Subscribe(func(s FlowState) {
		mu.Lock()
		defer mu.Unlock()
		if len(phases) == 0 || phases[len(phases)-1] != s.Phase {
			phases = append(phases, s.Phase)
		}
	})

	_, err := f.ctrl.StartFlow([]data.Song{song("a")}, FlowDownloadAndImport)
	require.NoError(t, err)
	f.ctrl.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []FlowPhase{PhaseDownloading, PhaseImporting, PhaseIdle}, phases)
}

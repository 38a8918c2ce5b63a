package screens

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/adxport/pkg/app/components"
	"github.com/kerbaras/adxport/pkg/app/styles"
	"github.com/kerbaras/adxport/pkg/data"
	"github.com/kerbaras/adxport/pkg/services"
	"github.com/kerbaras/adxport/pkg/sources"
)

// Pager loads catalog pages across enabled sources.
type Pager interface {
	LoadNextPage(ctx context.Context, state data.PaginationState, search string, onLoaded func(sources.LoadProgress)) ([]data.Song, data.PaginationState, error)
}

// Flow is the download/import flow the screens drive.
type Flow interface {
	StartFlow(songs []data.Song, mode services.FlowMode) (services.StartResult, error)
	AddToFlow(songs []data.Song) (services.StartResult, error)
	Import(ctx context.Context) error
	Dismiss()
	State() services.FlowState
}

// Preferences persists user settings.
type Preferences interface {
	Load() (data.Settings, error)
	SetDownloadVideos(v bool) error
	SetUseRomanizedMetadata(v bool) error
}

// loadMoreThreshold is how close to the end the cursor gets before the next
// page is requested.
const loadMoreThreshold = 3

type BrowseScreen struct {
	pager Pager
	flow  Flow
	prefs Preferences

	input     textinput.Model
	spinner   spinner.Model
	list      *components.SongList
	selection *services.Selection

	songs      []data.Song
	pagination data.PaginationState
	search     string
	gen        int
	loading    bool

	settings  data.Settings
	flowState services.FlowState
	status    string
	width     int
	height    int
	err       error
}

func NewBrowseScreen(pager Pager, flow Flow, prefs Preferences) *BrowseScreen {
	ti := textinput.New()
	ti.Placeholder = "Search songs..."
	ti.CharLimit = 100
	ti.Width = 50

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.StatusDownloading

	list := components.NewSongList()
	list.Empty = "No songs found"
	selection := services.NewSelection()
	list.Marked = selection.IsSelected

	return &BrowseScreen{
		pager:      pager,
		flow:       flow,
		prefs:      prefs,
		input:      ti,
		spinner:    sp,
		list:       list,
		selection:  selection,
		pagination: sources.ResetPaginationState(),
		settings:   data.DefaultSettings(),
	}
}

func (s *BrowseScreen) Init() tea.Cmd {
	return tea.Batch(s.loadSettings, s.reload())
}

// Typing reports whether key presses go to the search box.
func (s *BrowseScreen) Typing() bool {
	return s.input.Focused()
}

func (s *BrowseScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
		s.list.Width = msg.Width - 4
		s.list.Height = msg.Height - 16

	case tea.KeyMsg:
		if s.input.Focused() {
			switch msg.String() {
			case "enter":
				s.search = s.input.Value()
				s.input.Blur()
				return s, s.reload()
			case "esc":
				s.input.Blur()
				return s, nil
			}
			s.input, cmd = s.input.Update(msg)
			return s, cmd
		}
		return s, s.handleKey(msg)

	case spinner.TickMsg:
		if s.loading {
			s.spinner, cmd = s.spinner.Update(msg)
		}
		return s, cmd

	case pageProgressMsg:
		if msg.gen == s.gen {
			if msg.progress.Err == nil {
				s.setSongs(sources.MergeSongs(s.songs, msg.progress.Songs))
			}
			s.status = fmt.Sprintf("Loaded %d of %d sources", msg.progress.Total-msg.progress.Remaining, msg.progress.Total)
		}
		return s, waitForPage(msg.ch)

	case pageLoadedMsg:
		if msg.gen != s.gen {
			return s, nil
		}
		s.loading = false
		s.status = ""
		s.err = msg.err
		if msg.err == nil {
			s.pagination = msg.state
			s.setSongs(sources.MergeSongs(s.songs, msg.songs))
		}

	case flowStartedMsg:
		s.err = msg.err
		if msg.err == nil {
			s.status = fmt.Sprintf("%d of %d songs ready", msg.result.CompletedCount, msg.result.TotalCount)
		}

	case importDoneMsg:
		s.err = msg.err

	case settingsMsg:
		s.err = msg.err
		if msg.err == nil {
			s.settings = msg.settings
			s.list.Romanized = msg.settings.UseRomanizedMetadata
		}

	case FlowStateMsg:
		s.flowState = msg.State
	}

	return s, nil
}

func (s *BrowseScreen) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "/":
		s.input.Focus()
		return textinput.Blink

	case "up", "k":
		s.list.Prev()

	case "down", "j":
		s.list.Next()
		if s.list.NearEnd(loadMoreThreshold) {
			return s.loadMore()
		}

	case "m":
		return s.loadMore()

	case "r":
		return s.reload()

	case " ", "space":
		item := s.list.Selected()
		if item == nil {
			return nil
		}
		if !s.selection.Active() {
			s.selection.Enter(item.Key())
			return nil
		}
		s.selection.Toggle(item.Key())
		if s.selection.Count() == 0 {
			s.selection.Exit()
		}

	case "enter":
		return s.start(services.FlowDownloadAndImport)

	case "d":
		return s.start(services.FlowDownloadOnly)

	case "i":
		b := s.flowState.Batch
		if s.flowState.ShowDownloading() && b.Settled() && b.HasErrors {
			return s.importCompleted
		}

	case "esc":
		switch {
		case s.selection.Active():
			s.selection.Exit()
		case s.flowState.ShowDownloading():
			s.flow.Dismiss()
		}

	case "v":
		return s.toggleVideos(!s.settings.DownloadVideos)

	case "t":
		return s.toggleRomanized(!s.settings.UseRomanizedMetadata)
	}
	return nil
}

func (s *BrowseScreen) setSongs(songs []data.Song) {
	s.songs = songs
	s.list.SetItems(data.SongItems(songs))
}

// targets returns the marked songs, or the one under the cursor.
func (s *BrowseScreen) targets() []data.Song {
	if s.selection.Active() {
		var out []data.Song
		for _, song := range s.songs {
			if s.selection.IsSelected(song.Key()) {
				out = append(out, song)
			}
		}
		return out
	}
	if item := s.list.Selected(); item != nil {
		return []data.Song{item.Song}
	}
	return nil
}

func (s *BrowseScreen) start(mode services.FlowMode) tea.Cmd {
	songs := s.targets()
	if len(songs) == 0 {
		return nil
	}
	s.selection.Exit()

	adding := s.flowState.ShowDownloading()
	return func() tea.Msg {
		var (
			result services.StartResult
			err    error
		)
		if adding {
			result, err = s.flow.AddToFlow(songs)
		} else {
			result, err = s.flow.StartFlow(songs, mode)
		}
		return flowStartedMsg{result: result, err: err}
	}
}

func (s *BrowseScreen) importCompleted() tea.Msg {
	return importDoneMsg{err: s.flow.Import(context.Background())}
}

// reload starts a new browsing session for the current search text.
func (s *BrowseScreen) reload() tea.Cmd {
	s.gen++
	s.pagination = sources.ResetPaginationState()
	s.setSongs(nil)
	s.selection.Exit()
	s.loading = false
	return s.loadPage()
}

func (s *BrowseScreen) loadMore() tea.Cmd {
	if s.loading {
		return nil
	}
	if !sources.HasMorePages(s.pagination) {
		s.pagination = sources.RetryFailed(s.pagination)
		if !sources.HasMorePages(s.pagination) {
			return nil
		}
	}
	return s.loadPage()
}

// loadPage fetches the next page in the background. Per-source results arrive
// as pageProgressMsg before the final pageLoadedMsg.
func (s *BrowseScreen) loadPage() tea.Cmd {
	s.loading = true
	gen, state, search := s.gen, s.pagination, s.search

	ch := make(chan tea.Msg, 8)
	go func() {
		defer close(ch)
		songs, next, err := s.pager.LoadNextPage(context.Background(), state, search, func(p sources.LoadProgress) {
			ch <- pageProgressMsg{gen: gen, progress: p, ch: ch}
		})
		ch <- pageLoadedMsg{gen: gen, songs: songs, state: next, err: err}
	}()

	return tea.Batch(waitForPage(ch), s.spinner.Tick)
}

func waitForPage(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func (s *BrowseScreen) loadSettings() tea.Msg {
	settings, err := s.prefs.Load()
	return settingsMsg{settings: settings, err: err}
}

func (s *BrowseScreen) toggleVideos(v bool) tea.Cmd {
	return func() tea.Msg {
		if err := s.prefs.SetDownloadVideos(v); err != nil {
			return settingsMsg{err: err}
		}
		return s.loadSettings()
	}
}

func (s *BrowseScreen) toggleRomanized(v bool) tea.Cmd {
	return func() tea.Msg {
		if err := s.prefs.SetUseRomanizedMetadata(v); err != nil {
			return settingsMsg{err: err}
		}
		return s.loadSettings()
	}
}

func (s *BrowseScreen) View() string {
	if s.width == 0 {
		return "Loading..."
	}

	header := styles.TitleStyle.Render("Browse Songs")

	inputStyle := styles.InputStyle
	if s.input.Focused() {
		inputStyle = styles.FocusedInputStyle
	}
	inputView := inputStyle.Render(s.input.View())

	var errorMsg string
	if s.err != nil {
		errorMsg = styles.StatusError.Render(fmt.Sprintf("Error: %s", s.err)) + "\n\n"
	}

	status := s.status
	if s.loading {
		status = s.spinner.View() + " " + status
	}
	if s.selection.Active() {
		status = fmt.Sprintf("%d selected  %s", s.selection.Count(), status)
	}

	flags := styles.MutedStyle.Render(fmt.Sprintf("videos: %s • romanized: %s",
		onOff(s.settings.DownloadVideos), onOff(s.settings.UseRomanizedMetadata)))

	help := styles.HelpStyle.Render(
		"/: search • space: select • enter: download & import • d: download only • m: more • r: refresh • v: videos • t: romanized",
	)

	return fmt.Sprintf("%s\n\n%s\n%s\n\n%s%s\n%s\n%s",
		header,
		inputView,
		flags,
		errorMsg,
		s.list.View(),
		styles.SubtitleStyle.Render(status),
		help,
	)
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

// Messages
type pageProgressMsg struct {
	gen      int
	progress sources.LoadProgress
	ch       <-chan tea.Msg
}

type pageLoadedMsg struct {
	gen   int
	songs []data.Song
	state data.PaginationState
	err   error
}

type flowStartedMsg struct {
	result services.StartResult
	err    error
}

type importDoneMsg struct {
	err error
}

type settingsMsg struct {
	settings data.Settings
	err      error
}

// FlowStateMsg carries a flow state change into the program.
type FlowStateMsg struct {
	State services.FlowState
}

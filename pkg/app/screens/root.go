package screens

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/kerbaras/adxport/pkg/app/components"
	"github.com/kerbaras/adxport/pkg/app/styles"
	"github.com/kerbaras/adxport/pkg/services"
)

type screenType int

const (
	browseView screenType = iota
	libraryView
)

// Handoff is the part of the dispatcher the UI touches when the terminal
// regains focus.
type Handoff interface {
	ResetLock()
}

// Foreground records whether the terminal has focus.
type Foreground interface {
	Set(foreground bool)
}

type Deps struct {
	Pager       Pager
	Flow        Flow
	Preferences Preferences
	Library     LocalLibrary
	Handoff     Handoff
	Foreground  Foreground
}

type RootScreen struct {
	handoff    Handoff
	foreground Foreground

	currentView screenType
	browse      *BrowseScreen
	library     *LibraryScreen
	progress    *components.FlowProgress
	flow        services.FlowState

	width  int
	height int
}

func NewRootScreen(deps Deps) *RootScreen {
	return &RootScreen{
		handoff:     deps.Handoff,
		foreground:  deps.Foreground,
		currentView: browseView,
		browse:      NewBrowseScreen(deps.Pager, deps.Flow, deps.Preferences),
		library:     NewLibraryScreen(deps.Library),
		progress:    components.NewFlowProgress(80),
		flow:        deps.Flow.State(),
	}
}

func (r *RootScreen) Init() tea.Cmd {
	return tea.Batch(r.browse.Init(), r.library.Init())
}

func (r *RootScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		r.width = msg.Width
		r.height = msg.Height
		r.progress.SetWidth(msg.Width - 4)

	case tea.FocusMsg:
		if r.foreground != nil {
			r.foreground.Set(true)
		}
		// a handoff that never returned control leaves the lock held
		if r.handoff != nil {
			r.handoff.ResetLock()
		}
		return r, nil

	case tea.BlurMsg:
		if r.foreground != nil {
			r.foreground.Set(false)
		}
		return r, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return r, tea.Quit
		case "q":
			if !r.typing() {
				return r, tea.Quit
			}
		case "tab":
			if r.typing() {
				break
			}
			if r.currentView == browseView {
				r.currentView = libraryView
				return r, r.library.Init()
			}
			r.currentView = browseView
			return r, nil
		}
		return r, r.updateCurrent(msg)

	case FlowStateMsg:
		finished := r.flow.Phase != services.PhaseIdle && msg.State.Phase == services.PhaseIdle
		r.flow = msg.State
		_, cmd := r.browse.Update(msg)
		if finished {
			return r, tea.Batch(cmd, r.library.Init())
		}
		return r, cmd
	}

	// Background results go to both screens; each ignores what it does not own.
	_, browseCmd := r.browse.Update(msg)
	_, libraryCmd := r.library.Update(msg)
	return r, tea.Batch(browseCmd, libraryCmd)
}

func (r *RootScreen) typing() bool {
	return r.currentView == browseView && r.browse.Typing()
}

func (r *RootScreen) updateCurrent(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch r.currentView {
	case browseView:
		_, cmd = r.browse.Update(msg)
	case libraryView:
		_, cmd = r.library.Update(msg)
	}
	return cmd
}

func (r *RootScreen) View() string {
	tabs := r.renderTabs()

	var content string
	switch r.currentView {
	case browseView:
		content = r.browse.View()
	case libraryView:
		content = r.library.View()
	}

	if panel := r.progress.View(r.flow); panel != "" {
		content = lipgloss.JoinVertical(lipgloss.Left, content, styles.PanelStyle.Render(panel))
	}

	return fmt.Sprintf("%s\n\n%s", tabs, content)
}

func (r *RootScreen) renderTabs() string {
	browseTab := "Browse"
	libraryTab := "Library"

	if r.currentView == browseView {
		browseTab = styles.ActiveTabStyle.Render(browseTab)
		libraryTab = styles.InactiveTabStyle.Render(libraryTab)
	} else {
		browseTab = styles.InactiveTabStyle.Render(browseTab)
		libraryTab = styles.ActiveTabStyle.Render(libraryTab)
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, browseTab, libraryTab)
}

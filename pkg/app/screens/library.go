package screens

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/kerbaras/adxport/pkg/app/styles"
	"github.com/kerbaras/adxport/pkg/services"
)

// LocalLibrary lists what is already on disk.
type LocalLibrary interface {
	List() ([]services.LocalSong, error)
}

type LibraryScreen struct {
	library  LocalLibrary
	songs    []services.LocalSong
	selected int
	width    int
	height   int
	err      error
}

func NewLibraryScreen(library LocalLibrary) *LibraryScreen {
	return &LibraryScreen{library: library}
}

func (s *LibraryScreen) Init() tea.Cmd {
	return s.loadLibrary
}

func (s *LibraryScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if s.selected > 0 {
				s.selected--
			}
		case "down", "j":
			if s.selected < len(s.songs)-1 {
				s.selected++
			}
		case "r":
			return s, s.loadLibrary
		}

	case libraryLoadedMsg:
		s.songs = msg.songs
		s.err = msg.err
		if s.selected >= len(s.songs) {
			s.selected = max(len(s.songs)-1, 0)
		}
	}

	return s, nil
}

func (s *LibraryScreen) View() string {
	if s.width == 0 {
		return "Loading..."
	}

	header := styles.TitleStyle.Render("Library")

	var errorMsg string
	if s.err != nil {
		errorMsg = styles.StatusError.Render(fmt.Sprintf("Error: %s", s.err)) + "\n\n"
	}

	help := styles.HelpStyle.Render("↑/k: up • ↓/j: down • r: refresh • tab: switch view • q: quit")

	return fmt.Sprintf("%s\n\n%s%s\n%s", header, errorMsg, s.renderSongs(), help)
}

func (s *LibraryScreen) renderSongs() string {
	if len(s.songs) == 0 {
		return styles.MutedStyle.Render("No songs downloaded yet") + "\n"
	}

	var total uint64
	var b strings.Builder
	for i, song := range s.songs {
		size := uint64(song.FolderSize + song.ArchiveSize)
		total += size

		title := song.Title
		if title == "" {
			title = song.Key
		}
		style := styles.TextStyle
		cursor := "  "
		if i == s.selected {
			style = styles.CursorStyle
			cursor = styles.CursorStyle.Render("▸ ")
		}

		var where []string
		if song.Folder != "" {
			where = append(where, "folder")
		}
		if song.Archive != "" {
			where = append(where, "archive")
		}

		b.WriteString(fmt.Sprintf("%s%s  %s\n", cursor, style.Render(title),
			styles.MutedStyle.Render(fmt.Sprintf("%s • %s • %s", song.Key, strings.Join(where, "+"), humanize.Bytes(size)))))
	}
	b.WriteString("\n")
	b.WriteString(styles.SubtitleStyle.Render(fmt.Sprintf("%d songs, %s on disk", len(s.songs), humanize.Bytes(total))))
	b.WriteString("\n")
	return b.String()
}

// Messages
type libraryLoadedMsg struct {
	songs []services.LocalSong
	err   error
}

// Commands
func (s *LibraryScreen) loadLibrary() tea.Msg {
	songs, err := s.library.List()
	return libraryLoadedMsg{songs: songs, err: err}
}

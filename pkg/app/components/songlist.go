package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/kerbaras/adxport/pkg/app/styles"
	"github.com/kerbaras/adxport/pkg/data"
)

// SongList is a scrolling list of catalog songs or download jobs.
type SongList struct {
	Items         []data.Item
	SelectedIndex int
	Width         int
	Height        int
	Romanized     bool
	// Marked reports whether a row is part of the current selection.
	Marked func(key string) bool
	Empty  string
}

func NewSongList() *SongList {
	return &SongList{
		Items:  []data.Item{},
		Width:  80,
		Height: 20,
		Empty:  "No songs",
	}
}

func (l *SongList) SetItems(items []data.Item) {
	l.Items = items
	if l.SelectedIndex >= len(items) && len(items) > 0 {
		l.SelectedIndex = len(items) - 1
	}
	if len(items) == 0 {
		l.SelectedIndex = 0
	}
}

func (l *SongList) Next() {
	if len(l.Items) == 0 {
		return
	}
	l.SelectedIndex++
	if l.SelectedIndex >= len(l.Items) {
		l.SelectedIndex = 0
	}
}

func (l *SongList) Prev() {
	if len(l.Items) == 0 {
		return
	}
	l.SelectedIndex--
	if l.SelectedIndex < 0 {
		l.SelectedIndex = len(l.Items) - 1
	}
}

func (l *SongList) Selected() *data.Item {
	if len(l.Items) == 0 || l.SelectedIndex >= len(l.Items) {
		return nil
	}
	return &l.Items[l.SelectedIndex]
}

// NearEnd reports whether the cursor is within n rows of the last item.
func (l *SongList) NearEnd(n int) bool {
	return len(l.Items)-1-l.SelectedIndex <= n
}

// window returns the visible slice bounds keeping the cursor in view.
func (l *SongList) window() (int, int) {
	rows := l.Height / 2
	if rows < 1 {
		rows = 1
	}
	if len(l.Items) <= rows {
		return 0, len(l.Items)
	}
	start := l.SelectedIndex - rows/2
	if start < 0 {
		start = 0
	}
	if start+rows > len(l.Items) {
		start = len(l.Items) - rows
	}
	return start, start + rows
}

func (l *SongList) View() string {
	if len(l.Items) == 0 {
		return styles.MutedStyle.Render(l.Empty)
	}

	var b strings.Builder
	start, end := l.window()
	for i := start; i < end; i++ {
		item := l.Items[i]

		mark := "  "
		marked := l.Marked != nil && l.Marked(item.Key())
		if marked {
			mark = "● "
		}

		title := truncate(item.Title(l.Romanized), l.Width-4)
		subtitle := truncate(item.Subtitle(l.Romanized), l.Width-4)

		titleStyle := styles.TextStyle
		switch {
		case i == l.SelectedIndex:
			titleStyle = styles.CursorStyle
		case marked:
			titleStyle = styles.MarkedStyle
		}

		cursor := "  "
		if i == l.SelectedIndex {
			cursor = styles.CursorStyle.Render("▸ ")
		}

		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cursor, mark, titleStyle.Render(title)))
		b.WriteString("\n")
		b.WriteString("    " + styles.MutedStyle.Render(subtitle))
		b.WriteString("\n")
	}
	return b.String()
}

func truncate(s string, width int) string {
	if width <= 3 || lipgloss.Width(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r)) > width-3 {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}

package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List songs in your library",
	Long:  "Display downloaded songs and archives in a formatted table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.Close()

		songs, err := e.library.List()
		if err != nil {
			return err
		}

		if len(songs) == 0 {
			fmt.Println("No songs in library. Use 'adxport search' to find songs to download.")
			return nil
		}

		columns := []table.Column{
			{Title: "Song", Width: 20},
			{Title: "Title", Width: 36},
			{Title: "Stored as", Width: 16},
			{Title: "Size", Width: 10},
		}

		var total uint64
		rows := []table.Row{}
		for _, s := range songs {
			var where []string
			if s.Folder != "" {
				where = append(where, "folder")
			}
			if s.Archive != "" {
				where = append(where, "archive")
			}
			size := uint64(s.FolderSize + s.ArchiveSize)
			total += size

			rows = append(rows, table.Row{
				truncateString(s.Key, 18),
				truncateString(s.Title, 34),
				strings.Join(where, "+"),
				humanize.Bytes(size),
			})
		}

		t := table.New(
			table.WithColumns(columns),
			table.WithRows(rows),
			table.WithFocused(false),
			table.WithHeight(len(rows)),
		)

		s := table.DefaultStyles()
		s.Header = s.Header.
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			BorderBottom(true).
			Bold(true)
		s.Selected = s.Selected.
			Foreground(lipgloss.Color("229")).
			Bold(false)
		t.SetStyles(s)

		fmt.Printf("\nLibrary (%d songs, %s) at %s\n\n", len(songs), humanize.Bytes(total), e.library.Root())
		fmt.Println(t.View())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

package cmd

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/kerbaras/adxport/pkg/data"
	"github.com/kerbaras/adxport/pkg/sources"
	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage chart sources",
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured sources",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.Close()

		list, err := e.registry.Load()
		if err != nil {
			return err
		}
		enabled, err := e.registry.EnabledCount()
		if err != nil {
			return err
		}

		t := newTable("ID", "Name", "Base URL", "Enabled")
		for _, s := range list {
			t.Row(s.ID, s.Name, s.BaseURL, strconv.FormatBool(s.Enabled))
		}
		fmt.Println(t)
		fmt.Printf("%d of %d sources enabled\n", enabled, len(list))
		return nil
	},
}

var sourcesAddCmd = &cobra.Command{
	Use:   "add <id> <name> <base-url>",
	Short: "Add a source",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.Close()

		disabled, _ := cmd.Flags().GetBool("disabled")
		source := data.Source{ID: args[0], Name: args[1], BaseURL: args[2], Enabled: !disabled}
		if err := e.registry.Add(source); err != nil {
			return err
		}
		fmt.Printf("Added source %s\n", source.ID)
		return nil
	},
}

var sourcesUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change a source's name or base URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.Close()

		var patch sources.SourcePatch
		if cmd.Flags().Changed("name") {
			name, _ := cmd.Flags().GetString("name")
			patch.Name = &name
		}
		if cmd.Flags().Changed("base-url") {
			baseURL, _ := cmd.Flags().GetString("base-url")
			patch.BaseURL = &baseURL
		}
		if err := e.registry.Update(args[0], patch); err != nil {
			return err
		}
		fmt.Printf("Updated source %s\n", args[0])
		return nil
	},
}

var sourcesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove a source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.Close()

		if err := e.registry.Delete(args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted source %s\n", args[0])
		return nil
	},
}

func toggleSourceCmd(use string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: fmt.Sprintf("%s a source", use),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.registry.Update(args[0], sources.SourcePatch{Enabled: &enabled}); err != nil {
				return err
			}
			fmt.Printf("Source %s %sd\n", args[0], use)
			return nil
		},
	}
}

// newTable is the table style shared by listing commands.
func newTable(headers ...string) *table.Table {
	var (
		purple = lipgloss.Color("99")

		headerStyle = lipgloss.NewStyle().Foreground(purple).Bold(true).Align(lipgloss.Center)
		cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	)

	return table.New().
		Border(lipgloss.HiddenBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(purple)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...)
}

func init() {
	sourcesAddCmd.Flags().Bool("disabled", false, "add the source disabled")
	sourcesUpdateCmd.Flags().String("name", "", "new display name")
	sourcesUpdateCmd.Flags().String("base-url", "", "new base URL")

	sourcesCmd.AddCommand(sourcesListCmd, sourcesAddCmd, sourcesUpdateCmd, sourcesDeleteCmd,
		toggleSourceCmd("enable", true), toggleSourceCmd("disable", false))
	rootCmd.AddCommand(sourcesCmd)
}

package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change app settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.Close()

		s, err := e.settings.Load()
		if err != nil {
			return err
		}
		t := newTable("Setting", "Value")
		t.Row("download-videos", strconv.FormatBool(s.DownloadVideos))
		t.Row("romanized", strconv.FormatBool(s.UseRomanizedMetadata))
		fmt.Println(t)
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:       "set <download-videos|romanized> <true|false>",
	Short:     "Change a setting",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"download-videos", "romanized"},
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.Close()

		v, err := strconv.ParseBool(args[1])
		if err != nil {
			return fmt.Errorf("invalid value %q: %w", args[1], err)
		}

		switch args[0] {
		case "download-videos":
			err = e.settings.SetDownloadVideos(v)
		case "romanized":
			err = e.settings.SetUseRomanizedMetadata(v)
		default:
			return fmt.Errorf("unknown setting %q", args[0])
		}
		if err != nil {
			return err
		}
		fmt.Printf("%s = %t\n", args[0], v)
		return nil
	},
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}

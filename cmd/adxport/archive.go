package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/kerbaras/adxport/pkg/integrations"
	"github.com/kerbaras/adxport/pkg/services"
	"github.com/spf13/cobra"
)

var packCmd = &cobra.Command{
	Use:   "pack <folder>...",
	Short: "Package song folders into one archive",
	Long:  "Each folder's song directories become top-level entries of the archive, ready for import.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.Close()

		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			output = "songs" + services.ArchiveExt
		}

		if err := e.codec.ZipFolders(cmd.Context(), args, output); err != nil {
			return err
		}
		return printArchive(output, e.codec)
	},
}

var unpackCmd = &cobra.Command{
	Use:   "unpack <archive> <dir>",
	Short: "Extract an archive into a directory",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.Close()

		if err := e.codec.Unzip(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("Extracted %s to %s\n", args[0], args[1])
		return nil
	},
}

var sendCmd = &cobra.Command{
	Use:   "send <archive>",
	Short: "Hand an archive to AstroDX",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.Close()

		file, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		if _, err := os.Stat(file); err != nil {
			return err
		}
		title, _ := cmd.Flags().GetString("title")
		if title == "" {
			title = filepath.Base(file)
		}

		dispatcher := e.dispatcher(prompter(), integrations.NewForegroundFlag(true))
		outcome, err := dispatcher.Deliver(cmd.Context(), file, title)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s\n", title, outcome)
		return nil
	},
}

func printArchive(path string, codec integrations.Codec) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	fmt.Printf("Created %s (%s, %s codec)\n", path, humanize.Bytes(uint64(info.Size())), codec.Name())
	return nil
}

func init() {
	packCmd.Flags().StringP("output", "o", "", "archive path (default: songs"+services.ArchiveExt+")")
	sendCmd.Flags().StringP("title", "t", "", "title shown in the share prompt")
	rootCmd.AddCommand(packCmd, unpackCmd, sendCmd)
}

package commands

import (
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/spf13/cobra"
)

var exportOutput string

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Where to write the CSV file, defaults to the name the server suggests.")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export <keyword>... [-o <file.csv>]",
	Short: "Searches each keyword and downloads the results as a CSV file.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		page, err := remote.Search(cmd.Context(), args, "csv")
		printFlashes(page.Flashes)
		if err != nil {
			return err
		}
		if page.ExportPath == "" {
			return errors.New("the server did not produce an export")
		}

		output := exportOutput
		if output == "" {
			output = page.ExportName
		}
		if output == "" {
			output = path.Base(page.ExportPath) + ".csv"
		}

		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer f.Close()

		err = remote.Download(cmd.Context(), page.ExportPath, f)
		if err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", output)
		return nil
	},
}

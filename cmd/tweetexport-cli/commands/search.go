package commands

import (
	"fmt"
	"os"
	"tweetexport-backend/cmd/tweetexport-cli/client"
	"tweetexport-backend/cmd/tweetexport-cli/utils"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var searchTextWidth int

func init() {
	searchCmd.Flags().IntVar(&searchTextWidth, "width", 60, "Maximum width of the text column.")
	rootCmd.AddCommand(searchCmd)
}

func printFlashes(flashes []client.Flash) {
	for _, f := range flashes {
		out := os.Stdout
		if f.Level == "error" || f.Level == "warning" {
			out = os.Stderr
		}
		fmt.Fprintf(out, "[%s] %s\n", f.Level, f.Message)
	}
}

var searchCmd = &cobra.Command{
	Use:   "search <keyword>...",
	Short: "Searches each keyword and prints the results as a table.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		page, err := remote.Search(cmd.Context(), args, "html")
		printFlashes(page.Flashes)
		if err != nil {
			return err
		}

		t := utils.NewTable()
		t.AppendHeader(table.Row{"Keyword", "Time", "User", "Text", "URL"})
		t.SetColumnConfigs([]table.ColumnConfig{
			{Name: "Text", WidthMax: searchTextWidth},
		})
		for _, row := range page.Rows {
			t.AppendRow(table.Row{
				row.Keyword,
				row.Time,
				fmt.Sprintf("%s (@%s)", row.UserName, row.ScreenName),
				row.Text,
				row.TweetURL,
			})
		}
		t.AppendFooter(table.Row{"", "", "", fmt.Sprintf("%d results", len(page.Rows)), ""})
		t.Render()
		return nil
	},
}

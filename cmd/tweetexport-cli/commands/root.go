package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"tweetexport-backend/cmd/tweetexport-cli/client"
	"tweetexport-backend/internal/components/telemetry"

	"github.com/spf13/cobra"
)

var (
	baseUrl     string
	sessionFile string
	dumpDir     string

	remote *client.Client
)

func defaultBaseUrl() string {
	if value, ok := os.LookupEnv("TWEETEXPORT_BASE_URL"); ok {
		return value
	}
	return "http://localhost:8080"
}

func defaultSessionFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ".tweetexport-session.json"
	}
	return filepath.Join(dir, "tweetexport", "session.json")
}

func init() {
	rootCmd.PersistentFlags().StringVar(&baseUrl, "base-url", defaultBaseUrl(), "Base url of the tweetexport server (env TWEETEXPORT_BASE_URL).")
	rootCmd.PersistentFlags().StringVar(&sessionFile, "session-file", defaultSessionFile(), "File the server session cookie is kept in between invocations.")
	rootCmd.PersistentFlags().StringVar(&dumpDir, "dump", "", "Write every http exchange to this directory, with passwords and cookies redacted.")
}

var rootCmd = &cobra.Command{
	Use:           "tweetexport-cli",
	Short:         "tweetexport-cli logs in to a tweetexport server, runs keyword searches and downloads exports.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		remote, err = client.New(baseUrl, sessionFile, telemetry.SlogAPI{})
		if err != nil {
			return err
		}
		if dumpDir != "" {
			dump, err := client.NewDump(dumpDir)
			if err != nil {
				return err
			}
			remote.SetDump(dump)
		}
		return nil
	},
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

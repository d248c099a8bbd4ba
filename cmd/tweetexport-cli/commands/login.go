package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	loginUsername string
	loginPassword string
)

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "Account username, email or phone number.")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Account password, read from TWEETEXPORT_PASSWORD or stdin when omitted.")
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}

func readPassword() (string, error) {
	if loginPassword != "" {
		return loginPassword, nil
	}
	if value, ok := os.LookupEnv("TWEETEXPORT_PASSWORD"); ok {
		return value, nil
	}
	fmt.Fprint(os.Stderr, "Password: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

var loginCmd = &cobra.Command{
	Use:   "login --username <name>",
	Short: "Logs in to the server and keeps the session for later commands.",
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword()
		if err != nil {
			return err
		}
		page, err := remote.Login(cmd.Context(), loginUsername, password)
		if err != nil {
			return err
		}
		printFlashes(page.Flashes)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Ends the server session and discards its stored credentials.",
	RunE: func(cmd *cobra.Command, args []string) error {
		err := remote.Logout(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println("Logged out.")
		return nil
	},
}

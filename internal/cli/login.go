package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Log in and remember the session",
		Long:  "Log in with email and password. The access token is stored locally until logout.",
		Args:  cobra.ExactArgs(1),
		Run:   runLogin,
	}

	cmd.Flags().String("password-file", "", "Read the password from a file (\"-\" for stdin)")

	RootCmd.AddCommand(cmd)
}

func runLogin(cmd *cobra.Command, args []string) {
	passwordFile, _ := cmd.Flags().GetString("password-file")
	email := args[0]

	password, err := readPassword(passwordFile)
	if err != nil {
		exitErr("login", err)
	}

	a := mustApp()
	defer a.Close()

	if err := a.sess.Login(cmd.Context(), email, password); err != nil {
		exitErr("login", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"email":%q}`+"\n", email)
}

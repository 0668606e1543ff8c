package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "register <email>",
		Short: "Create an account",
		Long:  "Create an account. Registering does not log in; run login afterwards.",
		Args:  cobra.ExactArgs(1),
		Run:   runRegister,
	}

	cmd.Flags().String("password-file", "", "Read the password from a file (\"-\" for stdin)")

	RootCmd.AddCommand(cmd)
}

func runRegister(cmd *cobra.Command, args []string) {
	passwordFile, _ := cmd.Flags().GetString("password-file")
	email := args[0]

	password, err := readPassword(passwordFile)
	if err != nil {
		exitErr("register", err)
	}

	a := mustApp()
	defer a.Close()

	if err := a.sess.ShowRegister(); err != nil {
		exitErr("register", err)
	}
	if err := a.sess.Register(cmd.Context(), email, password); err != nil {
		exitErr("register", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"email":%q}`+"\n", email)
}

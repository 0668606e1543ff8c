package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Run:   runLogout,
	})
}

func runLogout(cmd *cobra.Command, args []string) {
	a := mustApp()
	defer a.Close()

	if err := a.sess.Logout(cmd.Context()); err != nil {
		exitErr("logout", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), `{"ok":true}`)
}

package cli

import (
	"io"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved itineraries",
		Run:   runList,
	})
}

func runList(cmd *cobra.Command, args []string) {
	a := mustApp()
	defer a.Close()

	if err := a.enter(cmd.Context()); err != nil {
		exitErr("list", err)
	}

	records := a.wb.Itineraries()
	emit(cmd.OutOrStdout(), records, func(w io.Writer) { renderList(w, records) })
}

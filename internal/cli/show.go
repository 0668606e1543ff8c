package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/rcliao/tripplan/internal/model"
	"github.com/rcliao/tripplan/internal/workbench"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Show one itinerary",
		Args:  cobra.ExactArgs(1),
		Run:   runShow,
	})
}

func runShow(cmd *cobra.Command, args []string) {
	a := mustApp()
	defer a.Close()

	if err := a.enter(cmd.Context()); err != nil {
		exitErr("show", err)
	}
	if err := a.wb.Select(model.ID(args[0])); err != nil {
		exitErr("show", err)
	}

	rec := a.wb.State().(workbench.Viewing).Record
	emit(cmd.OutOrStdout(), rec, func(w io.Writer) { renderItinerary(w, rec) })
}

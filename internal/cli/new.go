package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Generate a new itinerary",
		Long:  "Generate a day-by-day preview for a destination and date range. Nothing is stored unless --save is given.",
		Run:   runNew,
	}

	addDraftFlags(cmd)
	cmd.Flags().Bool("save", false, "Save the generated itinerary")
	cmd.MarkFlagRequired("dest")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")

	RootCmd.AddCommand(cmd)
}

func runNew(cmd *cobra.Command, args []string) {
	save, _ := cmd.Flags().GetBool("save")
	ctx := cmd.Context()

	a := mustApp()
	defer a.Close()

	if err := a.enter(ctx); err != nil {
		exitErr("new", err)
	}
	if err := a.wb.New(); err != nil {
		exitErr("new", err)
	}
	if err := applyDraftFlags(cmd, a.wb); err != nil {
		exitErr("new", err)
	}

	preview, saved, err := generateAndMaybeSave(ctx, a.wb, save)
	if err != nil {
		exitErr("new", err)
	}

	emit(cmd.OutOrStdout(), draftResult{Preview: preview, Saved: saved}, func(w io.Writer) {
		renderPreview(w, *preview)
		if saved != nil {
			fmt.Fprintln(w, metaStyle.Render("Saved as #"+saved.ID.String()))
		}
	})
}

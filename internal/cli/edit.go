package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rcliao/tripplan/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change and regenerate a saved itinerary",
		Long:  "Start from a saved itinerary, override any of its fields, regenerate the plan and save it in place.",
		Args:  cobra.ExactArgs(1),
		Run:   runEdit,
	}

	addDraftFlags(cmd)
	cmd.Flags().Bool("dry-run", false, "Show the regenerated plan without saving")

	RootCmd.AddCommand(cmd)
}

func runEdit(cmd *cobra.Command, args []string) {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	ctx := cmd.Context()

	a := mustApp()
	defer a.Close()

	if err := a.enter(ctx); err != nil {
		exitErr("edit", err)
	}
	if err := a.wb.Edit(model.ID(args[0])); err != nil {
		exitErr("edit", err)
	}
	if err := applyDraftFlags(cmd, a.wb); err != nil {
		exitErr("edit", err)
	}

	preview, saved, err := generateAndMaybeSave(ctx, a.wb, !dryRun)
	if err != nil {
		exitErr("edit", err)
	}

	emit(cmd.OutOrStdout(), draftResult{Preview: preview, Saved: saved}, func(w io.Writer) {
		renderPreview(w, *preview)
		if saved != nil {
			fmt.Fprintln(w, metaStyle.Render("Updated #"+saved.ID.String()))
		}
	})
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/tripplan/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a saved itinerary",
		Args:  cobra.ExactArgs(1),
		Run:   runRm,
	}

	cmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")

	RootCmd.AddCommand(cmd)
}

func runRm(cmd *cobra.Command, args []string) {
	yes, _ := cmd.Flags().GetBool("yes")
	id := model.ID(args[0])
	ctx := cmd.Context()

	a := mustApp()
	defer a.Close()

	if err := a.enter(ctx); err != nil {
		exitErr("rm", err)
	}
	op, err := a.wb.Delete(ctx, id, confirmer(yes))
	if err != nil {
		exitErr("rm", err)
	}
	if op == nil {
		fmt.Fprintf(cmd.OutOrStdout(), `{"ok":false,"id":%q,"reason":"cancelled"}`+"\n", id)
		return
	}
	if err := a.wb.Wait(ctx, op); err != nil {
		exitErr("rm", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"id":%q}`+"\n", id)
}

package cli

import (
	"os"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export saved itineraries as JSON",
		Long:  "Write every saved itinerary as a JSON array, in the format import reads.",
		Run:   runExport,
	}

	cmd.Flags().StringP("out", "o", "", "Write to a file instead of stdout")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	out, _ := cmd.Flags().GetString("out")

	a := mustApp()
	defer a.Close()

	if err := a.enter(cmd.Context()); err != nil {
		exitErr("export", err)
	}

	w := cmd.OutOrStdout()
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			exitErr("export", err)
		}
		defer f.Close()
		w = f
	}
	if err := a.cache.Export(w); err != nil {
		exitErr("export", err)
	}
}

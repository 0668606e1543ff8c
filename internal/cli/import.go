package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/tripplan/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import itineraries from JSON",
		Long:  "Create itineraries from JSON (stdin or file) in the format produced by export. Each record gets a new id.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runImport,
	}

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	var r io.Reader = os.Stdin
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			exitErr("import", err)
		}
		defer f.Close()
		r = f
	}

	records, err := store.ReadExport(r)
	if err != nil {
		exitErr("parse json", err)
	}

	a := mustApp()
	defer a.Close()
	ctx := cmd.Context()

	if err := a.enter(ctx); err != nil {
		exitErr("import", err)
	}
	token, _ := a.sess.Token()

	imported, err := a.cache.Import(ctx, a.gw, a.gw, token, records)
	if err != nil {
		a.sess.Expire(ctx, err)
		exitErr(fmt.Sprintf("import (%d of %d imported)", imported, len(records)), err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"imported":%d}`+"\n", imported)
}

package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show session and configuration",
		Run:   runStatus,
	})
}

type statusReport struct {
	State   string     `json:"state"`
	Email   string     `json:"email,omitempty"`
	API     string     `json:"api"`
	DB      string     `json:"db"`
	Timeout string     `json:"request_timeout,omitempty"`
	SavedAt *time.Time `json:"saved_at,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) {
	a := mustApp()
	defer a.Close()
	ctx := cmd.Context()

	if _, err := a.sess.Bootstrap(ctx); err != nil {
		exitErr("status", err)
	}

	report := statusReport{
		State: a.sess.State().String(),
		API:   a.gw.BaseURL(),
		DB:    a.creds.Path(),
	}
	if a.cfg.RequestTimeout > 0 {
		report.Timeout = a.cfg.RequestTimeout.String()
	}
	if s, ok := a.sess.Session(); ok {
		report.Email = s.User.Email
		if at, ok, err := a.creds.SavedAt(ctx); err == nil && ok {
			report.SavedAt = &at
		}
	}

	emit(cmd.OutOrStdout(), report, func(w io.Writer) {
		fmt.Fprintf(w, "%s %s\n", titleStyle.Render(report.State), report.Email)
		fmt.Fprintln(w, metaStyle.Render("api: "+report.API))
		fmt.Fprintln(w, metaStyle.Render("db:  "+report.DB))
		if report.SavedAt != nil {
			fmt.Fprintln(w, metaStyle.Render("logged in since "+report.SavedAt.Local().Format(time.RFC1123)))
		}
	})
}

package cli

import (
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/tripplan/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search saved itineraries by keyword",
		Long:  "Search destinations, interests and planned activities for matching text.",
		Run:   runSearch,
	}

	cmd.Flags().String("interest", "", "Only itineraries with this interest")
	cmd.Flags().IntP("limit", "l", 20, "Max results")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	interest, _ := cmd.Flags().GetString("interest")
	limit, _ := cmd.Flags().GetInt("limit")
	query := strings.Join(args, " ")

	a := mustApp()
	defer a.Close()

	if err := a.enter(cmd.Context()); err != nil {
		exitErr("search", err)
	}

	results := a.cache.Search(store.SearchParams{
		Query:    query,
		Interest: interest,
		Limit:    limit,
	})
	if results == nil {
		results = []store.SearchResult{}
	}
	emit(cmd.OutOrStdout(), results, func(w io.Writer) { renderSearch(w, results) })
}

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rcliao/tripplan/internal/model"
	"github.com/rcliao/tripplan/internal/store"
	"github.com/rcliao/tripplan/internal/workbench"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	idStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	metaStyle  = lipgloss.NewStyle().Faint(true)
	dayStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

func textOutput() bool { return formatFlag == "text" }

// emit writes v as indented JSON, or through text when --format text is set.
func emit(w io.Writer, v any, text func(io.Writer)) {
	if textOutput() && text != nil {
		text(w)
		return
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(w, string(b))
}

func dateRange(start, end model.Date) string {
	return fmt.Sprintf("%s to %s", start, end)
}

func interestList(interests []string) string {
	if len(interests) == 0 {
		return "no particular interests"
	}
	return strings.Join(interests, ", ")
}

func renderList(w io.Writer, records []model.Itinerary) {
	if len(records) == 0 {
		fmt.Fprintln(w, metaStyle.Render("No itineraries yet. Create one with `tripplan new`."))
		return
	}
	for _, r := range records {
		fmt.Fprintf(w, "%s  %s  %s\n",
			idStyle.Render(fmt.Sprintf("%4s", r.ID)),
			titleStyle.Render(r.Destination),
			metaStyle.Render(fmt.Sprintf("%s, %d days, %s", dateRange(r.StartDate, r.EndDate), r.DaysCount, interestList(r.Interests))))
	}
}

func renderDays(w io.Writer, days []model.Day) {
	for _, d := range days {
		fmt.Fprintln(w, dayStyle.Render(fmt.Sprintf("Day %d", d.Day)))
		for _, a := range d.Activities {
			fmt.Fprintf(w, "  - %s\n", a)
		}
	}
}

func renderItinerary(w io.Writer, r model.Itinerary) {
	fmt.Fprintf(w, "%s %s\n", titleStyle.Render(r.Destination), idStyle.Render("#"+r.ID.String()))
	fmt.Fprintln(w, metaStyle.Render(dateRange(r.StartDate, r.EndDate)))
	fmt.Fprintln(w, metaStyle.Render("Interests: "+interestList(r.Interests)))
	fmt.Fprintln(w)
	renderDays(w, r.GeneratedItinerary)
}

func renderPreview(w io.Writer, p model.Preview) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Preview (%d days)", p.DaysCount)))
	renderDays(w, p.Itinerary)
}

func renderSearch(w io.Writer, results []store.SearchResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, metaStyle.Render("No matches."))
		return
	}
	for _, r := range results {
		fmt.Fprintf(w, "%s  %s  %s\n",
			idStyle.Render(fmt.Sprintf("%4s", r.Itinerary.ID)),
			titleStyle.Render(r.Itinerary.Destination),
			metaStyle.Render("matched "+r.MatchedOn))
	}
}

// renderState prints the workbench's current screen for the interactive shell.
func renderState(w io.Writer, wb *workbench.Workbench) {
	switch s := wb.State().(type) {
	case workbench.Listing:
		renderList(w, wb.Itineraries())
	case workbench.Viewing:
		renderItinerary(w, s.Record)
	case *workbench.Drafting:
		renderDraft(w, s)
	case workbench.SignedOut:
		fmt.Fprintln(w, warnStyle.Render("Signed out. Use `login <email>` to continue."))
	}
}

func renderDraft(w io.Writer, d *workbench.Drafting) {
	heading := "New itinerary"
	if d.Draft.IsEdit() {
		heading = "Editing itinerary #" + d.Draft.EditingID.String()
	}
	fmt.Fprintln(w, titleStyle.Render(heading))
	fmt.Fprintf(w, "  destination: %s\n", d.Draft.Destination)
	fmt.Fprintf(w, "  start:       %s\n", d.Draft.StartDate)
	fmt.Fprintf(w, "  end:         %s\n", d.Draft.EndDate)
	for i, in := range d.Draft.Interests {
		fmt.Fprintf(w, "  interest %d:  %s\n", i+1, in)
	}
	switch {
	case d.Busy != workbench.BusyNone:
		fmt.Fprintln(w, warnStyle.Render(d.Busy.String()+"..."))
	case d.Preview != nil:
		fmt.Fprintln(w)
		renderPreview(w, *d.Preview)
	default:
		fmt.Fprintln(w, metaStyle.Render("No preview yet. Run `generate` before `save`."))
	}
}

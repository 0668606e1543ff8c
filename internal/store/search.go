package store

import (
	"strings"

	"github.com/rcliao/tripplan/internal/model"
)

// SearchParams holds parameters for searching cached itineraries.
type SearchParams struct {
	Query    string
	Interest string // exact interest match, case-insensitive
	Limit    int
}

// SearchResult wraps a record with the field that matched.
type SearchResult struct {
	model.Itinerary
	MatchedOn string `json:"matched_on"`
}

// Search finds cached itineraries whose destination, interests or activities
// contain the query substring. Destination matches rank first.
func (c *Itineraries) Search(p SearchParams) []SearchResult {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}
	q := strings.ToLower(strings.TrimSpace(p.Query))
	interest := strings.ToLower(strings.TrimSpace(p.Interest))

	var byDest, byOther []SearchResult
	for _, r := range c.All() {
		if interest != "" && !hasInterest(r, interest) {
			continue
		}
		switch {
		case q == "" && interest != "":
			byDest = append(byDest, SearchResult{Itinerary: r, MatchedOn: "interest"})
		case q == "":
			byDest = append(byDest, SearchResult{Itinerary: r, MatchedOn: "all"})
		case strings.Contains(strings.ToLower(r.Destination), q):
			byDest = append(byDest, SearchResult{Itinerary: r, MatchedOn: "destination"})
		case anyContains(r.Interests, q):
			byOther = append(byOther, SearchResult{Itinerary: r, MatchedOn: "interests"})
		case activityContains(r.GeneratedItinerary, q):
			byOther = append(byOther, SearchResult{Itinerary: r, MatchedOn: "activities"})
		}
	}

	results := append(byDest, byOther...)
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

func hasInterest(r model.Itinerary, interest string) bool {
	for _, i := range r.Interests {
		if strings.ToLower(strings.TrimSpace(i)) == interest {
			return true
		}
	}
	return false
}

func anyContains(items []string, q string) bool {
	for _, s := range items {
		if strings.Contains(strings.ToLower(s), q) {
			return true
		}
	}
	return false
}

func activityContains(days []model.Day, q string) bool {
	for _, d := range days {
		if anyContains(d.Activities, q) {
			return true
		}
	}
	return false
}

// Package model defines the core itinerary and session data types.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// Date is a calendar date without time of day. The zero value means unset.
type Date struct {
	t time.Time
}

// NewDate returns the date for the given year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO calendar date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD)", s)
	}
	return Date{t: t}, nil
}

// MustParseDate is like ParseDate but panics on error. Intended for tests and literals.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) IsZero() bool { return d.t.IsZero() }

func (d Date) Before(o Date) bool { return d.t.Before(o.t) }

func (d Date) After(o Date) bool { return d.t.After(o.t) }

// AddDays returns the date n days later.
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

// DaysThrough returns the number of calendar days from d to end, inclusive.
func (d Date) DaysThrough(end Date) int {
	return int(end.t.Sub(d.t).Hours()/24) + 1
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	// Some servers serialize dates as full timestamps.
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ID is a server-assigned record identifier. The remote service may encode it
// as a JSON number or a string; numeric IDs round-trip as numbers.
type ID string

// numericID matches ids that are valid JSON integers.
var numericID = regexp.MustCompile(`^(0|-?[1-9][0-9]*)$`)

func (id ID) String() string { return string(id) }

func (id ID) IsZero() bool { return id == "" }

func (id ID) MarshalJSON() ([]byte, error) {
	if numericID.MatchString(string(id)) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id *ID) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", b, err)
	}
	*id = ID(n.String())
	return nil
}

// Day is one day of a generated itinerary. Day numbers are 1-based.
type Day struct {
	Day        int      `json:"day"`
	Activities []string `json:"activities"`
}

// Itinerary is a persisted itinerary record as returned by the remote store.
type Itinerary struct {
	ID                 ID       `json:"id"`
	Destination        string   `json:"destination"`
	StartDate          Date     `json:"start_date"`
	EndDate            Date     `json:"end_date"`
	Interests          []string `json:"interests"`
	DaysCount          int      `json:"days_count"`
	GeneratedItinerary []Day    `json:"generated_itinerary"`
}

// Preview is the ephemeral output of a generate call.
type Preview struct {
	DaysCount int   `json:"days_count"`
	Itinerary []Day `json:"itinerary"`
}

// GenerateRequest is the body of a generate call.
type GenerateRequest struct {
	Destination string   `json:"destination" validate:"required"`
	StartDate   Date     `json:"start_date"`
	EndDate     Date     `json:"end_date"`
	Interests   []string `json:"interests"`
}

// ItineraryInput is the body of create and update calls.
type ItineraryInput struct {
	Destination        string   `json:"destination" validate:"required"`
	StartDate          Date     `json:"start_date"`
	EndDate            Date     `json:"end_date"`
	Interests          []string `json:"interests"`
	DaysCount          int      `json:"days_count" validate:"gte=1"`
	GeneratedItinerary []Day    `json:"generated_itinerary" validate:"required,dive"`
}

// CleanInterests drops blank and whitespace-only entries, keeping order.
// The result is never nil so it encodes as an empty JSON array.
func CleanInterests(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

package workbench

import (
	"fmt"
	"strings"

	"github.com/rcliao/tripplan/internal/model"
)

// Draft is the editable, not yet persisted form for an itinerary. A zero
// EditingID means saving creates a new record; otherwise it updates that one.
type Draft struct {
	Destination string
	StartDate   model.Date
	EndDate     model.Date
	// Interests may hold blank slots while the traveler is typing. It always
	// has at least one slot.
	Interests []string
	EditingID model.ID
}

// NewDraft returns an empty draft with one blank interest slot.
func NewDraft() Draft {
	return Draft{Interests: []string{""}}
}

// DraftFromRecord copies a record's editable fields and targets it for update.
func DraftFromRecord(r model.Itinerary) Draft {
	interests := append([]string(nil), r.Interests...)
	if len(interests) == 0 {
		interests = []string{""}
	}
	return Draft{
		Destination: r.Destination,
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
		Interests:   interests,
		EditingID:   r.ID,
	}
}

// IsEdit reports whether saving updates an existing record.
func (d Draft) IsEdit() bool { return !d.EditingID.IsZero() }

// AddInterest appends a blank slot.
func (d *Draft) AddInterest() {
	d.Interests = append(d.Interests, "")
}

// RemoveInterest drops slot i. Removing the last remaining slot is a no-op.
func (d *Draft) RemoveInterest(i int) error {
	if err := d.checkIndex(i); err != nil {
		return err
	}
	if len(d.Interests) <= 1 {
		return nil
	}
	d.Interests = append(d.Interests[:i:i], d.Interests[i+1:]...)
	return nil
}

// SetInterest replaces slot i.
func (d *Draft) SetInterest(i int, v string) error {
	if err := d.checkIndex(i); err != nil {
		return err
	}
	d.Interests[i] = v
	return nil
}

func (d *Draft) checkIndex(i int) error {
	if i < 0 || i >= len(d.Interests) {
		return fmt.Errorf("interest %d out of range (have %d)", i+1, len(d.Interests))
	}
	return nil
}

// SubmittedInterests is the interest list sent to the service: blank and
// whitespace-only slots removed. It may be empty.
func (d Draft) SubmittedInterests() []string {
	return model.CleanInterests(d.Interests)
}

// GenerateRequest builds the generate call body.
func (d Draft) GenerateRequest() model.GenerateRequest {
	return model.GenerateRequest{
		Destination: strings.TrimSpace(d.Destination),
		StartDate:   d.StartDate,
		EndDate:     d.EndDate,
		Interests:   d.SubmittedInterests(),
	}
}

// Input builds the create/update body, taking generated content from p.
func (d Draft) Input(p model.Preview) model.ItineraryInput {
	return model.ItineraryInput{
		Destination:        strings.TrimSpace(d.Destination),
		StartDate:          d.StartDate,
		EndDate:            d.EndDate,
		Interests:          d.SubmittedInterests(),
		DaysCount:          p.DaysCount,
		GeneratedItinerary: p.Itinerary,
	}
}

func (d Draft) clone() Draft {
	d.Interests = append([]string(nil), d.Interests...)
	return d
}

package workbench

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/tripplan/internal/model"
)

func TestNewDraftHasOneSlot(t *testing.T) {
	d := NewDraft()
	assert.Equal(t, []string{""}, d.Interests)
	assert.False(t, d.IsEdit())
}

func TestRemoveLastInterestIsNoop(t *testing.T) {
	d := NewDraft()
	require.NoError(t, d.SetInterest(0, "hiking"))
	require.NoError(t, d.RemoveInterest(0))
	assert.Equal(t, []string{"hiking"}, d.Interests)

	d.AddInterest()
	require.NoError(t, d.SetInterest(1, "food"))
	require.NoError(t, d.RemoveInterest(0))
	assert.Equal(t, []string{"food"}, d.Interests)

	assert.Error(t, d.RemoveInterest(3))
	assert.Error(t, d.SetInterest(-1, "x"))
}

func TestSubmittedInterestsDropBlanks(t *testing.T) {
	d := Draft{Interests: []string{"  ", "museums", "", "food "}}
	assert.Equal(t, []string{"museums", "food "}, d.SubmittedInterests())

	blank := NewDraft()
	got := blank.SubmittedInterests()
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestDraftFromRecord(t *testing.T) {
	rec := model.Itinerary{
		ID:          "7",
		Destination: "Paris, France",
		StartDate:   model.MustParseDate("2024-06-01"),
		EndDate:     model.MustParseDate("2024-06-03"),
		Interests:   []string{"museums"},
		DaysCount:   3,
	}
	d := DraftFromRecord(rec)
	assert.True(t, d.IsEdit())
	assert.Equal(t, model.ID("7"), d.EditingID)
	assert.Equal(t, rec.StartDate, d.StartDate)

	d.Interests[0] = "changed"
	assert.Equal(t, "museums", rec.Interests[0], "draft does not alias the record")
}

func TestInputTakesPreviewContent(t *testing.T) {
	d := Draft{
		Destination: " Paris, France ",
		StartDate:   model.MustParseDate("2024-06-01"),
		EndDate:     model.MustParseDate("2024-06-02"),
		Interests:   []string{"food", ""},
	}
	p := model.Preview{DaysCount: 2, Itinerary: []model.Day{
		{Day: 1, Activities: []string{"a"}},
		{Day: 2, Activities: []string{"b"}},
	}}

	in := d.Input(p)
	assert.Equal(t, "Paris, France", in.Destination)
	assert.Equal(t, []string{"food"}, in.Interests)
	assert.Equal(t, 2, in.DaysCount)
	assert.Equal(t, p.Itinerary, in.GeneratedItinerary)

	req := d.GenerateRequest()
	assert.Equal(t, "Paris, France", req.Destination)
	assert.Equal(t, d.EndDate, req.EndDate)
}

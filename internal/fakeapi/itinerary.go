package fakeapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rcliao/tripplan/internal/model"
)

// Seed stores rec for email with a fresh server id and returns it.
func (s *Server) Seed(email string, rec model.Itinerary) model.Itinerary {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	rec.ID = model.ID(strconv.Itoa(s.nextID))
	s.records[email] = append(s.records[email], rec)
	return rec
}

// Records returns email's stored itineraries.
func (s *Server) Records(email string) []model.Itinerary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Itinerary, len(s.records[email]))
	copy(out, s.records[email])
	return out
}

// Generate builds a deterministic day-by-day plan: one day per calendar day,
// activities rotating through the interests.
func Generate(req model.GenerateRequest) model.Preview {
	days := req.StartDate.DaysThrough(req.EndDate)
	interests := model.CleanInterests(req.Interests)

	preview := model.Preview{DaysCount: days, Itinerary: make([]model.Day, 0, days)}
	for i := 0; i < days; i++ {
		var activities []string
		if len(interests) == 0 {
			activities = []string{
				fmt.Sprintf("Morning: walking tour of %s", req.Destination),
				"Afternoon: free time to explore",
			}
		} else {
			first := interests[i%len(interests)]
			second := interests[(i+1)%len(interests)]
			activities = []string{
				fmt.Sprintf("Morning: %s in %s", first, req.Destination),
				fmt.Sprintf("Afternoon: %s around %s", second, req.Destination),
			}
		}
		activities = append(activities, fmt.Sprintf("Evening: dinner on day %d", i+1))
		preview.Itinerary = append(preview.Itinerary, model.Day{Day: i + 1, Activities: activities})
	}
	return preview
}

func checkTrip(w http.ResponseWriter, destination string, start, end model.Date) bool {
	switch {
	case strings.TrimSpace(destination) == "":
		writeValidation(w, "destination", "field required")
	case start.IsZero():
		writeValidation(w, "start_date", "field required")
	case end.IsZero():
		writeValidation(w, "end_date", "field required")
	case end.Before(start):
		writeValidation(w, "end_date", "end_date must be on or after start_date")
	default:
		return true
	}
	return false
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req model.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidation(w, "body", err.Error())
		return
	}
	if !checkTrip(w, req.Destination, req.StartDate, req.EndDate) {
		return
	}
	if req.StartDate.DaysThrough(req.EndDate) > MaxTripDays {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("Trips longer than %d days are not supported", MaxTripDays))
		return
	}
	writeJSON(w, http.StatusOK, Generate(req))
}

func decodeInput(w http.ResponseWriter, r *http.Request) (model.ItineraryInput, bool) {
	var in model.ItineraryInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeValidation(w, "body", err.Error())
		return in, false
	}
	if !checkTrip(w, in.Destination, in.StartDate, in.EndDate) {
		return in, false
	}
	if in.DaysCount < 1 || len(in.GeneratedItinerary) != in.DaysCount {
		writeValidation(w, "generated_itinerary", "must have days_count entries")
		return in, false
	}
	if in.Interests == nil {
		in.Interests = []string{}
	}
	return in, true
}

func fromInput(id model.ID, in model.ItineraryInput) model.Itinerary {
	return model.Itinerary{
		ID:                 id,
		Destination:        in.Destination,
		StartDate:          in.StartDate,
		EndDate:            in.EndDate,
		Interests:          in.Interests,
		DaysCount:          in.DaysCount,
		GeneratedItinerary: in.GeneratedItinerary,
	}
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeInput(w, r)
	if !ok {
		return
	}
	rec := s.Seed(owner(r), fromInput("", in))
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Records(owner(r)))
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := model.ID(chi.URLParam(r, "id"))
	in, ok := decodeInput(w, r)
	if !ok {
		return
	}

	email := owner(r)
	s.mu.Lock()
	var updated *model.Itinerary
	for i := range s.records[email] {
		if s.records[email][i].ID == id {
			s.records[email][i] = fromInput(id, in)
			rec := s.records[email][i]
			updated = &rec
			break
		}
	}
	s.mu.Unlock()

	if updated == nil {
		writeDetail(w, http.StatusNotFound, "Itinerary not found")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := model.ID(chi.URLParam(r, "id"))
	email := owner(r)

	s.mu.Lock()
	found := false
	recs := s.records[email]
	for i := range recs {
		if recs[i].ID == id {
			s.records[email] = append(recs[:i:i], recs[i+1:]...)
			found = true
			break
		}
	}
	s.mu.Unlock()

	if !found {
		writeDetail(w, http.StatusNotFound, "Itinerary not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"detail": "Itinerary deleted"})
}

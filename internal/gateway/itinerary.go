package gateway

import (
	"context"
	"net/http"
	"net/url"

	"github.com/rcliao/tripplan/internal/apperr"
	"github.com/rcliao/tripplan/internal/model"
)

var (
	generateErrors = map[int]apperr.Kind{
		http.StatusUnauthorized:        apperr.KindUnauthorized,
		http.StatusForbidden:           apperr.KindUnauthorized,
		http.StatusUnprocessableEntity: apperr.KindValidation,
	}
	recordErrors = map[int]apperr.Kind{
		http.StatusUnauthorized:        apperr.KindUnauthorized,
		http.StatusForbidden:           apperr.KindUnauthorized,
		http.StatusNotFound:            apperr.KindNotFound,
		http.StatusUnprocessableEntity: apperr.KindValidation,
	}
)

func recordPath(id model.ID) string {
	return "/api/itinerary/" + url.PathEscape(id.String())
}

// Generate asks the service for a day-by-day preview. Nothing is persisted.
func (c *Client) Generate(ctx context.Context, req model.GenerateRequest, token string) (*model.Preview, error) {
	const op = "generate"
	if err := check(op, req); err != nil {
		return nil, err
	}
	if req.Interests == nil {
		req.Interests = []string{}
	}

	resp, err := c.doJSON(ctx, op, http.MethodPost, "/api/itinerary/generate", token, req)
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, resp.statusError(op, generateErrors, apperr.KindGenerationFailed)
	}

	var preview model.Preview
	if err := resp.decode(op, &preview); err != nil {
		return nil, &apperr.Error{Kind: apperr.KindGenerationFailed, Op: op, Status: resp.status, Err: err}
	}
	if preview.DaysCount < 1 || len(preview.Itinerary) != preview.DaysCount {
		return nil, &apperr.Error{Kind: apperr.KindGenerationFailed, Op: op, Status: resp.status,
			Detail: "preview day count does not match its days"}
	}
	return &preview, nil
}

// Create persists a new itinerary and returns the server's record.
func (c *Client) Create(ctx context.Context, in model.ItineraryInput, token string) (*model.Itinerary, error) {
	const op = "create"
	if err := check(op, in); err != nil {
		return nil, err
	}
	return c.writeRecord(ctx, op, http.MethodPost, "/api/itinerary", in, token)
}

// Update replaces the itinerary with the given id.
func (c *Client) Update(ctx context.Context, id model.ID, in model.ItineraryInput, token string) (*model.Itinerary, error) {
	const op = "update"
	if id.IsZero() {
		return nil, apperr.New(apperr.KindValidation, op, "id is required")
	}
	if err := check(op, in); err != nil {
		return nil, err
	}
	return c.writeRecord(ctx, op, http.MethodPatch, recordPath(id), in, token)
}

func (c *Client) writeRecord(ctx context.Context, op, method, path string, in model.ItineraryInput, token string) (*model.Itinerary, error) {
	if in.Interests == nil {
		in.Interests = []string{}
	}
	resp, err := c.doJSON(ctx, op, method, path, token, in)
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, resp.statusError(op, recordErrors, apperr.KindUnexpected)
	}

	var rec model.Itinerary
	if err := resp.decode(op, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns all of the user's itineraries.
func (c *Client) List(ctx context.Context, token string) ([]model.Itinerary, error) {
	const op = "list"
	resp, err := c.doJSON(ctx, op, http.MethodGet, "/api/itinerary", token, nil)
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, resp.statusError(op, recordErrors, apperr.KindUnexpected)
	}

	var records []model.Itinerary
	if err := resp.decode(op, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Delete removes the itinerary with the given id.
func (c *Client) Delete(ctx context.Context, id model.ID, token string) error {
	const op = "delete"
	if id.IsZero() {
		return apperr.New(apperr.KindValidation, op, "id is required")
	}
	resp, err := c.doJSON(ctx, op, http.MethodDelete, recordPath(id), token, nil)
	if err != nil {
		return err
	}
	if !resp.ok() {
		return resp.statusError(op, recordErrors, apperr.KindUnexpected)
	}
	return nil
}

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rcliao/tripplan/internal/model"
)

// Export writes all cached records as an indented JSON array.
func (c *Itineraries) Export(w io.Writer) error {
	records := c.All()
	b, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// ReadExport parses a JSON array produced by Export.
func ReadExport(r io.Reader) ([]model.Itinerary, error) {
	var records []model.Itinerary
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("parse export: %w", err)
	}
	return records, nil
}

// Import re-creates records through c. Server ids in the export are ignored;
// the remote store assigns new ones. The cache is reloaded once at the end
// if anything was imported, even when a later record fails.
func (c *Itineraries) Import(ctx context.Context, cr Creator, l Lister, token string, records []model.Itinerary) (int, error) {
	imported := 0
	var importErr error
	for _, r := range records {
		_, err := cr.Create(ctx, model.ItineraryInput{
			Destination:        r.Destination,
			StartDate:          r.StartDate,
			EndDate:            r.EndDate,
			Interests:          model.CleanInterests(r.Interests),
			DaysCount:          r.DaysCount,
			GeneratedItinerary: r.GeneratedItinerary,
		}, token)
		if err != nil {
			importErr = fmt.Errorf("import %s: %w", r.Destination, err)
			break
		}
		imported++
	}
	if imported > 0 {
		if err := c.Reload(ctx, l, token); err != nil && importErr == nil {
			importErr = err
		}
	}
	return imported, importErr
}

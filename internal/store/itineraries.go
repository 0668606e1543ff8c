package store

import (
	"context"
	"sync"

	"github.com/rcliao/tripplan/internal/model"
)

// Itineraries is the client-side cache of the signed-in user's records.
// It is refreshed by a full reload after every mutation.
type Itineraries struct {
	mu      sync.RWMutex
	records []model.Itinerary
	loaded  bool
}

// NewItineraries returns an empty, not yet loaded cache.
func NewItineraries() *Itineraries {
	return &Itineraries{}
}

// Replace swaps the cached records for records, in server order.
func (c *Itineraries) Replace(records []model.Itinerary) {
	cp := make([]model.Itinerary, len(records))
	copy(cp, records)

	c.mu.Lock()
	c.records = cp
	c.loaded = true
	c.mu.Unlock()
}

// Reset drops all records, e.g. on logout.
func (c *Itineraries) Reset() {
	c.mu.Lock()
	c.records = nil
	c.loaded = false
	c.mu.Unlock()
}

// Reload fetches the full list and replaces the cache. On failure the cache
// is left unchanged.
func (c *Itineraries) Reload(ctx context.Context, l Lister, token string) error {
	records, err := l.List(ctx, token)
	if err != nil {
		return err
	}
	c.Replace(records)
	return nil
}

// All returns a copy of the cached records.
func (c *Itineraries) All() []model.Itinerary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cp := make([]model.Itinerary, len(c.records))
	copy(cp, c.records)
	return cp
}

// Get returns the cached record with the given id.
func (c *Itineraries) Get(id model.ID) (model.Itinerary, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, r := range c.records {
		if r.ID == id {
			return r, true
		}
	}
	return model.Itinerary{}, false
}

func (c *Itineraries) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// Loaded reports whether at least one load has completed.
func (c *Itineraries) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

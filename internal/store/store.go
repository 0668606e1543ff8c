// Package store provides the credential store and the itinerary cache.
package store

import (
	"context"

	"github.com/rcliao/tripplan/internal/model"
)

// CredentialStore persists the bearer token across process restarts.
type CredentialStore interface {
	// Save stores token, replacing any previous one.
	Save(ctx context.Context, token string) error

	// Load returns the stored token. ok is false when none is stored.
	Load(ctx context.Context) (token string, ok bool, err error)

	// Clear removes the stored token. Clearing an empty store is not an error.
	Clear(ctx context.Context) error

	// Close closes the store.
	Close() error
}

// Lister fetches the signed-in user's itinerary records.
type Lister interface {
	List(ctx context.Context, token string) ([]model.Itinerary, error)
}

// Creator creates an itinerary record.
type Creator interface {
	Create(ctx context.Context, in model.ItineraryInput, token string) (*model.Itinerary, error)
}

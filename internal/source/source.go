// Package source supplies listings to the site. Every implementation is
// read-only: the site never creates, edits or deletes a listing.
package source

import (
	"context"
	"errors"

	"real-estate-site/internal/models"
)

var (
	// ErrNotFound is returned by Get for an unknown listing ID.
	ErrNotFound = errors.New("property not found")
	// ErrUnavailable is returned while the upstream circuit is open.
	ErrUnavailable = errors.New("property source unavailable")
)

// Source lists and fetches listings.
type Source interface {
	List(ctx context.Context) ([]models.Property, error)
	Get(ctx context.Context, id int) (*models.Property, error)
}

// find returns a copy of the listing with id.
func find(properties []models.Property, id int) (*models.Property, error) {
	for i := range properties {
		if properties[i].ID == id {
			p := properties[i]
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

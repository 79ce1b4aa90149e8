package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"real-estate-site/internal/models"
)

// Catalog holds the latest listing snapshot read from a Source.
// A failed refresh keeps serving the previous snapshot.
type Catalog struct {
	src    Source
	logger *slog.Logger

	mu          sync.RWMutex
	properties  []models.Property
	loaded      bool
	refreshedAt time.Time
	lastErr     error
	changes     []models.PropertyChange
}

// CatalogStatus describes the current snapshot.
type CatalogStatus struct {
	Count       int       `json:"count"`
	Loaded      bool      `json:"loaded"`
	RefreshedAt time.Time `json:"refreshed_at"`
	LastError   string    `json:"last_error,omitempty"`
}

func NewCatalog(src Source, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{src: src, logger: logger}
}

// Refresh replaces the snapshot with a fresh List from the source.
func (c *Catalog) Refresh(ctx context.Context) error {
	start := time.Now()
	properties, err := c.src.List(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.lastErr = err
		c.logger.Error("catalog refresh failed",
			"err", err,
			"kept", len(c.properties))
		return fmt.Errorf("refresh catalog: %w", err)
	}

	now := time.Now()
	detected := 0
	if c.loaded {
		changes := detectChanges(c.properties, properties, now)
		detected = len(changes)
		c.changes = append(c.changes, changes...)
		if over := len(c.changes) - maxRecentChanges; over > 0 {
			c.changes = append([]models.PropertyChange(nil), c.changes[over:]...)
		}
	}

	c.properties = properties
	c.loaded = true
	c.refreshedAt = now
	c.lastErr = nil
	c.logger.Info("catalog refreshed",
		"count", len(properties),
		"changes", detected,
		"duration", time.Since(start))
	return nil
}

// Properties returns a copy of the current snapshot.
func (c *Catalog) Properties() []models.Property {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Property, len(c.properties))
	copy(out, c.properties)
	return out
}

// Get returns a listing from the snapshot, asking the source when the
// snapshot does not have it.
func (c *Catalog) Get(ctx context.Context, id int) (*models.Property, error) {
	c.mu.RLock()
	p, err := find(c.properties, id)
	c.mu.RUnlock()
	if err == nil {
		return p, nil
	}

	p, err = c.src.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.logger.Warn("property lookup failed", "id", id, "err", err)
		}
		return nil, err
	}
	return p, nil
}

func (c *Catalog) Status() CatalogStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	status := CatalogStatus{
		Count:       len(c.properties),
		Loaded:      c.loaded,
		RefreshedAt: c.refreshedAt,
	}
	if c.lastErr != nil {
		status.LastError = c.lastErr.Error()
	}
	return status
}

// RecentChanges returns up to limit detected changes, newest first.
// The first successful refresh records no changes.
func (c *Catalog) RecentChanges(limit int) []models.PropertyChange {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if limit <= 0 || limit > len(c.changes) {
		limit = len(c.changes)
	}
	out := make([]models.PropertyChange, 0, limit)
	for i := len(c.changes) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, c.changes[i])
	}
	return out
}

package filter

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"real-estate-site/internal/models"
)

// DefaultApplyDelay is how long Apply keeps the loading flag raised.
const DefaultApplyDelay = 300 * time.Millisecond

// Controller owns the filter state of a single listing view.
// Only IsLoading and Apply are safe to call from several goroutines;
// everything else belongs to the goroutine that owns the view.
type Controller struct {
	properties []models.Property
	criteria   Criteria
	applyDelay time.Duration
	logger     *slog.Logger

	loading atomic.Bool

	// derived state, recomputed lazily after criteria or properties change
	dirty      bool
	filtered   []models.Property
	validation ValidationResult
}

// Option configures a Controller.
type Option func(*Controller)

// WithApplyDelay overrides DefaultApplyDelay.
func WithApplyDelay(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.applyDelay = d
		}
	}
}

// WithLogger sets the logger used to report invalid criteria.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewController starts with Default criteria over properties.
func NewController(properties []models.Property, opts ...Option) *Controller {
	c := &Controller{
		properties: properties,
		criteria:   Default(),
		applyDelay: DefaultApplyDelay,
		logger:     slog.Default(),
		dirty:      true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Criteria returns the current criteria.
func (c *Controller) Criteria() Criteria {
	return c.criteria
}

// Update applies each update in order through Reduce.
func (c *Controller) Update(updates ...Update) {
	for _, u := range updates {
		c.criteria = Reduce(c.criteria, u)
	}
	c.dirty = true
}

// Reset restores Default criteria.
func (c *Controller) Reset() {
	c.criteria = Default()
	c.dirty = true
}

// SetProperties replaces the source listings.
func (c *Controller) SetProperties(properties []models.Property) {
	c.properties = properties
	c.dirty = true
}

// Apply raises the loading flag for the configured delay and lowers it again.
// The filtered list does not depend on it.
func (c *Controller) Apply(ctx context.Context) error {
	c.loading.Store(true)
	defer c.loading.Store(false)

	timer := time.NewTimer(c.applyDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsLoading reports whether an Apply call is in progress.
func (c *Controller) IsLoading() bool {
	return c.loading.Load()
}

// Filtered returns the listings matching the current criteria.
// When the criteria are invalid it returns every listing instead.
func (c *Controller) Filtered() []models.Property {
	c.derive()
	return c.filtered
}

// Validation returns the result of Validate for the current criteria.
func (c *Controller) Validation() ValidationResult {
	c.derive()
	return c.validation
}

// HasActiveFilters reports whether any criteria field differs from Default.
func (c *Controller) HasActiveFilters() bool {
	return c.criteria.IsActive()
}

// Total is the number of source listings.
func (c *Controller) Total() int {
	return len(c.properties)
}

// FilteredCount is len(Filtered()).
func (c *Controller) FilteredCount() int {
	return len(c.Filtered())
}

func (c *Controller) derive() {
	if !c.dirty {
		return
	}
	c.dirty = false

	c.validation = Validate(c.criteria)
	if !c.validation.IsValid {
		c.logger.Warn("invalid filters, showing all properties", "errors", c.validation.Errors)
		c.filtered = append(make([]models.Property, 0, len(c.properties)), c.properties...)
		return
	}
	c.filtered = Properties(c.properties, c.criteria)
}

package models

import "time"

// PropertyChange is one difference detected between two catalog snapshots.
type PropertyChange struct {
	PropertyID      int       `json:"property_id"`
	ChangeType      string    `json:"change_type"`
	OldValue        string    `json:"old_value,omitempty"`
	NewValue        string    `json:"new_value,omitempty"`
	ChangeMagnitude *float64  `json:"change_magnitude,omitempty"` // For numerical changes
	DetectedAt      time.Time `json:"detected_at"`
}

// ChangeType constants
const (
	ChangeTypeNew       = "new_property"
	ChangeTypeRemoved   = "property_removed"
	ChangeTypePrice     = "price_changed"
	ChangeTypeArea      = "area_changed"
	ChangeTypeBedrooms  = "bedrooms_changed"
	ChangeTypeLocation  = "location_changed"
	ChangeTypeImage     = "image_changed"
	ChangeTypePublished = "published_changed"
)

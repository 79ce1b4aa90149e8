// Package filter holds the listing search logic: the criteria value,
// the predicate evaluator, the validator and the per-view state controller.
package filter

import (
	"math"
	"strings"
	"unicode"
)

const (
	// AllLocations and AllTypes disable the location and type predicates.
	AllLocations = "all"
	AllTypes     = "all"
	// AnyBedrooms disables the bedroom threshold.
	AnyBedrooms = "any"

	DefaultMinPrice float64 = 0
	DefaultMaxPrice float64 = 20_000_000
)

// Criteria is the user's current search intent for one listing view.
// The type allows an inverted or negative price range; Validate reports it.
type Criteria struct {
	Search     string     `json:"search"`
	Location   string     `json:"location"`
	Type       string     `json:"type"`
	PriceRange [2]float64 `json:"price_range"`
	Bedrooms   string     `json:"bedrooms"`
}

// Default returns the criteria that match every listing in the default price band.
func Default() Criteria {
	return Criteria{
		Search:     "",
		Location:   AllLocations,
		Type:       AllTypes,
		PriceRange: [2]float64{DefaultMinPrice, DefaultMaxPrice},
		Bedrooms:   AnyBedrooms,
	}
}

// MinPrice returns the lower bound of the price range.
func (c Criteria) MinPrice() float64 { return c.PriceRange[0] }

// MaxPrice returns the upper bound of the price range.
func (c Criteria) MaxPrice() float64 { return c.PriceRange[1] }

// IsActive reports whether any field differs from Default.
// A whitespace-only search does not count.
func (c Criteria) IsActive() bool {
	d := Default()
	return strings.TrimSpace(c.Search) != "" ||
		c.Location != d.Location ||
		c.Type != d.Type ||
		c.PriceRange[0] != d.PriceRange[0] ||
		c.PriceRange[1] != d.PriceRange[1] ||
		c.Bedrooms != d.Bedrooms
}

// parseLeadingInt reads an optional sign followed by decimal digits after
// leading whitespace and ignores whatever follows ("3+" is 3, "2.5" is 2).
// It fails when no digit is found. Values past math.MaxInt clamp to it.
func parseLeadingInt(s string) (int, bool) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}

	n, digits := 0, 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		if n > (math.MaxInt-9)/10 {
			n = math.MaxInt
		} else {
			n = n*10 + int(r-'0')
		}
		digits++
	}
	if digits == 0 {
		return 0, false
	}
	if neg {
		n = -n
	}
	return n, true
}

package filter

import (
	"strings"

	"real-estate-site/internal/models"
)

// Properties returns the listings that satisfy every predicate of c, in input order.
// The result is always a new slice; the input is never modified.
func Properties(properties []models.Property, c Criteria) []models.Property {
	m := newMatcher(c)

	result := make([]models.Property, 0, len(properties))
	for _, p := range properties {
		if m.match(&p) {
			result = append(result, p)
		}
	}
	return result
}

// matcher holds the per-call normalized criteria so each listing costs O(1) setup.
type matcher struct {
	search      string
	location    string
	propType    string
	minPrice    float64
	maxPrice    float64
	minBedrooms int
	useBedrooms bool
}

func newMatcher(c Criteria) matcher {
	m := matcher{
		search:   strings.ToLower(strings.TrimSpace(c.Search)),
		minPrice: c.PriceRange[0],
		maxPrice: c.PriceRange[1],
	}
	if c.Location != "" && c.Location != AllLocations {
		m.location = strings.ToLower(c.Location)
	}
	if c.Type != "" && c.Type != AllTypes {
		m.propType = strings.ToLower(c.Type)
	}
	// An unparseable bedroom selector does not exclude anything.
	if c.Bedrooms != "" && c.Bedrooms != AnyBedrooms {
		m.minBedrooms, m.useBedrooms = parseLeadingInt(c.Bedrooms)
	}
	return m
}

func (m *matcher) match(p *models.Property) bool {
	if m.search != "" {
		text := strings.ToLower(strings.Join([]string{p.Title, p.Description, p.Location}, " "))
		if !strings.Contains(text, m.search) {
			return false
		}
	}

	if m.location != "" && strings.ToLower(p.Location) != m.location {
		return false
	}

	if m.propType != "" && strings.ToLower(p.Type) != m.propType {
		return false
	}

	if p.Price < m.minPrice || p.Price > m.maxPrice {
		return false
	}

	if m.useBedrooms && p.Bedrooms < m.minBedrooms {
		return false
	}

	return true
}

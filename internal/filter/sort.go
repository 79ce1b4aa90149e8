package filter

import (
	"sort"

	"real-estate-site/internal/models"
)

// SortOrder names a listing order offered by the properties page.
type SortOrder string

const (
	SortNewest    SortOrder = "newest"
	SortPriceAsc  SortOrder = "priceAsc"
	SortPriceDesc SortOrder = "priceDesc"
)

// ParseSortOrder maps unknown values to SortNewest.
func ParseSortOrder(s string) SortOrder {
	switch SortOrder(s) {
	case SortPriceAsc, SortPriceDesc:
		return SortOrder(s)
	default:
		return SortNewest
	}
}

// Sort returns a sorted copy of properties. Newest means highest ID first.
func Sort(properties []models.Property, order SortOrder) []models.Property {
	sorted := append(make([]models.Property, 0, len(properties)), properties...)

	var less func(a, b *models.Property) bool
	switch order {
	case SortPriceAsc:
		less = func(a, b *models.Property) bool { return a.Price < b.Price }
	case SortPriceDesc:
		less = func(a, b *models.Property) bool { return a.Price > b.Price }
	default:
		less = func(a, b *models.Property) bool { return a.ID > b.ID }
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		return less(&sorted[i], &sorted[j])
	})
	return sorted
}

package source

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"real-estate-site/internal/models"
)

// maxRecentChanges bounds the change log kept by a Catalog.
const maxRecentChanges = 200

// detectChanges compares two snapshots listing by listing. Listings only
// in next are new, listings only in prev are removed.
func detectChanges(prev, next []models.Property, now time.Time) []models.PropertyChange {
	old := make(map[int]*models.Property, len(prev))
	for i := range prev {
		old[prev[i].ID] = &prev[i]
	}

	var changes []models.PropertyChange
	seen := make(map[int]bool, len(next))
	for i := range next {
		p := &next[i]
		seen[p.ID] = true
		last, ok := old[p.ID]
		if !ok {
			changes = append(changes, models.PropertyChange{
				PropertyID: p.ID,
				ChangeType: models.ChangeTypeNew,
				NewValue:   p.Title,
				DetectedAt: now,
			})
			continue
		}
		changes = append(changes, compareProperty(last, p, now)...)
	}

	var removed []int
	for id := range old {
		if !seen[id] {
			removed = append(removed, id)
		}
	}
	sort.Ints(removed)
	for _, id := range removed {
		changes = append(changes, models.PropertyChange{
			PropertyID: id,
			ChangeType: models.ChangeTypeRemoved,
			OldValue:   old[id].Title,
			DetectedAt: now,
		})
	}
	return changes
}

func compareProperty(last, p *models.Property, now time.Time) []models.PropertyChange {
	var changes []models.PropertyChange
	add := func(changeType, oldVal, newVal string, magnitude *float64) {
		changes = append(changes, models.PropertyChange{
			PropertyID:      p.ID,
			ChangeType:      changeType,
			OldValue:        oldVal,
			NewValue:        newVal,
			ChangeMagnitude: magnitude,
			DetectedAt:      now,
		})
	}

	if p.Price != last.Price {
		magnitude := p.Price - last.Price
		add(models.ChangeTypePrice, formatFloat(last.Price), formatFloat(p.Price), &magnitude)
	}
	if p.Area != last.Area {
		magnitude := p.Area - last.Area
		add(models.ChangeTypeArea, fmt.Sprintf("%.2f", last.Area), fmt.Sprintf("%.2f", p.Area), &magnitude)
	}
	if p.Bedrooms != last.Bedrooms {
		add(models.ChangeTypeBedrooms, strconv.Itoa(last.Bedrooms), strconv.Itoa(p.Bedrooms), nil)
	}
	if p.Location != last.Location {
		add(models.ChangeTypeLocation, last.Location, p.Location, nil)
	}
	if p.PrimaryImage() != last.PrimaryImage() {
		add(models.ChangeTypeImage, last.PrimaryImage(), p.PrimaryImage(), nil)
	}
	if p.IsPublished != last.IsPublished {
		add(models.ChangeTypePublished, strconv.FormatBool(last.IsPublished), strconv.FormatBool(p.IsPublished), nil)
	}
	return changes
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

package filter

import "real-estate-site/internal/models"

// DefaultPageSize is used when a caller passes a non-positive page size.
const DefaultPageSize = 12

// PageResult is one slice of an in-memory listing.
type PageResult struct {
	Items    []models.Property `json:"properties"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	Pages    int               `json:"pages"`
	PageSize int               `json:"page_size"`
}

// Page slices properties. Pages are 1-based; a page past the end is empty.
func Page(properties []models.Property, page, pageSize int) PageResult {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	total := len(properties)
	pages := (total + pageSize - 1) / pageSize

	result := PageResult{
		Items:    []models.Property{},
		Total:    total,
		Page:     page,
		Pages:    pages,
		PageSize: pageSize,
	}

	start := (page - 1) * pageSize
	if start >= total {
		return result
	}
	end := min(start+pageSize, total)
	result.Items = append(result.Items, properties[start:end]...)
	return result
}

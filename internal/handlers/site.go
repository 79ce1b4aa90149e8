package handlers

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"real-estate-site/internal/filter"
	"real-estate-site/internal/i18n"
	"real-estate-site/internal/logging"
	"real-estate-site/internal/models"
	"real-estate-site/internal/source"
)

// maxPageSize caps the page_size query parameter.
const maxPageSize = 100

// Catalog is the read side of the listing snapshot.
type Catalog interface {
	Properties() []models.Property
	Get(ctx context.Context, id int) (*models.Property, error)
}

// SiteHandler serves the localized page payloads.
type SiteHandler struct {
	catalog       Catalog
	dicts         *i18n.Dictionaries
	pageSize      int
	featuredCount int
	logger        *slog.Logger
}

func NewSiteHandler(catalog Catalog, dicts *i18n.Dictionaries, pageSize, featuredCount int, logger *slog.Logger) *SiteHandler {
	if pageSize <= 0 {
		pageSize = filter.DefaultPageSize
	}
	if featuredCount <= 0 {
		featuredCount = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SiteHandler{
		catalog:       catalog,
		dicts:         dicts,
		pageSize:      pageSize,
		featuredCount: featuredCount,
		logger:        logger,
	}
}

// PropertyView is a listing with the locale-dependent fields a page renders.
type PropertyView struct {
	models.Property
	LocationLabel  string `json:"location_label"`
	FormattedPrice string `json:"formatted_price"`
	PrimaryImage   string `json:"primary_image"`
}

// LocationView is one entry of the home page city grid.
type LocationView struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

func (h *SiteHandler) locale(c *gin.Context) string {
	return h.dicts.Resolve(c.Param("lang"))
}

func (h *SiteHandler) page(locale string, sections ...string) gin.H {
	dict := make(map[string]interface{}, len(sections))
	for _, s := range sections {
		dict[s] = h.dicts.Section(locale, s)
	}
	return gin.H{
		"locale":     locale,
		"dir":        i18n.Direction(locale),
		"dictionary": dict,
	}
}

func (h *SiteHandler) view(locale string, p models.Property, prices i18n.PriceFormatter) PropertyView {
	return PropertyView{
		Property:       p,
		LocationLabel:  h.locationLabel(locale, p.Location),
		FormattedPrice: prices.Format(p.Price),
		PrimaryImage:   p.PrimaryImage(),
	}
}

// locationLabel translates a listing location, keeping unknown cities as written.
func (h *SiteHandler) locationLabel(locale, location string) string {
	key := "home.locations." + strings.ToLower(strings.TrimSpace(location))
	if label := h.dicts.Lookup(locale, key); label != key {
		return label
	}
	return location
}

func (h *SiteHandler) views(locale string, properties []models.Property) []PropertyView {
	prices := i18n.NewPriceFormatter(locale)
	out := make([]PropertyView, 0, len(properties))
	for _, p := range properties {
		out = append(out, h.view(locale, p, prices))
	}
	return out
}

// featured returns the first featuredCount listings of the catalog.
func (h *SiteHandler) featured() []models.Property {
	properties := h.catalog.Properties()
	if len(properties) > h.featuredCount {
		properties = properties[:h.featuredCount]
	}
	return properties
}

// Home returns the hero, featured listings, city grid and services.
func (h *SiteHandler) Home(c *gin.Context) {
	locale := h.locale(c)

	locations := make([]LocationView, 0, len(i18n.Locations))
	for _, slug := range i18n.Locations {
		locations = append(locations, LocationView{
			Slug: slug,
			Name: h.dicts.Lookup(locale, "home.locations."+slug),
		})
	}

	resp := h.page(locale, "common", "home")
	resp["featured"] = h.views(locale, h.featured())
	resp["locations"] = locations
	c.JSON(http.StatusOK, resp)
}

func (h *SiteHandler) About(c *gin.Context) {
	c.JSON(http.StatusOK, h.page(h.locale(c), "common", "about"))
}

func (h *SiteHandler) Contact(c *gin.Context) {
	c.JSON(http.StatusOK, h.page(h.locale(c), "common", "contact"))
}

// Dictionary returns the whole bundle for a locale.
func (h *SiteHandler) Dictionary(c *gin.Context) {
	locale := h.locale(c)
	c.JSON(http.StatusOK, gin.H{
		"locale":     locale,
		"dir":        i18n.Direction(locale),
		"dictionary": h.dicts.Get(locale),
	})
}

// criteriaUpdates turns query parameters into controller updates.
// Parameters that are absent leave the default in place.
func criteriaUpdates(c *gin.Context) []filter.Update {
	var updates []filter.Update

	if v, ok := c.GetQuery("search"); ok {
		updates = append(updates, filter.SetSearch{Value: v})
	}
	if v, ok := c.GetQuery("location"); ok && v != "" {
		updates = append(updates, filter.SetLocation{Value: v})
	}
	if v, ok := c.GetQuery("type"); ok && v != "" {
		updates = append(updates, filter.SetType{Value: v})
	}

	minPrice, hasMin := queryFloat(c, "min_price")
	maxPrice, hasMax := queryFloat(c, "max_price")
	if hasMin || hasMax {
		if !hasMin {
			minPrice = filter.DefaultMinPrice
		}
		if !hasMax {
			maxPrice = filter.DefaultMaxPrice
		}
		updates = append(updates, filter.SetPriceRange{Min: minPrice, Max: maxPrice})
	}

	if v, ok := c.GetQuery("bedrooms"); ok && v != "" {
		updates = append(updates, filter.SetBedrooms{Value: v})
	}
	return updates
}

func queryFloat(c *gin.Context, key string) (float64, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func queryInt(c *gin.Context, key string, fallback int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return fallback
	}
	return v
}

// Properties filters, sorts and pages the catalog for one request.
func (h *SiteHandler) Properties(c *gin.Context) {
	locale := h.locale(c)
	logger := logging.FromContext(c.Request.Context(), h.logger)

	ctrl := filter.NewController(h.catalog.Properties(), filter.WithLogger(logger))
	ctrl.Update(criteriaUpdates(c)...)

	order := filter.ParseSortOrder(c.Query("sort"))
	pageSize := queryInt(c, "page_size", h.pageSize)
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := filter.Page(filter.Sort(ctrl.Filtered(), order), queryInt(c, "page", 1), pageSize)

	criteria := ctrl.Criteria()
	prices := i18n.NewPriceFormatter(locale)

	resp := h.page(locale, "common", "properties")
	resp["criteria"] = criteria
	resp["validation"] = ctrl.Validation()
	resp["has_active_filters"] = ctrl.HasActiveFilters()
	resp["total"] = ctrl.Total()
	resp["filtered_count"] = ctrl.FilteredCount()
	resp["price_range_label"] = prices.FormatRange(criteria.MinPrice(), criteria.MaxPrice())
	resp["sort"] = order
	resp["properties"] = h.views(locale, page.Items)
	resp["page"] = page.Page
	resp["pages"] = page.Pages
	resp["page_size"] = page.PageSize
	c.JSON(http.StatusOK, resp)
}

// Property returns one listing with its gallery.
func (h *SiteHandler) Property(c *gin.Context) {
	locale := h.locale(c)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid property id"})
		return
	}

	property, err := h.catalog.Get(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, source.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "property not found"})
		case errors.Is(err, source.ErrUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		default:
			logging.FromContext(c.Request.Context(), h.logger).Error("failed to load property", "id", id, "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load property"})
		}
		return
	}

	resp := h.page(locale, "common", "properties.details", "contact.form")
	resp["property"] = h.view(locale, *property, i18n.NewPriceFormatter(locale))
	c.JSON(http.StatusOK, resp)
}

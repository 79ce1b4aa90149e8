package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"real-estate-site/internal/models"
	"real-estate-site/internal/scheduler"
	"real-estate-site/internal/source"
)

// AdminCatalog is the catalog surface the admin endpoints read.
type AdminCatalog interface {
	Properties() []models.Property
	Status() source.CatalogStatus
	RecentChanges(limit int) []models.PropertyChange
}

// RefreshRunner triggers and reports catalog refreshes.
type RefreshRunner interface {
	RunNow(ctx context.Context) error
	Status() scheduler.Status
}

// BreakerReporter exposes the listings backend circuit breaker.
type BreakerReporter interface {
	Status() source.BreakerStatus
}

// Indexer rebuilds the search index.
type Indexer interface {
	IndexProperties(properties []models.Property) (int64, error)
}

// AdminHandler handles admin-related requests
type AdminHandler struct {
	catalog   AdminCatalog
	scheduler RefreshRunner
	indexer   Indexer
	breaker   BreakerReporter
	logger    *slog.Logger
}

// NewAdminHandler creates a new admin handler. indexer may be nil.
func NewAdminHandler(catalog AdminCatalog, sched RefreshRunner, indexer Indexer, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{
		catalog:   catalog,
		scheduler: sched,
		indexer:   indexer,
		logger:    logger,
	}
}

// WithBreaker adds the source circuit breaker to the stats output.
func (h *AdminHandler) WithBreaker(b BreakerReporter) *AdminHandler {
	h.breaker = b
	return h
}

// CountStat is one bucket of a group-by count.
type CountStat struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// PriceRange is one bucket of the price distribution, [Min, Max).
type PriceRange struct {
	RangeLabel string  `json:"range_label"`
	MinPrice   float64 `json:"min_price"`
	MaxPrice   float64 `json:"max_price"`
	Count      int     `json:"count"`
}

// countBy groups properties by key, largest group first.
func countBy(properties []models.Property, key func(models.Property) string) []CountStat {
	counts := make(map[string]int)
	for _, p := range properties {
		counts[key(p)]++
	}

	stats := make([]CountStat, 0, len(counts))
	for k, n := range counts {
		stats = append(stats, CountStat{Key: k, Count: n})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Key < stats[j].Key
	})
	return stats
}

func byLocation(p models.Property) string { return strings.ToLower(strings.TrimSpace(p.Location)) }
func byType(p models.Property) string     { return strings.ToLower(strings.TrimSpace(p.Type)) }

// priceDistribution buckets listing prices in MAD.
func priceDistribution(properties []models.Property) []PriceRange {
	ranges := []PriceRange{
		{RangeLabel: "< 500K", MinPrice: 0, MaxPrice: 500_000},
		{RangeLabel: "500K - 1M", MinPrice: 500_000, MaxPrice: 1_000_000},
		{RangeLabel: "1M - 2M", MinPrice: 1_000_000, MaxPrice: 2_000_000},
		{RangeLabel: "2M - 5M", MinPrice: 2_000_000, MaxPrice: 5_000_000},
		{RangeLabel: "5M - 10M", MinPrice: 5_000_000, MaxPrice: 10_000_000},
		{RangeLabel: "10M+", MinPrice: 10_000_000, MaxPrice: 0},
	}

	for _, p := range properties {
		for i := range ranges {
			if p.Price >= ranges[i].MinPrice && (ranges[i].MaxPrice == 0 || p.Price < ranges[i].MaxPrice) {
				ranges[i].Count++
				break
			}
		}
	}
	return ranges
}

// GetStats returns catalog statistics
func (h *AdminHandler) GetStats(c *gin.Context) {
	properties := h.catalog.Properties()

	var sum, minPrice, maxPrice float64
	for i, p := range properties {
		sum += p.Price
		if i == 0 || p.Price < minPrice {
			minPrice = p.Price
		}
		if p.Price > maxPrice {
			maxPrice = p.Price
		}
	}
	var avg float64
	if len(properties) > 0 {
		avg = sum / float64(len(properties))
	}

	stats := gin.H{
		"catalog": h.catalog.Status(),
		"properties": gin.H{
			"total":         len(properties),
			"average_price": avg,
			"min_price":     minPrice,
			"max_price":     maxPrice,
		},
		"locations": countBy(properties, byLocation),
		"types":     countBy(properties, byType),
	}
	if h.scheduler != nil {
		stats["refresh"] = h.scheduler.Status()
	}
	if h.breaker != nil {
		stats["breaker"] = h.breaker.Status()
	}

	c.JSON(http.StatusOK, stats)
}

// GetLocationStats returns listing counts by location
func (h *AdminHandler) GetLocationStats(c *gin.Context) {
	stats := countBy(h.catalog.Properties(), byLocation)
	c.JSON(http.StatusOK, gin.H{
		"location_stats": stats,
		"count":          len(stats),
	})
}

// GetTypeStats returns listing counts by property type
func (h *AdminHandler) GetTypeStats(c *gin.Context) {
	stats := countBy(h.catalog.Properties(), byType)
	c.JSON(http.StatusOK, gin.H{
		"type_stats": stats,
		"count":      len(stats),
	})
}

// GetPriceDistribution returns price distribution
func (h *AdminHandler) GetPriceDistribution(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"price_distribution": priceDistribution(h.catalog.Properties()),
	})
}

// GetRecentChanges returns listing changes detected across catalog refreshes
func (h *AdminHandler) GetRecentChanges(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 {
		limit = 50
	}

	changes := h.catalog.RecentChanges(limit)
	c.JSON(http.StatusOK, gin.H{
		"changes": changes,
		"count":   len(changes),
	})
}

// TriggerRefresh manually reloads the catalog
func (h *AdminHandler) TriggerRefresh(c *gin.Context) {
	if h.scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Scheduler not available"})
		return
	}

	if h.scheduler.Status().Refreshing {
		c.JSON(http.StatusConflict, gin.H{"error": "Catalog refresh already running"})
		return
	}

	h.logger.Info("manual catalog refresh requested")

	// Run in goroutine to avoid blocking
	go func() {
		err := h.scheduler.RunNow(context.Background())
		switch {
		case errors.Is(err, scheduler.ErrRefreshInProgress):
			h.logger.Info("manual catalog refresh skipped, another run is active")
		case err != nil:
			h.logger.Error("manual catalog refresh failed", "err", err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Catalog refresh started",
		"status":  "running",
	})
}

// GetRefreshStatus returns the last scheduled or manual refresh
func (h *AdminHandler) GetRefreshStatus(c *gin.Context) {
	if h.scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Scheduler not available"})
		return
	}
	c.JSON(http.StatusOK, h.scheduler.Status())
}

// Reindex pushes the current catalog into the search index
func (h *AdminHandler) Reindex(c *gin.Context) {
	if h.indexer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Search index not configured"})
		return
	}

	properties := h.catalog.Properties()
	task, err := h.indexer.IndexProperties(properties)
	if err != nil {
		h.logger.Error("reindex failed", "err", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	h.logger.Info("reindex enqueued", "count", len(properties), "task_uid", task)
	c.JSON(http.StatusAccepted, gin.H{
		"message":  "Reindex started",
		"count":    len(properties),
		"task_uid": task,
	})
}

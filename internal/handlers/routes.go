package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the site, contact and (when admin is non-nil) admin endpoints.
func RegisterRoutes(r *gin.Engine, site *SiteHandler, contact *ContactHandler, admin *AdminHandler) {
	r.GET("/health", healthCheck)

	localized := r.Group("/api/:lang")
	{
		localized.GET("/home", site.Home)
		localized.GET("/about", site.About)
		localized.GET("/contact", site.Contact)
		localized.GET("/dictionary", site.Dictionary)
		localized.GET("/properties", site.Properties)
		localized.GET("/properties/:id", site.Property)
	}

	r.POST("/api/contact", contact.Submit)

	// Admin API routes (requires authentication in production)
	if admin != nil {
		group := r.Group("/admin")
		{
			group.GET("/stats", admin.GetStats)
			group.GET("/location-stats", admin.GetLocationStats)
			group.GET("/type-stats", admin.GetTypeStats)
			group.GET("/price-distribution", admin.GetPriceDistribution)
			group.GET("/changes", admin.GetRecentChanges)

			group.POST("/refresh", admin.TriggerRefresh)
			group.GET("/refresh/status", admin.GetRefreshStatus)
			group.POST("/reindex", admin.Reindex)
		}
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now(),
	})
}

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"real-estate-site/internal/contact"
	"real-estate-site/internal/logging"
	"real-estate-site/internal/ratelimit"
)

// Submitter delivers contact form messages.
type Submitter interface {
	Submit(ctx context.Context, msg contact.Message) error
}

// ContactHandler accepts contact form posts.
type ContactHandler struct {
	service Submitter
	limiter *ratelimit.Limiter
	logger  *slog.Logger
}

func NewContactHandler(service Submitter, limiter *ratelimit.Limiter, logger *slog.Logger) *ContactHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContactHandler{service: service, limiter: limiter, logger: logger}
}

// Submit handles POST /api/contact
func (h *ContactHandler) Submit(c *gin.Context) {
	logger := logging.FromContext(c.Request.Context(), h.logger)

	if h.limiter != nil && !h.limiter.Allow(c.ClientIP()) {
		stats := h.limiter.Stats(c.ClientIP())
		logger.Warn("contact rate limit exceeded", "client_ip", c.ClientIP())
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error": "Rate limit exceeded. Please try again later.",
			"stats": stats,
		})
		return
	}

	var msg contact.Message
	if err := c.ShouldBindJSON(&msg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if locale := c.Query("lang"); locale != "" && msg.Locale == "" {
		msg.Locale = locale
	}

	err := h.service.Submit(c.Request.Context(), msg)
	if err == nil {
		c.JSON(http.StatusAccepted, gin.H{"status": "sent"})
		return
	}

	var verr *contact.ValidationError
	var upstream *contact.UpstreamError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": contact.ErrInvalidMessage.Error(), "fields": verr.Fields})
	case errors.Is(err, contact.ErrInvalidMessage):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &upstream) && upstream.StatusCode == http.StatusBadRequest:
		c.JSON(http.StatusBadRequest, gin.H{"error": "message rejected", "detail": upstream.Body})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to deliver message"})
	}
}

package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// CustomerCounter reports the size of the customer directory
type CustomerCounter interface {
	Count(ctx context.Context) (int64, error)
}

// HealthHandler reports database and email configuration status
type HealthHandler struct {
	ping        func() error
	customers   CustomerCounter
	notifierErr error
}

// NewHealthHandler creates a new health handler. notifierErr is the error the
// notifier failed to build with, nil when email is configured.
func NewHealthHandler(ping func() error, customers CustomerCounter, notifierErr error) *HealthHandler {
	return &HealthHandler{
		ping:        ping,
		customers:   customers,
		notifierErr: notifierErr,
	}
}

// HandleHealth returns 200 when the database answers, 503 otherwise
func (h *HealthHandler) HandleHealth(c *gin.Context) {
	email := gin.H{"configured": h.notifierErr == nil}
	if h.notifierErr != nil {
		email["error"] = h.notifierErr.Error()
	}

	if err := h.ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "error",
			"database": gin.H{"status": "error", "error": err.Error()},
			"email":    email,
		})
		return
	}

	count, err := h.customers.Count(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "error",
			"database": gin.H{"status": "error", "error": err.Error()},
			"email":    email,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"database": gin.H{"status": "ok", "customers": count},
		"email":    email,
	})
}

// RegisterRoutes registers the handler's routes
func (h *HealthHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.HandleHealth)
}

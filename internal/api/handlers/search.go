package handlers

import (
	"context"
	"net/http"
	"strconv"

	"example.com/backstage/services/dairy/internal/search"

	"github.com/gin-gonic/gin"
)

// NotificationSearcher queries the notification index
type NotificationSearcher interface {
	SearchNotifications(ctx context.Context, query map[string]interface{}) ([]map[string]interface{}, error)
}

// SearchHandler serves notification history from the search index
type SearchHandler struct {
	searcher NotificationSearcher
}

// NewSearchHandler creates a new search handler. A nil searcher answers 503.
func NewSearchHandler(searcher NotificationSearcher) *SearchHandler {
	return &SearchHandler{searcher: searcher}
}

// HandleSearchNotifications returns indexed dispatch attempts newest first
func (h *SearchHandler) HandleSearchNotifications(c *gin.Context) {
	if h.searcher == nil {
		writeError(c, NewError("Search is disabled", http.StatusServiceUnavailable, ErrServiceUnavailable.Code))
		return
	}
	owner, err := ownerID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	size := 50
	if raw := c.Query("size"); raw != "" {
		size, err = strconv.Atoi(raw)
		if err != nil || size < 1 || size > 500 {
			writeError(c, NewValidationError("size must be between 1 and 500"))
			return
		}
	}

	hits, err := h.searcher.SearchNotifications(c.Request.Context(), search.OwnerQuery(owner, c.Query("shift"), size))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, hits)
}

// RegisterRoutes registers the handler's routes
func (h *SearchHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/notifications/search", h.HandleSearchNotifications)
}

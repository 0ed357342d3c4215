package handlers

import (
	"net/http"
	"strconv"

	"example.com/backstage/services/dairy/internal/services"
	"example.com/backstage/services/dairy/internal/tracing"

	"github.com/gin-gonic/gin"
)

// OverviewHandler serves the monthly overview
type OverviewHandler struct {
	overview *services.OverviewService
	tracer   tracing.Tracer
}

// NewOverviewHandler creates a new overview handler
func NewOverviewHandler(overview *services.OverviewService, tracer tracing.Tracer) *OverviewHandler {
	return &OverviewHandler{
		overview: overview,
		tracer:   tracer,
	}
}

// HandleGetOverview returns the day-by-customer matrix of a month
func (h *OverviewHandler) HandleGetOverview(c *gin.Context) {
	owner, err := ownerID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		writeError(c, NewValidationError("year must be a number"))
		return
	}
	month, err := strconv.Atoi(c.Query("month"))
	if err != nil {
		writeError(c, NewValidationError("month must be a number"))
		return
	}

	ov, err := h.overview.Overview(c.Request.Context(), owner, c.Query("shift"), year, month)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, ov)
}

// RegisterRoutes registers the handler's routes
func (h *OverviewHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/overview", h.HandleGetOverview)
}

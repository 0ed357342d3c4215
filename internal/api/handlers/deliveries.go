package handlers

import (
	"net/http"

	"example.com/backstage/services/dairy/internal/services"
	"example.com/backstage/services/dairy/internal/tracing"

	"github.com/gin-gonic/gin"
)

// DeliveryHandler handles delivery entry requests
type DeliveryHandler struct {
	deliveries *services.DeliveryService
	tracer     tracing.Tracer
}

// NewDeliveryHandler creates a new delivery handler
func NewDeliveryHandler(deliveries *services.DeliveryService, tracer tracing.Tracer) *DeliveryHandler {
	return &DeliveryHandler{
		deliveries: deliveries,
		tracer:     tracer,
	}
}

// DeliveryResponse is the result of a delivery write
type DeliveryResponse struct {
	Deleted bool        `json:"deleted"`
	Entry   interface{} `json:"entry"`
}

// HandleSaveDelivery upserts one delivery; a zero quantity deletes it
func (h *DeliveryHandler) HandleSaveDelivery(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-save-delivery")
	defer h.tracer.EndTransaction(txn)

	var req services.SaveDeliveryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.tracer.RecordError(txn, err)
		writeError(c, NewValidationError(err.Error()))
		return
	}
	h.tracer.AddAttribute(txn, "owner_id", req.OwnerID)
	h.tracer.AddAttribute(txn, "shift", req.Shift)

	record, deleted, err := h.deliveries.Save(c.Request.Context(), req)
	if err != nil {
		h.tracer.RecordError(txn, err)
		writeError(c, err)
		return
	}

	if deleted {
		c.JSON(http.StatusOK, DeliveryResponse{Deleted: true, Entry: req})
		return
	}
	c.JSON(http.StatusOK, DeliveryResponse{Entry: record})
}

// HandleListDeliveries lists deliveries, optionally bounded by start and end
func (h *DeliveryHandler) HandleListDeliveries(c *gin.Context) {
	owner, err := ownerID(c)
	if err != nil {
		writeError(c, err)
		return
	}

	records, err := h.deliveries.List(c.Request.Context(), owner, c.Query("shift"), c.Query("start"), c.Query("end"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// HandleCountDeliveries returns the number of deliveries of a shift
func (h *DeliveryHandler) HandleCountDeliveries(c *gin.Context) {
	owner, err := ownerID(c)
	if err != nil {
		writeError(c, err)
		return
	}

	count, err := h.deliveries.Count(c.Request.Context(), owner, c.Query("shift"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

// HandleDeleteDelivery removes a delivery by id
func (h *DeliveryHandler) HandleDeleteDelivery(c *gin.Context) {
	owner, err := ownerID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}

	if err := h.deliveries.Delete(c.Request.Context(), owner, id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Entry deleted successfully"})
}

// RegisterRoutes registers the handler's routes
func (h *DeliveryHandler) RegisterRoutes(router *gin.RouterGroup) {
	deliveries := router.Group("/deliveries")
	deliveries.GET("", h.HandleListDeliveries)
	deliveries.POST("", h.HandleSaveDelivery)
	deliveries.GET("/count", h.HandleCountDeliveries)
	deliveries.DELETE("/:id", h.HandleDeleteDelivery)
}

package handlers

import (
	"net/http"

	"example.com/backstage/services/dairy/internal/services"

	"github.com/gin-gonic/gin"
)

// PaymentHandler manages the daily payment ledger
type PaymentHandler struct {
	payments *services.PaymentService
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(payments *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// SetPaidRequest marks a customer paid or unpaid for today
type SetPaidRequest struct {
	OwnerID      uint   `json:"ownerId" binding:"required"`
	Shift        string `json:"shift" binding:"required"`
	CustomerName string `json:"customerName" binding:"required"`
	Paid         bool   `json:"paid"`
}

// HandleTodayPayments returns today's ledger of a shift
func (h *PaymentHandler) HandleTodayPayments(c *gin.Context) {
	owner, err := ownerID(c)
	if err != nil {
		writeError(c, err)
		return
	}

	payments, err := h.payments.TodayPayments(c.Request.Context(), owner, c.Param("shift"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}

// HandleSetPaid records today's paid flag
func (h *PaymentHandler) HandleSetPaid(c *gin.Context) {
	var req SetPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, NewValidationError(err.Error()))
		return
	}

	if err := h.payments.SetPaid(c.Request.Context(), req.OwnerID, req.Shift, req.CustomerName, req.Paid); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Payment saved"})
}

// RegisterRoutes registers the handler's routes
func (h *PaymentHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/payments/:shift", h.HandleTodayPayments)
	router.POST("/payments", h.HandleSetPaid)
}

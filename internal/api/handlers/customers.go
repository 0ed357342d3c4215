package handlers

import (
	"net/http"

	"example.com/backstage/services/dairy/internal/services"

	"github.com/gin-gonic/gin"
)

// CustomerHandler manages the customer directory
type CustomerHandler struct {
	customers *services.CustomerService
}

// NewCustomerHandler creates a new customer handler
func NewCustomerHandler(customers *services.CustomerService) *CustomerHandler {
	return &CustomerHandler{customers: customers}
}

// HandleListCustomers lists active customers, optionally for one shift
func (h *CustomerHandler) HandleListCustomers(c *gin.Context) {
	owner, err := ownerID(c)
	if err != nil {
		writeError(c, err)
		return
	}

	customers, err := h.customers.List(c.Request.Context(), owner, c.Query("shift"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, customers)
}

// HandleCreateCustomer adds a customer
func (h *CustomerHandler) HandleCreateCustomer(c *gin.Context) {
	var req services.CreateCustomerInput
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, NewValidationError(err.Error()))
		return
	}

	customer, err := h.customers.Create(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, customer)
}

// HandleUpdateCustomer edits a customer profile
func (h *CustomerHandler) HandleUpdateCustomer(c *gin.Context) {
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

	var req services.UpdateCustomerInput
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, NewValidationError(err.Error()))
		return
	}

	customer, err := h.customers.Update(c.Request.Context(), owner, id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

// HandleDeactivateCustomer soft-deletes a customer
func (h *CustomerHandler) HandleDeactivateCustomer(c *gin.Context) {
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

	if err := h.customers.Deactivate(c.Request.Context(), owner, id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Customer deactivated"})
}

// RegisterRoutes registers the handler's routes
func (h *CustomerHandler) RegisterRoutes(router *gin.RouterGroup) {
	customers := router.Group("/customers")
	customers.GET("", h.HandleListCustomers)
	customers.POST("", h.HandleCreateCustomer)
	customers.PUT("/:id", h.HandleUpdateCustomer)
	customers.DELETE("/:id", h.HandleDeactivateCustomer)
}

package handlers

import (
	"net/http"

	"example.com/backstage/services/dairy/internal/services"
	"example.com/backstage/services/dairy/internal/tracing"

	"github.com/gin-gonic/gin"
)

// ReminderHandler configures and triggers unpaid reminders
type ReminderHandler struct {
	scheduler     *services.ReminderScheduler
	notifications *services.NotificationService
	tracer        tracing.Tracer
}

// NewReminderHandler creates a new reminder handler
func NewReminderHandler(scheduler *services.ReminderScheduler, notifications *services.NotificationService, tracer tracing.Tracer) *ReminderHandler {
	return &ReminderHandler{
		scheduler:     scheduler,
		notifications: notifications,
		tracer:        tracer,
	}
}

// SendNowRequest triggers a reminder outside the schedule
type SendNowRequest struct {
	OwnerID uint   `json:"ownerId" binding:"required"`
	Shift   string `json:"shift" binding:"required"`
}

// HandleConfigure saves the reminder settings of a shift
func (h *ReminderHandler) HandleConfigure(c *gin.Context) {
	var req services.ReminderSettingsInput
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, NewValidationError(err.Error()))
		return
	}

	if err := h.scheduler.Configure(c.Request.Context(), req); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Reminder settings saved"})
}

// HandleSendNow dispatches the unpaid report immediately
func (h *ReminderHandler) HandleSendNow(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-reminder-send-now")
	defer h.tracer.EndTransaction(txn)

	var req SendNowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.tracer.RecordError(txn, err)
		writeError(c, NewValidationError(err.Error()))
		return
	}
	h.tracer.AddAttribute(txn, "owner_id", req.OwnerID)
	h.tracer.AddAttribute(txn, "shift", req.Shift)

	result, err := h.scheduler.SendNow(c.Request.Context(), req.OwnerID, req.Shift)
	if err != nil {
		h.tracer.RecordError(txn, err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleListNotifications returns the dispatch log newest first
func (h *ReminderHandler) HandleListNotifications(c *gin.Context) {
	owner, err := ownerID(c)
	if err != nil {
		writeError(c, err)
		return
	}

	notifications, err := h.notifications.List(c.Request.Context(), owner, c.Query("shift"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, notifications)
}

// RegisterRoutes registers the handler's routes
func (h *ReminderHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/reminders/settings", h.HandleConfigure)
	router.POST("/reminders/send", h.HandleSendNow)
	router.GET("/notifications", h.HandleListNotifications)
}

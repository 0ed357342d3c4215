package handlers

import (
	"net/http"

	"example.com/backstage/services/dairy/internal/services"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles owner accounts
type AuthHandler struct {
	auth *services.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth *services.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// ForgotPasswordRequest asks for a reset code
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required"`
}

// HandleRegister creates an account
func (h *AuthHandler) HandleRegister(c *gin.Context) {
	var req services.CredentialsInput
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, NewValidationError(err.Error()))
		return
	}

	user, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "User registered", "ownerId": user.ID})
}

// HandleLogin checks credentials and returns the owner id
func (h *AuthHandler) HandleLogin(c *gin.Context) {
	var req services.CredentialsInput
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, NewValidationError(err.Error()))
		return
	}

	user, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Login successful", "ownerId": user.ID, "email": user.Email})
}

// HandleForgotPassword emails a one-time reset code
func (h *AuthHandler) HandleForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, NewValidationError(err.Error()))
		return
	}

	if err := h.auth.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "OTP sent to email"})
}

// HandleResetPassword replaces the password with a valid code
func (h *AuthHandler) HandleResetPassword(c *gin.Context) {
	var req services.ResetPasswordInput
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, NewValidationError(err.Error()))
		return
	}

	if err := h.auth.ResetPassword(c.Request.Context(), req); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password reset successful"})
}

// RegisterRoutes registers the handler's routes
func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	auth := router.Group("/auth")
	auth.POST("/register", h.HandleRegister)
	auth.POST("/login", h.HandleLogin)
	auth.POST("/forgot", h.HandleForgotPassword)
	auth.POST("/reset", h.HandleResetPassword)
}

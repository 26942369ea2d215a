package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	identityapp "github.com/wms/backend/internal/application/identity"
	"github.com/wms/backend/internal/interfaces/http/middleware"
)

// AuthService is the part of the identity service used by AuthHandler
type AuthService interface {
	Register(ctx context.Context, req identityapp.RegisterRequest) (*identityapp.UserResponse, error)
	Login(ctx context.Context, req identityapp.LoginRequest) (*identityapp.LoginResponse, error)
	RefreshToken(ctx context.Context, req identityapp.RefreshTokenRequest) (*identityapp.TokenResponse, error)
	Logout(ctx context.Context, input identityapp.LogoutInput) error
	GetCurrentUser(ctx context.Context, userID uuid.UUID) (*identityapp.UserResponse, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, req identityapp.ChangePasswordRequest) error
	RequestPasswordReset(ctx context.Context, req identityapp.PasswordResetRequest) error
	ResetPassword(ctx context.Context, req identityapp.ConfirmPasswordResetRequest) error
}

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	BaseHandler
	authService AuthService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req identityapp.LoginRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req identityapp.RegisterRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, user)
}

// RefreshToken handles POST /auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req identityapp.RefreshTokenRequest
	if !h.bindJSON(c, &req) {
		return
	}
	tokens, err := h.authService.RefreshToken(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tokens)
}

// Logout handles POST /auth/logout; the presented access token is revoked
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	claims := middleware.GetJWTClaims(c)
	err := h.authService.Logout(c.Request.Context(), identityapp.LogoutInput{
		UserID:   userID,
		TokenJTI: claims.ID,
		TokenTTL: claims.GetRemainingTTL(),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Message(c, "Logged out")
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	user, err := h.authService.GetCurrentUser(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// ChangePassword handles POST /auth/change-password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	var req identityapp.ChangePasswordRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if err := h.authService.ChangePassword(c.Request.Context(), userID, req); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Message(c, "Password changed")
}

// RequestPasswordReset handles POST /auth/reset-password. The answer is the
// same whether or not the e-mail belongs to an account.
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req identityapp.PasswordResetRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if err := h.authService.RequestPasswordReset(c.Request.Context(), req); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Message(c, "If the address belongs to an account, a reset link has been sent")
}

// ConfirmPasswordReset handles POST /auth/reset-password/confirm
func (h *AuthHandler) ConfirmPasswordReset(c *gin.Context) {
	var req identityapp.ConfirmPasswordResetRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if err := h.authService.ResetPassword(c.Request.Context(), req); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Message(c, "Password has been reset")
}

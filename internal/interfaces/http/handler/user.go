package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	identityapp "github.com/wms/backend/internal/application/identity"
	"github.com/wms/backend/internal/domain/shared"
)

// UserService is the user administration service used by UserHandler
type UserService interface {
	ListUsers(ctx context.Context, filter identityapp.UserListFilter) (shared.Paginated[identityapp.UserResponse], error)
	UpdateRole(ctx context.Context, id uuid.UUID, req identityapp.UpdateRoleRequest, actorID uuid.UUID) (*identityapp.UserResponse, error)
}

// UserHandler handles user administration endpoints
type UserHandler struct {
	BaseHandler
	userService UserService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// List handles GET /users
func (h *UserHandler) List(c *gin.Context) {
	var filter identityapp.UserListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	page, err := h.userService.ListUsers(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	List(c, &page)
}

// UpdateRole handles PUT /users/:id/role
func (h *UserHandler) UpdateRole(c *gin.Context) {
	actorID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req identityapp.UpdateRoleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, err := h.userService.UpdateRole(c.Request.Context(), id, req, actorID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

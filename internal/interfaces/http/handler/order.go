package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	tradeapp "github.com/wms/backend/internal/application/trade"
	"github.com/wms/backend/internal/domain/integration"
	"github.com/wms/backend/internal/domain/shared"
)

// OrderService is the order service used by OrderHandler
type OrderService interface {
	Create(ctx context.Context, req tradeapp.CreateOrderRequest, userID uuid.UUID) (*tradeapp.OrderResponse, error)
	Update(ctx context.Context, id uuid.UUID, req tradeapp.UpdateOrderRequest, userID uuid.UUID) (*tradeapp.OrderResponse, error)
	Delete(ctx context.Context, id uuid.UUID, userID uuid.UUID) error
	Fulfill(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*tradeapp.FulfillResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*tradeapp.OrderResponse, error)
	List(ctx context.Context, filter tradeapp.OrderListFilter) (*shared.Paginated[tradeapp.OrderResponse], error)
	SyncWithExternal(ctx context.Context, userID uuid.UUID) (*integration.SyncResult, error)
}

// OrderHandler handles order endpoints
type OrderHandler struct {
	BaseHandler
	orderService OrderService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// List handles GET /orders
func (h *OrderHandler) List(c *gin.Context) {
	var filter tradeapp.OrderListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	page, err := h.orderService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	List(c, page)
}

// GetByID handles GET /orders/:id
func (h *OrderHandler) GetByID(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	order, err := h.orderService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// Create handles POST /orders
func (h *OrderHandler) Create(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	var req tradeapp.CreateOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}
	order, err := h.orderService.Create(c.Request.Context(), req, userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, order)
}

// Update handles PUT /orders/:id
func (h *OrderHandler) Update(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req tradeapp.UpdateOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}
	order, err := h.orderService.Update(c.Request.Context(), id, req, userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// Delete handles DELETE /orders/:id
func (h *OrderHandler) Delete(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.orderService.Delete(c.Request.Context(), id, userID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Message(c, "Order deleted")
}

// Fulfill handles POST /orders/:id/fulfill
func (h *OrderHandler) Fulfill(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	result, err := h.orderService.Fulfill(c.Request.Context(), id, userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Sync handles POST /orders/sync
func (h *OrderHandler) Sync(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	result, err := h.orderService.SyncWithExternal(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	inventoryapp "github.com/wms/backend/internal/application/inventory"
	"github.com/wms/backend/internal/domain/integration"
	"github.com/wms/backend/internal/domain/shared"
)

// InventoryService is the stock service used by InventoryHandler
type InventoryService interface {
	List(ctx context.Context, filter inventoryapp.ListFilter) (*shared.Paginated[inventoryapp.StockResponse], error)
	GetByID(ctx context.Context, id uuid.UUID) (*inventoryapp.StockResponse, error)
	GetLowStock(ctx context.Context, threshold int) ([]inventoryapp.StockResponse, error)
	ListAdjustments(ctx context.Context, itemID uuid.UUID, page, pageSize int) (*shared.Paginated[inventoryapp.AdjustmentResponse], error)
	Create(ctx context.Context, req inventoryapp.CreateRequest, userID uuid.UUID) (*inventoryapp.StockResponse, error)
	Adjust(ctx context.Context, req inventoryapp.AdjustRequest, userID uuid.UUID) (*inventoryapp.AdjustResult, error)
	Transfer(ctx context.Context, req inventoryapp.TransferRequest, userID uuid.UUID) (*inventoryapp.TransferResult, error)
	Count(ctx context.Context, itemID uuid.UUID, req inventoryapp.CountRequest, userID uuid.UUID) (*inventoryapp.CountResult, error)
	SyncWithExternal(ctx context.Context) (*integration.SyncResult, error)
	Export(ctx context.Context) (*inventoryapp.ExportFile, error)
}

// InventoryHandler handles stock endpoints
type InventoryHandler struct {
	BaseHandler
	inventoryService InventoryService
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(inventoryService InventoryService) *InventoryHandler {
	return &InventoryHandler{inventoryService: inventoryService}
}

type pageQuery struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"pageSize" binding:"omitempty,min=1,max=100"`
}

type lowStockQuery struct {
	Threshold *int `form:"threshold" binding:"omitempty,min=0,max=1000000000"`
}

// List handles GET /inventory
func (h *InventoryHandler) List(c *gin.Context) {
	var filter inventoryapp.ListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	if raw := c.Query("productId"); raw != "" {
		productID, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid productId format")
			return
		}
		filter.ProductID = &productID
	}

	page, err := h.inventoryService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	List(c, page)
}

// GetByID handles GET /inventory/:id
func (h *InventoryHandler) GetByID(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	item, err := h.inventoryService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

// ListAdjustments handles GET /inventory/:id/adjustments
func (h *InventoryHandler) ListAdjustments(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var q pageQuery
	if !h.bindQuery(c, &q) {
		return
	}
	page, err := h.inventoryService.ListAdjustments(c.Request.Context(), id, q.Page, q.PageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	List(c, page)
}

// LowStock handles GET /inventory/low-stock
func (h *InventoryHandler) LowStock(c *gin.Context) {
	var q lowStockQuery
	if !h.bindQuery(c, &q) {
		return
	}
	threshold := inventoryapp.DefaultLowStockThreshold
	if q.Threshold != nil {
		threshold = *q.Threshold
	}
	items, err := h.inventoryService.GetLowStock(c.Request.Context(), threshold)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, items)
}

// Export handles GET /inventory/export and streams the workbook
func (h *InventoryHandler) Export(c *gin.Context) {
	file, err := h.inventoryService.Export(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+strconv.Quote(file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// Create handles POST /inventory
func (h *InventoryHandler) Create(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	var req inventoryapp.CreateRequest
	if !h.bindJSON(c, &req) {
		return
	}
	item, err := h.inventoryService.Create(c.Request.Context(), req, userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, item)
}

// Adjust handles POST /inventory/adjust
func (h *InventoryHandler) Adjust(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	var req inventoryapp.AdjustRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.inventoryService.Adjust(c.Request.Context(), req, userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Transfer handles POST /inventory/transfer
func (h *InventoryHandler) Transfer(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	var req inventoryapp.TransferRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.inventoryService.Transfer(c.Request.Context(), req, userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Count handles POST /inventory/:id/count
func (h *InventoryHandler) Count(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req inventoryapp.CountRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.inventoryService.Count(c.Request.Context(), id, req, userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Sync handles POST /inventory/sync
func (h *InventoryHandler) Sync(c *gin.Context) {
	result, err := h.inventoryService.SyncWithExternal(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

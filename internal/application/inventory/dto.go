package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/wms/backend/internal/domain/inventory"
)

// DefaultLowStockThreshold is used when no threshold is given
const DefaultLowStockThreshold = 10

// StockResponse represents an inventory row in API responses
type StockResponse struct {
	ID          uuid.UUID  `json:"id"`
	ProductID   uuid.UUID  `json:"productId"`
	ProductName string     `json:"productName,omitempty"`
	ProductSKU  string     `json:"productSku,omitempty"`
	Location    string     `json:"location"`
	Quantity    int        `json:"quantity"`
	LastCounted *time.Time `json:"lastCounted"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// AdjustmentResponse represents one ledger entry in API responses
type AdjustmentResponse struct {
	ID              uuid.UUID `json:"id"`
	InventoryItemID uuid.UUID `json:"inventoryItemId"`
	UserID          uuid.UUID `json:"userId"`
	QuantityChange  int       `json:"quantityChange"`
	Reason          string    `json:"reason"`
	CreatedAt       time.Time `json:"createdAt"`
}

// AdjustResult is returned after a manual adjustment
type AdjustResult struct {
	Item       StockResponse      `json:"item"`
	Adjustment AdjustmentResponse `json:"adjustment"`
}

// TransferResult is returned after a transfer between locations
type TransferResult struct {
	From StockResponse `json:"from"`
	To   StockResponse `json:"to"`
}

// CountResult is returned after a physical count.
// Adjustment is nil when the count matched the recorded quantity.
type CountResult struct {
	Item       StockResponse       `json:"item"`
	Adjustment *AdjustmentResponse `json:"adjustment"`
}

// ListFilter represents filter options for the stock list
type ListFilter struct {
	ProductID   *uuid.UUID `form:"-"` // parsed by the handler
	Location    string     `form:"location"`
	MinQuantity *int       `form:"minQuantity" binding:"omitempty,min=0,max=1000000000"`
	Search      string     `form:"search"`
	Page        int        `form:"page" binding:"omitempty,min=1"`
	PageSize    int        `form:"pageSize" binding:"omitempty,min=1,max=100"`
	OrderBy     string     `form:"orderBy"`
	OrderDir    string     `form:"orderDir" binding:"omitempty,oneof=asc desc"`
}

// AdjustRequest represents a manual quantity change
type AdjustRequest struct {
	InventoryItemID uuid.UUID `json:"inventoryItemId" binding:"required"`
	QuantityChange  int       `json:"quantityChange" binding:"required,ne=0,min=-1000000,max=1000000"`
	Reason          string    `json:"reason" binding:"required,max=255"`
}

// TransferRequest represents a stock move between two locations of one product
type TransferRequest struct {
	ProductID    uuid.UUID `json:"productId" binding:"required"`
	FromLocation string    `json:"fromLocation" binding:"required,max=100"`
	ToLocation   string    `json:"toLocation" binding:"required,max=100"`
	Quantity     int       `json:"quantity" binding:"required,min=1,max=1000000"`
}

// CreateRequest represents a new stock row
type CreateRequest struct {
	ProductID       uuid.UUID `json:"productId" binding:"required"`
	Location        string    `json:"location" binding:"required,max=100"`
	InitialQuantity int       `json:"quantity" binding:"min=0,max=1000000"`
}

// CountRequest represents a physical count of one stock row
type CountRequest struct {
	CountedQuantity int `json:"countedQuantity" binding:"min=0,max=1000000"`
}

// ExportFile is a generated stock report
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ToStockResponse converts a domain InventoryItem to its response DTO
func ToStockResponse(item *inventory.InventoryItem) StockResponse {
	return StockResponse{
		ID:          item.ID,
		ProductID:   item.ProductID,
		Location:    item.Location,
		Quantity:    item.Quantity,
		LastCounted: item.LastCounted,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
}

// ToStockViewResponse converts a joined stock row to its response DTO
func ToStockViewResponse(view *inventory.StockView) StockResponse {
	resp := ToStockResponse(&view.InventoryItem)
	resp.ProductName = view.ProductName
	resp.ProductSKU = view.ProductSKU
	return resp
}

// ToStockViewResponses converts a slice of joined stock rows
func ToStockViewResponses(views []inventory.StockView) []StockResponse {
	responses := make([]StockResponse, len(views))
	for i := range views {
		responses[i] = ToStockViewResponse(&views[i])
	}
	return responses
}

// ToAdjustmentResponse converts a domain InventoryAdjustment to its response DTO
func ToAdjustmentResponse(adj *inventory.InventoryAdjustment) AdjustmentResponse {
	return AdjustmentResponse{
		ID:              adj.ID,
		InventoryItemID: adj.InventoryItemID,
		UserID:          adj.UserID,
		QuantityChange:  adj.QuantityChange,
		Reason:          adj.Reason,
		CreatedAt:       adj.CreatedAt,
	}
}

// ToAdjustmentResponses converts a slice of adjustments
func ToAdjustmentResponses(adjustments []inventory.InventoryAdjustment) []AdjustmentResponse {
	responses := make([]AdjustmentResponse, len(adjustments))
	for i := range adjustments {
		responses[i] = ToAdjustmentResponse(&adjustments[i])
	}
	return responses
}

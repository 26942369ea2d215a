package trade

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wms/backend/internal/domain/shared/valueobject"
	"github.com/wms/backend/internal/domain/trade"
)

// OrderLineRequest represents one line of a new order.
// Price defaults to the product's list price; Location pins the stock row.
type OrderLineRequest struct {
	ProductID uuid.UUID        `json:"productId" binding:"required"`
	Quantity  int              `json:"quantity" binding:"required,min=1,max=1000000"`
	Price     *decimal.Decimal `json:"price"`
	Location  string           `json:"location" binding:"max=100"`
}

// CreateOrderRequest represents a request to create an order
type CreateOrderRequest struct {
	ShopifyOrderID  string              `json:"shopifyOrderId" binding:"max=64"`
	ShippingAddress valueobject.Address `json:"shippingAddress" binding:"required"`
	Items           []OrderLineRequest  `json:"items" binding:"required,min=1,dive"`
	OrderDate       *time.Time          `json:"orderDate"`
}

// OrderLinePatch changes one line of an existing order.
// Quantity 0 removes the line; an unknown product adds one.
type OrderLinePatch struct {
	ProductID uuid.UUID        `json:"productId" binding:"required"`
	Quantity  int              `json:"quantity" binding:"min=0,max=1000000"`
	Price     *decimal.Decimal `json:"price"`
	Location  string           `json:"location" binding:"max=100"`
}

// UpdateOrderRequest represents a partial update of an order
type UpdateOrderRequest struct {
	Status          *string              `json:"status"`
	ShippingAddress *valueobject.Address `json:"shippingAddress"`
	TrackingNumber  *string              `json:"trackingNumber" binding:"omitempty,max=100"`
	Items           []OrderLinePatch     `json:"items" binding:"omitempty,dive"`
}

// OrderListFilter represents filter options for the order list
type OrderListFilter struct {
	Status   string `form:"status"`
	Search   string `form:"search"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"pageSize" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"orderBy"`
	OrderDir string `form:"orderDir" binding:"omitempty,oneof=asc desc"`
}

// OrderItemResponse represents an order line in API responses
type OrderItemResponse struct {
	ID              uuid.UUID       `json:"id"`
	ProductID       uuid.UUID       `json:"productId"`
	InventoryItemID *uuid.UUID      `json:"inventoryItemId"`
	Quantity        int             `json:"quantity"`
	Price           decimal.Decimal `json:"price"`
	LineTotal       decimal.Decimal `json:"lineTotal"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID              uuid.UUID           `json:"id"`
	ShopifyOrderID  string              `json:"shopifyOrderId"`
	UserID          uuid.UUID           `json:"userId"`
	Status          string              `json:"status"`
	ShippingAddress valueobject.Address `json:"shippingAddress"`
	TrackingNumber  *string             `json:"trackingNumber"`
	ShipmentID      *string             `json:"shipmentId"`
	LabelURL        *string             `json:"labelUrl"`
	OrderDate       time.Time           `json:"orderDate"`
	FulfilledAt     *time.Time          `json:"fulfilledAt"`
	TotalAmount     decimal.Decimal     `json:"totalAmount"`
	Items           []OrderItemResponse `json:"items"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

// FulfillResponse is returned after an order has been fulfilled
type FulfillResponse struct {
	OrderResponse
	ArchivedLabelURL string `json:"archivedLabelUrl,omitempty"`
}

// ToOrderResponse converts a domain Order to a response DTO
func ToOrderResponse(o *trade.Order) OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i := range o.Items {
		item := &o.Items[i]
		items[i] = OrderItemResponse{
			ID:              item.ID,
			ProductID:       item.ProductID,
			InventoryItemID: item.InventoryItemID,
			Quantity:        item.Quantity,
			Price:           item.Price,
			LineTotal:       item.LineTotal(),
		}
	}
	return OrderResponse{
		ID:              o.ID,
		ShopifyOrderID:  o.ShopifyOrderID,
		UserID:          o.UserID,
		Status:          o.Status.String(),
		ShippingAddress: o.ShippingAddress,
		TrackingNumber:  o.TrackingNumber,
		ShipmentID:      o.ShipmentID,
		LabelURL:        o.LabelURL,
		OrderDate:       o.OrderDate,
		FulfilledAt:     o.FulfilledAt,
		TotalAmount:     o.TotalAmount,
		Items:           items,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

// ToOrderResponses converts a slice of domain Orders to response DTOs
func ToOrderResponses(orders []trade.Order) []OrderResponse {
	responses := make([]OrderResponse, len(orders))
	for i := range orders {
		responses[i] = ToOrderResponse(&orders[i])
	}
	return responses
}

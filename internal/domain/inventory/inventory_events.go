package inventory

import (
	"github.com/google/uuid"
	"github.com/wms/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeInventoryItem = "InventoryItem"

// Event type constants
const (
	EventTypeInventoryAdjusted = "InventoryAdjusted"
)

// InventoryAdjustedEvent is published for every committed quantity change
type InventoryAdjustedEvent struct {
	shared.BaseDomainEvent
	InventoryItemID uuid.UUID `json:"inventoryItemId"`
	AdjustmentID    uuid.UUID `json:"adjustmentId"`
	ProductID       uuid.UUID `json:"productId"`
	Location        string    `json:"location"`
	QuantityChange  int       `json:"quantityChange"`
	NewQuantity     int       `json:"newQuantity"`
	Reason          string    `json:"reason"`
	UserID          uuid.UUID `json:"userId"`
}

// NewInventoryAdjustedEvent creates a new InventoryAdjustedEvent
func NewInventoryAdjustedEvent(item *InventoryItem, adjustment *InventoryAdjustment) *InventoryAdjustedEvent {
	return &InventoryAdjustedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInventoryAdjusted, AggregateTypeInventoryItem, item.ID),
		InventoryItemID: item.ID,
		AdjustmentID:    adjustment.ID,
		ProductID:       item.ProductID,
		Location:        item.Location,
		QuantityChange:  adjustment.QuantityChange,
		NewQuantity:     item.Quantity,
		Reason:          adjustment.Reason,
		UserID:          adjustment.UserID,
	}
}

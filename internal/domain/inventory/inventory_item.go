package inventory

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wms/backend/internal/domain/shared"
)

// InventoryItem represents the stock of one product at one named location.
// It is the aggregate root for inventory operations; its quantity changes only
// through methods that return the matching InventoryAdjustment.
type InventoryItem struct {
	shared.BaseAggregateRoot
	ProductID   uuid.UUID
	Location    string
	Quantity    int
	LastCounted *time.Time
}

// NewInventoryItem creates an empty stock row for a product-location pair
func NewInventoryItem(productID uuid.UUID, location string) (*InventoryItem, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeValidation, "Product ID cannot be empty")
	}
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, shared.NewDomainError(shared.CodeValidation, "Location cannot be empty")
	}
	if len(location) > 100 {
		return nil, shared.NewDomainError(shared.CodeValidation, "Location cannot exceed 100 characters")
	}

	return &InventoryItem{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ProductID:         productID,
		Location:          location,
		Quantity:          0,
	}, nil
}

// Adjust applies a signed delta and returns the audit record for it.
// A delta that would take the quantity below zero or above MaxQuantity is
// rejected without touching the item.
func (i *InventoryItem) Adjust(delta int, reason string, userID uuid.UUID) (*InventoryAdjustment, error) {
	if delta == 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidAdjustment, "Quantity change cannot be zero")
	}
	newQuantity := i.Quantity + delta
	if newQuantity < 0 {
		return nil, shared.ErrInvalidAdjustment.
			WithDetail("current_quantity", i.Quantity).
			WithDetail("quantity_change", delta)
	}
	if newQuantity > shared.MaxQuantity {
		return nil, shared.NewDomainError(shared.CodeInvalidAdjustment, "Inventory quantity exceeds the maximum").
			WithDetail("current_quantity", i.Quantity).
			WithDetail("quantity_change", delta).
			WithDetail("max_quantity", shared.MaxQuantity)
	}

	adjustment, err := NewInventoryAdjustment(i.ID, userID, delta, reason)
	if err != nil {
		return nil, err
	}

	i.Quantity = newQuantity
	i.UpdatedAt = time.Now()
	i.AddDomainEvent(NewInventoryAdjustedEvent(i, adjustment))

	return adjustment, nil
}

// Withdraw removes stock for an order or transfer.
// Unlike Adjust, a shortfall is reported as insufficient inventory.
func (i *InventoryItem) Withdraw(quantity int, reason string, userID uuid.UUID) (*InventoryAdjustment, error) {
	if quantity <= 0 {
		return nil, shared.NewDomainError(shared.CodeValidation, "Quantity must be positive")
	}
	if !i.CanSupply(quantity) {
		return nil, shared.ErrInsufficientInventory.
			WithDetail("product_id", i.ProductID.String()).
			WithDetail("location", i.Location).
			WithDetail("available", i.Quantity).
			WithDetail("requested", quantity)
	}
	return i.Adjust(-quantity, reason, userID)
}

// Restock returns stock to this location
func (i *InventoryItem) Restock(quantity int, reason string, userID uuid.UUID) (*InventoryAdjustment, error) {
	if quantity <= 0 {
		return nil, shared.NewDomainError(shared.CodeValidation, "Quantity must be positive")
	}
	return i.Adjust(quantity, reason, userID)
}

// RecordCount reconciles the quantity with a physical count.
// It returns nil when the count matches and no adjustment is needed.
func (i *InventoryItem) RecordCount(counted int, userID uuid.UUID) (*InventoryAdjustment, error) {
	if counted < 0 {
		return nil, shared.NewDomainError(shared.CodeValidation, "Counted quantity cannot be negative")
	}
	if counted > shared.MaxQuantity {
		return nil, shared.NewDomainError(shared.CodeValidation, "Counted quantity exceeds the maximum")
	}
	now := time.Now()
	delta := counted - i.Quantity
	var adjustment *InventoryAdjustment
	if delta != 0 {
		var err error
		adjustment, err = i.Adjust(delta, ReasonCycleCount, userID)
		if err != nil {
			return nil, err
		}
	}
	i.LastCounted = &now
	i.UpdatedAt = now
	return adjustment, nil
}

// CanSupply reports whether the location holds at least quantity units
func (i *InventoryItem) CanSupply(quantity int) bool {
	return i.Quantity >= quantity
}

// IsLowStock reports whether the quantity is at or below threshold
func (i *InventoryItem) IsLowStock(threshold int) bool {
	return i.Quantity <= threshold
}

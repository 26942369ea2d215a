package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/wms/backend/internal/domain/shared"
)

// StockView is an inventory row joined with its product identity
type StockView struct {
	InventoryItem
	ProductName string
	ProductSKU  string
}

// InventoryItemRepository defines the interface for inventory item persistence.
// The ForUpdate variants lock the returned rows until the surrounding
// transaction ends; outside a transaction they behave like plain reads.
type InventoryItemRepository interface {
	// FindByID finds an inventory item by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*InventoryItem, error)

	// FindByIDForUpdate finds an inventory item and locks it
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*InventoryItem, error)

	// FindByProductAndLocation finds the stock row for a product at a location
	FindByProductAndLocation(ctx context.Context, productID uuid.UUID, location string) (*InventoryItem, error)

	// FindByProductAndLocationForUpdate finds and locks the stock row for a product at a location
	FindByProductAndLocationForUpdate(ctx context.Context, productID uuid.UUID, location string) (*InventoryItem, error)

	// FindByProduct finds all stock rows of a product, ordered by location
	FindByProduct(ctx context.Context, productID uuid.UUID) ([]InventoryItem, error)

	// FindByProductForUpdate finds and locks all stock rows of a product,
	// ordered by quantity descending then location
	FindByProductForUpdate(ctx context.Context, productID uuid.UUID) ([]InventoryItem, error)

	// FindAll finds stock rows matching the filter.
	// Supported filter keys: "product_id", "location", "min_quantity".
	FindAll(ctx context.Context, filter shared.Filter) ([]StockView, error)

	// Count counts stock rows matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// FindViewByID finds one stock row joined with its product
	FindViewByID(ctx context.Context, id uuid.UUID) (*StockView, error)

	// FindLowStock finds all rows whose quantity is at or below threshold
	FindLowStock(ctx context.Context, threshold int) ([]StockView, error)

	// SumQuantityByProduct returns the total quantity across locations per product
	SumQuantityByProduct(ctx context.Context) (map[uuid.UUID]int, error)

	// Save creates or updates an inventory item
	Save(ctx context.Context, item *InventoryItem) error
}

// AdjustmentRepository defines the interface for the adjustment ledger
type AdjustmentRepository interface {
	// Create appends one adjustment
	Create(ctx context.Context, adjustment *InventoryAdjustment) error

	// CreateBatch appends several adjustments
	CreateBatch(ctx context.Context, adjustments []*InventoryAdjustment) error

	// FindByItem lists adjustments of an inventory item, newest first
	FindByItem(ctx context.Context, itemID uuid.UUID, filter shared.Filter) ([]InventoryAdjustment, error)

	// CountByItem counts adjustments of an inventory item
	CountByItem(ctx context.Context, itemID uuid.UUID) (int64, error)
}

package trade

import (
	"context"

	"github.com/google/uuid"
	"github.com/wms/backend/internal/domain/shared"
)

// OrderRepository defines the interface for order persistence.
// Orders are always loaded together with their items.
type OrderRepository interface {
	// FindByID finds an order by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindByIDForUpdate finds an order and locks its row
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindByShopifyOrderID finds an order by its storefront identifier
	FindByShopifyOrderID(ctx context.Context, shopifyOrderID string) (*Order, error)

	// FindAll finds orders matching the filter.
	// Supported filter keys: "status", "user_id".
	FindAll(ctx context.Context, filter shared.Filter) ([]Order, error)

	// Count counts orders matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// Save creates or updates an order and replaces its items
	Save(ctx context.Context, order *Order) error

	// Delete removes an order and its items
	Delete(ctx context.Context, id uuid.UUID) error

	// CountItemsByProduct counts order lines that reference a product
	CountItemsByProduct(ctx context.Context, productID uuid.UUID) (int64, error)
}

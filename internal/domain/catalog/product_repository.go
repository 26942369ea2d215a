package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/wms/backend/internal/domain/shared"
)

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	// FindByID finds a product by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindByIDForUpdate finds a product and locks its row for the current transaction
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindByIDs finds multiple products by their IDs
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)

	// FindBySKU finds a product by its SKU
	FindBySKU(ctx context.Context, sku string) (*Product, error)

	// FindByShopifyID finds a product by its storefront identifier
	FindByShopifyID(ctx context.Context, shopifyProductID string) (*Product, error)

	// FindAll finds all products matching the filter.
	// Supported filter keys: "name", "sku" (case-insensitive substring).
	FindAll(ctx context.Context, filter shared.Filter) ([]Product, error)

	// Count counts products matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// ListAll returns every product, ordered by SKU
	ListAll(ctx context.Context) ([]Product, error)

	// Save creates or updates a product
	Save(ctx context.Context, product *Product) error

	// Delete deletes a product
	Delete(ctx context.Context, id uuid.UUID) error

	// ExistsBySKU checks if another product already uses the SKU
	ExistsBySKU(ctx context.Context, sku string, excludeID *uuid.UUID) (bool, error)

	// ExistsByBarcode checks if another product already uses the barcode
	ExistsByBarcode(ctx context.Context, barcode string, excludeID *uuid.UUID) (bool, error)
}

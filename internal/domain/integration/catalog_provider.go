package integration

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wms/backend/internal/domain/shared/valueobject"
)

// RemoteOrderStatus is the storefront view of an order's progress
type RemoteOrderStatus string

const (
	RemoteOrderStatusOpen      RemoteOrderStatus = "OPEN"
	RemoteOrderStatusFulfilled RemoteOrderStatus = "FULFILLED"
	RemoteOrderStatusCancelled RemoteOrderStatus = "CANCELLED"
)

// ProductInput is the product payload pushed to the storefront
type ProductInput struct {
	Title       string
	SKU         string
	Barcode     string
	Description string
	Price       decimal.Decimal
	WeightKg    decimal.Decimal
}

// RemoteProduct is a product as known by the storefront
type RemoteProduct struct {
	ID          string
	Title       string
	SKU         string
	Barcode     string
	Description string
	Price       decimal.Decimal
	WeightKg    decimal.Decimal
	UpdatedAt   time.Time
}

// RemoteOrderLine is a line of a storefront order
type RemoteOrderLine struct {
	RemoteProductID string
	SKU             string
	Title           string
	Quantity        int
	Price           decimal.Decimal
}

// RemoteOrder is an order as known by the storefront
type RemoteOrder struct {
	ID              string
	Name            string
	Status          RemoteOrderStatus
	ShippingAddress valueobject.Address
	TotalAmount     decimal.Decimal
	Lines           []RemoteOrderLine
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CatalogProvider is the port to the storefront platform.
// Remote IDs are opaque strings owned by the platform.
type CatalogProvider interface {
	// CreateProduct creates a product and returns its remote ID
	CreateProduct(ctx context.Context, input ProductInput) (string, error)

	// UpdateProduct replaces the remote product fields
	UpdateProduct(ctx context.Context, remoteID string, input ProductInput) error

	// DeleteProduct removes a remote product.
	// A product that no longer exists yields ErrPlatformNotFound.
	DeleteProduct(ctx context.Context, remoteID string) error

	// ListProducts returns every remote product
	ListProducts(ctx context.Context) ([]RemoteProduct, error)

	// ListOrders returns orders created or updated since the given time.
	// A zero time lists all orders.
	ListOrders(ctx context.Context, since time.Time) ([]RemoteOrder, error)

	// SetInventoryLevel sets the available quantity of a remote product
	SetInventoryLevel(ctx context.Context, remoteProductID string, available int) error

	// MarkOrderFulfilled records the shipment on the remote order
	MarkOrderFulfilled(ctx context.Context, remoteOrderID, trackingNumber, carrier string) error
}

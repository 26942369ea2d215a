package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wms/backend/internal/domain/catalog"
	"github.com/wms/backend/internal/domain/inventory"
)

// CreateProductRequest represents a request to create a new product
type CreateProductRequest struct {
	Name        string           `json:"name" binding:"required,min=1,max=255"`
	SKU         string           `json:"sku" binding:"required,min=1,max=64"`
	Barcode     string           `json:"barcode" binding:"max=64"`
	Description string           `json:"description" binding:"max=4000"`
	Price       decimal.Decimal  `json:"price" binding:"required"`
	WeightKg    *decimal.Decimal `json:"weightKg"`
}

// UpdateProductRequest represents a request to update a product.
// Nil fields are left unchanged.
type UpdateProductRequest struct {
	Name        *string          `json:"name" binding:"omitempty,min=1,max=255"`
	SKU         *string          `json:"sku" binding:"omitempty,min=1,max=64"`
	Barcode     *string          `json:"barcode" binding:"omitempty,max=64"`
	Description *string          `json:"description" binding:"omitempty,max=4000"`
	Price       *decimal.Decimal `json:"price"`
	WeightKg    *decimal.Decimal `json:"weightKg"`
}

// ProductListFilter represents filter options for the product list
type ProductListFilter struct {
	Search   string `form:"search"`
	Name     string `form:"name"`
	SKU      string `form:"sku"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"pageSize" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"orderBy"`
	OrderDir string `form:"orderDir" binding:"omitempty,oneof=asc desc"`
}

// ProductResponse represents a product in API responses
type ProductResponse struct {
	ID               uuid.UUID       `json:"id"`
	ShopifyProductID *string         `json:"shopifyProductId"`
	Name             string          `json:"name"`
	SKU              string          `json:"sku"`
	Barcode          *string         `json:"barcode"`
	Description      string          `json:"description"`
	Price            decimal.Decimal `json:"price"`
	WeightKg         decimal.Decimal `json:"weightKg"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// StockLocationResponse is the stock of a product at one location
type StockLocationResponse struct {
	InventoryItemID uuid.UUID  `json:"inventoryItemId"`
	Location        string     `json:"location"`
	Quantity        int        `json:"quantity"`
	LastCounted     *time.Time `json:"lastCounted"`
}

// ProductInventoryResponse is the stock of a product across locations
type ProductInventoryResponse struct {
	Product       ProductResponse         `json:"product"`
	TotalQuantity int                     `json:"totalQuantity"`
	Locations     []StockLocationResponse `json:"locations"`
}

// ToProductResponse converts a domain Product to a response DTO
func ToProductResponse(p *catalog.Product) ProductResponse {
	return ProductResponse{
		ID:               p.ID,
		ShopifyProductID: p.ShopifyProductID,
		Name:             p.Name,
		SKU:              p.SKU,
		Barcode:          p.Barcode,
		Description:      p.Description,
		Price:            p.Price,
		WeightKg:         p.WeightKg,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

// ToProductResponses converts a slice of domain Products to response DTOs
func ToProductResponses(products []catalog.Product) []ProductResponse {
	responses := make([]ProductResponse, len(products))
	for i := range products {
		responses[i] = ToProductResponse(&products[i])
	}
	return responses
}

// ToProductInventoryResponse combines a product with its stock rows
func ToProductInventoryResponse(p *catalog.Product, items []inventory.InventoryItem) ProductInventoryResponse {
	resp := ProductInventoryResponse{
		Product:   ToProductResponse(p),
		Locations: make([]StockLocationResponse, len(items)),
	}
	for i, item := range items {
		resp.TotalQuantity += item.Quantity
		resp.Locations[i] = StockLocationResponse{
			InventoryItemID: item.ID,
			Location:        item.Location,
			Quantity:        item.Quantity,
			LastCounted:     item.LastCounted,
		}
	}
	return resp
}

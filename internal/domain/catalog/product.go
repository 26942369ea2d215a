package catalog

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wms/backend/internal/domain/shared"
)

// Product represents a sellable SKU mirrored to the storefront catalog.
// It is the aggregate root for product-related operations.
type Product struct {
	shared.BaseAggregateRoot
	ShopifyProductID *string
	Name             string
	SKU              string
	Barcode          *string
	Description      string
	Price            decimal.Decimal
	WeightKg         decimal.Decimal
}

// NewProduct creates a new product
func NewProduct(name, sku string, price decimal.Decimal) (*Product, error) {
	name = strings.TrimSpace(name)
	sku = strings.TrimSpace(sku)
	if err := validateProductName(name); err != nil {
		return nil, err
	}
	if err := validateSKU(sku); err != nil {
		return nil, err
	}
	if err := validatePrice(price); err != nil {
		return nil, err
	}

	product := &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		SKU:               sku,
		Price:             price.Round(2),
		WeightKg:          decimal.Zero,
	}

	product.AddDomainEvent(NewProductCreatedEvent(product))

	return product, nil
}

// Update updates the product's descriptive fields
func (p *Product) Update(name, description string) error {
	name = strings.TrimSpace(name)
	if err := validateProductName(name); err != nil {
		return err
	}

	p.Name = name
	p.Description = description
	p.UpdatedAt = time.Now()

	return nil
}

// SetSKU changes the stock keeping unit
func (p *Product) SetSKU(sku string) error {
	sku = strings.TrimSpace(sku)
	if err := validateSKU(sku); err != nil {
		return err
	}
	p.SKU = sku
	p.UpdatedAt = time.Now()
	return nil
}

// SetBarcode sets the product barcode; an empty value clears it
func (p *Product) SetBarcode(barcode string) error {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		p.Barcode = nil
		p.UpdatedAt = time.Now()
		return nil
	}
	if len(barcode) > 64 {
		return shared.NewDomainError(shared.CodeValidation, "Barcode cannot exceed 64 characters")
	}
	p.Barcode = &barcode
	p.UpdatedAt = time.Now()
	return nil
}

// SetPrice changes the list price
func (p *Product) SetPrice(price decimal.Decimal) error {
	if err := validatePrice(price); err != nil {
		return err
	}
	p.Price = price.Round(2)
	p.UpdatedAt = time.Now()
	return nil
}

// SetWeight sets the shipping weight per unit in kilograms
func (p *Product) SetWeight(weightKg decimal.Decimal) error {
	if weightKg.IsNegative() {
		return shared.NewDomainError(shared.CodeValidation, "Weight cannot be negative")
	}
	p.WeightKg = weightKg
	p.UpdatedAt = time.Now()
	return nil
}

// LinkRemote records the storefront identifier of this product
func (p *Product) LinkRemote(remoteID string) {
	remoteID = strings.TrimSpace(remoteID)
	if remoteID == "" {
		p.ShopifyProductID = nil
		return
	}
	p.ShopifyProductID = &remoteID
}

// RemoteID returns the storefront identifier or an empty string
func (p *Product) RemoteID() string {
	if p.ShopifyProductID == nil {
		return ""
	}
	return *p.ShopifyProductID
}

// IsLinked reports whether the product has a storefront twin
func (p *Product) IsLinked() bool {
	return p.RemoteID() != ""
}

// MarkDeleted records the deletion event before the row is removed
func (p *Product) MarkDeleted() {
	p.AddDomainEvent(NewProductDeletedEvent(p))
}

func validateProductName(name string) error {
	if name == "" {
		return shared.NewDomainError(shared.CodeValidation, "Product name cannot be empty")
	}
	if len(name) > 255 {
		return shared.NewDomainError(shared.CodeValidation, "Product name cannot exceed 255 characters")
	}
	return nil
}

func validateSKU(sku string) error {
	if sku == "" {
		return shared.NewDomainError(shared.CodeValidation, "Product SKU cannot be empty")
	}
	if len(sku) > 64 {
		return shared.NewDomainError(shared.CodeValidation, "Product SKU cannot exceed 64 characters")
	}
	return nil
}

func validatePrice(price decimal.Decimal) error {
	if !price.IsPositive() {
		return shared.NewDomainError(shared.CodeValidation, "Product price must be greater than zero")
	}
	return nil
}

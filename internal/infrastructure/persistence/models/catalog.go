package models

import (
	"github.com/shopspring/decimal"
	"github.com/wms/backend/internal/domain/catalog"
)

// ProductModel is the persistence model for the Product aggregate root
type ProductModel struct {
	BaseModel
	ShopifyProductID *string         `gorm:"column:shopify_product_id;type:varchar(64);uniqueIndex"`
	Name             string          `gorm:"type:varchar(255);not null"`
	SKU              string          `gorm:"column:sku;type:varchar(100);not null;uniqueIndex"`
	Barcode          *string         `gorm:"type:varchar(100);uniqueIndex"`
	Description      string          `gorm:"type:text"`
	Price            decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	WeightKg         decimal.Decimal `gorm:"column:weight_kg;type:decimal(10,3);not null"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product entity
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		BaseAggregateRoot: m.aggregateRoot(),
		ShopifyProductID:  m.ShopifyProductID,
		Name:              m.Name,
		SKU:               m.SKU,
		Barcode:           m.Barcode,
		Description:       m.Description,
		Price:             m.Price,
		WeightKg:          m.WeightKg,
	}
}

// FromDomain populates the persistence model from a domain Product entity
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.ShopifyProductID = p.ShopifyProductID
	m.Name = p.Name
	m.SKU = p.SKU
	m.Barcode = p.Barcode
	m.Description = p.Description
	m.Price = p.Price
	m.WeightKg = p.WeightKg
}

// ProductModelFromDomain creates a new persistence model from a domain Product entity
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/wms/backend/internal/domain/inventory"
)

// InventoryItemModel is the persistence model for stock of one product at one location
type InventoryItemModel struct {
	BaseModel
	ProductID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_items_product_location,priority:1"`
	Location    string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_inventory_items_product_location,priority:2"`
	Quantity    int       `gorm:"not null;check:chk_inventory_items_quantity,quantity >= 0"`
	LastCounted *time.Time
}

// TableName returns the table name for GORM
func (InventoryItemModel) TableName() string {
	return "inventory_items"
}

// ToDomain converts the persistence model to a domain InventoryItem
func (m *InventoryItemModel) ToDomain() *inventory.InventoryItem {
	return &inventory.InventoryItem{
		BaseAggregateRoot: m.aggregateRoot(),
		ProductID:         m.ProductID,
		Location:          m.Location,
		Quantity:          m.Quantity,
		LastCounted:       m.LastCounted,
	}
}

// FromDomain populates the persistence model from a domain InventoryItem
func (m *InventoryItemModel) FromDomain(i *inventory.InventoryItem) {
	m.FromDomainBaseEntity(i.BaseEntity)
	m.ProductID = i.ProductID
	m.Location = i.Location
	m.Quantity = i.Quantity
	m.LastCounted = i.LastCounted
}

// InventoryItemModelFromDomain creates a new persistence model from a domain InventoryItem
func InventoryItemModelFromDomain(i *inventory.InventoryItem) *InventoryItemModel {
	m := &InventoryItemModel{}
	m.FromDomain(i)
	return m
}

// StockViewRow is the scan target for inventory rows joined with their product
type StockViewRow struct {
	InventoryItemModel
	ProductName string
	ProductSKU  string `gorm:"column:product_sku"`
}

// ToDomain converts the joined row to a domain StockView
func (r *StockViewRow) ToDomain() inventory.StockView {
	return inventory.StockView{
		InventoryItem: *r.InventoryItemModel.ToDomain(),
		ProductName:   r.ProductName,
		ProductSKU:    r.ProductSKU,
	}
}

// InventoryAdjustmentModel is the persistence model for the append-only adjustment ledger
type InventoryAdjustmentModel struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	InventoryItemID uuid.UUID `gorm:"type:uuid;not null;index"`
	UserID          uuid.UUID `gorm:"type:uuid;not null;index"`
	QuantityChange  int       `gorm:"not null;check:chk_inventory_adjustments_change,quantity_change <> 0"`
	Reason          string    `gorm:"type:varchar(255);not null"`
	CreatedAt       time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (InventoryAdjustmentModel) TableName() string {
	return "inventory_adjustments"
}

// ToDomain converts the persistence model to a domain InventoryAdjustment
func (m *InventoryAdjustmentModel) ToDomain() *inventory.InventoryAdjustment {
	return &inventory.InventoryAdjustment{
		ID:              m.ID,
		InventoryItemID: m.InventoryItemID,
		UserID:          m.UserID,
		QuantityChange:  m.QuantityChange,
		Reason:          m.Reason,
		CreatedAt:       m.CreatedAt,
	}
}

// InventoryAdjustmentModelFromDomain creates a new persistence model from a domain adjustment
func InventoryAdjustmentModelFromDomain(a *inventory.InventoryAdjustment) *InventoryAdjustmentModel {
	return &InventoryAdjustmentModel{
		ID:              a.ID,
		InventoryItemID: a.InventoryItemID,
		UserID:          a.UserID,
		QuantityChange:  a.QuantityChange,
		Reason:          a.Reason,
		CreatedAt:       a.CreatedAt,
	}
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wms/backend/internal/domain/shared/valueobject"
	"github.com/wms/backend/internal/domain/trade"
)

// OrderModel is the persistence model for the Order aggregate root
type OrderModel struct {
	BaseModel
	ShopifyOrderID  string              `gorm:"column:shopify_order_id;type:varchar(64);not null;uniqueIndex"`
	UserID          uuid.UUID           `gorm:"type:uuid;not null;index"`
	Status          string              `gorm:"type:varchar(20);not null;index"`
	ShippingAddress valueobject.Address `gorm:"type:jsonb"`
	TrackingNumber  *string             `gorm:"type:varchar(100)"`
	ShipmentID      *string             `gorm:"type:varchar(100)"`
	LabelURL        *string             `gorm:"column:label_url;type:text"`
	LabelGeneration int                 `gorm:"not null;default:0"`
	OrderDate       time.Time           `gorm:"not null"`
	FulfilledAt     *time.Time
	TotalAmount     decimal.Decimal  `gorm:"type:decimal(14,2);not null"`
	Items           []OrderItemModel `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order with its items
func (m *OrderModel) ToDomain() *trade.Order {
	order := &trade.Order{
		BaseAggregateRoot: m.aggregateRoot(),
		ShopifyOrderID:    m.ShopifyOrderID,
		UserID:            m.UserID,
		Status:            trade.OrderStatus(m.Status),
		ShippingAddress:   m.ShippingAddress,
		TrackingNumber:    m.TrackingNumber,
		ShipmentID:        m.ShipmentID,
		LabelURL:          m.LabelURL,
		LabelGeneration:   m.LabelGeneration,
		OrderDate:         m.OrderDate,
		FulfilledAt:       m.FulfilledAt,
		TotalAmount:       m.TotalAmount,
		Items:             make([]trade.OrderItem, len(m.Items)),
	}
	for i := range m.Items {
		order.Items[i] = m.Items[i].ToDomain()
	}
	return order
}

// FromDomain populates the persistence model from a domain Order
func (m *OrderModel) FromDomain(o *trade.Order) {
	m.FromDomainBaseEntity(o.BaseEntity)
	m.ShopifyOrderID = o.ShopifyOrderID
	m.UserID = o.UserID
	m.Status = string(o.Status)
	m.ShippingAddress = o.ShippingAddress
	m.TrackingNumber = o.TrackingNumber
	m.ShipmentID = o.ShipmentID
	m.LabelURL = o.LabelURL
	m.LabelGeneration = o.LabelGeneration
	m.OrderDate = o.OrderDate
	m.FulfilledAt = o.FulfilledAt
	m.TotalAmount = o.TotalAmount
	m.Items = make([]OrderItemModel, len(o.Items))
	for i := range o.Items {
		m.Items[i] = OrderItemModelFromDomain(&o.Items[i])
		m.Items[i].OrderID = o.ID
	}
}

// OrderModelFromDomain creates a new persistence model from a domain Order
func OrderModelFromDomain(o *trade.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}

// OrderItemModel is the persistence model for an order line
type OrderItemModel struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	InventoryItemID *uuid.UUID      `gorm:"type:uuid"`
	Quantity        int             `gorm:"not null;check:chk_order_items_quantity,quantity >= 1"`
	Price           decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt       time.Time       `gorm:"not null"`
	UpdatedAt       time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts the persistence model to a domain OrderItem
func (m *OrderItemModel) ToDomain() trade.OrderItem {
	return trade.OrderItem{
		ID:              m.ID,
		OrderID:         m.OrderID,
		ProductID:       m.ProductID,
		InventoryItemID: m.InventoryItemID,
		Quantity:        m.Quantity,
		Price:           m.Price,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// OrderItemModelFromDomain creates a persistence model from a domain OrderItem
func OrderItemModelFromDomain(i *trade.OrderItem) OrderItemModel {
	return OrderItemModel{
		ID:              i.ID,
		OrderID:         i.OrderID,
		ProductID:       i.ProductID,
		InventoryItemID: i.InventoryItemID,
		Quantity:        i.Quantity,
		Price:           i.Price,
		CreatedAt:       i.CreatedAt,
		UpdatedAt:       i.UpdatedAt,
	}
}

package trade

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wms/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeOrder = "Order"

// Event type constants
const (
	EventTypeOrderCreated   = "OrderCreated"
	EventTypeOrderFulfilled = "OrderFulfilled"
	EventTypeOrderCancelled = "OrderCancelled"
	EventTypeOrderDeleted   = "OrderDeleted"
)

// OrderLineSnapshot is the line shape carried by order events
type OrderLineSnapshot struct {
	ProductID uuid.UUID       `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

func snapshotLines(o *Order) []OrderLineSnapshot {
	lines := make([]OrderLineSnapshot, len(o.Items))
	for i, item := range o.Items {
		lines[i] = OrderLineSnapshot{ProductID: item.ProductID, Quantity: item.Quantity, Price: item.Price}
	}
	return lines
}

// OrderCreatedEvent is published when an order is created
type OrderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderID        uuid.UUID           `json:"orderId"`
	ShopifyOrderID string              `json:"shopifyOrderId"`
	TotalAmount    decimal.Decimal     `json:"totalAmount"`
	Items          []OrderLineSnapshot `json:"items"`
}

// NewOrderCreatedEvent creates a new OrderCreatedEvent
func NewOrderCreatedEvent(o *Order) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCreated, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		ShopifyOrderID:  o.ShopifyOrderID,
		TotalAmount:     o.TotalAmount,
		Items:           snapshotLines(o),
	}
}

// OrderFulfilledEvent is published when an order is fulfilled
type OrderFulfilledEvent struct {
	shared.BaseDomainEvent
	OrderID        uuid.UUID `json:"orderId"`
	ShopifyOrderID string    `json:"shopifyOrderId"`
	TrackingNumber string    `json:"trackingNumber"`
	FulfilledAt    time.Time `json:"fulfilledAt"`
}

// NewOrderFulfilledEvent creates a new OrderFulfilledEvent
func NewOrderFulfilledEvent(o *Order) *OrderFulfilledEvent {
	e := &OrderFulfilledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderFulfilled, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		ShopifyOrderID:  o.ShopifyOrderID,
	}
	if o.TrackingNumber != nil {
		e.TrackingNumber = *o.TrackingNumber
	}
	if o.FulfilledAt != nil {
		e.FulfilledAt = *o.FulfilledAt
	}
	return e
}

// OrderCancelledEvent is published when an order is cancelled
type OrderCancelledEvent struct {
	shared.BaseDomainEvent
	OrderID        uuid.UUID `json:"orderId"`
	ShopifyOrderID string    `json:"shopifyOrderId"`
}

// NewOrderCancelledEvent creates a new OrderCancelledEvent
func NewOrderCancelledEvent(o *Order) *OrderCancelledEvent {
	return &OrderCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCancelled, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		ShopifyOrderID:  o.ShopifyOrderID,
	}
}

// OrderDeletedEvent is published when an order is removed
type OrderDeletedEvent struct {
	shared.BaseDomainEvent
	OrderID        uuid.UUID           `json:"orderId"`
	ShopifyOrderID string              `json:"shopifyOrderId"`
	Items          []OrderLineSnapshot `json:"items"`
}

// NewOrderDeletedEvent creates a new OrderDeletedEvent
func NewOrderDeletedEvent(o *Order) *OrderDeletedEvent {
	return &OrderDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderDeleted, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		ShopifyOrderID:  o.ShopifyOrderID,
		Items:           snapshotLines(o),
	}
}

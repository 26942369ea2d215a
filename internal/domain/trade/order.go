package trade

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/shared/valueobject"
)

// LocalOrderPrefix marks orders created in this system rather than pulled from the storefront
const LocalOrderPrefix = "local-"

// maxShopifyOrderIDLength matches the orders.shopify_order_id column
const maxShopifyOrderIDLength = 64

// OrderItem represents a line of an order.
// Price is a snapshot taken when the line was created.
type OrderItem struct {
	ID              uuid.UUID
	OrderID         uuid.UUID
	ProductID       uuid.UUID
	InventoryItemID *uuid.UUID // stock row the line drew from
	Quantity        int
	Price           decimal.Decimal
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// LineTotal returns quantity * price
func (i *OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is the aggregate root of the fulfillment workflow
type Order struct {
	shared.BaseAggregateRoot
	ShopifyOrderID  string
	UserID          uuid.UUID
	Status          OrderStatus
	ShippingAddress valueobject.Address
	TrackingNumber  *string
	ShipmentID      *string
	LabelURL        *string
	LabelGeneration int // bumped on every shipment cancellation
	OrderDate       time.Time
	FulfilledAt     *time.Time
	TotalAmount     decimal.Decimal
	Items           []OrderItem
}

// NewOrder creates a pending order without lines.
// An empty shopifyOrderID yields a local identifier derived from the order ID.
func NewOrder(shopifyOrderID string, userID uuid.UUID, address valueobject.Address, orderDate time.Time) (*Order, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeValidation, "User ID cannot be empty")
	}
	address = address.Normalize()
	if err := address.Validate(); err != nil {
		return nil, shared.NewDomainError(shared.CodeValidation, err.Error())
	}
	if orderDate.IsZero() {
		orderDate = time.Now()
	}

	order := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ShopifyOrderID:    strings.TrimSpace(shopifyOrderID),
		UserID:            userID,
		Status:            OrderStatusPending,
		ShippingAddress:   address,
		OrderDate:         orderDate,
		TotalAmount:       decimal.Zero,
		Items:             make([]OrderItem, 0),
	}
	if len(order.ShopifyOrderID) > maxShopifyOrderIDLength {
		return nil, shared.NewDomainError(shared.CodeValidation, "Shopify order ID cannot exceed 64 characters")
	}
	if order.ShopifyOrderID == "" {
		order.ShopifyOrderID = LocalOrderPrefix + order.ID.String()
	}

	return order, nil
}

// IsLocal reports whether the order originated in this system
func (o *Order) IsLocal() bool {
	return strings.HasPrefix(o.ShopifyOrderID, LocalOrderPrefix)
}

// AddItem appends a line for a product not yet on the order
func (o *Order) AddItem(productID uuid.UUID, quantity int, price decimal.Decimal) (*OrderItem, error) {
	if err := o.ensureModifiable(); err != nil {
		return nil, err
	}
	if productID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeValidation, "Product ID cannot be empty")
	}
	if quantity < 1 || quantity > shared.MaxQuantity {
		return nil, shared.NewDomainError(shared.CodeValidation, "Quantity must be between 1 and the maximum").
			WithDetail("max_quantity", shared.MaxQuantity)
	}
	if price.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeValidation, "Price cannot be negative")
	}
	if o.GetItemByProduct(productID) != nil {
		return nil, shared.NewDomainError(shared.CodeValidation, "Order already has a line for this product").
			WithDetail("product_id", productID.String())
	}

	now := time.Now()
	o.Items = append(o.Items, OrderItem{
		ID:        uuid.New(),
		OrderID:   o.ID,
		ProductID: productID,
		Quantity:  quantity,
		Price:     price.Round(2),
		CreatedAt: now,
		UpdatedAt: now,
	})
	o.recalculateTotal()

	return &o.Items[len(o.Items)-1], nil
}

// UpdateItemQuantity changes the quantity of the line for productID and
// returns the signed difference (new - old).
func (o *Order) UpdateItemQuantity(productID uuid.UUID, quantity int) (int, error) {
	if err := o.ensureModifiable(); err != nil {
		return 0, err
	}
	if quantity < 1 || quantity > shared.MaxQuantity {
		return 0, shared.NewDomainError(shared.CodeValidation, "Quantity must be between 1 and the maximum").
			WithDetail("max_quantity", shared.MaxQuantity)
	}
	item := o.GetItemByProduct(productID)
	if item == nil {
		return 0, shared.ErrNotFound.WithDetail("product_id", productID.String())
	}

	delta := quantity - item.Quantity
	item.Quantity = quantity
	item.UpdatedAt = time.Now()
	o.recalculateTotal()

	return delta, nil
}

// UpdateItemPrice replaces the price snapshot of a line
func (o *Order) UpdateItemPrice(productID uuid.UUID, price decimal.Decimal) error {
	if err := o.ensureModifiable(); err != nil {
		return err
	}
	if price.IsNegative() {
		return shared.NewDomainError(shared.CodeValidation, "Price cannot be negative")
	}
	item := o.GetItemByProduct(productID)
	if item == nil {
		return shared.ErrNotFound.WithDetail("product_id", productID.String())
	}
	item.Price = price.Round(2)
	item.UpdatedAt = time.Now()
	o.recalculateTotal()
	return nil
}

// RemoveItem drops the line for productID and returns it
func (o *Order) RemoveItem(productID uuid.UUID) (OrderItem, error) {
	if err := o.ensureModifiable(); err != nil {
		return OrderItem{}, err
	}
	for idx, item := range o.Items {
		if item.ProductID == productID {
			o.Items = append(o.Items[:idx], o.Items[idx+1:]...)
			o.recalculateTotal()
			return item, nil
		}
	}
	return OrderItem{}, shared.ErrNotFound.WithDetail("product_id", productID.String())
}

// GetItemByProduct returns the line for productID or nil
func (o *Order) GetItemByProduct(productID uuid.UUID) *OrderItem {
	for i := range o.Items {
		if o.Items[i].ProductID == productID {
			return &o.Items[i]
		}
	}
	return nil
}

// SetShippingAddress replaces the destination address
func (o *Order) SetShippingAddress(address valueobject.Address) error {
	if err := o.ensureModifiable(); err != nil {
		return err
	}
	address = address.Normalize()
	if err := address.Validate(); err != nil {
		return shared.NewDomainError(shared.CodeValidation, err.Error())
	}
	o.ShippingAddress = address
	o.UpdatedAt = time.Now()
	return nil
}

// SetTrackingNumber records a tracking number entered by hand
func (o *Order) SetTrackingNumber(trackingNumber string) error {
	if err := o.ensureModifiable(); err != nil {
		return err
	}
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		o.TrackingNumber = nil
	} else {
		o.TrackingNumber = &trackingNumber
	}
	o.UpdatedAt = time.Now()
	return nil
}

// TransitionTo moves the order to target following the lifecycle rules.
// FULFILLED is reachable only through Fulfill.
func (o *Order) TransitionTo(target OrderStatus) error {
	if !target.IsValid() {
		return shared.NewDomainError(shared.CodeValidation, "Unknown order status").
			WithDetail("status", string(target))
	}
	if target == OrderStatusFulfilled {
		return shared.NewDomainError(shared.CodeInvalidState, "Orders are fulfilled through the fulfillment workflow")
	}
	if target == OrderStatusCancelled {
		return o.Cancel()
	}
	if !o.Status.CanTransitionTo(target) {
		return shared.NewDomainError(shared.CodeInvalidState, "Order cannot move from "+o.Status.String()+" to "+target.String())
	}
	o.Status = target
	o.UpdatedAt = time.Now()
	return nil
}

// Cancel moves a non-terminal order to CANCELLED
func (o *Order) Cancel() error {
	if o.Status.IsTerminal() {
		return shared.NewDomainError(shared.CodeInvalidState, "Order is already "+o.Status.String())
	}
	o.Status = OrderStatusCancelled
	o.UpdatedAt = time.Now()
	o.AddDomainEvent(NewOrderCancelledEvent(o))
	return nil
}

// CanFulfill checks the status precondition of fulfillment
func (o *Order) CanFulfill() error {
	if o.Status.IsTerminal() {
		return shared.NewDomainError(shared.CodeInvalidState, "Order is already "+o.Status.String())
	}
	if len(o.Items) == 0 {
		return shared.NewDomainError(shared.CodeInvalidState, "Order has no items")
	}
	return nil
}

// Fulfill marks the order as shipped out with the given tracking number
func (o *Order) Fulfill(trackingNumber string, at time.Time) error {
	if err := o.CanFulfill(); err != nil {
		return err
	}
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return shared.NewDomainError(shared.CodeValidation, "Tracking number is required to fulfill an order")
	}
	o.Status = OrderStatusFulfilled
	o.TrackingNumber = &trackingNumber
	o.FulfilledAt = &at
	o.UpdatedAt = at
	o.AddDomainEvent(NewOrderFulfilledEvent(o))
	return nil
}

// AttachLabel stores the carrier shipment generated for the order
func (o *Order) AttachLabel(trackingNumber, shipmentID, labelURL string) {
	o.TrackingNumber = optional(trackingNumber)
	o.ShipmentID = optional(shipmentID)
	o.LabelURL = optional(labelURL)
	o.UpdatedAt = time.Now()
}

// ClearLabel removes carrier shipment data after a cancellation.
// The next label is booked under a new key.
func (o *Order) ClearLabel() {
	o.TrackingNumber = nil
	o.ShipmentID = nil
	o.LabelURL = nil
	o.LabelGeneration++
	o.UpdatedAt = time.Now()
}

// LabelKey identifies the current label attempt to the carrier.
// Retries of a failed booking share it; a cancelled shipment never comes back under it.
func (o *Order) LabelKey() string {
	if o.LabelGeneration == 0 {
		return o.ID.String()
	}
	return fmt.Sprintf("%s-%d", o.ID, o.LabelGeneration)
}

// HasLabel reports whether a carrier shipment exists for the order
func (o *Order) HasLabel() bool {
	return o.ShipmentID != nil && *o.ShipmentID != "" && o.TrackingNumber != nil && *o.TrackingNumber != ""
}

// MarkCreated records the creation event once the lines are in place
func (o *Order) MarkCreated() {
	o.AddDomainEvent(NewOrderCreatedEvent(o))
}

// MarkDeleted records the deletion event before the rows are removed
func (o *Order) MarkDeleted() {
	o.AddDomainEvent(NewOrderDeletedEvent(o))
}

// CanModify reports whether lines and address may still change
func (o *Order) CanModify() bool {
	return !o.Status.IsTerminal()
}

// TotalQuantity returns the number of units across lines
func (o *Order) TotalQuantity() int {
	total := 0
	for _, item := range o.Items {
		total += item.Quantity
	}
	return total
}

func (o *Order) ensureModifiable() error {
	if !o.CanModify() {
		return shared.NewDomainError(shared.CodeInvalidState, "Order is "+o.Status.String()+" and can no longer be modified")
	}
	return nil
}

func (o *Order) recalculateTotal() {
	total := decimal.Zero
	for i := range o.Items {
		total = total.Add(o.Items[i].LineTotal())
	}
	o.TotalAmount = total.Round(2)
	o.UpdatedAt = time.Now()
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// ParcelWeight returns the shipping weight of the order given per-unit product
// weights. Products without a known weight count as fallback per unit.
func (o *Order) ParcelWeight(unitWeights map[uuid.UUID]decimal.Decimal, fallback decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		weight, ok := unitWeights[item.ProductID]
		if !ok || !weight.IsPositive() {
			weight = fallback
		}
		total = total.Add(weight.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	if !total.IsPositive() {
		return fallback
	}
	return total.Round(3)
}

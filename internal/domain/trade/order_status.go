package trade

// OrderStatus represents the lifecycle status of an order
type OrderStatus string

const (
	OrderStatusPending     OrderStatus = "PENDING"
	OrderStatusProcessing  OrderStatus = "PROCESSING"
	OrderStatusFulfilled   OrderStatus = "FULFILLED"
	OrderStatusCancelled   OrderStatus = "CANCELLED"
	OrderStatusOnHold      OrderStatus = "ON_HOLD"
	OrderStatusBackordered OrderStatus = "BACKORDERED"
)

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusFulfilled,
		OrderStatusCancelled, OrderStatusOnHold, OrderStatusBackordered:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is possible
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusFulfilled || s == OrderStatusCancelled
}

// CanTransitionTo checks if the status can transition to the target status
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	if s.IsTerminal() || !target.IsValid() || s == target {
		return false
	}
	if target == OrderStatusCancelled {
		return true
	}
	switch s {
	case OrderStatusPending:
		return target == OrderStatusProcessing || target == OrderStatusOnHold || target == OrderStatusBackordered
	case OrderStatusProcessing:
		return target == OrderStatusFulfilled || target == OrderStatusOnHold
	case OrderStatusOnHold, OrderStatusBackordered:
		return target == OrderStatusPending || target == OrderStatusProcessing
	}
	return false
}

package enums

import "fmt"

// OrderStatus tracks the derived lifecycle of an order. It is recomputed from
// the order's item statuses and never written directly by callers.
type OrderStatus string

const (
	OrderStatusPlaced             OrderStatus = "placed"
	OrderStatusProcessing         OrderStatus = "processing"
	OrderStatusPartiallyAccepted  OrderStatus = "partially_accepted"
	OrderStatusPreparing          OrderStatus = "preparing"
	OrderStatusOutForDelivery     OrderStatus = "out_for_delivery"
	OrderStatusDelivered          OrderStatus = "delivered"
	OrderStatusPartiallyDelivered OrderStatus = "partially_delivered"
	OrderStatusUnfulfillable      OrderStatus = "unfulfillable"
	OrderStatusCanceled           OrderStatus = "canceled"
	OrderStatusFailed             OrderStatus = "failed"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPlaced,
	OrderStatusProcessing,
	OrderStatusPartiallyAccepted,
	OrderStatusPreparing,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
	OrderStatusPartiallyDelivered,
	OrderStatusUnfulfillable,
	OrderStatusCanceled,
	OrderStatusFailed,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the order can no longer change state.
func (o OrderStatus) IsTerminal() bool {
	switch o {
	case OrderStatusDelivered, OrderStatusPartiallyDelivered,
		OrderStatusUnfulfillable, OrderStatusCanceled, OrderStatusFailed:
		return true
	}
	return false
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

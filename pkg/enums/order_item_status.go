package enums

import "fmt"

// OrderItemStatus tracks the acceptance and fulfillment state for a single
// order item.
type OrderItemStatus string

const (
	OrderItemStatusPending        OrderItemStatus = "pending"
	OrderItemStatusAccepted       OrderItemStatus = "accepted"
	OrderItemStatusRejected       OrderItemStatus = "rejected"
	OrderItemStatusPreparing      OrderItemStatus = "preparing"
	OrderItemStatusOutForDelivery OrderItemStatus = "out_for_delivery"
	OrderItemStatusDelivered      OrderItemStatus = "delivered"
	OrderItemStatusUnfulfillable  OrderItemStatus = "unfulfillable"
	OrderItemStatusCanceled       OrderItemStatus = "canceled"
)

var validOrderItemStatuses = []OrderItemStatus{
	OrderItemStatusPending,
	OrderItemStatusAccepted,
	OrderItemStatusRejected,
	OrderItemStatusPreparing,
	OrderItemStatusOutForDelivery,
	OrderItemStatusDelivered,
	OrderItemStatusUnfulfillable,
	OrderItemStatusCanceled,
}

// orderItemSuccessors encodes the forward edges of the item sub-machine.
// Any non-terminal state may additionally move to unfulfillable or canceled.
var orderItemSuccessors = map[OrderItemStatus][]OrderItemStatus{
	OrderItemStatusPending:        {OrderItemStatusAccepted, OrderItemStatusRejected},
	OrderItemStatusAccepted:       {OrderItemStatusPreparing},
	OrderItemStatusPreparing:      {OrderItemStatusOutForDelivery},
	OrderItemStatusOutForDelivery: {OrderItemStatusDelivered},
}

// String implements fmt.Stringer.
func (s OrderItemStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderItemStatus.
func (s OrderItemStatus) IsValid() bool {
	for _, candidate := range validOrderItemStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the item can no longer change state.
func (s OrderItemStatus) IsTerminal() bool {
	switch s {
	case OrderItemStatusRejected, OrderItemStatusDelivered,
		OrderItemStatusUnfulfillable, OrderItemStatusCanceled:
		return true
	}
	return false
}

// CanTransitionTo reports whether target is a legal direct successor of the
// current status. Items never move backward.
func (s OrderItemStatus) CanTransitionTo(target OrderItemStatus) bool {
	if s == target {
		return false
	}
	switch target {
	case OrderItemStatusUnfulfillable, OrderItemStatusCanceled:
		switch s {
		case OrderItemStatusDelivered, OrderItemStatusCanceled, OrderItemStatusUnfulfillable:
			return false
		}
		return true
	}
	for _, candidate := range orderItemSuccessors[s] {
		if candidate == target {
			return true
		}
	}
	return false
}

// ParseOrderItemStatus converts raw input into an OrderItemStatus.
func ParseOrderItemStatus(value string) (OrderItemStatus, error) {
	for _, candidate := range validOrderItemStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order item status %q", value)
}

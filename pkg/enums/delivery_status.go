package enums

import "fmt"

// DeliveryStatus tracks a delivery task from assignment through handoff.
type DeliveryStatus string

const (
	DeliveryStatusAssigned       DeliveryStatus = "assigned"
	DeliveryStatusAccepted       DeliveryStatus = "accepted"
	DeliveryStatusPicked         DeliveryStatus = "picked"
	DeliveryStatusOutForDelivery DeliveryStatus = "out_for_delivery"
	DeliveryStatusDelivered      DeliveryStatus = "delivered"
	DeliveryStatusFailed         DeliveryStatus = "failed"
)

var validDeliveryStatuses = []DeliveryStatus{
	DeliveryStatusAssigned,
	DeliveryStatusAccepted,
	DeliveryStatusPicked,
	DeliveryStatusOutForDelivery,
	DeliveryStatusDelivered,
	DeliveryStatusFailed,
}

// deliverySuccessors encodes the linear chain of the delivery machine.
var deliverySuccessors = map[DeliveryStatus]DeliveryStatus{
	DeliveryStatusAssigned:       DeliveryStatusAccepted,
	DeliveryStatusAccepted:       DeliveryStatusPicked,
	DeliveryStatusPicked:         DeliveryStatusOutForDelivery,
	DeliveryStatusOutForDelivery: DeliveryStatusDelivered,
}

// String implements fmt.Stringer.
func (d DeliveryStatus) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DeliveryStatus.
func (d DeliveryStatus) IsValid() bool {
	for _, candidate := range validDeliveryStatuses {
		if candidate == d {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the delivery can no longer change state.
func (d DeliveryStatus) IsTerminal() bool {
	return d == DeliveryStatusDelivered || d == DeliveryStatusFailed
}

// CanTransitionTo reports whether target is the legal next state. The chain is
// strictly linear; failed is reachable from any non-terminal state.
func (d DeliveryStatus) CanTransitionTo(target DeliveryStatus) bool {
	if target == DeliveryStatusFailed {
		return !d.IsTerminal()
	}
	return deliverySuccessors[d] == target
}

// ParseDeliveryStatus converts raw input into a DeliveryStatus.
func ParseDeliveryStatus(value string) (DeliveryStatus, error) {
	for _, candidate := range validDeliveryStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery status %q", value)
}

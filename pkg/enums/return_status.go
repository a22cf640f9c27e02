package enums

import "fmt"

// ReturnStatus tracks a return request from submission through refund.
type ReturnStatus string

const (
	ReturnStatusRequested       ReturnStatus = "requested"
	ReturnStatusApproved        ReturnStatus = "approved"
	ReturnStatusRejected        ReturnStatus = "rejected"
	ReturnStatusPickupScheduled ReturnStatus = "pickup_scheduled"
	ReturnStatusPickedUp        ReturnStatus = "picked_up"
	ReturnStatusCompleted       ReturnStatus = "completed"
)

var validReturnStatuses = []ReturnStatus{
	ReturnStatusRequested,
	ReturnStatusApproved,
	ReturnStatusRejected,
	ReturnStatusPickupScheduled,
	ReturnStatusPickedUp,
	ReturnStatusCompleted,
}

var returnSuccessors = map[ReturnStatus][]ReturnStatus{
	ReturnStatusRequested:       {ReturnStatusApproved, ReturnStatusRejected},
	ReturnStatusApproved:        {ReturnStatusPickupScheduled},
	ReturnStatusPickupScheduled: {ReturnStatusPickedUp},
	ReturnStatusPickedUp:        {ReturnStatusCompleted},
}

// String implements fmt.Stringer.
func (r ReturnStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReturnStatus.
func (r ReturnStatus) IsValid() bool {
	for _, candidate := range validReturnStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the return can no longer change state.
func (r ReturnStatus) IsTerminal() bool {
	return r == ReturnStatusRejected || r == ReturnStatusCompleted
}

// CanTransitionTo reports whether target is a legal direct successor.
func (r ReturnStatus) CanTransitionTo(target ReturnStatus) bool {
	for _, candidate := range returnSuccessors[r] {
		if candidate == target {
			return true
		}
	}
	return false
}

// ParseReturnStatus converts raw input into a ReturnStatus.
func ParseReturnStatus(value string) (ReturnStatus, error) {
	for _, candidate := range validReturnStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid return status %q", value)
}

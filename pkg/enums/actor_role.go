package enums

import "fmt"

// ActorRole identifies who is invoking an operation, as asserted by the
// external identity provider.
type ActorRole string

const (
	ActorRoleAdmin           ActorRole = "admin"
	ActorRoleVendor          ActorRole = "vendor"
	ActorRoleDeliveryPartner ActorRole = "delivery_partner"
	ActorRoleCustomer        ActorRole = "customer"
)

var validActorRoles = []ActorRole{
	ActorRoleAdmin,
	ActorRoleVendor,
	ActorRoleDeliveryPartner,
	ActorRoleCustomer,
}

// String implements fmt.Stringer.
func (r ActorRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ActorRole.
func (r ActorRole) IsValid() bool {
	for _, candidate := range validActorRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseActorRole converts raw input into an ActorRole.
func ParseActorRole(value string) (ActorRole, error) {
	for _, candidate := range validActorRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}

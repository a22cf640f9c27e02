package deliveries

import (
	"time"

	"github.com/google/uuid"

	"github.com/sabzico/fulfillment-backend/pkg/enums"
)

// DeliverySummary exposes one delivery task in a partner's queue.
type DeliverySummary struct {
	ID              uuid.UUID            `json:"id"`
	OrderID         uuid.UUID            `json:"order_id"`
	VendorID        uuid.UUID            `json:"vendor_id"`
	PickupAddress   string               `json:"pickup_address"`
	DeliveryAddress string               `json:"delivery_address"`
	Status          enums.DeliveryStatus `json:"status"`
	CreatedAt       time.Time            `json:"created_at"`
	DeliveredAt     *time.Time           `json:"delivered_at,omitempty"`
}

// DeliveryList wraps paginated deliveries plus the next cursor.
type DeliveryList struct {
	Deliveries []DeliverySummary `json:"deliveries"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

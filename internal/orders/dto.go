package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/sabzico/fulfillment-backend/pkg/enums"
)

// OrderSummary exposes the aggregated fields returned in the customer list.
type OrderSummary struct {
	ID          uuid.UUID         `json:"id"`
	Status      enums.OrderStatus `json:"status"`
	TotalPaise  int64             `json:"total_paise"`
	TotalItems  int               `json:"total_items"`
	CreatedAt   time.Time         `json:"created_at"`
	DeliveredAt *time.Time        `json:"delivered_at,omitempty"`
}

// OrderList wraps the paginated orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// VendorItemSummary exposes one order item in a vendor's work queue.
type VendorItemSummary struct {
	ItemID         uuid.UUID             `json:"item_id"`
	OrderID        uuid.UUID             `json:"order_id"`
	Name           string                `json:"name"`
	Qty            int                   `json:"qty"`
	UnitPricePaise int64                 `json:"unit_price_paise"`
	TotalPaise     int64                 `json:"total_paise"`
	Status         enums.OrderItemStatus `json:"status"`
	CreatedAt      time.Time             `json:"created_at"`
}

// VendorItemList wraps paginated vendor items plus the next cursor.
type VendorItemList struct {
	Items      []VendorItemSummary `json:"items"`
	NextCursor string              `json:"next_cursor,omitempty"`
}

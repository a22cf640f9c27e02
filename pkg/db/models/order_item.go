package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sabzico/fulfillment-backend/pkg/enums"
)

// OrderItem captures the snapshot of one item within an order. Each item
// belongs to exactly one vendor and carries its own status sub-machine.
type OrderItem struct {
	ID             uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID             `gorm:"column:order_id;type:uuid;not null"`
	VendorID       uuid.UUID             `gorm:"column:vendor_id;type:uuid;not null"`
	ProductID      *uuid.UUID            `gorm:"column:product_id;type:uuid"`
	Name           string                `gorm:"column:name;not null"`
	Qty            int                   `gorm:"column:qty;not null"`
	ReturnedQty    int                   `gorm:"column:returned_qty;not null;default:0"`
	UnitPricePaise int64                 `gorm:"column:unit_price_paise;not null"`
	TotalPaise     int64                 `gorm:"column:total_paise;not null"`
	Status         enums.OrderItemStatus `gorm:"column:status;type:order_item_status;not null;default:'pending'"`
	CreatedAt      time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// RemainingReturnableQty reports how many units can still be returned.
func (i OrderItem) RemainingReturnableQty() int {
	remaining := i.Qty - i.ReturnedQty
	if remaining < 0 {
		return 0
	}
	return remaining
}

package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sabzico/fulfillment-backend/pkg/enums"
)

// Order is the customer-facing aggregate root. Its status is derived from the
// item statuses and the monetary fields are fixed at checkout.
type Order struct {
	ID                uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID        uuid.UUID         `gorm:"column:customer_id;type:uuid;not null"`
	Status            enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'placed'"`
	SubtotalPaise     int64             `gorm:"column:subtotal_paise;not null"`
	DiscountPaise     int64             `gorm:"column:discount_paise;not null;default:0"`
	DeliveryFeePaise  int64             `gorm:"column:delivery_fee_paise;not null;default:0"`
	WalletUsedPaise   int64             `gorm:"column:wallet_used_paise;not null;default:0"`
	TotalPaise        int64             `gorm:"column:total_paise;not null"`
	DeliveryAddressID uuid.UUID         `gorm:"column:delivery_address_id;type:uuid;not null"`
	Items             []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CanceledAt        *time.Time        `gorm:"column:canceled_at"`
	DeliveredAt       *time.Time        `gorm:"column:delivered_at"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sabzico/fulfillment-backend/pkg/enums"
)

// Delivery binds a vendor-fulfilled subset of an order's items to a single
// handoff. The OTP is generated at creation and never rotated.
type Delivery struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID            `gorm:"column:order_id;type:uuid;not null"`
	VendorID        uuid.UUID            `gorm:"column:vendor_id;type:uuid;not null"`
	PartnerID       *uuid.UUID           `gorm:"column:partner_id;type:uuid"`
	PickupAddress   string               `gorm:"column:pickup_address;not null"`
	DeliveryAddress string               `gorm:"column:delivery_address;not null"`
	OtpCode         string               `gorm:"column:otp_code;type:char(4);not null"`
	Status          enums.DeliveryStatus `gorm:"column:status;type:delivery_status;not null;default:'assigned'"`
	Items           []DeliveryItem       `gorm:"foreignKey:DeliveryID;constraint:OnDelete:CASCADE"`
	AcceptedAt      *time.Time           `gorm:"column:accepted_at"`
	PickedAt        *time.Time           `gorm:"column:picked_at"`
	DeliveredAt     *time.Time           `gorm:"column:delivered_at"`
	FailedAt        *time.Time           `gorm:"column:failed_at"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// DeliveryItem joins a delivery to one of the order items it carries.
type DeliveryItem struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DeliveryID  uuid.UUID `gorm:"column:delivery_id;type:uuid;not null"`
	OrderItemID uuid.UUID `gorm:"column:order_item_id;type:uuid;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

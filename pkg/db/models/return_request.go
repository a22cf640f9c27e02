package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sabzico/fulfillment-backend/pkg/enums"
)

// ReturnRequest tracks a customer return from request through refund.
// The pickup OTP is generated on vendor approval, not at request time.
type ReturnRequest struct {
	ID                uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID           uuid.UUID          `gorm:"column:order_id;type:uuid;not null"`
	VendorID          uuid.UUID          `gorm:"column:vendor_id;type:uuid;not null"`
	RequestedBy       uuid.UUID          `gorm:"column:requested_by;type:uuid;not null"`
	Reason            string             `gorm:"column:reason;not null"`
	RejectReason      *string            `gorm:"column:reject_reason"`
	RefundAmountPaise int64              `gorm:"column:refund_amount_paise;not null;default:0"`
	Status            enums.ReturnStatus `gorm:"column:status;type:return_status;not null;default:'requested'"`
	PickupOtp         *string            `gorm:"column:pickup_otp;type:char(4)"`
	PartnerID         *uuid.UUID         `gorm:"column:partner_id;type:uuid"`
	Items             []ReturnItem       `gorm:"foreignKey:ReturnID;constraint:OnDelete:CASCADE"`
	ApprovedAt        *time.Time         `gorm:"column:approved_at"`
	PickedUpAt        *time.Time         `gorm:"column:picked_up_at"`
	CompletedAt       *time.Time         `gorm:"column:completed_at"`
	CreatedAt         time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// ReturnItem links a return to an order item with the quantity being sent back.
type ReturnItem struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ReturnID    uuid.UUID `gorm:"column:return_id;type:uuid;not null"`
	OrderItemID uuid.UUID `gorm:"column:order_item_id;type:uuid;not null"`
	Qty         int       `gorm:"column:qty;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

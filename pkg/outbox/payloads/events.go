// Package payloads declares the typed event bodies carried inside outbox
// envelopes. Field names are part of the wire contract with consumers.
package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/sabzico/fulfillment-backend/pkg/enums"
)

// OrderStateChangedEvent announces a recomputed order status.
type OrderStateChangedEvent struct {
	OrderID    uuid.UUID         `json:"orderId"`
	CustomerID uuid.UUID         `json:"customerId"`
	OldStatus  enums.OrderStatus `json:"oldStatus"`
	NewStatus  enums.OrderStatus `json:"newStatus"`
}

// OrderItemStateChangedEvent announces a single item transition.
type OrderItemStateChangedEvent struct {
	OrderID   uuid.UUID             `json:"orderId"`
	ItemID    uuid.UUID             `json:"itemId"`
	VendorID  uuid.UUID             `json:"vendorId"`
	OldStatus enums.OrderItemStatus `json:"oldStatus"`
	NewStatus enums.OrderItemStatus `json:"newStatus"`
}

// OrderCanceledEvent announces a whole-order cancellation.
type OrderCanceledEvent struct {
	OrderID    uuid.UUID `json:"orderId"`
	CustomerID uuid.UUID `json:"customerId"`
	CanceledBy uuid.UUID `json:"canceledBy"`
	Role       string    `json:"role"`
}

// OrderDeliveredEvent fires when an order reaches delivered or
// partially_delivered. The worker evaluates referral conversion off it.
type OrderDeliveredEvent struct {
	OrderID    uuid.UUID         `json:"orderId"`
	CustomerID uuid.UUID         `json:"customerId"`
	Status     enums.OrderStatus `json:"status"`
	TotalPaise int64             `json:"totalPaise"`
}

// DeliveryCreatedEvent announces a new vendor-subset delivery task.
type DeliveryCreatedEvent struct {
	DeliveryID uuid.UUID   `json:"deliveryId"`
	OrderID    uuid.UUID   `json:"orderId"`
	VendorID   uuid.UUID   `json:"vendorId"`
	ItemIDs    []uuid.UUID `json:"itemIds"`
}

// DeliveryPartnerAssignedEvent announces partner binding.
type DeliveryPartnerAssignedEvent struct {
	DeliveryID uuid.UUID `json:"deliveryId"`
	PartnerID  uuid.UUID `json:"partnerId"`
}

// DeliveryStateChangedEvent announces a delivery transition.
type DeliveryStateChangedEvent struct {
	DeliveryID uuid.UUID            `json:"deliveryId"`
	OrderID    uuid.UUID            `json:"orderId"`
	OldStatus  enums.DeliveryStatus `json:"oldStatus"`
	NewStatus  enums.DeliveryStatus `json:"newStatus"`
}

// DeliveryCompletedEvent fires on successful OTP handoff.
type DeliveryCompletedEvent struct {
	DeliveryID  uuid.UUID `json:"deliveryId"`
	OrderID     uuid.UUID `json:"orderId"`
	DeliveredAt time.Time `json:"deliveredAt"`
}

// ReturnRequestedEvent announces a new return awaiting vendor decision.
type ReturnRequestedEvent struct {
	ReturnID uuid.UUID `json:"returnId"`
	OrderID  uuid.UUID `json:"orderId"`
	VendorID uuid.UUID `json:"vendorId"`
}

// ReturnStateChangedEvent announces a return transition.
type ReturnStateChangedEvent struct {
	ReturnID  uuid.UUID          `json:"returnId"`
	OrderID   uuid.UUID          `json:"orderId"`
	OldStatus enums.ReturnStatus `json:"oldStatus"`
	NewStatus enums.ReturnStatus `json:"newStatus"`
}

// RefundIssuedEvent fires exactly once per completed return.
type RefundIssuedEvent struct {
	ReturnID    uuid.UUID `json:"returnId"`
	OrderID     uuid.UUID `json:"orderId"`
	UserID      uuid.UUID `json:"userId"`
	AmountPaise int64     `json:"amountPaise"`
}

// WalletMovementEvent is shared by wallet_credited and wallet_debited.
type WalletMovementEvent struct {
	TransactionID     uuid.UUID          `json:"transactionId"`
	UserID            uuid.UUID          `json:"userId"`
	WalletType        enums.WalletType   `json:"walletType"`
	Kind              enums.WalletTxKind `json:"kind"`
	AmountPaise       int64              `json:"amountPaise"`
	BalanceAfterPaise int64              `json:"balanceAfterPaise"`
	OrderID           *uuid.UUID         `json:"orderId,omitempty"`
	ReturnID          *uuid.UUID         `json:"returnId,omitempty"`
}

// ReferralConvertedEvent fires when a referral reward is credited.
type ReferralConvertedEvent struct {
	ConversionID uuid.UUID `json:"conversionId"`
	ReferrerID   uuid.UUID `json:"referrerId"`
	RefereeID    uuid.UUID `json:"refereeId"`
	OrderID      uuid.UUID `json:"orderId"`
	RewardPaise  int64     `json:"rewardPaise"`
}

// ReferralConversionFailedEvent records the terminal failure of an attempt.
type ReferralConversionFailedEvent struct {
	ConversionID  uuid.UUID `json:"conversionId"`
	ReferrerID    uuid.UUID `json:"referrerId"`
	RefereeID     uuid.UUID `json:"refereeId"`
	OrderID       uuid.UUID `json:"orderId"`
	FailureReason string    `json:"failureReason"`
}

// NotificationRequestedEvent asks the notification consumer to persist and
// fan out an in-app notification.
type NotificationRequestedEvent struct {
	UserID  uuid.UUID              `json:"userId"`
	Type    enums.NotificationType `json:"type"`
	Title   string                 `json:"title"`
	Message string                 `json:"message"`
	Link    *string                `json:"link,omitempty"`
}

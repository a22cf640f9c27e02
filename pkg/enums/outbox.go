package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder              OutboxAggregateType = "order"
	AggregateOrderItem          OutboxAggregateType = "order_item"
	AggregateDelivery           OutboxAggregateType = "delivery"
	AggregateReturn             OutboxAggregateType = "return"
	AggregateWalletTransaction  OutboxAggregateType = "wallet_transaction"
	AggregateReferralConversion OutboxAggregateType = "referral_conversion"
	AggregateNotification       OutboxAggregateType = "notification"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateOrderItem,
	AggregateDelivery,
	AggregateReturn,
	AggregateWalletTransaction,
	AggregateReferralConversion,
	AggregateNotification,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderStateChanged        OutboxEventType = "order_state_changed"
	EventOrderItemStateChanged    OutboxEventType = "order_item_state_changed"
	EventOrderCanceled            OutboxEventType = "order_canceled"
	EventOrderDelivered           OutboxEventType = "order_delivered"
	EventDeliveryCreated          OutboxEventType = "delivery_created"
	EventDeliveryPartnerAssigned  OutboxEventType = "delivery_partner_assigned"
	EventDeliveryStateChanged     OutboxEventType = "delivery_state_changed"
	EventDeliveryCompleted        OutboxEventType = "delivery_completed"
	EventReturnRequested          OutboxEventType = "return_requested"
	EventReturnStateChanged       OutboxEventType = "return_state_changed"
	EventRefundIssued             OutboxEventType = "refund_issued"
	EventWalletCredited           OutboxEventType = "wallet_credited"
	EventWalletDebited            OutboxEventType = "wallet_debited"
	EventReferralConverted        OutboxEventType = "referral_converted"
	EventReferralConversionFailed OutboxEventType = "referral_conversion_failed"
	EventNotificationRequested    OutboxEventType = "notification_requested"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderStateChanged,
	EventOrderItemStateChanged,
	EventOrderCanceled,
	EventOrderDelivered,
	EventDeliveryCreated,
	EventDeliveryPartnerAssigned,
	EventDeliveryStateChanged,
	EventDeliveryCompleted,
	EventReturnRequested,
	EventReturnStateChanged,
	EventRefundIssued,
	EventWalletCredited,
	EventWalletDebited,
	EventReferralConverted,
	EventReferralConversionFailed,
	EventNotificationRequested,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

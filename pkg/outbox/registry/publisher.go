package registry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/sabzico/fulfillment-backend/pkg/config"
	"github.com/sabzico/fulfillment-backend/pkg/db/models"
	"github.com/sabzico/fulfillment-backend/pkg/enums"
	"github.com/sabzico/fulfillment-backend/pkg/outbox"
	"github.com/sabzico/fulfillment-backend/pkg/outbox/payloads"
)

// EventDescriptor links an event type to its aggregate/topic/payload schema.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() interface{}
}

// ResolvedEvent is the result of decoding an outbox row.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    interface{}
}

// EventRegistry maps each supported event type to its descriptor.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError signals the dispatcher should stop retrying a row.
type NonRetryableError struct {
	Err error
}

// Error implements error.
func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

// Unwrap exposes the wrapped error.
func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewEventRegistry builds the registry with the configured topic names.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.FulfillmentTopic == "" {
		return nil, fmt.Errorf("fulfillment topic is required")
	}
	if cfg.NotificationTopic == "" {
		return nil, fmt.Errorf("notification topic is required")
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}
	fulfillmentTopic := cfg.FulfillmentTopic
	notificationTopic := cfg.NotificationTopic

	for _, desc := range []EventDescriptor{
		{
			EventType:      enums.EventOrderStateChanged,
			AggregateType:  enums.AggregateOrder,
			Topic:          fulfillmentTopic,
			PayloadFactory: func() interface{} { return &payloads.OrderStateChangedEvent{} },
		},
		{
			EventType:      enums.EventOrderItemStateChanged,
			AggregateType:  enums.AggregateOrderItem,
			Topic:          fulfillmentTopic,
			PayloadFactory: func() interface{} { return &payloads.OrderItemStateChangedEvent{} },
		},
		{
			EventType:      enums.EventOrderCanceled,
			AggregateType:  enums.AggregateOrder,
			Topic:          fulfillmentTopic,
			PayloadFactory: func() interface{} { return &payloads.OrderCanceledEvent{} },
		},
		{
			EventType:      enums.EventOrderDelivered,
			AggregateType:  enums.AggregateOrder,
			Topic:          fulfillmentTopic,
			PayloadFactory: func() interface{} { return &payloads.OrderDeliveredEvent{} },
		},
		{
			EventType:      enums.EventDeliveryCreated,
			AggregateType:  enums.AggregateDelivery,
			Topic:          fulfillmentTopic,
			PayloadFactory: func() interface{} { return &payloads.DeliveryCreatedEvent{} },
		},
		{
			EventType:      enums.EventDeliveryPartnerAssigned,
			AggregateType:  enums.AggregateDelivery,
			Topic:          fulfillmentTopic,
			PayloadFactory: func() interface{} { return &payloads.DeliveryPartnerAssignedEvent{} },
		},
		{
			EventType:      enums.EventDeliveryStateChanged,
			AggregateType:  enums.AggregateDelivery,
			Topic:          fulfillmentTopic,
			PayloadFactory: func() interface{} { return &payloads.DeliveryStateChangedEvent{} },
		},
		{
			EventType:      enums.EventDeliveryCompleted,
			AggregateType:  enums.AggregateDelivery,
			Topic:          fulfillmentTopic,
			PayloadFactory: func() interface{} { return &payloads.DeliveryCompletedEvent{} },
		},
		{
			EventType:      enums.EventReturnRequested,
			AggregateType:  enums.AggregateReturn,
			Topic:          fulfillmentTopic,
			PayloadFactory: func() interface{} { return &payloads.ReturnRequestedEvent{} },
		},
		{
			EventType:      enums.EventReturnStateChanged,
			AggregateType:  enums.AggregateReturn,
			Topic:          fulfillmentTopic,
			PayloadFactory: func() interface{} { return &payloads.ReturnStateChangedEvent{} },
		},
		{
			EventType:      enums.EventRefundIssued,
			AggregateType:  enums.AggregateReturn,
			Topic:          fulfillmentTopic,
			PayloadFactory: func() interface{} { return &payloads.RefundIssuedEvent{} },
		},
		{
			EventType:      enums.EventWalletCredited,
			AggregateType:  enums.AggregateWalletTransaction,
			Topic:          fulfillmentTopic,
			PayloadFactory: func() interface{} { return &payloads.WalletMovementEvent{} },
		},
		{
			EventType:      enums.EventWalletDebited,
			AggregateType:  enums.AggregateWalletTransaction,
			Topic:          fulfillmentTopic,
			PayloadFactory: func() interface{} { return &payloads.WalletMovementEvent{} },
		},
		{
			EventType:      enums.EventReferralConverted,
			AggregateType:  enums.AggregateReferralConversion,
			Topic:          fulfillmentTopic,
			PayloadFactory: func() interface{} { return &payloads.ReferralConvertedEvent{} },
		},
		{
			EventType:      enums.EventReferralConversionFailed,
			AggregateType:  enums.AggregateReferralConversion,
			Topic:          fulfillmentTopic,
			PayloadFactory: func() interface{} { return &payloads.ReferralConversionFailedEvent{} },
		},
	} {
		reg.register(desc)
	}

	reg.register(EventDescriptor{
		EventType:      enums.EventNotificationRequested,
		AggregateType:  enums.AggregateNotification,
		Topic:          notificationTopic,
		PayloadFactory: func() interface{} { return &payloads.NotificationRequestedEvent{} },
	})

	return reg, nil
}

func (r *EventRegistry) register(desc EventDescriptor) {
	if desc.PayloadFactory == nil {
		return
	}
	r.entries[desc.EventType] = desc
}

// Resolve validates the row and decodes its typed payload.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	}
	if desc.AggregateType != event.AggregateType {
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType))
	}
	if event.AggregateID == uuid.Nil {
		return nil, NewNonRetryableError(fmt.Errorf("missing aggregate_id"))
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}

	trimmed := bytes.TrimSpace(envelope.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, NewNonRetryableError(fmt.Errorf("payload missing for %s", event.EventType))
	}

	payload := desc.PayloadFactory()
	if payload == nil {
		return nil, NewNonRetryableError(fmt.Errorf("payload factory not configured for %s", event.EventType))
	}
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}

	return &ResolvedEvent{
		Descriptor: desc,
		Envelope:   envelope,
		Payload:    payload,
	}, nil
}

// NewNonRetryableError wraps an error to signal no retries.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

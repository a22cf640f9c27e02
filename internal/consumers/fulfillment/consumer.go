// Package fulfillment consumes published fulfillment events and drives the
// follow-up work that must not run inside the originating transaction:
// referral settlement and in-app notification fan-out.
package fulfillment

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/sabzico/fulfillment-backend/pkg/db/models"
	"github.com/sabzico/fulfillment-backend/pkg/enums"
	"github.com/sabzico/fulfillment-backend/pkg/logger"
	"github.com/sabzico/fulfillment-backend/pkg/outbox"
	"github.com/sabzico/fulfillment-backend/pkg/outbox/payloads"
	"github.com/sabzico/fulfillment-backend/pkg/outbox/registry"
)

const fulfillmentConsumerName = "fulfillment"

type referralEvaluator interface {
	EvaluateConversion(ctx context.Context, orderID uuid.UUID) error
}

type notificationCreator interface {
	Create(ctx context.Context, notification *models.Notification) error
}

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Consumer reacts to fulfillment events from the outbox publisher.
type Consumer struct {
	subscription  *pubsub.Subscriber
	referrals     referralEvaluator
	notifications notificationCreator
	decoders      *registry.DecoderRegistry
	idempotency   idempotencyChecker
	logg          *logger.Logger
}

// NewConsumer builds a fulfillment consumer and registers payload decoders
// for the event types it handles.
func NewConsumer(subscription *pubsub.Subscriber, referrals referralEvaluator, notifications notificationCreator, manager idempotencyChecker, logg *logger.Logger) (*Consumer, error) {
	if subscription == nil {
		return nil, fmt.Errorf("fulfillment subscription required")
	}
	if referrals == nil {
		return nil, fmt.Errorf("referral evaluator required")
	}
	if notifications == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}

	return &Consumer{
		subscription:  subscription,
		referrals:     referrals,
		notifications: notifications,
		decoders:      buildDecoders(),
		idempotency:   manager,
		logg:          logg,
	}, nil
}

func buildDecoders() *registry.DecoderRegistry {
	decoders := registry.NewDecoderRegistry()
	decoders.Register(enums.EventOrderDelivered, 1, func(payload json.RawMessage) (interface{}, error) {
		var decoded payloads.OrderDeliveredEvent
		return &decoded, json.Unmarshal(payload, &decoded)
	})
	decoders.Register(enums.EventOrderCanceled, 1, func(payload json.RawMessage) (interface{}, error) {
		var decoded payloads.OrderCanceledEvent
		return &decoded, json.Unmarshal(payload, &decoded)
	})
	decoders.Register(enums.EventRefundIssued, 1, func(payload json.RawMessage) (interface{}, error) {
		var decoded payloads.RefundIssuedEvent
		return &decoded, json.Unmarshal(payload, &decoded)
	})
	decoders.Register(enums.EventReferralConverted, 1, func(payload json.RawMessage) (interface{}, error) {
		var decoded payloads.ReferralConvertedEvent
		return &decoded, json.Unmarshal(payload, &decoded)
	})
	return decoders
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

var handledEvents = map[enums.OutboxEventType]struct{}{
	enums.EventOrderDelivered:    {},
	enums.EventOrderCanceled:     {},
	enums.EventRefundIssued:      {},
	enums.EventReferralConverted: {},
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if _, ok := handledEvents[eventType]; !ok {
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, fulfillmentConsumerName, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	payload, err := c.decoders.Decode(eventType, envelope.Version, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode payload", err)
		_ = c.idempotency.Delete(ctx, fulfillmentConsumerName, eventID)
		return processResult{nack: true}
	}

	if err := c.handle(ctx, eventType, payload, logCtx); err != nil {
		c.logg.Error(logCtx, "event handling failed", err)
		_ = c.idempotency.Delete(ctx, fulfillmentConsumerName, eventID)
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

func (c *Consumer) handle(ctx context.Context, eventType enums.OutboxEventType, payload interface{}, logCtx context.Context) error {
	switch decoded := payload.(type) {
	case *payloads.OrderDeliveredEvent:
		return c.handleOrderDelivered(ctx, decoded, logCtx)
	case *payloads.OrderCanceledEvent:
		return c.notify(ctx, decoded.CustomerID, enums.NotificationTypeOrderUpdate,
			"Order canceled",
			fmt.Sprintf("Your order %s has been canceled.", decoded.OrderID),
			orderLink(decoded.OrderID))
	case *payloads.RefundIssuedEvent:
		return c.notify(ctx, decoded.UserID, enums.NotificationTypeWalletUpdate,
			"Refund credited",
			fmt.Sprintf("A refund of %s was credited to your wallet.", formatRupees(decoded.AmountPaise)),
			orderLink(decoded.OrderID))
	case *payloads.ReferralConvertedEvent:
		return c.notify(ctx, decoded.ReferrerID, enums.NotificationTypeReferralReward,
			"Referral reward earned",
			fmt.Sprintf("You earned %s for a successful referral.", formatRupees(decoded.RewardPaise)),
			nil)
	default:
		return fmt.Errorf("no handler for %s", eventType)
	}
}

func (c *Consumer) handleOrderDelivered(ctx context.Context, payload *payloads.OrderDeliveredEvent, logCtx context.Context) error {
	// Referral settlement first: the notification is best-effort, the
	// settlement is not.
	if err := c.referrals.EvaluateConversion(ctx, payload.OrderID); err != nil {
		return fmt.Errorf("evaluate referral conversion: %w", err)
	}

	title := "Order delivered"
	message := fmt.Sprintf("Your order %s has been delivered.", payload.OrderID)
	if payload.Status == enums.OrderStatusPartiallyDelivered {
		title = "Order partially delivered"
		message = fmt.Sprintf("Part of your order %s has been delivered.", payload.OrderID)
	}
	if err := c.notify(ctx, payload.CustomerID, enums.NotificationTypeOrderUpdate, title, message, orderLink(payload.OrderID)); err != nil {
		c.logg.Error(logCtx, "delivered notification failed", err)
	}
	return nil
}

func (c *Consumer) notify(ctx context.Context, userID uuid.UUID, kind enums.NotificationType, title, message string, link *string) error {
	if userID == uuid.Nil {
		return fmt.Errorf("user id missing")
	}
	return c.notifications.Create(ctx, &models.Notification{
		UserID:  userID,
		Type:    kind,
		Title:   title,
		Message: message,
		Link:    link,
	})
}

func orderLink(orderID uuid.UUID) *string {
	link := fmt.Sprintf("/orders/%s", orderID)
	return &link
}

func formatRupees(paise int64) string {
	return fmt.Sprintf("₹%d.%02d", paise/100, paise%100)
}

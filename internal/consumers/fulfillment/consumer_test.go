package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/sabzico/fulfillment-backend/pkg/db/models"
	"github.com/sabzico/fulfillment-backend/pkg/enums"
	"github.com/sabzico/fulfillment-backend/pkg/logger"
	"github.com/sabzico/fulfillment-backend/pkg/outbox"
)

type fakeEvaluator struct {
	evaluated []uuid.UUID
	err       error
}

func (f *fakeEvaluator) EvaluateConversion(ctx context.Context, orderID uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	f.evaluated = append(f.evaluated, orderID)
	return nil
}

type fakeNotifications struct {
	created []models.Notification
	err     error
}

func (f *fakeNotifications) Create(ctx context.Context, notification *models.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, *notification)
	return nil
}

type fakeIdempotency struct {
	processed map[uuid.UUID]bool
	deleted   []uuid.UUID
	checkErr  error
}

func (f *fakeIdempotency) CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	if f.checkErr != nil {
		return false, f.checkErr
	}
	if f.processed == nil {
		f.processed = make(map[uuid.UUID]bool)
	}
	if f.processed[eventID] {
		return true, nil
	}
	f.processed[eventID] = true
	return false, nil
}

func (f *fakeIdempotency) Delete(ctx context.Context, consumer string, eventID uuid.UUID) error {
	f.deleted = append(f.deleted, eventID)
	delete(f.processed, eventID)
	return nil
}

func testConsumer(t *testing.T) (*Consumer, *fakeEvaluator, *fakeNotifications, *fakeIdempotency) {
	t.Helper()
	evaluator := &fakeEvaluator{}
	notifications := &fakeNotifications{}
	idem := &fakeIdempotency{}
	consumer := &Consumer{
		referrals:     evaluator,
		notifications: notifications,
		decoders:      buildDecoders(),
		idempotency:   idem,
		logg:          logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	}
	return consumer, evaluator, notifications, idem
}

func buildMessage(t *testing.T, eventType enums.OutboxEventType, payload any) *pubsub.Message {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	envelope := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
	raw, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return &pubsub.Message{
		Data:       raw,
		Attributes: map[string]string{"event_type": string(eventType)},
	}
}

func TestOrderDeliveredTriggersReferralEvaluation(t *testing.T) {
	consumer, evaluator, notifications, _ := testConsumer(t)
	orderID := uuid.New()
	customerID := uuid.New()

	msg := buildMessage(t, enums.EventOrderDelivered, map[string]any{
		"orderId":    orderID,
		"customerId": customerID,
		"status":     enums.OrderStatusDelivered,
		"totalPaise": 50000,
	})
	result := consumer.process(context.Background(), msg)
	if !result.ack || result.nack {
		t.Fatalf("expected ack got %+v", result)
	}
	if len(evaluator.evaluated) != 1 || evaluator.evaluated[0] != orderID {
		t.Fatalf("expected referral evaluation for %s got %v", orderID, evaluator.evaluated)
	}
	if len(notifications.created) != 1 || notifications.created[0].UserID != customerID {
		t.Fatalf("expected delivered notification for customer got %+v", notifications.created)
	}
	if notifications.created[0].Type != enums.NotificationTypeOrderUpdate {
		t.Fatalf("expected order_update notification got %s", notifications.created[0].Type)
	}
}

func TestReferralEvaluationFailureNacksAndReleasesKey(t *testing.T) {
	consumer, evaluator, _, idem := testConsumer(t)
	evaluator.err = errors.New("db down")

	msg := buildMessage(t, enums.EventOrderDelivered, map[string]any{
		"orderId":    uuid.New(),
		"customerId": uuid.New(),
		"status":     enums.OrderStatusDelivered,
	})
	result := consumer.process(context.Background(), msg)
	if !result.nack {
		t.Fatalf("expected nack got %+v", result)
	}
	if len(idem.deleted) != 1 {
		t.Fatalf("expected idempotency key released, deletions %v", idem.deleted)
	}
}

func TestDuplicateEventIsAckedWithoutSideEffects(t *testing.T) {
	consumer, evaluator, _, _ := testConsumer(t)

	msg := buildMessage(t, enums.EventOrderDelivered, map[string]any{
		"orderId":    uuid.New(),
		"customerId": uuid.New(),
		"status":     enums.OrderStatusDelivered,
	})
	first := consumer.process(context.Background(), msg)
	second := consumer.process(context.Background(), msg)
	if !first.ack || !second.ack {
		t.Fatalf("expected both deliveries acked got %+v %+v", first, second)
	}
	if len(evaluator.evaluated) != 1 {
		t.Fatalf("duplicate delivery must not re-evaluate, got %d evaluations", len(evaluator.evaluated))
	}
}

func TestUnhandledEventTypeIsAcked(t *testing.T) {
	consumer, evaluator, notifications, _ := testConsumer(t)

	msg := buildMessage(t, enums.EventDeliveryCreated, map[string]any{"deliveryId": uuid.New()})
	result := consumer.process(context.Background(), msg)
	if !result.ack {
		t.Fatalf("expected ack got %+v", result)
	}
	if len(evaluator.evaluated) != 0 || len(notifications.created) != 0 {
		t.Fatal("unhandled event must have no side effects")
	}
}

func TestRefundIssuedNotifiesUser(t *testing.T) {
	consumer, _, notifications, _ := testConsumer(t)
	userID := uuid.New()

	msg := buildMessage(t, enums.EventRefundIssued, map[string]any{
		"returnId":    uuid.New(),
		"orderId":     uuid.New(),
		"userId":      userID,
		"amountPaise": 25000,
	})
	result := consumer.process(context.Background(), msg)
	if !result.ack {
		t.Fatalf("expected ack got %+v", result)
	}
	if len(notifications.created) != 1 {
		t.Fatalf("expected one notification got %d", len(notifications.created))
	}
	created := notifications.created[0]
	if created.UserID != userID || created.Type != enums.NotificationTypeWalletUpdate {
		t.Fatalf("unexpected notification %+v", created)
	}
}

func TestMalformedEnvelopeIsAcked(t *testing.T) {
	consumer, _, _, _ := testConsumer(t)

	msg := &pubsub.Message{
		Data:       []byte("{not json"),
		Attributes: map[string]string{"event_type": string(enums.EventOrderDelivered)},
	}
	result := consumer.process(context.Background(), msg)
	if !result.ack {
		t.Fatalf("poison message must be acked, got %+v", result)
	}
}

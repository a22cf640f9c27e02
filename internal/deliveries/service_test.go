package deliveries

import (
	"context"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sabzico/fulfillment-backend/internal/orders"
	"github.com/sabzico/fulfillment-backend/pkg/db/models"
	"github.com/sabzico/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/sabzico/fulfillment-backend/pkg/errors"
	"github.com/sabzico/fulfillment-backend/pkg/outbox"
	"github.com/sabzico/fulfillment-backend/pkg/pagination"
)

type stubDeliveriesRepo struct {
	delivery *models.Delivery
	itemIDs  []uuid.UUID
	created  int
}

func (s *stubDeliveriesRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubDeliveriesRepo) CreateDelivery(ctx context.Context, delivery *models.Delivery) error {
	if delivery.ID == uuid.Nil {
		delivery.ID = uuid.New()
	}
	s.delivery = delivery
	s.created++
	return nil
}

func (s *stubDeliveriesRepo) CreateDeliveryItems(ctx context.Context, items []models.DeliveryItem) error {
	for _, item := range items {
		s.itemIDs = append(s.itemIDs, item.OrderItemID)
	}
	return nil
}

func (s *stubDeliveriesRepo) FindDelivery(ctx context.Context, deliveryID uuid.UUID) (*models.Delivery, error) {
	if s.delivery == nil || s.delivery.ID != deliveryID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.delivery, nil
}

func (s *stubDeliveriesRepo) FindDeliveryForUpdate(ctx context.Context, deliveryID uuid.UUID) (*models.Delivery, error) {
	return s.FindDelivery(ctx, deliveryID)
}

func (s *stubDeliveriesRepo) FindJoinableByOrderAndVendor(ctx context.Context, orderID, vendorID uuid.UUID) (*models.Delivery, error) {
	if s.delivery == nil || s.delivery.OrderID != orderID || s.delivery.VendorID != vendorID {
		return nil, gorm.ErrRecordNotFound
	}
	switch s.delivery.Status {
	case enums.DeliveryStatusAssigned, enums.DeliveryStatusAccepted:
		return s.delivery, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubDeliveriesRepo) FindItemIDs(ctx context.Context, deliveryID uuid.UUID) ([]uuid.UUID, error) {
	return s.itemIDs, nil
}

func (s *stubDeliveriesRepo) UpdateDelivery(ctx context.Context, deliveryID uuid.UUID, updates map[string]any) error {
	if s.delivery == nil || s.delivery.ID != deliveryID {
		return gorm.ErrRecordNotFound
	}
	if v, ok := updates["status"].(enums.DeliveryStatus); ok {
		s.delivery.Status = v
	}
	if v, ok := updates["partner_id"].(uuid.UUID); ok {
		s.delivery.PartnerID = &v
	}
	return nil
}

func (s *stubDeliveriesRepo) ListPartnerDeliveries(ctx context.Context, partnerID uuid.UUID, status *enums.DeliveryStatus, params pagination.Params) (*DeliveryList, error) {
	panic("not implemented")
}

type stubPartnersService struct {
	err error
}

func (s *stubPartnersService) EnsureAvailable(ctx context.Context, tx *gorm.DB, partnerID uuid.UUID) (*models.DeliveryPartner, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.DeliveryPartner{ID: partnerID, Active: true, MaxActiveTasks: 5}, nil
}

func (s *stubPartnersService) ListActive(ctx context.Context) ([]models.DeliveryPartner, error) {
	return nil, nil
}

type stubCompleter struct {
	orderID uuid.UUID
	itemIDs []uuid.UUID
	calls   int
	err     error

	writeOffOrderID uuid.UUID
	writeOffItemIDs []uuid.UUID
	writeOffCalls   int
}

func (s *stubCompleter) MarkItemsDelivered(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, itemIDs []uuid.UUID, actor orders.Actor) error {
	if s.err != nil {
		return s.err
	}
	s.calls++
	s.orderID = orderID
	s.itemIDs = itemIDs
	return nil
}

func (s *stubCompleter) MarkItemsUnfulfillable(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, itemIDs []uuid.UUID, actor orders.Actor) error {
	if s.err != nil {
		return s.err
	}
	s.writeOffCalls++
	s.writeOffOrderID = orderID
	s.writeOffItemIDs = itemIDs
	return nil
}

type stubOutboxPublisher struct {
	events []outbox.DomainEvent
}

func (s *stubOutboxPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func (s *stubOutboxPublisher) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	for _, existing := range s.events {
		if existing.EventType == event.EventType && existing.AggregateID == event.AggregateID {
			return nil
		}
	}
	return s.Emit(ctx, tx, event)
}

func (s *stubOutboxPublisher) hasEvent(eventType enums.OutboxEventType) bool {
	for _, event := range s.events {
		if event.EventType == eventType {
			return true
		}
	}
	return false
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type testDeps struct {
	repo      *stubDeliveriesRepo
	partners  *stubPartnersService
	completer *stubCompleter
	publisher *stubOutboxPublisher
}

func newTestService(t *testing.T) (Service, *testDeps) {
	t.Helper()
	deps := &testDeps{
		repo:      &stubDeliveriesRepo{},
		partners:  &stubPartnersService{},
		completer: &stubCompleter{},
		publisher: &stubOutboxPublisher{},
	}
	svc, err := NewService(ServiceParams{
		Repository: deps.repo,
		TxRunner:   stubTxRunner{},
		Outbox:     deps.publisher,
		Partners:   deps.partners,
		Orders:     deps.completer,
		Addresses:  NewReferenceAddressResolver(),
	})
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return svc, deps
}

func partnerActor(partnerID uuid.UUID) orders.Actor {
	p := partnerID
	return orders.Actor{UserID: uuid.New(), Role: enums.ActorRoleDeliveryPartner, PartnerID: &p}
}

func TestEnsureForVendorItemsCreatesDeliveryWithOtp(t *testing.T) {
	svc, deps := newTestService(t)
	order := &models.Order{ID: uuid.New(), CustomerID: uuid.New(), DeliveryAddressID: uuid.New()}
	vendorID := uuid.New()
	itemIDs := []uuid.UUID{uuid.New(), uuid.New()}

	delivery, err := svc.EnsureForVendorItems(context.Background(), &gorm.DB{}, order, vendorID, itemIDs)
	if err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	if !regexp.MustCompile(`^\d{4}$`).MatchString(delivery.OtpCode) {
		t.Fatalf("expected 4 digit otp got %q", delivery.OtpCode)
	}
	if delivery.Status != enums.DeliveryStatusAssigned {
		t.Fatalf("expected assigned got %s", delivery.Status)
	}
	if len(deps.repo.itemIDs) != 2 {
		t.Fatalf("expected 2 bound items got %d", len(deps.repo.itemIDs))
	}
	if !deps.publisher.hasEvent(enums.EventDeliveryCreated) {
		t.Fatal("expected delivery created event")
	}

	// A later accept batch for the same vendor reuses the delivery.
	more := []uuid.UUID{uuid.New()}
	again, err := svc.EnsureForVendorItems(context.Background(), &gorm.DB{}, order, vendorID, more)
	if err != nil {
		t.Fatalf("second ensure failed: %v", err)
	}
	if again.ID != delivery.ID {
		t.Fatal("expected existing delivery to be reused")
	}
	if deps.repo.created != 1 {
		t.Fatalf("expected one delivery creation got %d", deps.repo.created)
	}
}

func TestEnsureForVendorItemsOpensNewDeliveryAfterPickup(t *testing.T) {
	svc, deps := newTestService(t)
	order := &models.Order{ID: uuid.New(), CustomerID: uuid.New(), DeliveryAddressID: uuid.New()}
	vendorID := uuid.New()
	firstBatch := []uuid.UUID{uuid.New()}

	first, err := svc.EnsureForVendorItems(context.Background(), &gorm.DB{}, order, vendorID, firstBatch)
	if err != nil {
		t.Fatalf("ensure failed: %v", err)
	}

	// Courier is already en route; a straggler acceptance must not join this
	// batch or the OTP completion would hit an item stuck in accepted.
	deps.repo.delivery.Status = enums.DeliveryStatusPicked
	firstID := first.ID

	second, err := svc.EnsureForVendorItems(context.Background(), &gorm.DB{}, order, vendorID, []uuid.UUID{uuid.New()})
	if err != nil {
		t.Fatalf("second ensure failed: %v", err)
	}
	if second.ID == firstID {
		t.Fatal("expected a fresh delivery for the late batch")
	}
	if deps.repo.created != 2 {
		t.Fatalf("expected two delivery creations got %d", deps.repo.created)
	}
	if second.Status != enums.DeliveryStatusAssigned {
		t.Fatalf("expected new delivery assigned got %s", second.Status)
	}
}

func TestAssignPartner(t *testing.T) {
	svc, deps := newTestService(t)
	deps.repo.delivery = &models.Delivery{
		ID:      uuid.New(),
		OrderID: uuid.New(),
		Status:  enums.DeliveryStatusAssigned,
	}
	partnerID := uuid.New()

	err := svc.AssignPartner(context.Background(), deps.repo.delivery.ID, partnerID, orders.Actor{
		UserID: uuid.New(),
		Role:   enums.ActorRoleAdmin,
	})
	if err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	if deps.repo.delivery.PartnerID == nil || *deps.repo.delivery.PartnerID != partnerID {
		t.Fatal("expected partner bound")
	}
	if !deps.publisher.hasEvent(enums.EventDeliveryPartnerAssigned) {
		t.Fatal("expected partner assigned event")
	}
}

func TestAssignPartnerUnavailable(t *testing.T) {
	svc, deps := newTestService(t)
	deps.repo.delivery = &models.Delivery{ID: uuid.New(), Status: enums.DeliveryStatusAssigned}
	deps.partners.err = pkgerrors.New(pkgerrors.CodePartnerUnavailable, "partner is at capacity")

	err := svc.AssignPartner(context.Background(), deps.repo.delivery.ID, uuid.New(), orders.Actor{
		UserID: uuid.New(),
		Role:   enums.ActorRoleAdmin,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodePartnerUnavailable {
		t.Fatalf("expected partner unavailable got %v", err)
	}
	if deps.repo.delivery.PartnerID != nil {
		t.Fatal("partner must not be bound on failure")
	}
}

func TestAssignPartnerRebindRejected(t *testing.T) {
	svc, deps := newTestService(t)
	bound := uuid.New()
	deps.repo.delivery = &models.Delivery{
		ID:        uuid.New(),
		OrderID:   uuid.New(),
		PartnerID: &bound,
		Status:    enums.DeliveryStatusAssigned,
	}

	err := svc.AssignPartner(context.Background(), deps.repo.delivery.ID, uuid.New(), orders.Actor{
		UserID: uuid.New(),
		Role:   enums.ActorRoleAdmin,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict got %v", err)
	}
	if *deps.repo.delivery.PartnerID != bound {
		t.Fatal("original partner binding must stand")
	}
}

func TestAssignPartnerAfterAcceptRejected(t *testing.T) {
	svc, deps := newTestService(t)
	deps.repo.delivery = &models.Delivery{ID: uuid.New(), Status: enums.DeliveryStatusAccepted}

	err := svc.AssignPartner(context.Background(), deps.repo.delivery.ID, uuid.New(), orders.Actor{
		UserID: uuid.New(),
		Role:   enums.ActorRoleAdmin,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict got %v", err)
	}
}

func TestAdvanceChain(t *testing.T) {
	svc, deps := newTestService(t)
	partnerID := uuid.New()
	deps.repo.delivery = &models.Delivery{
		ID:        uuid.New(),
		OrderID:   uuid.New(),
		PartnerID: &partnerID,
		Status:    enums.DeliveryStatusAssigned,
	}
	actor := partnerActor(partnerID)
	ctx := context.Background()

	for _, next := range []enums.DeliveryStatus{
		enums.DeliveryStatusAccepted,
		enums.DeliveryStatusPicked,
		enums.DeliveryStatusOutForDelivery,
	} {
		if err := svc.Advance(ctx, deps.repo.delivery.ID, next, actor); err != nil {
			t.Fatalf("advance to %s failed: %v", next, err)
		}
		if deps.repo.delivery.Status != next {
			t.Fatalf("expected %s got %s", next, deps.repo.delivery.Status)
		}
	}
}

func TestAdvanceToFailedWritesItemsOff(t *testing.T) {
	svc, deps := newTestService(t)
	partnerID := uuid.New()
	orderID := uuid.New()
	itemID := uuid.New()
	deps.repo.delivery = &models.Delivery{
		ID:        uuid.New(),
		OrderID:   orderID,
		PartnerID: &partnerID,
		Status:    enums.DeliveryStatusOutForDelivery,
	}
	deps.repo.itemIDs = []uuid.UUID{itemID}

	err := svc.Advance(context.Background(), deps.repo.delivery.ID, enums.DeliveryStatusFailed, partnerActor(partnerID))
	if err != nil {
		t.Fatalf("advance to failed errored: %v", err)
	}
	if deps.repo.delivery.Status != enums.DeliveryStatusFailed {
		t.Fatalf("expected failed got %s", deps.repo.delivery.Status)
	}
	if deps.completer.writeOffCalls != 1 || deps.completer.writeOffOrderID != orderID {
		t.Fatalf("expected items written off for order %s", orderID)
	}
	if len(deps.completer.writeOffItemIDs) != 1 || deps.completer.writeOffItemIDs[0] != itemID {
		t.Fatal("expected linked item ids forwarded for write-off")
	}
}

func TestAdvanceRejectsSkippedStates(t *testing.T) {
	svc, deps := newTestService(t)
	partnerID := uuid.New()
	deps.repo.delivery = &models.Delivery{
		ID:        uuid.New(),
		PartnerID: &partnerID,
		Status:    enums.DeliveryStatusAssigned,
	}

	err := svc.Advance(context.Background(), deps.repo.delivery.ID, enums.DeliveryStatusPicked, partnerActor(partnerID))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict got %v", err)
	}
}

func TestAdvanceRejectsDeliveredTarget(t *testing.T) {
	svc, deps := newTestService(t)
	partnerID := uuid.New()
	deps.repo.delivery = &models.Delivery{
		ID:        uuid.New(),
		PartnerID: &partnerID,
		Status:    enums.DeliveryStatusOutForDelivery,
	}

	err := svc.Advance(context.Background(), deps.repo.delivery.ID, enums.DeliveryStatusDelivered, partnerActor(partnerID))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error got %v", err)
	}
}

func TestAdvanceForeignPartnerForbidden(t *testing.T) {
	svc, deps := newTestService(t)
	partnerID := uuid.New()
	deps.repo.delivery = &models.Delivery{
		ID:        uuid.New(),
		PartnerID: &partnerID,
		Status:    enums.DeliveryStatusAssigned,
	}

	err := svc.Advance(context.Background(), deps.repo.delivery.ID, enums.DeliveryStatusAccepted, partnerActor(uuid.New()))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden got %v", err)
	}
}

func TestVerifyOtpAndCompleteScenario(t *testing.T) {
	svc, deps := newTestService(t)
	partnerID := uuid.New()
	orderID := uuid.New()
	itemID := uuid.New()
	deps.repo.delivery = &models.Delivery{
		ID:        uuid.New(),
		OrderID:   orderID,
		PartnerID: &partnerID,
		OtpCode:   "4821",
		Status:    enums.DeliveryStatusOutForDelivery,
	}
	deps.repo.itemIDs = []uuid.UUID{itemID}
	actor := partnerActor(partnerID)
	ctx := context.Background()

	err := svc.VerifyOtpAndComplete(ctx, deps.repo.delivery.ID, "0000", actor)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInvalidOtp {
		t.Fatalf("expected invalid otp got %v", err)
	}
	if deps.repo.delivery.Status != enums.DeliveryStatusOutForDelivery {
		t.Fatalf("status must stay out_for_delivery, got %s", deps.repo.delivery.Status)
	}
	if deps.completer.calls != 0 {
		t.Fatal("items must not advance on otp mismatch")
	}

	if err := svc.VerifyOtpAndComplete(ctx, deps.repo.delivery.ID, "4821", actor); err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if deps.repo.delivery.Status != enums.DeliveryStatusDelivered {
		t.Fatalf("expected delivered got %s", deps.repo.delivery.Status)
	}
	if deps.completer.calls != 1 || deps.completer.orderID != orderID {
		t.Fatalf("expected item completion for order %s", orderID)
	}
	if len(deps.completer.itemIDs) != 1 || deps.completer.itemIDs[0] != itemID {
		t.Fatal("expected linked item ids forwarded")
	}
	if !deps.publisher.hasEvent(enums.EventDeliveryCompleted) {
		t.Fatal("expected delivery completed event")
	}

	// Replaying the valid code after completion is a terminal-state error,
	// not a second success.
	err = svc.VerifyOtpAndComplete(ctx, deps.repo.delivery.ID, "4821", actor)
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict got %v", err)
	}
	if deps.completer.calls != 1 {
		t.Fatal("items must not be advanced twice")
	}
}

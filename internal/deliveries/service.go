package deliveries

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sabzico/fulfillment-backend/internal/orders"
	"github.com/sabzico/fulfillment-backend/internal/partners"
	"github.com/sabzico/fulfillment-backend/pkg/db/models"
	"github.com/sabzico/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/sabzico/fulfillment-backend/pkg/errors"
	"github.com/sabzico/fulfillment-backend/pkg/metrics"
	"github.com/sabzico/fulfillment-backend/pkg/otp"
	"github.com/sabzico/fulfillment-backend/pkg/outbox"
	"github.com/sabzico/fulfillment-backend/pkg/outbox/payloads"
	"github.com/sabzico/fulfillment-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// orderItemCompleter settles order items when a delivery terminates: forward
// on a verified handoff, written off on failure.
type orderItemCompleter interface {
	MarkItemsDelivered(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, itemIDs []uuid.UUID, actor orders.Actor) error
	MarkItemsUnfulfillable(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, itemIDs []uuid.UUID, actor orders.Actor) error
}

// Service defines the delivery assignment and OTP verification operations.
type Service interface {
	EnsureForVendorItems(ctx context.Context, tx *gorm.DB, order *models.Order, vendorID uuid.UUID, itemIDs []uuid.UUID) (*models.Delivery, error)
	AssignPartner(ctx context.Context, deliveryID, partnerID uuid.UUID, actor orders.Actor) error
	Advance(ctx context.Context, deliveryID uuid.UUID, next enums.DeliveryStatus, actor orders.Actor) error
	VerifyOtpAndComplete(ctx context.Context, deliveryID uuid.UUID, suppliedOtp string, actor orders.Actor) error
	GetDelivery(ctx context.Context, deliveryID uuid.UUID) (*models.Delivery, error)
	ListPartnerDeliveries(ctx context.Context, partnerID uuid.UUID, status *enums.DeliveryStatus, params pagination.Params) (*DeliveryList, error)
}

// ServiceParams collects the delivery service dependencies.
type ServiceParams struct {
	Repository Repository
	TxRunner   txRunner
	Outbox     outboxPublisher
	Partners   partners.Service
	Orders     orderItemCompleter
	Addresses  AddressResolver
	Metrics    *metrics.FulfillmentMetrics
}

type service struct {
	repo      Repository
	tx        txRunner
	outbox    outboxPublisher
	partners  partners.Service
	orders    orderItemCompleter
	addresses AddressResolver
	metrics   *metrics.FulfillmentMetrics
}

// NewService builds a delivery service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("deliveries repository required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Partners == nil {
		return nil, fmt.Errorf("partners service required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order item completer required")
	}
	if params.Addresses == nil {
		return nil, fmt.Errorf("address resolver required")
	}
	return &service{
		repo:      params.Repository,
		tx:        params.TxRunner,
		outbox:    params.Outbox,
		partners:  params.Partners,
		orders:    params.Orders,
		addresses: params.Addresses,
		metrics:   params.Metrics,
	}, nil
}

// EnsureForVendorItems creates the delivery for a vendor's subset of an order
// on first acceptance, or binds additional accepted items to the vendor's
// still-open delivery. Once the courier has picked up, late acceptances get a
// fresh delivery of their own; joining an en-route batch would leave items
// that can never reach delivered when the OTP closes it. The OTP is generated
// at creation and never rotated afterwards.
func (s *service) EnsureForVendorItems(ctx context.Context, tx *gorm.DB, order *models.Order, vendorID uuid.UUID, itemIDs []uuid.UUID) (*models.Delivery, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required")
	}
	if order == nil || order.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}
	repo := s.repo.WithTx(tx)

	delivery, err := repo.FindJoinableByOrderAndVendor(ctx, order.ID, vendorID)
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery")
	}

	if delivery == nil || err == gorm.ErrRecordNotFound {
		pickup, err := s.addresses.VendorPickupAddress(ctx, vendorID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve pickup address")
		}
		dropoff, err := s.addresses.CustomerDeliveryAddress(ctx, order.DeliveryAddressID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve delivery address")
		}
		code, err := otp.Generate()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate otp")
		}
		delivery = &models.Delivery{
			OrderID:         order.ID,
			VendorID:        vendorID,
			PickupAddress:   pickup,
			DeliveryAddress: dropoff,
			OtpCode:         code,
			Status:          enums.DeliveryStatusAssigned,
		}
		if err := repo.CreateDelivery(ctx, delivery); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create delivery")
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventDeliveryCreated,
			AggregateType: enums.AggregateDelivery,
			AggregateID:   delivery.ID,
			Version:       1,
			Data: payloads.DeliveryCreatedEvent{
				DeliveryID: delivery.ID,
				OrderID:    order.ID,
				VendorID:   vendorID,
				ItemIDs:    itemIDs,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return nil, err
		}
	}

	items := make([]models.DeliveryItem, 0, len(itemIDs))
	for _, itemID := range itemIDs {
		items = append(items, models.DeliveryItem{DeliveryID: delivery.ID, OrderItemID: itemID})
	}
	if err := repo.CreateDeliveryItems(ctx, items); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bind delivery items")
	}
	return delivery, nil
}

func (s *service) AssignPartner(ctx context.Context, deliveryID, partnerID uuid.UUID, actor orders.Actor) error {
	if deliveryID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "delivery id required")
	}
	if partnerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "partner id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		delivery, err := loadDeliveryForUpdate(ctx, repo, deliveryID)
		if err != nil {
			return err
		}
		if delivery.Status != enums.DeliveryStatusAssigned {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "partner can only be bound while assigned")
		}
		if delivery.PartnerID != nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery already has a partner")
		}

		if _, err := s.partners.EnsureAvailable(ctx, tx, partnerID); err != nil {
			return err
		}

		updates := map[string]any{"partner_id": partnerID}
		if err := repo.UpdateDelivery(ctx, delivery.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bind partner")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDeliveryPartnerAssigned,
			AggregateType: enums.AggregateDelivery,
			AggregateID:   delivery.ID,
			Version:       1,
			Actor:         deliveryActorRef(actor),
			Data: payloads.DeliveryPartnerAssignedEvent{
				DeliveryID: delivery.ID,
				PartnerID:  partnerID,
			},
		})
	})
}

func (s *service) Advance(ctx context.Context, deliveryID uuid.UUID, next enums.DeliveryStatus, actor orders.Actor) error {
	if deliveryID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "delivery id required")
	}
	if !next.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery status")
	}
	if next == enums.DeliveryStatusDelivered {
		return pkgerrors.New(pkgerrors.CodeValidation, "delivered requires otp verification")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		delivery, err := loadDeliveryForUpdate(ctx, repo, deliveryID)
		if err != nil {
			return err
		}
		if err := requireDeliveryActor(delivery, actor); err != nil {
			return err
		}
		if !delivery.Status.CanTransitionTo(next) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot move delivery from %s to %s", delivery.Status, next))
		}

		now := time.Now()
		updates := map[string]any{"status": next}
		switch next {
		case enums.DeliveryStatusAccepted:
			updates["accepted_at"] = now
		case enums.DeliveryStatusPicked:
			updates["picked_at"] = now
		case enums.DeliveryStatusFailed:
			updates["failed_at"] = now
		}
		if err := repo.UpdateDelivery(ctx, delivery.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance delivery")
		}
		s.metrics.IncTransition("delivery", next.String())

		if next == enums.DeliveryStatusFailed {
			// A failed delivery writes its items off in the same transaction
			// so the order settles instead of idling in out_for_delivery.
			itemIDs, err := repo.FindItemIDs(ctx, delivery.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery items")
			}
			if err := s.orders.MarkItemsUnfulfillable(ctx, tx, delivery.OrderID, itemIDs, actor); err != nil {
				return err
			}
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDeliveryStateChanged,
			AggregateType: enums.AggregateDelivery,
			AggregateID:   delivery.ID,
			Version:       1,
			Actor:         deliveryActorRef(actor),
			Data: payloads.DeliveryStateChangedEvent{
				DeliveryID: delivery.ID,
				OrderID:    delivery.OrderID,
				OldStatus:  delivery.Status,
				NewStatus:  next,
			},
		})
	})
}

// VerifyOtpAndComplete is the only path into the delivered state. The check
// and the transition happen under the same row lock, so a valid code cannot
// be replayed after completion.
func (s *service) VerifyOtpAndComplete(ctx context.Context, deliveryID uuid.UUID, suppliedOtp string, actor orders.Actor) error {
	if deliveryID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "delivery id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		delivery, err := loadDeliveryForUpdate(ctx, repo, deliveryID)
		if err != nil {
			return err
		}
		if err := requireDeliveryActor(delivery, actor); err != nil {
			return err
		}
		if delivery.Status != enums.DeliveryStatusOutForDelivery {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery is not out for delivery")
		}
		if !otp.Matches(delivery.OtpCode, suppliedOtp) {
			s.metrics.IncOtpOutcome("delivery", "mismatch")
			return pkgerrors.New(pkgerrors.CodeInvalidOtp, "otp does not match")
		}
		s.metrics.IncOtpOutcome("delivery", "match")

		now := time.Now()
		updates := map[string]any{
			"status":       enums.DeliveryStatusDelivered,
			"delivered_at": now,
		}
		if err := repo.UpdateDelivery(ctx, delivery.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete delivery")
		}
		s.metrics.IncTransition("delivery", enums.DeliveryStatusDelivered.String())

		itemIDs, err := repo.FindItemIDs(ctx, delivery.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery items")
		}
		if err := s.orders.MarkItemsDelivered(ctx, tx, delivery.OrderID, itemIDs, actor); err != nil {
			return err
		}

		stateChanged := outbox.DomainEvent{
			EventType:     enums.EventDeliveryStateChanged,
			AggregateType: enums.AggregateDelivery,
			AggregateID:   delivery.ID,
			Version:       1,
			Actor:         deliveryActorRef(actor),
			Data: payloads.DeliveryStateChangedEvent{
				DeliveryID: delivery.ID,
				OrderID:    delivery.OrderID,
				OldStatus:  delivery.Status,
				NewStatus:  enums.DeliveryStatusDelivered,
			},
		}
		if err := s.outbox.Emit(ctx, tx, stateChanged); err != nil {
			return err
		}
		completed := outbox.DomainEvent{
			EventType:     enums.EventDeliveryCompleted,
			AggregateType: enums.AggregateDelivery,
			AggregateID:   delivery.ID,
			Version:       1,
			Actor:         deliveryActorRef(actor),
			Data: payloads.DeliveryCompletedEvent{
				DeliveryID:  delivery.ID,
				OrderID:     delivery.OrderID,
				DeliveredAt: now,
			},
		}
		return s.outbox.EmitIfNotExists(ctx, tx, completed)
	})
}

func (s *service) GetDelivery(ctx context.Context, deliveryID uuid.UUID) (*models.Delivery, error) {
	if deliveryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery id required")
	}
	delivery, err := s.repo.FindDelivery(ctx, deliveryID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "delivery not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery")
	}
	return delivery, nil
}

func (s *service) ListPartnerDeliveries(ctx context.Context, partnerID uuid.UUID, status *enums.DeliveryStatus, params pagination.Params) (*DeliveryList, error) {
	if partnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "partner id required")
	}
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery status")
	}
	list, err := s.repo.ListPartnerDeliveries(ctx, partnerID, status, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list deliveries")
	}
	return list, nil
}

func loadDeliveryForUpdate(ctx context.Context, repo Repository, deliveryID uuid.UUID) (*models.Delivery, error) {
	delivery, err := repo.FindDeliveryForUpdate(ctx, deliveryID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "delivery not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery")
	}
	return delivery, nil
}

// requireDeliveryActor lets admins operate on any delivery and partners only
// on their own.
func requireDeliveryActor(delivery *models.Delivery, actor orders.Actor) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if actor.Role == enums.ActorRoleAdmin {
		return nil
	}
	if actor.Role != enums.ActorRoleDeliveryPartner {
		return pkgerrors.New(pkgerrors.CodeForbidden, "delivery partner role required")
	}
	if actor.PartnerID == nil || delivery.PartnerID == nil || *actor.PartnerID != *delivery.PartnerID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "delivery does not belong to partner")
	}
	return nil
}

func deliveryActorRef(actor orders.Actor) *outbox.ActorRef {
	return &outbox.ActorRef{
		UserID:    actor.UserID,
		Role:      actor.Role.String(),
		VendorID:  actor.VendorID,
		PartnerID: actor.PartnerID,
	}
}

// referenceAddressResolver renders stable references that downstream display
// layers resolve against the platform address book.
type referenceAddressResolver struct{}

// NewReferenceAddressResolver returns the default address resolver.
func NewReferenceAddressResolver() AddressResolver {
	return referenceAddressResolver{}
}

func (referenceAddressResolver) VendorPickupAddress(ctx context.Context, vendorID uuid.UUID) (string, error) {
	return "vendor/" + vendorID.String(), nil
}

func (referenceAddressResolver) CustomerDeliveryAddress(ctx context.Context, addressID uuid.UUID) (string, error) {
	return "address/" + addressID.String(), nil
}

package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sabzico/fulfillment-backend/pkg/db/models"
	"github.com/sabzico/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/sabzico/fulfillment-backend/pkg/errors"
	"github.com/sabzico/fulfillment-backend/pkg/outbox"
	"github.com/sabzico/fulfillment-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// DeliveryCreator materializes a delivery task for a vendor's accepted subset
// of an order. Implemented by the deliveries service.
type DeliveryCreator interface {
	EnsureForVendorItems(ctx context.Context, tx *gorm.DB, order *models.Order, vendorID uuid.UUID, itemIDs []uuid.UUID) (*models.Delivery, error)
}

// Actor identifies who invoked an operation.
type Actor struct {
	UserID    uuid.UUID
	Role      enums.ActorRole
	VendorID  *uuid.UUID
	PartnerID *uuid.UUID
}

// Service defines order aggregate operations.
type Service interface {
	AcceptItems(ctx context.Context, input VendorItemsInput) error
	RejectItems(ctx context.Context, input VendorItemsInput) error
	AdvanceItemStatus(ctx context.Context, input AdvanceItemInput) error
	CancelOrder(ctx context.Context, orderID uuid.UUID, actor Actor) error
	MarkItemsDelivered(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, itemIDs []uuid.UUID, actor Actor) error
	MarkItemsUnfulfillable(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, itemIDs []uuid.UUID, actor Actor) error
	GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
}

// VendorItemsInput carries a vendor decision over a batch of items.
type VendorItemsInput struct {
	OrderID uuid.UUID
	ItemIDs []uuid.UUID
	Actor   Actor
}

// AdvanceItemInput moves a single item one step forward in its sub-machine.
type AdvanceItemInput struct {
	ItemID       uuid.UUID
	TargetStatus enums.OrderItemStatus
	Actor        Actor
}

type service struct {
	repo       Repository
	tx         txRunner
	outbox     outboxPublisher
	deliveries DeliveryCreator
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher, deliveries DeliveryCreator) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if deliveries == nil {
		return nil, fmt.Errorf("delivery creator required")
	}
	return &service{repo: repo, tx: tx, outbox: outbox, deliveries: deliveries}, nil
}

func (s *service) AcceptItems(ctx context.Context, input VendorItemsInput) error {
	return s.vendorDecision(ctx, input, enums.OrderItemStatusAccepted)
}

func (s *service) RejectItems(ctx context.Context, input VendorItemsInput) error {
	return s.vendorDecision(ctx, input, enums.OrderItemStatusRejected)
}

func (s *service) vendorDecision(ctx context.Context, input VendorItemsInput, target enums.OrderItemStatus) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if len(input.ItemIDs) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one item id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	vendorID, err := requireVendor(input.Actor)
	if err != nil {
		return err
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}

		items, err := repo.FindItemsByOrder(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
		}

		selected, err := selectVendorItems(items, input.ItemIDs, vendorID)
		if err != nil {
			return err
		}
		for _, item := range selected {
			if item.Status != enums.OrderItemStatusPending {
				return pkgerrors.New(pkgerrors.CodeStateConflict,
					fmt.Sprintf("item %s is %s, not pending", item.ID, item.Status))
			}
		}

		if err := repo.UpdateItemStatuses(ctx, input.ItemIDs, target); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update item statuses")
		}
		for _, item := range selected {
			event := outbox.DomainEvent{
				EventType:     enums.EventOrderItemStateChanged,
				AggregateType: enums.AggregateOrderItem,
				AggregateID:   item.ID,
				Version:       1,
				Actor:         actorRef(input.Actor),
				Data: payloads.OrderItemStateChangedEvent{
					OrderID:   order.ID,
					ItemID:    item.ID,
					VendorID:  item.VendorID,
					OldStatus: item.Status,
					NewStatus: target,
				},
			}
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return err
			}
		}

		if target == enums.OrderItemStatusAccepted {
			if _, err := s.deliveries.EnsureForVendorItems(ctx, tx, order, vendorID, input.ItemIDs); err != nil {
				return err
			}
		}

		return s.recomputeOrderStatus(ctx, tx, repo, order, input.Actor)
	})
}

func (s *service) AdvanceItemStatus(ctx context.Context, input AdvanceItemInput) error {
	if input.ItemID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	if !input.TargetStatus.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid target status")
	}
	if input.Actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		item, err := repo.FindItem(ctx, input.ItemID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order item")
		}
		if input.Actor.Role == enums.ActorRoleVendor {
			vendorID, err := requireVendor(input.Actor)
			if err != nil {
				return err
			}
			if item.VendorID != vendorID {
				return pkgerrors.New(pkgerrors.CodeForbidden, "item does not belong to vendor")
			}
		}
		if !item.Status.CanTransitionTo(input.TargetStatus) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot move item from %s to %s", item.Status, input.TargetStatus))
		}

		if err := repo.UpdateItemStatus(ctx, item.ID, input.TargetStatus); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update item status")
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderItemStateChanged,
			AggregateType: enums.AggregateOrderItem,
			AggregateID:   item.ID,
			Version:       1,
			Actor:         actorRef(input.Actor),
			Data: payloads.OrderItemStateChangedEvent{
				OrderID:   item.OrderID,
				ItemID:    item.ID,
				VendorID:  item.VendorID,
				OldStatus: item.Status,
				NewStatus: input.TargetStatus,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		order, err := loadOrder(ctx, repo, item.OrderID)
		if err != nil {
			return err
		}
		return s.recomputeOrderStatus(ctx, tx, repo, order, input.Actor)
	})
}

func (s *service) CancelOrder(ctx context.Context, orderID uuid.UUID, actor Actor) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if actor.Role != enums.ActorRoleAdmin && actor.Role != enums.ActorRoleCustomer {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the customer or an admin may cancel")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrderForUpdate(ctx, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if actor.Role == enums.ActorRoleCustomer && order.CustomerID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to customer")
		}
		if order.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order already terminal")
		}

		items, err := repo.FindItemsByOrder(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
		}
		var cancelable []uuid.UUID
		for _, item := range items {
			if !item.Status.IsTerminal() {
				cancelable = append(cancelable, item.ID)
			}
		}
		if len(cancelable) > 0 {
			if err := repo.UpdateItemStatuses(ctx, cancelable, enums.OrderItemStatusCanceled); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order items")
			}
		}

		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{"canceled_at": time.Now()}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCanceled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         actorRef(actor),
			Data: payloads.OrderCanceledEvent{
				OrderID:    order.ID,
				CustomerID: order.CustomerID,
				CanceledBy: actor.UserID,
				Role:       actor.Role.String(),
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		// The final status is still derived from the items: an order holding
		// a delivered item settles on partially_delivered, not canceled.
		return s.recomputeOrderStatus(ctx, tx, repo, order, actor)
	})
}

// MarkItemsDelivered advances items to delivered inside an already-open
// transaction. The delivery engine calls it on OTP-verified completion.
func (s *service) MarkItemsDelivered(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, itemIDs []uuid.UUID, actor Actor) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required")
	}
	if len(itemIDs) == 0 {
		return nil
	}
	repo := s.repo.WithTx(tx)

	order, err := loadOrder(ctx, repo, orderID)
	if err != nil {
		return err
	}
	items, err := repo.FindItemsByOrder(ctx, order.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
	}
	wanted := make(map[uuid.UUID]bool, len(itemIDs))
	for _, id := range itemIDs {
		wanted[id] = true
	}
	var advance []uuid.UUID
	for _, item := range items {
		if !wanted[item.ID] {
			continue
		}
		if item.Status == enums.OrderItemStatusDelivered {
			continue
		}
		if !item.Status.CanTransitionTo(enums.OrderItemStatusDelivered) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("item %s cannot reach delivered from %s", item.ID, item.Status))
		}
		advance = append(advance, item.ID)
	}
	if len(advance) > 0 {
		if err := repo.UpdateItemStatuses(ctx, advance, enums.OrderItemStatusDelivered); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark items delivered")
		}
	}

	return s.recomputeOrderStatus(ctx, tx, repo, order, actor)
}

// MarkItemsUnfulfillable writes off items inside an already-open transaction.
// The delivery engine calls it when a delivery fails, so items already in a
// terminal state are skipped rather than rejected.
func (s *service) MarkItemsUnfulfillable(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, itemIDs []uuid.UUID, actor Actor) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required")
	}
	if len(itemIDs) == 0 {
		return nil
	}
	repo := s.repo.WithTx(tx)

	order, err := loadOrder(ctx, repo, orderID)
	if err != nil {
		return err
	}
	items, err := repo.FindItemsByOrder(ctx, order.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
	}
	wanted := make(map[uuid.UUID]bool, len(itemIDs))
	for _, id := range itemIDs {
		wanted[id] = true
	}
	var writeOff []uuid.UUID
	for _, item := range items {
		if !wanted[item.ID] {
			continue
		}
		if !item.Status.CanTransitionTo(enums.OrderItemStatusUnfulfillable) {
			continue
		}
		writeOff = append(writeOff, item.ID)
	}
	if len(writeOff) > 0 {
		if err := repo.UpdateItemStatuses(ctx, writeOff, enums.OrderItemStatusUnfulfillable); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark items unfulfillable")
		}
	}

	return s.recomputeOrderStatus(ctx, tx, repo, order, actor)
}

func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// recomputeOrderStatus rederives the order status from current item states and
// persists it when changed. Delivered terminal states stamp delivered_at and
// emit the once-only order_delivered event.
func (s *service) recomputeOrderStatus(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, actor Actor) error {
	items, err := repo.FindItemsByOrder(ctx, order.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order items")
	}

	next := ComputeOrderStatus(items)
	if next == order.Status {
		return nil
	}

	updates := map[string]any{"status": next}
	if next == enums.OrderStatusDelivered || next == enums.OrderStatusPartiallyDelivered {
		updates["delivered_at"] = time.Now()
	}
	if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventOrderStateChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Actor:         actorRef(actor),
		Data: payloads.OrderStateChangedEvent{
			OrderID:    order.ID,
			CustomerID: order.CustomerID,
			OldStatus:  order.Status,
			NewStatus:  next,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return err
	}

	if next == enums.OrderStatusDelivered || next == enums.OrderStatusPartiallyDelivered {
		delivered := outbox.DomainEvent{
			EventType:     enums.EventOrderDelivered,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         actorRef(actor),
			Data: payloads.OrderDeliveredEvent{
				OrderID:    order.ID,
				CustomerID: order.CustomerID,
				Status:     next,
				TotalPaise: order.TotalPaise,
			},
		}
		if err := s.outbox.EmitIfNotExists(ctx, tx, delivered); err != nil {
			return err
		}
	}

	order.Status = next
	return nil
}

func loadOrder(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindOrder(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func selectVendorItems(items []models.OrderItem, itemIDs []uuid.UUID, vendorID uuid.UUID) ([]models.OrderItem, error) {
	byID := make(map[uuid.UUID]models.OrderItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}
	selected := make([]models.OrderItem, 0, len(itemIDs))
	for _, id := range itemIDs {
		item, ok := byID[id]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("item %s not found in order", id))
		}
		if item.VendorID != vendorID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, fmt.Sprintf("item %s does not belong to vendor", id))
		}
		selected = append(selected, item)
	}
	return selected, nil
}

func requireVendor(actor Actor) (uuid.UUID, error) {
	if actor.Role != enums.ActorRoleVendor && actor.Role != enums.ActorRoleAdmin {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendor role required")
	}
	if actor.VendorID == nil || *actor.VendorID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendor context missing")
	}
	return *actor.VendorID, nil
}

func actorRef(actor Actor) *outbox.ActorRef {
	return &outbox.ActorRef{
		UserID:    actor.UserID,
		Role:      actor.Role.String(),
		VendorID:  actor.VendorID,
		PartnerID: actor.PartnerID,
	}
}

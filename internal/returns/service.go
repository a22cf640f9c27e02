package returns

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sabzico/fulfillment-backend/internal/orders"
	"github.com/sabzico/fulfillment-backend/internal/partners"
	"github.com/sabzico/fulfillment-backend/internal/wallet"
	dbpkg "github.com/sabzico/fulfillment-backend/pkg/db"
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

// Service defines the return and refund workflow operations.
type Service interface {
	Request(ctx context.Context, input RequestInput, actor orders.Actor) (*models.ReturnRequest, error)
	Approve(ctx context.Context, returnID uuid.UUID, actor orders.Actor) error
	Reject(ctx context.Context, returnID uuid.UUID, reason *string, actor orders.Actor) error
	SchedulePickup(ctx context.Context, returnID, partnerID uuid.UUID, actor orders.Actor) error
	VerifyPickupOtp(ctx context.Context, returnID uuid.UUID, suppliedOtp string, actor orders.Actor) error
	CompleteAndRefund(ctx context.Context, returnID uuid.UUID, actor orders.Actor) error
	GetReturn(ctx context.Context, returnID uuid.UUID) (*models.ReturnRequest, error)
	ListVendorReturns(ctx context.Context, vendorID uuid.UUID, status *enums.ReturnStatus, params pagination.Params) (*ReturnList, error)
	ListCustomerReturns(ctx context.Context, userID uuid.UUID, params pagination.Params) (*ReturnList, error)
}

// ServiceParams collects the return service dependencies.
type ServiceParams struct {
	Repository Repository
	TxRunner   txRunner
	Outbox     outboxPublisher
	Wallet     wallet.Service
	Partners   partners.Service
	Metrics    *metrics.FulfillmentMetrics
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	wallet   wallet.Service
	partners partners.Service
	metrics  *metrics.FulfillmentMetrics
}

// NewService builds a return service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("returns repository required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Wallet == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if params.Partners == nil {
		return nil, fmt.Errorf("partners service required")
	}
	return &service{
		repo:     params.Repository,
		tx:       params.TxRunner,
		outbox:   params.Outbox,
		wallet:   params.Wallet,
		partners: params.Partners,
		metrics:  params.Metrics,
	}, nil
}

func (s *service) Request(ctx context.Context, input RequestInput, actor orders.Actor) (*models.ReturnRequest, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item required")
	}
	if input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reason required")
	}
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	for _, item := range input.Items {
		if item.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "return quantity must be positive")
		}
	}

	var ret *models.ReturnRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		itemIDs := make([]uuid.UUID, 0, len(input.Items))
		qtyByItem := make(map[uuid.UUID]int, len(input.Items))
		for _, item := range input.Items {
			itemIDs = append(itemIDs, item.OrderItemID)
			qtyByItem[item.OrderItemID] = item.Qty
		}

		orderItems, err := repo.FindOrderItems(ctx, itemIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
		}
		if len(orderItems) != len(itemIDs) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "one or more items not found")
		}

		var vendorID uuid.UUID
		var refundPaise int64
		for _, item := range orderItems {
			if item.OrderID != input.OrderID {
				return pkgerrors.New(pkgerrors.CodeValidation, "item does not belong to order")
			}
			if item.Status != enums.OrderItemStatusDelivered {
				return pkgerrors.New(pkgerrors.CodeStateConflict,
					fmt.Sprintf("item %s is not delivered", item.ID))
			}
			if vendorID == uuid.Nil {
				vendorID = item.VendorID
			} else if vendorID != item.VendorID {
				return pkgerrors.New(pkgerrors.CodeValidation, "a return covers items from a single vendor")
			}
			qty := qtyByItem[item.ID]
			if qty > item.RemainingReturnableQty() {
				return pkgerrors.New(pkgerrors.CodeValidation,
					fmt.Sprintf("item %s has only %d returnable units", item.ID, item.RemainingReturnableQty()))
			}
			refundPaise += item.UnitPricePaise * int64(qty)
		}

		ret = &models.ReturnRequest{
			OrderID:           input.OrderID,
			VendorID:          vendorID,
			RequestedBy:       actor.UserID,
			Reason:            input.Reason,
			RefundAmountPaise: refundPaise,
			Status:            enums.ReturnStatusRequested,
		}
		for _, item := range input.Items {
			ret.Items = append(ret.Items, models.ReturnItem{
				OrderItemID: item.OrderItemID,
				Qty:         item.Qty,
			})
		}
		if err := repo.CreateReturn(ctx, ret); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create return")
		}
		// Reserve returnable quantity up front; rejection restores it.
		for _, item := range input.Items {
			if err := repo.AdjustReturnedQty(ctx, item.OrderItemID, item.Qty); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve returnable quantity")
			}
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReturnRequested,
			AggregateType: enums.AggregateReturn,
			AggregateID:   ret.ID,
			Version:       1,
			Actor:         returnActorRef(actor),
			Data: payloads.ReturnRequestedEvent{
				ReturnID: ret.ID,
				OrderID:  ret.OrderID,
				VendorID: ret.VendorID,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *service) Approve(ctx context.Context, returnID uuid.UUID, actor orders.Actor) error {
	return s.vendorDecision(ctx, returnID, actor, func(tx *gorm.DB, repo Repository, ret *models.ReturnRequest) error {
		code, err := otp.Generate()
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate pickup otp")
		}
		updates := map[string]any{
			"status":      enums.ReturnStatusApproved,
			"pickup_otp":  code,
			"approved_at": time.Now(),
		}
		if err := repo.UpdateReturn(ctx, ret.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "approve return")
		}
		s.metrics.IncTransition("return", enums.ReturnStatusApproved.String())
		return s.emitStateChange(ctx, tx, ret, enums.ReturnStatusApproved, actor)
	})
}

func (s *service) Reject(ctx context.Context, returnID uuid.UUID, reason *string, actor orders.Actor) error {
	return s.vendorDecision(ctx, returnID, actor, func(tx *gorm.DB, repo Repository, ret *models.ReturnRequest) error {
		updates := map[string]any{
			"status":        enums.ReturnStatusRejected,
			"reject_reason": reason,
		}
		if err := repo.UpdateReturn(ctx, ret.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject return")
		}
		items, err := repo.FindReturnItems(ctx, ret.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load return items")
		}
		for _, item := range items {
			if err := repo.AdjustReturnedQty(ctx, item.OrderItemID, -item.Qty); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore returnable quantity")
			}
		}
		s.metrics.IncTransition("return", enums.ReturnStatusRejected.String())
		return s.emitStateChange(ctx, tx, ret, enums.ReturnStatusRejected, actor)
	})
}

func (s *service) vendorDecision(ctx context.Context, returnID uuid.UUID, actor orders.Actor, apply func(tx *gorm.DB, repo Repository, ret *models.ReturnRequest) error) error {
	if returnID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "return id required")
	}
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		ret, err := loadReturnForUpdate(ctx, repo, returnID)
		if err != nil {
			return err
		}
		if err := requireReturnVendor(ret, actor); err != nil {
			return err
		}
		if ret.Status != enums.ReturnStatusRequested {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "return already decided")
		}
		return apply(tx, repo, ret)
	})
}

func (s *service) SchedulePickup(ctx context.Context, returnID, partnerID uuid.UUID, actor orders.Actor) error {
	if returnID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "return id required")
	}
	if partnerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "partner id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		ret, err := loadReturnForUpdate(ctx, repo, returnID)
		if err != nil {
			return err
		}
		if ret.Status != enums.ReturnStatusApproved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "pickup requires an approved return")
		}
		if _, err := s.partners.EnsureAvailable(ctx, tx, partnerID); err != nil {
			return err
		}

		updates := map[string]any{
			"status":     enums.ReturnStatusPickupScheduled,
			"partner_id": partnerID,
		}
		if err := repo.UpdateReturn(ctx, ret.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "schedule pickup")
		}
		s.metrics.IncTransition("return", enums.ReturnStatusPickupScheduled.String())
		return s.emitStateChange(ctx, tx, ret, enums.ReturnStatusPickupScheduled, actor)
	})
}

// VerifyPickupOtp proves the partner collected the goods. The check and the
// transition share one row lock, so a valid code cannot be replayed.
func (s *service) VerifyPickupOtp(ctx context.Context, returnID uuid.UUID, suppliedOtp string, actor orders.Actor) error {
	if returnID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "return id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		ret, err := loadReturnForUpdate(ctx, repo, returnID)
		if err != nil {
			return err
		}
		if err := requireReturnPartner(ret, actor); err != nil {
			return err
		}
		if ret.Status != enums.ReturnStatusPickupScheduled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "return is not awaiting pickup")
		}
		if ret.PickupOtp == nil || !otp.Matches(*ret.PickupOtp, suppliedOtp) {
			s.metrics.IncOtpOutcome("return", "mismatch")
			return pkgerrors.New(pkgerrors.CodeInvalidOtp, "otp does not match")
		}
		s.metrics.IncOtpOutcome("return", "match")

		updates := map[string]any{
			"status":       enums.ReturnStatusPickedUp,
			"picked_up_at": time.Now(),
		}
		if err := repo.UpdateReturn(ctx, ret.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark picked up")
		}
		s.metrics.IncTransition("return", enums.ReturnStatusPickedUp.String())
		return s.emitStateChange(ctx, tx, ret, enums.ReturnStatusPickedUp, actor)
	})
}

// CompleteAndRefund settles the return. The refund goes to the actual wallet,
// never virtual, and at most one refund ledger entry exists per return.
func (s *service) CompleteAndRefund(ctx context.Context, returnID uuid.UUID, actor orders.Actor) error {
	if returnID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "return id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		ret, err := loadReturnForUpdate(ctx, repo, returnID)
		if err != nil {
			return err
		}
		if ret.Status == enums.ReturnStatusCompleted {
			return pkgerrors.New(pkgerrors.CodeRefundAlreadyIssued, "refund already issued for this return")
		}
		if ret.Status != enums.ReturnStatusPickedUp {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "refund requires a picked up return")
		}

		issued, err := s.wallet.RefundExistsTx(ctx, tx, ret.ID)
		if err != nil {
			return err
		}
		if issued {
			return pkgerrors.New(pkgerrors.CodeRefundAlreadyIssued, "refund already issued for this return")
		}

		returnIDRef := ret.ID
		orderIDRef := ret.OrderID
		entry, err := s.wallet.CreditTx(ctx, tx, wallet.MovementInput{
			UserID:      ret.RequestedBy,
			WalletType:  enums.WalletTypeActual,
			AmountPaise: ret.RefundAmountPaise,
			Kind:        enums.WalletTxKindRefund,
			OrderID:     &orderIDRef,
			ReturnID:    &returnIDRef,
		})
		if err != nil {
			if dbpkg.IsUniqueViolation(err, "uq_wallet_tx_refund_return") {
				return pkgerrors.New(pkgerrors.CodeRefundAlreadyIssued, "refund already issued for this return")
			}
			return err
		}
		s.metrics.IncWalletMovement(enums.WalletTxKindRefund.String(), enums.WalletTxDirectionCredit.String())

		updates := map[string]any{
			"status":       enums.ReturnStatusCompleted,
			"completed_at": time.Now(),
		}
		if err := repo.UpdateReturn(ctx, ret.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete return")
		}
		s.metrics.IncTransition("return", enums.ReturnStatusCompleted.String())

		if err := s.emitStateChange(ctx, tx, ret, enums.ReturnStatusCompleted, actor); err != nil {
			return err
		}
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRefundIssued,
			AggregateType: enums.AggregateReturn,
			AggregateID:   ret.ID,
			Version:       1,
			Actor:         returnActorRef(actor),
			Data: payloads.RefundIssuedEvent{
				ReturnID:    ret.ID,
				OrderID:     ret.OrderID,
				UserID:      ret.RequestedBy,
				AmountPaise: entry.AmountPaise,
			},
		})
	})
}

func (s *service) GetReturn(ctx context.Context, returnID uuid.UUID) (*models.ReturnRequest, error) {
	if returnID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return id required")
	}
	ret, err := s.repo.FindReturn(ctx, returnID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "return not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load return")
	}
	return ret, nil
}

func (s *service) ListVendorReturns(ctx context.Context, vendorID uuid.UUID, status *enums.ReturnStatus, params pagination.Params) (*ReturnList, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid return status")
	}
	list, err := s.repo.ListVendorReturns(ctx, vendorID, status, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list returns")
	}
	return list, nil
}

func (s *service) ListCustomerReturns(ctx context.Context, userID uuid.UUID, params pagination.Params) (*ReturnList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	list, err := s.repo.ListCustomerReturns(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list returns")
	}
	return list, nil
}

func (s *service) emitStateChange(ctx context.Context, tx *gorm.DB, ret *models.ReturnRequest, next enums.ReturnStatus, actor orders.Actor) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventReturnStateChanged,
		AggregateType: enums.AggregateReturn,
		AggregateID:   ret.ID,
		Version:       1,
		Actor:         returnActorRef(actor),
		Data: payloads.ReturnStateChangedEvent{
			ReturnID:  ret.ID,
			OrderID:   ret.OrderID,
			OldStatus: ret.Status,
			NewStatus: next,
		},
	})
}

func loadReturnForUpdate(ctx context.Context, repo Repository, returnID uuid.UUID) (*models.ReturnRequest, error) {
	ret, err := repo.FindReturnForUpdate(ctx, returnID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "return not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load return")
	}
	return ret, nil
}

func requireReturnVendor(ret *models.ReturnRequest, actor orders.Actor) error {
	if actor.Role == enums.ActorRoleAdmin {
		return nil
	}
	if actor.Role != enums.ActorRoleVendor {
		return pkgerrors.New(pkgerrors.CodeForbidden, "vendor role required")
	}
	if actor.VendorID == nil || *actor.VendorID != ret.VendorID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "return does not belong to vendor")
	}
	return nil
}

func requireReturnPartner(ret *models.ReturnRequest, actor orders.Actor) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if actor.Role == enums.ActorRoleAdmin {
		return nil
	}
	if actor.Role != enums.ActorRoleDeliveryPartner {
		return pkgerrors.New(pkgerrors.CodeForbidden, "delivery partner role required")
	}
	if actor.PartnerID == nil || ret.PartnerID == nil || *actor.PartnerID != *ret.PartnerID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "return does not belong to partner")
	}
	return nil
}

func returnActorRef(actor orders.Actor) *outbox.ActorRef {
	return &outbox.ActorRef{
		UserID:    actor.UserID,
		Role:      actor.Role.String(),
		VendorID:  actor.VendorID,
		PartnerID: actor.PartnerID,
	}
}

// Package referrals evaluates referral conversions after a referee's order is
// delivered. Each conversion row gets exactly one attempt.
package referrals

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sabzico/fulfillment-backend/internal/wallet"
	"github.com/sabzico/fulfillment-backend/pkg/config"
	"github.com/sabzico/fulfillment-backend/pkg/db/models"
	"github.com/sabzico/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/sabzico/fulfillment-backend/pkg/errors"
	"github.com/sabzico/fulfillment-backend/pkg/metrics"
	"github.com/sabzico/fulfillment-backend/pkg/outbox"
	"github.com/sabzico/fulfillment-backend/pkg/outbox/payloads"
)

const (
	failureInsufficientBalance = "insufficient_balance"
	failureOrderBelowMinimum   = "order_below_minimum"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service evaluates referral conversions.
type Service interface {
	// EvaluateConversion settles the pending conversion tied to orderID.
	// Terminal rows and orders without a conversion are no-ops.
	EvaluateConversion(ctx context.Context, orderID uuid.UUID) error
}

// ServiceParams collects the referral service dependencies.
type ServiceParams struct {
	Repository Repository
	TxRunner   txRunner
	Outbox     outboxPublisher
	Wallet     wallet.Service
	Config     config.ReferralConfig
	Metrics    *metrics.FulfillmentMetrics
}

type service struct {
	repo            Repository
	tx              txRunner
	outbox          outboxPublisher
	wallet          wallet.Service
	cashbackPercent decimal.Decimal
	rewardPercent   decimal.Decimal
	rewardCapPaise  int64
	minOrderPaise   int64
	metrics         *metrics.FulfillmentMetrics
}

// NewService parses the percent configuration up front so malformed values
// fail at boot, not during settlement.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("referrals repository required")
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
	cashbackPercent, err := decimal.NewFromString(params.Config.CashbackPercent)
	if err != nil {
		return nil, fmt.Errorf("parse cashback percent %q: %w", params.Config.CashbackPercent, err)
	}
	rewardPercent, err := decimal.NewFromString(params.Config.RewardPercent)
	if err != nil {
		return nil, fmt.Errorf("parse reward percent %q: %w", params.Config.RewardPercent, err)
	}
	if cashbackPercent.IsNegative() || rewardPercent.IsNegative() {
		return nil, fmt.Errorf("referral percents must be non-negative")
	}
	return &service{
		repo:            params.Repository,
		tx:              params.TxRunner,
		outbox:          params.Outbox,
		wallet:          params.Wallet,
		cashbackPercent: cashbackPercent,
		rewardPercent:   rewardPercent,
		rewardCapPaise:  params.Config.RewardCapPaise,
		minOrderPaise:   params.Config.MinOrderValuePaise,
		metrics:         params.Metrics,
	}, nil
}

func (s *service) EvaluateConversion(ctx context.Context, orderID uuid.UUID) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		conversion, err := repo.FindByOrderForUpdate(ctx, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load referral conversion")
		}
		// Single attempt: converted or failed rows stay as they are.
		if conversion.Converted || conversion.FailureReason != nil {
			return nil
		}

		if conversion.OrderValuePaise < s.minOrderPaise {
			return s.fail(ctx, tx, repo, conversion, failureOrderBelowMinimum)
		}

		cashback := percentOf(conversion.OrderValuePaise, s.cashbackPercent)
		reward := percentOf(conversion.OrderValuePaise, s.rewardPercent)
		if s.rewardCapPaise > 0 && reward > s.rewardCapPaise {
			reward = s.rewardCapPaise
		}

		if cashback > 0 {
			orderRef := conversion.OrderID
			if _, err := s.wallet.CreditTx(ctx, tx, wallet.MovementInput{
				UserID:      conversion.RefereeID,
				WalletType:  enums.WalletTypeVirtual,
				AmountPaise: cashback,
				Kind:        enums.WalletTxKindCashback,
				OrderID:     &orderRef,
			}); err != nil {
				return err
			}
			s.metrics.IncWalletMovement(enums.WalletTxKindCashback.String(), enums.WalletTxDirectionCredit.String())
		}

		// The reward converts only when the referee's virtual balance,
		// cashback included, covers it.
		balance, err := s.wallet.BalanceTx(ctx, tx, conversion.RefereeID, enums.WalletTypeVirtual)
		if err != nil {
			return err
		}
		if balance < reward {
			return s.fail(ctx, tx, repo, conversion, failureInsufficientBalance)
		}

		if reward > 0 {
			orderRef := conversion.OrderID
			if _, err := s.wallet.CreditTx(ctx, tx, wallet.MovementInput{
				UserID:      conversion.ReferrerID,
				WalletType:  enums.WalletTypeVirtual,
				AmountPaise: reward,
				Kind:        enums.WalletTxKindReferralReward,
				OrderID:     &orderRef,
			}); err != nil {
				return err
			}
			s.metrics.IncWalletMovement(enums.WalletTxKindReferralReward.String(), enums.WalletTxDirectionCredit.String())
		}

		now := time.Now()
		if err := repo.UpdateConversion(ctx, conversion.ID, map[string]any{
			"converted":    true,
			"converted_at": now,
			"reward_paise": reward,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark conversion")
		}
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReferralConverted,
			AggregateType: enums.AggregateReferralConversion,
			AggregateID:   conversion.ID,
			Version:       1,
			Data: payloads.ReferralConvertedEvent{
				ConversionID: conversion.ID,
				ReferrerID:   conversion.ReferrerID,
				RefereeID:    conversion.RefereeID,
				OrderID:      conversion.OrderID,
				RewardPaise:  reward,
			},
		})
	})
}

func (s *service) fail(ctx context.Context, tx *gorm.DB, repo Repository, conversion *models.ReferralConversion, reason string) error {
	if err := repo.UpdateConversion(ctx, conversion.ID, map[string]any{
		"failure_reason": reason,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark conversion failure")
	}
	return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventReferralConversionFailed,
		AggregateType: enums.AggregateReferralConversion,
		AggregateID:   conversion.ID,
		Version:       1,
		Data: payloads.ReferralConversionFailedEvent{
			ConversionID:  conversion.ID,
			ReferrerID:    conversion.ReferrerID,
			RefereeID:     conversion.RefereeID,
			OrderID:       conversion.OrderID,
			FailureReason: reason,
		},
	})
}

// percentOf truncates toward zero so paise never round up in the user's favor.
func percentOf(amountPaise int64, percent decimal.Decimal) int64 {
	return decimal.NewFromInt(amountPaise).
		Mul(percent).
		Div(decimal.NewFromInt(100)).
		IntPart()
}

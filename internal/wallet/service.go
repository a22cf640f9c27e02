package wallet

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sabzico/fulfillment-backend/pkg/db/models"
	"github.com/sabzico/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/sabzico/fulfillment-backend/pkg/errors"
	"github.com/sabzico/fulfillment-backend/pkg/outbox"
	"github.com/sabzico/fulfillment-backend/pkg/outbox/payloads"
	"github.com/sabzico/fulfillment-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines the wallet ledger operations.
type Service interface {
	Credit(ctx context.Context, input MovementInput) (*models.WalletTransaction, error)
	Debit(ctx context.Context, input MovementInput) (*models.WalletTransaction, error)
	// CreditTx and DebitTx append a ledger entry inside an already-open
	// transaction so sibling aggregates commit atomically with the movement.
	CreditTx(ctx context.Context, tx *gorm.DB, input MovementInput) (*models.WalletTransaction, error)
	DebitTx(ctx context.Context, tx *gorm.DB, input MovementInput) (*models.WalletTransaction, error)
	// RefundExistsTx reports whether a refund ledger entry was already
	// appended for the given return.
	RefundExistsTx(ctx context.Context, tx *gorm.DB, returnID uuid.UUID) (bool, error)
	Balances(ctx context.Context, userID uuid.UUID) (*Balances, error)
	BalanceTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID, walletType enums.WalletType) (int64, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, walletType *enums.WalletType, params pagination.Params) (*TransactionList, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
}

// NewService wires a wallet service with the provided dependencies.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outbox}, nil
}

func (s *service) Credit(ctx context.Context, input MovementInput) (*models.WalletTransaction, error) {
	var entry *models.WalletTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		entry, err = s.CreditTx(ctx, tx, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) Debit(ctx context.Context, input MovementInput) (*models.WalletTransaction, error) {
	var entry *models.WalletTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		entry, err = s.DebitTx(ctx, tx, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) CreditTx(ctx context.Context, tx *gorm.DB, input MovementInput) (*models.WalletTransaction, error) {
	return s.move(ctx, tx, input, enums.WalletTxDirectionCredit)
}

func (s *service) DebitTx(ctx context.Context, tx *gorm.DB, input MovementInput) (*models.WalletTransaction, error) {
	return s.move(ctx, tx, input, enums.WalletTxDirectionDebit)
}

func (s *service) move(ctx context.Context, tx *gorm.DB, input MovementInput, direction enums.WalletTxDirection) (*models.WalletTransaction, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !input.WalletType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid wallet type")
	}
	if !input.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid transaction kind")
	}
	if input.AmountPaise <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	repo := s.repo.WithTx(tx)

	account, err := repo.LockAccount(ctx, input.UserID, input.WalletType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock wallet account")
	}

	var balanceAfter int64
	switch direction {
	case enums.WalletTxDirectionCredit:
		balanceAfter = account.BalancePaise + input.AmountPaise
	case enums.WalletTxDirectionDebit:
		balanceAfter = account.BalancePaise - input.AmountPaise
		if balanceAfter < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientBalance, "wallet balance too low").
				WithDetails(map[string]any{
					"balance_paise":   account.BalancePaise,
					"requested_paise": input.AmountPaise,
				})
		}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid direction")
	}

	entry := &models.WalletTransaction{
		UserID:            input.UserID,
		WalletType:        input.WalletType,
		Kind:              input.Kind,
		Direction:         direction,
		AmountPaise:       input.AmountPaise,
		BalanceAfterPaise: balanceAfter,
		OrderID:           input.OrderID,
		ReturnID:          input.ReturnID,
	}
	if err := repo.InsertTransaction(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append ledger entry")
	}
	if err := repo.UpdateAccountBalance(ctx, account.ID, balanceAfter); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update wallet balance")
	}

	eventType := enums.EventWalletCredited
	if direction == enums.WalletTxDirectionDebit {
		eventType = enums.EventWalletDebited
	}
	event := outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateWalletTransaction,
		AggregateID:   entry.ID,
		Version:       1,
		Data: payloads.WalletMovementEvent{
			TransactionID:     entry.ID,
			UserID:            entry.UserID,
			WalletType:        entry.WalletType,
			Kind:              entry.Kind,
			AmountPaise:       entry.AmountPaise,
			BalanceAfterPaise: entry.BalanceAfterPaise,
			OrderID:           entry.OrderID,
			ReturnID:          entry.ReturnID,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) RefundExistsTx(ctx context.Context, tx *gorm.DB, returnID uuid.UUID) (bool, error) {
	if returnID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "return id required")
	}
	exists, err := s.repo.WithTx(tx).RefundExists(ctx, returnID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check refund ledger")
	}
	return exists, nil
}

func (s *service) Balances(ctx context.Context, userID uuid.UUID) (*Balances, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	balances := &Balances{}
	for _, walletType := range []enums.WalletType{enums.WalletTypeVirtual, enums.WalletTypeActual} {
		account, err := s.repo.FindAccount(ctx, userID, walletType)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				continue
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet account")
		}
		switch walletType {
		case enums.WalletTypeVirtual:
			balances.VirtualPaise = account.BalancePaise
		case enums.WalletTypeActual:
			balances.ActualPaise = account.BalancePaise
		}
	}
	return balances, nil
}

func (s *service) BalanceTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID, walletType enums.WalletType) (int64, error) {
	account, err := s.repo.WithTx(tx).FindAccount(ctx, userID, walletType)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, nil
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet account")
	}
	return account.BalancePaise, nil
}

func (s *service) ListTransactions(ctx context.Context, userID uuid.UUID, walletType *enums.WalletType, params pagination.Params) (*TransactionList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if walletType != nil && !walletType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid wallet type")
	}
	list, err := s.repo.ListTransactions(ctx, userID, walletType, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wallet transactions")
	}
	return list, nil
}

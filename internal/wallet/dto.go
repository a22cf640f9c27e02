package wallet

import (
	"time"

	"github.com/google/uuid"

	"github.com/sabzico/fulfillment-backend/pkg/enums"
)

// MovementInput describes one ledger credit or debit.
type MovementInput struct {
	UserID      uuid.UUID
	WalletType  enums.WalletType
	AmountPaise int64
	Kind        enums.WalletTxKind
	OrderID     *uuid.UUID
	ReturnID    *uuid.UUID
}

// Balances reports both wallet balances for a user.
type Balances struct {
	VirtualPaise int64 `json:"virtual_paise"`
	ActualPaise  int64 `json:"actual_paise"`
}

// TransactionSummary exposes one ledger entry.
type TransactionSummary struct {
	ID                uuid.UUID               `json:"id"`
	WalletType        enums.WalletType        `json:"wallet_type"`
	Kind              enums.WalletTxKind      `json:"kind"`
	Direction         enums.WalletTxDirection `json:"direction"`
	AmountPaise       int64                   `json:"amount_paise"`
	BalanceAfterPaise int64                   `json:"balance_after_paise"`
	OrderID           *uuid.UUID              `json:"order_id,omitempty"`
	ReturnID          *uuid.UUID              `json:"return_id,omitempty"`
	CreatedAt         time.Time               `json:"created_at"`
}

// TransactionList wraps paginated ledger entries plus the next cursor.
type TransactionList struct {
	Transactions []TransactionSummary `json:"transactions"`
	NextCursor   string               `json:"next_cursor,omitempty"`
}

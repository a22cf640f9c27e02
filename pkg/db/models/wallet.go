package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sabzico/fulfillment-backend/pkg/enums"
)

// WalletAccount holds the current balance for one (user, wallet type) pair.
// Ledger writes lock this row so balance_after computation never interleaves.
type WalletAccount struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID        `gorm:"column:user_id;type:uuid;not null;uniqueIndex:uq_wallet_accounts_user_type"`
	WalletType   enums.WalletType `gorm:"column:wallet_type;type:wallet_type;not null;uniqueIndex:uq_wallet_accounts_user_type"`
	BalancePaise int64            `gorm:"column:balance_paise;not null;default:0"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// WalletTransaction is an immutable ledger entry. Rows are append-only and
// balance_after snapshots the account balance at commit time.
type WalletTransaction struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID            uuid.UUID               `gorm:"column:user_id;type:uuid;not null"`
	WalletType        enums.WalletType        `gorm:"column:wallet_type;type:wallet_type;not null"`
	Kind              enums.WalletTxKind      `gorm:"column:kind;type:wallet_tx_kind;not null"`
	Direction         enums.WalletTxDirection `gorm:"column:direction;type:wallet_tx_direction;not null"`
	AmountPaise       int64                   `gorm:"column:amount_paise;not null"`
	BalanceAfterPaise int64                   `gorm:"column:balance_after_paise;not null"`
	OrderID           *uuid.UUID              `gorm:"column:order_id;type:uuid"`
	ReturnID          *uuid.UUID              `gorm:"column:return_id;type:uuid"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
}

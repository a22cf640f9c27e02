package wallet

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sabzico/fulfillment-backend/pkg/db/models"
	"github.com/sabzico/fulfillment-backend/pkg/enums"
	"github.com/sabzico/fulfillment-backend/pkg/pagination"
)

// Repository defines persistence operations for wallet accounts and the
// append-only transaction ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// LockAccount loads the (user, wallet type) account row under FOR UPDATE,
	// creating it with a zero balance when absent. Ledger writes for the same
	// key serialize on this lock.
	LockAccount(ctx context.Context, userID uuid.UUID, walletType enums.WalletType) (*models.WalletAccount, error)
	FindAccount(ctx context.Context, userID uuid.UUID, walletType enums.WalletType) (*models.WalletAccount, error)
	UpdateAccountBalance(ctx context.Context, accountID uuid.UUID, balancePaise int64) error
	InsertTransaction(ctx context.Context, tx *models.WalletTransaction) error
	RefundExists(ctx context.Context, returnID uuid.UUID) (bool, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, walletType *enums.WalletType, params pagination.Params) (*TransactionList, error)
}

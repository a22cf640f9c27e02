package wallet

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbpkg "github.com/sabzico/fulfillment-backend/pkg/db"
	"github.com/sabzico/fulfillment-backend/pkg/db/models"
	"github.com/sabzico/fulfillment-backend/pkg/enums"
	"github.com/sabzico/fulfillment-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a wallet repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) LockAccount(ctx context.Context, userID uuid.UUID, walletType enums.WalletType) (*models.WalletAccount, error) {
	var account models.WalletAccount
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND wallet_type = ?", userID, walletType).
		First(&account).Error
	if err == nil {
		return &account, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	account = models.WalletAccount{UserID: userID, WalletType: walletType}
	if err := r.db.WithContext(ctx).Create(&account).Error; err != nil {
		if !dbpkg.IsUniqueViolation(err, "uq_wallet_accounts_user_type") {
			return nil, err
		}
		// Lost the creation race; lock the winner's row.
		err = r.db.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND wallet_type = ?", userID, walletType).
			First(&account).Error
		if err != nil {
			return nil, err
		}
	}
	return &account, nil
}

func (r *repository) FindAccount(ctx context.Context, userID uuid.UUID, walletType enums.WalletType) (*models.WalletAccount, error) {
	var account models.WalletAccount
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND wallet_type = ?", userID, walletType).
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) UpdateAccountBalance(ctx context.Context, accountID uuid.UUID, balancePaise int64) error {
	return r.db.WithContext(ctx).
		Model(&models.WalletAccount{}).
		Where("id = ?", accountID).
		Update("balance_paise", balancePaise).Error
}

func (r *repository) InsertTransaction(ctx context.Context, tx *models.WalletTransaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

func (r *repository) RefundExists(ctx context.Context, returnID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.WalletTransaction{}).
		Where("return_id = ? AND kind = ?", returnID, enums.WalletTxKindRefund).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) ListTransactions(ctx context.Context, userID uuid.UUID, walletType *enums.WalletType, params pagination.Params) (*TransactionList, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	query := r.db.WithContext(ctx).
		Model(&models.WalletTransaction{}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit)

	if walletType != nil {
		query = query.Where("wallet_type = ?", *walletType)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.WalletTransaction
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	pageSize := pagination.NormalizeLimit(params.Limit)
	list := &TransactionList{Transactions: make([]TransactionSummary, 0, len(rows))}
	for i, row := range rows {
		if i == pageSize {
			last := rows[pageSize-1]
			list.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
			break
		}
		list.Transactions = append(list.Transactions, TransactionSummary{
			ID:                row.ID,
			WalletType:        row.WalletType,
			Kind:              row.Kind,
			Direction:         row.Direction,
			AmountPaise:       row.AmountPaise,
			BalanceAfterPaise: row.BalanceAfterPaise,
			OrderID:           row.OrderID,
			ReturnID:          row.ReturnID,
			CreatedAt:         row.CreatedAt,
		})
	}
	return list, nil
}

package returns

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sabzico/fulfillment-backend/pkg/db/models"
	"github.com/sabzico/fulfillment-backend/pkg/enums"
	"github.com/sabzico/fulfillment-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a returns repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateReturn(ctx context.Context, ret *models.ReturnRequest) error {
	return r.db.WithContext(ctx).Create(ret).Error
}

func (r *repository) FindReturn(ctx context.Context, returnID uuid.UUID) (*models.ReturnRequest, error) {
	var ret models.ReturnRequest
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", returnID).
		First(&ret).Error
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

func (r *repository) FindReturnForUpdate(ctx context.Context, returnID uuid.UUID) (*models.ReturnRequest, error) {
	var ret models.ReturnRequest
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", returnID).
		First(&ret).Error
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

func (r *repository) FindReturnItems(ctx context.Context, returnID uuid.UUID) ([]models.ReturnItem, error) {
	var items []models.ReturnItem
	err := r.db.WithContext(ctx).
		Where("return_id = ?", returnID).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) UpdateReturn(ctx context.Context, returnID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.ReturnRequest{}).
		Where("id = ?", returnID).
		Updates(updates).Error
}

func (r *repository) FindOrderItems(ctx context.Context, itemIDs []uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.db.WithContext(ctx).
		Where("id IN ?", itemIDs).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) AdjustReturnedQty(ctx context.Context, itemID uuid.UUID, delta int) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("id = ?", itemID).
		Update("returned_qty", gorm.Expr("returned_qty + ?", delta)).Error
}

func (r *repository) ListVendorReturns(ctx context.Context, vendorID uuid.UUID, status *enums.ReturnStatus, params pagination.Params) (*ReturnList, error) {
	query := r.db.WithContext(ctx).Where("vendor_id = ?", vendorID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	return r.list(ctx, query, params)
}

func (r *repository) ListCustomerReturns(ctx context.Context, userID uuid.UUID, params pagination.Params) (*ReturnList, error) {
	query := r.db.WithContext(ctx).Where("requested_by = ?", userID)
	return r.list(ctx, query, params)
}

func (r *repository) list(ctx context.Context, query *gorm.DB, params pagination.Params) (*ReturnList, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	query = query.
		Model(&models.ReturnRequest{}).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.ReturnRequest
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	pageSize := pagination.NormalizeLimit(params.Limit)
	list := &ReturnList{Returns: make([]ReturnSummary, 0, len(rows))}
	for i, row := range rows {
		if i == pageSize {
			last := rows[pageSize-1]
			list.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
			break
		}
		list.Returns = append(list.Returns, ReturnSummary{
			ID:                row.ID,
			OrderID:           row.OrderID,
			VendorID:          row.VendorID,
			Reason:            row.Reason,
			RefundAmountPaise: row.RefundAmountPaise,
			Status:            row.Status,
			CreatedAt:         row.CreatedAt,
			CompletedAt:       row.CompletedAt,
		})
	}
	return list, nil
}

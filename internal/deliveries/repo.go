package deliveries

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

// NewRepository builds a deliveries repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateDelivery(ctx context.Context, delivery *models.Delivery) error {
	return r.db.WithContext(ctx).Create(delivery).Error
}

func (r *repository) CreateDeliveryItems(ctx context.Context, items []models.DeliveryItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) FindDelivery(ctx context.Context, deliveryID uuid.UUID) (*models.Delivery, error) {
	var delivery models.Delivery
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", deliveryID).
		First(&delivery).Error
	if err != nil {
		return nil, err
	}
	return &delivery, nil
}

func (r *repository) FindDeliveryForUpdate(ctx context.Context, deliveryID uuid.UUID) (*models.Delivery, error) {
	var delivery models.Delivery
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", deliveryID).
		First(&delivery).Error
	if err != nil {
		return nil, err
	}
	return &delivery, nil
}

func (r *repository) FindJoinableByOrderAndVendor(ctx context.Context, orderID, vendorID uuid.UUID) (*models.Delivery, error) {
	var delivery models.Delivery
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND vendor_id = ?", orderID, vendorID).
		Where("status IN ?", []enums.DeliveryStatus{enums.DeliveryStatusAssigned, enums.DeliveryStatusAccepted}).
		First(&delivery).Error
	if err != nil {
		return nil, err
	}
	return &delivery, nil
}

func (r *repository) FindItemIDs(ctx context.Context, deliveryID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.DeliveryItem{}).
		Where("delivery_id = ?", deliveryID).
		Pluck("order_item_id", &ids).Error
	return ids, err
}

func (r *repository) UpdateDelivery(ctx context.Context, deliveryID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Delivery{}).
		Where("id = ?", deliveryID).
		Updates(updates).Error
}

func (r *repository) ListPartnerDeliveries(ctx context.Context, partnerID uuid.UUID, status *enums.DeliveryStatus, params pagination.Params) (*DeliveryList, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	query := r.db.WithContext(ctx).
		Model(&models.Delivery{}).
		Where("partner_id = ?", partnerID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit)

	if status != nil {
		query = query.Where("status = ?", *status)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Delivery
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	pageSize := pagination.NormalizeLimit(params.Limit)
	list := &DeliveryList{Deliveries: make([]DeliverySummary, 0, len(rows))}
	for i, row := range rows {
		if i == pageSize {
			last := rows[pageSize-1]
			list.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
			break
		}
		list.Deliveries = append(list.Deliveries, DeliverySummary{
			ID:              row.ID,
			OrderID:         row.OrderID,
			VendorID:        row.VendorID,
			PickupAddress:   row.PickupAddress,
			DeliveryAddress: row.DeliveryAddress,
			Status:          row.Status,
			CreatedAt:       row.CreatedAt,
			DeliveredAt:     row.DeliveredAt,
		})
	}
	return list, nil
}

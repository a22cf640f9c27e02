package referrals

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sabzico/fulfillment-backend/pkg/db/models"
)

// Repository defines persistence operations for referral conversions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// FindByOrderForUpdate locks the conversion row so the single attempt
	// cannot race with itself on redelivered events.
	FindByOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*models.ReferralConversion, error)
	UpdateConversion(ctx context.Context, conversionID uuid.UUID, updates map[string]any) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a referrals repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*models.ReferralConversion, error) {
	var conversion models.ReferralConversion
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ?", orderID).
		First(&conversion).Error
	if err != nil {
		return nil, err
	}
	return &conversion, nil
}

func (r *repository) UpdateConversion(ctx context.Context, conversionID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.ReferralConversion{}).
		Where("id = ?", conversionID).
		Updates(updates).Error
}

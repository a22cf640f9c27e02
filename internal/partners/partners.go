// Package partners provides the delivery partner roster and the active-load
// lookup assignment decisions depend on.
package partners

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sabzico/fulfillment-backend/pkg/db/models"
	"github.com/sabzico/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/sabzico/fulfillment-backend/pkg/errors"
)

// Repository defines persistence operations for delivery partners.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindPartner(ctx context.Context, partnerID uuid.UUID) (*models.DeliveryPartner, error)
	CountActiveDeliveries(ctx context.Context, partnerID uuid.UUID) (int64, error)
	ListActive(ctx context.Context) ([]models.DeliveryPartner, error)
}

// Service exposes partner capacity checks to the delivery and return engines.
type Service interface {
	// EnsureAvailable verifies the partner exists, is active, and has spare
	// capacity. Returns PartnerUnavailable otherwise.
	EnsureAvailable(ctx context.Context, tx *gorm.DB, partnerID uuid.UUID) (*models.DeliveryPartner, error)
	ListActive(ctx context.Context) ([]models.DeliveryPartner, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a partners repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindPartner(ctx context.Context, partnerID uuid.UUID) (*models.DeliveryPartner, error) {
	var partner models.DeliveryPartner
	err := r.db.WithContext(ctx).
		Where("id = ?", partnerID).
		First(&partner).Error
	if err != nil {
		return nil, err
	}
	return &partner, nil
}

func (r *repository) CountActiveDeliveries(ctx context.Context, partnerID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Delivery{}).
		Where("partner_id = ? AND status NOT IN ?", partnerID,
			[]enums.DeliveryStatus{enums.DeliveryStatusDelivered, enums.DeliveryStatusFailed}).
		Count(&count).Error
	return count, err
}

func (r *repository) ListActive(ctx context.Context) ([]models.DeliveryPartner, error) {
	var rows []models.DeliveryPartner
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("name ASC").
		Find(&rows).Error
	return rows, err
}

type service struct {
	repo Repository
}

// NewService wires a partners service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("partners repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) EnsureAvailable(ctx context.Context, tx *gorm.DB, partnerID uuid.UUID) (*models.DeliveryPartner, error) {
	if partnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "partner id required")
	}
	repo := s.repo.WithTx(tx)

	partner, err := repo.FindPartner(ctx, partnerID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "delivery partner not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery partner")
	}
	if !partner.Active {
		return nil, pkgerrors.New(pkgerrors.CodePartnerUnavailable, "partner is inactive")
	}
	load, err := repo.CountActiveDeliveries(ctx, partnerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count partner load")
	}
	if load >= int64(partner.MaxActiveTasks) {
		return nil, pkgerrors.New(pkgerrors.CodePartnerUnavailable, "partner is at capacity")
	}
	return partner, nil
}

func (s *service) ListActive(ctx context.Context) ([]models.DeliveryPartner, error) {
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list partners")
	}
	return rows, nil
}

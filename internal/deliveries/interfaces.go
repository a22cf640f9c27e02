package deliveries

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sabzico/fulfillment-backend/pkg/db/models"
	"github.com/sabzico/fulfillment-backend/pkg/enums"
	"github.com/sabzico/fulfillment-backend/pkg/pagination"
)

// Repository defines persistence operations for deliveries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateDelivery(ctx context.Context, delivery *models.Delivery) error
	CreateDeliveryItems(ctx context.Context, items []models.DeliveryItem) error
	FindDelivery(ctx context.Context, deliveryID uuid.UUID) (*models.Delivery, error)
	// FindDeliveryForUpdate locks the delivery row so OTP verification is an
	// atomic check-and-transition.
	FindDeliveryForUpdate(ctx context.Context, deliveryID uuid.UUID) (*models.Delivery, error)
	// FindJoinableByOrderAndVendor returns the vendor's delivery for the order
	// that is still open for additional items (assigned or accepted).
	FindJoinableByOrderAndVendor(ctx context.Context, orderID, vendorID uuid.UUID) (*models.Delivery, error)
	FindItemIDs(ctx context.Context, deliveryID uuid.UUID) ([]uuid.UUID, error)
	UpdateDelivery(ctx context.Context, deliveryID uuid.UUID, updates map[string]any) error
	ListPartnerDeliveries(ctx context.Context, partnerID uuid.UUID, status *enums.DeliveryStatus, params pagination.Params) (*DeliveryList, error)
}

// AddressResolver materializes address text for delivery records. The address
// book lives with the identity platform, so the lookup stays behind an
// interface.
type AddressResolver interface {
	VendorPickupAddress(ctx context.Context, vendorID uuid.UUID) (string, error)
	CustomerDeliveryAddress(ctx context.Context, addressID uuid.UUID) (string, error)
}

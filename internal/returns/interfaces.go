package returns

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sabzico/fulfillment-backend/pkg/db/models"
	"github.com/sabzico/fulfillment-backend/pkg/enums"
	"github.com/sabzico/fulfillment-backend/pkg/pagination"
)

// Repository defines persistence operations for return requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateReturn(ctx context.Context, ret *models.ReturnRequest) error
	FindReturn(ctx context.Context, returnID uuid.UUID) (*models.ReturnRequest, error)
	// FindReturnForUpdate locks the return row so OTP verification and refund
	// issuance are atomic check-and-transitions.
	FindReturnForUpdate(ctx context.Context, returnID uuid.UUID) (*models.ReturnRequest, error)
	FindReturnItems(ctx context.Context, returnID uuid.UUID) ([]models.ReturnItem, error)
	UpdateReturn(ctx context.Context, returnID uuid.UUID, updates map[string]any) error
	FindOrderItems(ctx context.Context, itemIDs []uuid.UUID) ([]models.OrderItem, error)
	AdjustReturnedQty(ctx context.Context, itemID uuid.UUID, delta int) error
	ListVendorReturns(ctx context.Context, vendorID uuid.UUID, status *enums.ReturnStatus, params pagination.Params) (*ReturnList, error)
	ListCustomerReturns(ctx context.Context, userID uuid.UUID, params pagination.Params) (*ReturnList, error)
}

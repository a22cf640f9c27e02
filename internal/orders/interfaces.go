package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sabzico/fulfillment-backend/pkg/db/models"
	"github.com/sabzico/fulfillment-backend/pkg/enums"
	"github.com/sabzico/fulfillment-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	FindItem(ctx context.Context, itemID uuid.UUID) (*models.OrderItem, error)
	UpdateItemStatus(ctx context.Context, itemID uuid.UUID, status enums.OrderItemStatus) error
	UpdateItemStatuses(ctx context.Context, itemIDs []uuid.UUID, status enums.OrderItemStatus) error
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	ListCustomerOrders(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*OrderList, error)
	ListVendorItems(ctx context.Context, vendorID uuid.UUID, status *enums.OrderItemStatus, params pagination.Params) (*VendorItemList, error)
}

package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sabzico/fulfillment-backend/pkg/db/models"
	"github.com/sabzico/fulfillment-backend/pkg/enums"
	"github.com/sabzico/fulfillment-backend/pkg/pagination"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  customer_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'placed',
  subtotal_paise INTEGER NOT NULL,
  discount_paise INTEGER NOT NULL DEFAULT 0,
  delivery_fee_paise INTEGER NOT NULL DEFAULT 0,
  wallet_used_paise INTEGER NOT NULL DEFAULT 0,
  total_paise INTEGER NOT NULL,
  delivery_address_id TEXT NOT NULL,
  canceled_at DATETIME,
  delivered_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	orderItems := `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  vendor_id TEXT NOT NULL,
  product_id TEXT,
  name TEXT NOT NULL,
  qty INTEGER NOT NULL,
  returned_qty INTEGER NOT NULL DEFAULT 0,
  unit_price_paise INTEGER NOT NULL,
  total_paise INTEGER NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(orders).Error)
	require.NoError(t, db.Exec(orderItems).Error)
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, customerID uuid.UUID, createdAt time.Time, items ...models.OrderItem) models.Order {
	t.Helper()

	order := models.Order{
		ID:                uuid.New(),
		CustomerID:        customerID,
		Status:            enums.OrderStatusPlaced,
		SubtotalPaise:     10_000,
		TotalPaise:        10_000,
		DeliveryAddressID: uuid.New(),
		CreatedAt:         createdAt,
		UpdatedAt:         createdAt,
	}
	require.NoError(t, db.Create(&order).Error)

	for i := range items {
		items[i].ID = uuid.New()
		items[i].OrderID = order.ID
		items[i].CreatedAt = createdAt
		items[i].UpdatedAt = createdAt
		require.NoError(t, db.Create(&items[i]).Error)
	}
	return order
}

func TestListCustomerOrdersPagination(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	customerID := uuid.New()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	oldest := seedOrder(t, db, customerID, base)
	middle := seedOrder(t, db, customerID, base.Add(time.Hour))
	newest := seedOrder(t, db, customerID, base.Add(2*time.Hour))
	seedOrder(t, db, uuid.New(), base.Add(3*time.Hour))

	page, err := repo.ListCustomerOrders(ctx, customerID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Orders, 2)
	assert.Equal(t, newest.ID, page.Orders[0].ID)
	assert.Equal(t, middle.ID, page.Orders[1].ID)
	require.NotEmpty(t, page.NextCursor)

	rest, err := repo.ListCustomerOrders(ctx, customerID, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Orders, 1)
	assert.Equal(t, oldest.ID, rest.Orders[0].ID)
	assert.Empty(t, rest.NextCursor)
}

func TestListCustomerOrdersIncludesItemCount(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	customerID := uuid.New()
	vendorID := uuid.New()
	seedOrder(t, db, customerID, time.Now().UTC(),
		models.OrderItem{VendorID: vendorID, Name: "spinach", Qty: 2, UnitPricePaise: 1500, TotalPaise: 3000, Status: enums.OrderItemStatusPending},
		models.OrderItem{VendorID: vendorID, Name: "paneer", Qty: 1, UnitPricePaise: 9000, TotalPaise: 9000, Status: enums.OrderItemStatusPending},
	)

	page, err := repo.ListCustomerOrders(ctx, customerID, pagination.Params{Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Orders, 1)
	assert.Equal(t, 2, page.Orders[0].TotalItems)
}

func TestListVendorItemsStatusFilter(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	vendorID := uuid.New()
	seedOrder(t, db, uuid.New(), time.Now().UTC(),
		models.OrderItem{VendorID: vendorID, Name: "okra", Qty: 1, UnitPricePaise: 2000, TotalPaise: 2000, Status: enums.OrderItemStatusPending},
		models.OrderItem{VendorID: vendorID, Name: "mango", Qty: 3, UnitPricePaise: 4000, TotalPaise: 12000, Status: enums.OrderItemStatusAccepted},
		models.OrderItem{VendorID: uuid.New(), Name: "rice", Qty: 1, UnitPricePaise: 6000, TotalPaise: 6000, Status: enums.OrderItemStatusPending},
	)

	all, err := repo.ListVendorItems(ctx, vendorID, nil, pagination.Params{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, all.Items, 2)

	pending := enums.OrderItemStatusPending
	filtered, err := repo.ListVendorItems(ctx, vendorID, &pending, pagination.Params{Limit: 10})
	require.NoError(t, err)
	require.Len(t, filtered.Items, 1)
	assert.Equal(t, "okra", filtered.Items[0].Name)
	assert.Equal(t, enums.OrderItemStatusPending, filtered.Items[0].Status)
}

func TestUpdateItemStatuses(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	vendorID := uuid.New()
	order := seedOrder(t, db, uuid.New(), time.Now().UTC(),
		models.OrderItem{VendorID: vendorID, Name: "tomato", Qty: 1, UnitPricePaise: 1000, TotalPaise: 1000, Status: enums.OrderItemStatusPending},
		models.OrderItem{VendorID: vendorID, Name: "onion", Qty: 1, UnitPricePaise: 1000, TotalPaise: 1000, Status: enums.OrderItemStatusPending},
	)

	items, err := repo.FindItemsByOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)

	ids := []uuid.UUID{items[0].ID, items[1].ID}
	require.NoError(t, repo.UpdateItemStatuses(ctx, ids, enums.OrderItemStatusAccepted))

	updated, err := repo.FindItemsByOrder(ctx, order.ID)
	require.NoError(t, err)
	for _, item := range updated {
		assert.Equal(t, enums.OrderItemStatusAccepted, item.Status)
	}

	// empty batch is a no-op, not an error
	require.NoError(t, repo.UpdateItemStatuses(ctx, nil, enums.OrderItemStatusRejected))
}

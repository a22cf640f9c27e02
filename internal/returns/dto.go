package returns

import (
	"time"

	"github.com/google/uuid"

	"github.com/sabzico/fulfillment-backend/pkg/enums"
)

// RequestItemInput selects one order item and the quantity being sent back.
type RequestItemInput struct {
	OrderItemID uuid.UUID
	Qty         int
}

// RequestInput captures a customer's return request.
type RequestInput struct {
	OrderID uuid.UUID
	Reason  string
	Items   []RequestItemInput
}

// ReturnSummary exposes one return request in a list.
type ReturnSummary struct {
	ID                uuid.UUID          `json:"id"`
	OrderID           uuid.UUID          `json:"order_id"`
	VendorID          uuid.UUID          `json:"vendor_id"`
	Reason            string             `json:"reason"`
	RefundAmountPaise int64              `json:"refund_amount_paise"`
	Status            enums.ReturnStatus `json:"status"`
	CreatedAt         time.Time          `json:"created_at"`
	CompletedAt       *time.Time         `json:"completed_at,omitempty"`
}

// ReturnList wraps paginated returns plus the next cursor.
type ReturnList struct {
	Returns    []ReturnSummary `json:"returns"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

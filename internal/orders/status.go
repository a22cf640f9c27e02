package orders

import (
	"github.com/sabzico/fulfillment-backend/pkg/db/models"
	"github.com/sabzico/fulfillment-backend/pkg/enums"
)

// ComputeOrderStatus derives the whole-order status from its item statuses.
// The result depends only on the item states, so recomputation is idempotent.
func ComputeOrderStatus(items []models.OrderItem) enums.OrderStatus {
	if len(items) == 0 {
		return enums.OrderStatusPlaced
	}

	var pending, accepted, preparing, outForDelivery, delivered, rejected, unfulfillable, canceled int
	for _, item := range items {
		switch item.Status {
		case enums.OrderItemStatusPending:
			pending++
		case enums.OrderItemStatusAccepted:
			accepted++
		case enums.OrderItemStatusPreparing:
			preparing++
		case enums.OrderItemStatusOutForDelivery:
			outForDelivery++
		case enums.OrderItemStatusDelivered:
			delivered++
		case enums.OrderItemStatusRejected:
			rejected++
		case enums.OrderItemStatusUnfulfillable:
			unfulfillable++
		case enums.OrderItemStatusCanceled:
			canceled++
		}
	}

	total := len(items)
	active := accepted + preparing + outForDelivery

	if pending == total {
		return enums.OrderStatusPlaced
	}

	if pending > 0 {
		// Some items still await a vendor decision.
		if active+delivered > 0 {
			return enums.OrderStatusPartiallyAccepted
		}
		return enums.OrderStatusProcessing
	}

	if active == 0 {
		// Every item reached a terminal state. Unfulfillable on every item
		// means delivery failure wrote the whole order off; a mix with
		// rejections is a vendor decision outcome.
		switch {
		case delivered == total:
			return enums.OrderStatusDelivered
		case unfulfillable == total:
			return enums.OrderStatusFailed
		case rejected+unfulfillable == total:
			return enums.OrderStatusUnfulfillable
		case canceled == total:
			return enums.OrderStatusCanceled
		default:
			return enums.OrderStatusPartiallyDelivered
		}
	}

	if preparing+outForDelivery == 0 {
		// Only accepted items remain in flight.
		if delivered+rejected+unfulfillable+canceled > 0 {
			return enums.OrderStatusPartiallyAccepted
		}
		return enums.OrderStatusPreparing
	}

	if outForDelivery+delivered >= accepted+preparing {
		return enums.OrderStatusOutForDelivery
	}
	return enums.OrderStatusPreparing
}

package orders

import (
	"testing"

	"github.com/sabzico/fulfillment-backend/pkg/db/models"
	"github.com/sabzico/fulfillment-backend/pkg/enums"
)

func itemsWith(statuses ...enums.OrderItemStatus) []models.OrderItem {
	items := make([]models.OrderItem, len(statuses))
	for i, status := range statuses {
		items[i] = models.OrderItem{Status: status}
	}
	return items
}

func TestComputeOrderStatus(t *testing.T) {
	cases := []struct {
		name     string
		statuses []enums.OrderItemStatus
		want     enums.OrderStatus
	}{
		{
			name:     "all pending stays placed",
			statuses: []enums.OrderItemStatus{enums.OrderItemStatusPending, enums.OrderItemStatusPending},
			want:     enums.OrderStatusPlaced,
		},
		{
			name:     "pending plus accepted is partially accepted",
			statuses: []enums.OrderItemStatus{enums.OrderItemStatusPending, enums.OrderItemStatusAccepted},
			want:     enums.OrderStatusPartiallyAccepted,
		},
		{
			name:     "pending plus rejected stays processing",
			statuses: []enums.OrderItemStatus{enums.OrderItemStatusPending, enums.OrderItemStatusRejected},
			want:     enums.OrderStatusProcessing,
		},
		{
			name:     "accepted plus rejected is partially accepted",
			statuses: []enums.OrderItemStatus{enums.OrderItemStatusAccepted, enums.OrderItemStatusRejected},
			want:     enums.OrderStatusPartiallyAccepted,
		},
		{
			name:     "all accepted is preparing",
			statuses: []enums.OrderItemStatus{enums.OrderItemStatusAccepted, enums.OrderItemStatusAccepted},
			want:     enums.OrderStatusPreparing,
		},
		{
			name:     "majority out for delivery",
			statuses: []enums.OrderItemStatus{enums.OrderItemStatusOutForDelivery, enums.OrderItemStatusOutForDelivery, enums.OrderItemStatusPreparing},
			want:     enums.OrderStatusOutForDelivery,
		},
		{
			name:     "majority preparing",
			statuses: []enums.OrderItemStatus{enums.OrderItemStatusPreparing, enums.OrderItemStatusPreparing, enums.OrderItemStatusAccepted, enums.OrderItemStatusOutForDelivery},
			want:     enums.OrderStatusPreparing,
		},
		{
			name:     "all delivered",
			statuses: []enums.OrderItemStatus{enums.OrderItemStatusDelivered, enums.OrderItemStatusDelivered},
			want:     enums.OrderStatusDelivered,
		},
		{
			name:     "delivered plus rejected is partially delivered",
			statuses: []enums.OrderItemStatus{enums.OrderItemStatusDelivered, enums.OrderItemStatusRejected},
			want:     enums.OrderStatusPartiallyDelivered,
		},
		{
			name:     "delivered plus canceled is partially delivered",
			statuses: []enums.OrderItemStatus{enums.OrderItemStatusDelivered, enums.OrderItemStatusCanceled},
			want:     enums.OrderStatusPartiallyDelivered,
		},
		{
			name:     "all rejected or unfulfillable",
			statuses: []enums.OrderItemStatus{enums.OrderItemStatusRejected, enums.OrderItemStatusUnfulfillable},
			want:     enums.OrderStatusUnfulfillable,
		},
		{
			name:     "all unfulfillable is failed",
			statuses: []enums.OrderItemStatus{enums.OrderItemStatusUnfulfillable, enums.OrderItemStatusUnfulfillable},
			want:     enums.OrderStatusFailed,
		},
		{
			name:     "all canceled",
			statuses: []enums.OrderItemStatus{enums.OrderItemStatusCanceled, enums.OrderItemStatusCanceled},
			want:     enums.OrderStatusCanceled,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeOrderStatus(itemsWith(tc.statuses...))
			if got != tc.want {
				t.Fatalf("expected %s got %s", tc.want, got)
			}
			// Recomputing from the same item states must be stable.
			if again := ComputeOrderStatus(itemsWith(tc.statuses...)); again != got {
				t.Fatalf("recomputation not idempotent: %s then %s", got, again)
			}
		})
	}
}

func TestOrderItemTransitionTable(t *testing.T) {
	all := []enums.OrderItemStatus{
		enums.OrderItemStatusPending,
		enums.OrderItemStatusAccepted,
		enums.OrderItemStatusRejected,
		enums.OrderItemStatusPreparing,
		enums.OrderItemStatusOutForDelivery,
		enums.OrderItemStatusDelivered,
		enums.OrderItemStatusUnfulfillable,
		enums.OrderItemStatusCanceled,
	}

	allowed := map[enums.OrderItemStatus]map[enums.OrderItemStatus]bool{
		enums.OrderItemStatusPending: {
			enums.OrderItemStatusAccepted:      true,
			enums.OrderItemStatusRejected:      true,
			enums.OrderItemStatusUnfulfillable: true,
			enums.OrderItemStatusCanceled:      true,
		},
		enums.OrderItemStatusAccepted: {
			enums.OrderItemStatusPreparing:     true,
			enums.OrderItemStatusUnfulfillable: true,
			enums.OrderItemStatusCanceled:      true,
		},
		enums.OrderItemStatusRejected: {
			enums.OrderItemStatusUnfulfillable: true,
			enums.OrderItemStatusCanceled:      true,
		},
		enums.OrderItemStatusPreparing: {
			enums.OrderItemStatusOutForDelivery: true,
			enums.OrderItemStatusUnfulfillable:  true,
			enums.OrderItemStatusCanceled:       true,
		},
		enums.OrderItemStatusOutForDelivery: {
			enums.OrderItemStatusDelivered:     true,
			enums.OrderItemStatusUnfulfillable: true,
			enums.OrderItemStatusCanceled:      true,
		},
		enums.OrderItemStatusDelivered:     {},
		enums.OrderItemStatusUnfulfillable: {},
		enums.OrderItemStatusCanceled:      {},
	}

	for _, from := range all {
		for _, to := range all {
			want := allowed[from][to]
			if got := from.CanTransitionTo(to); got != want {
				t.Errorf("%s -> %s: expected %v got %v", from, to, want, got)
			}
		}
	}
}

func TestDeliveryTransitionTable(t *testing.T) {
	all := []enums.DeliveryStatus{
		enums.DeliveryStatusAssigned,
		enums.DeliveryStatusAccepted,
		enums.DeliveryStatusPicked,
		enums.DeliveryStatusOutForDelivery,
		enums.DeliveryStatusDelivered,
		enums.DeliveryStatusFailed,
	}

	allowed := map[enums.DeliveryStatus]map[enums.DeliveryStatus]bool{
		enums.DeliveryStatusAssigned:       {enums.DeliveryStatusAccepted: true, enums.DeliveryStatusFailed: true},
		enums.DeliveryStatusAccepted:       {enums.DeliveryStatusPicked: true, enums.DeliveryStatusFailed: true},
		enums.DeliveryStatusPicked:         {enums.DeliveryStatusOutForDelivery: true, enums.DeliveryStatusFailed: true},
		enums.DeliveryStatusOutForDelivery: {enums.DeliveryStatusDelivered: true, enums.DeliveryStatusFailed: true},
		enums.DeliveryStatusDelivered:      {},
		enums.DeliveryStatusFailed:         {},
	}

	for _, from := range all {
		for _, to := range all {
			want := allowed[from][to]
			if got := from.CanTransitionTo(to); got != want {
				t.Errorf("%s -> %s: expected %v got %v", from, to, want, got)
			}
		}
	}
}

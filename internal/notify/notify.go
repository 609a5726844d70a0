// Package notify fans order events out to buyers and sellers. Delivery to
// devices is someone else's job; this package only records and publishes.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/SaugatGautam100/plexify/internal/domain"
	"github.com/SaugatGautam100/plexify/internal/pricing"
)

type EventType string

const (
	EventOrderPlaced        EventType = "order_placed"
	EventOrderStatusChanged EventType = "order_status_changed"
)

// Recipient addresses a user inbox, e.g. "user:buyer-1" or "seller:s1".
type Recipient string

func BuyerRecipient(id string) Recipient { return Recipient("user:" + id) }
func SellerRecipient(id string) Recipient { return Recipient("seller:" + id) }

type Event struct {
	Type           EventType          `json:"type"`
	OrderID        string             `json:"orderId"`
	OrderNumber    string             `json:"orderNumber"`
	Status         domain.OrderStatus `json:"status"`
	PreviousStatus domain.OrderStatus `json:"previousStatus,omitempty"`
	Total          string             `json:"total"`
	Message        string             `json:"message"`
	OccurredAt     time.Time          `json:"occurredAt"`
}

type envelope struct {
	to    Recipient
	event Event
}

// placedEvents tells the buyer and every seller with items in the order.
func placedEvents(order domain.Order) []envelope {
	base := Event{
		Type:        EventOrderPlaced,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
		Total:       pricing.Format(order.Total),
		OccurredAt:  order.CreatedAt,
	}

	out := make([]envelope, 0, 1+len(order.Items))
	buyer := base
	buyer.Message = fmt.Sprintf("Order %s placed, total %s", order.OrderNumber, base.Total)
	out = append(out, envelope{to: BuyerRecipient(order.Buyer.ID), event: buyer})

	for _, sellerID := range order.SellerIDs() {
		units := 0
		for _, item := range order.Items {
			if item.SellerID == sellerID {
				units += item.Quantity
			}
		}
		seller := base
		seller.Message = fmt.Sprintf("New order %s with %d of your items", order.OrderNumber, units)
		out = append(out, envelope{to: SellerRecipient(sellerID), event: seller})
	}
	return out
}

func statusEvents(order domain.Order, previous domain.OrderStatus) []envelope {
	ev := Event{
		Type:           EventOrderStatusChanged,
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		Status:         order.Status,
		PreviousStatus: previous,
		Total:          pricing.Format(order.Total),
		OccurredAt:     order.UpdatedAt,
		Message:        statusMessage(order),
	}
	return []envelope{{to: BuyerRecipient(order.Buyer.ID), event: ev}}
}

func statusMessage(order domain.Order) string {
	switch order.Status {
	case domain.OrderStatusShipped:
		if order.TrackingNumber != "" {
			return fmt.Sprintf("Order %s shipped, tracking %s", order.OrderNumber, order.TrackingNumber)
		}
		return fmt.Sprintf("Order %s shipped", order.OrderNumber)
	case domain.OrderStatusCancelled:
		if order.CancellationReason != "" {
			return fmt.Sprintf("Order %s cancelled: %s", order.OrderNumber, order.CancellationReason)
		}
		return fmt.Sprintf("Order %s cancelled", order.OrderNumber)
	default:
		return fmt.Sprintf("Order %s is now %s", order.OrderNumber, order.Status)
	}
}

// Nop drops every event. It is used when no Redis URL is configured.
type Nop struct{}

func (Nop) OrderPlaced(context.Context, domain.Order) error { return nil }

func (Nop) OrderStatusChanged(context.Context, domain.Order, domain.OrderStatus) error {
	return nil
}

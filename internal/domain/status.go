package domain

import (
	"slices"
	"time"
)

type OrderStatus string

const (
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var orderStateTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusShipped, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusCancelled},
}

func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusConfirmed, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether target may follow current. Staying in a
// non-terminal status is allowed.
func CanTransition(current, target OrderStatus) bool {
	if current.Terminal() {
		return false
	}
	if current == target {
		return true
	}
	return slices.Contains(orderStateTransitions[current], target)
}

// Tracking carries optional shipment details. Empty fields leave the stored
// values unchanged.
type Tracking struct {
	Number            string
	Partner           string
	EstimatedDelivery *time.Time
}

func (t Tracking) empty() bool {
	return t.Number == "" && t.Partner == "" && t.EstimatedDelivery == nil
}

// StatusCommand is one of SetProcessing, Ship, Deliver, Cancel or
// UpdateTracking.
type StatusCommand interface {
	target(current OrderStatus) OrderStatus
	apply(o *Order, now time.Time)
}

type SetProcessing struct{ Tracking Tracking }

type Ship struct{ Tracking Tracking }

type Deliver struct{ Tracking Tracking }

type Cancel struct{ Reason string }

// UpdateTracking changes shipment details without moving the status.
type UpdateTracking struct{ Tracking Tracking }

func (SetProcessing) target(OrderStatus) OrderStatus { return OrderStatusProcessing }
func (Ship) target(OrderStatus) OrderStatus { return OrderStatusShipped }
func (Deliver) target(OrderStatus) OrderStatus { return OrderStatusDelivered }
func (Cancel) target(OrderStatus) OrderStatus { return OrderStatusCancelled }
func (UpdateTracking) target(c OrderStatus) OrderStatus { return c }

func (c SetProcessing) apply(o *Order, _ time.Time) { o.applyTracking(c.Tracking) }
func (c Ship) apply(o *Order, _ time.Time) { o.applyTracking(c.Tracking) }
func (c UpdateTracking) apply(o *Order, _ time.Time) { o.applyTracking(c.Tracking) }

func (c Deliver) apply(o *Order, now time.Time) {
	o.applyTracking(c.Tracking)
	if o.DeliveredAt == nil {
		o.DeliveredAt = &now
	}
}

func (c Cancel) apply(o *Order, now time.Time) {
	if o.CancelledAt == nil {
		o.CancelledAt = &now
	}
	if c.Reason != "" {
		o.CancellationReason = c.Reason
	}
}

// Apply runs cmd against the order. On error the order is left untouched.
func (o *Order) Apply(cmd StatusCommand, now time.Time) error {
	if cmd == nil {
		return ErrInvalidCommand
	}
	if u, ok := cmd.(UpdateTracking); ok && u.Tracking.empty() {
		return ErrInvalidCommand
	}

	current := o.Status
	next := cmd.target(current)
	if !CanTransition(current, next) {
		return &InvalidTransitionError{From: current, To: next}
	}

	o.Status = next
	o.UpdatedAt = now
	cmd.apply(o, now)
	return nil
}

func (o *Order) applyTracking(t Tracking) {
	if t.Number != "" {
		o.TrackingNumber = t.Number
	}
	if t.Partner != "" {
		o.DeliveryPartner = t.Partner
	}
	if t.EstimatedDelivery != nil {
		eta := *t.EstimatedDelivery
		o.EstimatedDelivery = &eta
	}
}

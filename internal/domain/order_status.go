package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidTransition signals an event was attempted in a state that does
// not permit it. The wrapped message carries the current state, the
// attempted event, and the set of legal events.
var ErrInvalidTransition = errors.New("invalid status transition")

// OrderStatus enumerates valid lifecycle states for orders.
type OrderStatus string

const (
	// OrderStatusPending indicates the order awaits payment.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusPaid indicates payment succeeded.
	OrderStatusPaid OrderStatus = "paid"
	// OrderStatusShipped indicates the order has been handed to a carrier.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusCompleted indicates the buyer confirmed receipt.
	OrderStatusCompleted OrderStatus = "completed"
	// OrderStatusCancelled indicates the order was cancelled before payment. Terminal.
	OrderStatusCancelled OrderStatus = "cancelled"
	// OrderStatusRefunding indicates a refund has been requested and is in flight.
	OrderStatusRefunding OrderStatus = "refunding"
	// OrderStatusRefunded indicates the refund settled. Terminal.
	OrderStatusRefunded OrderStatus = "refunded"
)

// OrderEvent enumerates the events that drive order status transitions.
type OrderEvent string

const (
	// OrderEventPay records a successful payment against the order.
	OrderEventPay OrderEvent = "PAY"
	// OrderEventCancel cancels an order that has not been paid.
	OrderEventCancel OrderEvent = "CANCEL"
	// OrderEventShip records carrier handoff.
	OrderEventShip OrderEvent = "SHIP"
	// OrderEventConfirm records buyer receipt confirmation.
	OrderEventConfirm OrderEvent = "CONFIRM"
	// OrderEventApplyRefund opens a refund request.
	OrderEventApplyRefund OrderEvent = "APPLY_REFUND"
	// OrderEventRefundSuccess settles a refund request successfully.
	OrderEventRefundSuccess OrderEvent = "REFUND_SUCCESS"
	// OrderEventRefundFailed rejects a refund request.
	OrderEventRefundFailed OrderEvent = "REFUND_FAILED"
)

// orderTransitions is the single source of truth for order status changes.
// No other code path may mutate an order status directly.
var orderTransitions = map[OrderStatus]map[OrderEvent]OrderStatus{
	OrderStatusPending: {
		OrderEventPay:    OrderStatusPaid,
		OrderEventCancel: OrderStatusCancelled,
	},
	OrderStatusPaid: {
		OrderEventShip:        OrderStatusShipped,
		OrderEventApplyRefund: OrderStatusRefunding,
	},
	OrderStatusShipped: {
		OrderEventConfirm:     OrderStatusCompleted,
		OrderEventApplyRefund: OrderStatusRefunding,
	},
	OrderStatusCompleted: {
		OrderEventApplyRefund: OrderStatusRefunding,
	},
	OrderStatusRefunding: {
		OrderEventRefundSuccess: OrderStatusRefunded,
		OrderEventRefundFailed:  OrderStatusCompleted,
	},
}

// Next returns the state reached by applying event, failing with
// ErrInvalidTransition when the table defines no mapping.
func (s OrderStatus) Next(event OrderEvent) (OrderStatus, error) {
	if next, ok := orderTransitions[s][event]; ok {
		return next, nil
	}
	return "", fmt.Errorf("%w: order status %q does not permit %q (legal: %s)",
		ErrInvalidTransition, s, event, formatOrderEvents(s.LegalEvents()))
}

// CanApply reports whether event is legal in the current state.
func (s OrderStatus) CanApply(event OrderEvent) bool {
	_, ok := orderTransitions[s][event]
	return ok
}

// LegalEvents lists the events the current state permits, sorted for
// stable error messages.
func (s OrderStatus) LegalEvents() []OrderEvent {
	events := make([]OrderEvent, 0, len(orderTransitions[s]))
	for event := range orderTransitions[s] {
		events = append(events, event)
	}
	sort.Slice(events, func(i, j int) bool { return events[i] < events[j] })
	return events
}

// Terminal reports whether the state permits no further transitions.
func (s OrderStatus) Terminal() bool {
	return len(orderTransitions[s]) == 0
}

func formatOrderEvents(events []OrderEvent) string {
	if len(events) == 0 {
		return "none"
	}
	names := make([]string, len(events))
	for i, event := range events {
		names[i] = string(event)
	}
	return strings.Join(names, ", ")
}

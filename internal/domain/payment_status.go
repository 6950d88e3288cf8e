package domain

import (
	"fmt"
	"sort"
	"strings"
)

// PaymentStatus enumerates valid lifecycle states for payments.
type PaymentStatus string

const (
	// PaymentStatusPending indicates the payment awaits gateway settlement.
	PaymentStatusPending PaymentStatus = "pending"
	// PaymentStatusSuccess indicates the gateway confirmed the charge.
	PaymentStatusSuccess PaymentStatus = "success"
	// PaymentStatusFailed indicates the gateway rejected the charge. Terminal.
	PaymentStatusFailed PaymentStatus = "failed"
	// PaymentStatusRefunding indicates a refund is in flight.
	PaymentStatusRefunding PaymentStatus = "refunding"
	// PaymentStatusRefunded indicates the refund settled. Terminal.
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// PaymentEvent enumerates the events that drive payment status transitions.
type PaymentEvent string

const (
	// PaymentEventPaySuccess records a successful gateway settlement.
	PaymentEventPaySuccess PaymentEvent = "PAY_SUCCESS"
	// PaymentEventPayFailed records a rejected charge.
	PaymentEventPayFailed PaymentEvent = "PAY_FAILED"
	// PaymentEventApplyRefund opens a refund against a settled payment.
	PaymentEventApplyRefund PaymentEvent = "APPLY_REFUND"
	// PaymentEventRefundSuccess settles the refund.
	PaymentEventRefundSuccess PaymentEvent = "REFUND_SUCCESS"
	// PaymentEventRefundFailed rejects the refund, restoring the settled state.
	PaymentEventRefundFailed PaymentEvent = "REFUND_FAILED"
)

// paymentTransitions is the single source of truth for payment status changes.
var paymentTransitions = map[PaymentStatus]map[PaymentEvent]PaymentStatus{
	PaymentStatusPending: {
		PaymentEventPaySuccess: PaymentStatusSuccess,
		PaymentEventPayFailed:  PaymentStatusFailed,
	},
	PaymentStatusSuccess: {
		PaymentEventApplyRefund: PaymentStatusRefunding,
	},
	PaymentStatusRefunding: {
		PaymentEventRefundSuccess: PaymentStatusRefunded,
		PaymentEventRefundFailed:  PaymentStatusSuccess,
	},
}

// Next returns the state reached by applying event, failing with
// ErrInvalidTransition when the table defines no mapping.
func (s PaymentStatus) Next(event PaymentEvent) (PaymentStatus, error) {
	if next, ok := paymentTransitions[s][event]; ok {
		return next, nil
	}
	return "", fmt.Errorf("%w: payment status %q does not permit %q (legal: %s)",
		ErrInvalidTransition, s, event, formatPaymentEvents(s.LegalEvents()))
}

// CanApply reports whether event is legal in the current state.
func (s PaymentStatus) CanApply(event PaymentEvent) bool {
	_, ok := paymentTransitions[s][event]
	return ok
}

// LegalEvents lists the events the current state permits, sorted for
// stable error messages.
func (s PaymentStatus) LegalEvents() []PaymentEvent {
	events := make([]PaymentEvent, 0, len(paymentTransitions[s]))
	for event := range paymentTransitions[s] {
		events = append(events, event)
	}
	sort.Slice(events, func(i, j int) bool { return events[i] < events[j] })
	return events
}

// Terminal reports whether the state permits no further transitions.
func (s PaymentStatus) Terminal() bool {
	return len(paymentTransitions[s]) == 0
}

func formatPaymentEvents(events []PaymentEvent) string {
	if len(events) == 0 {
		return "none"
	}
	names := make([]string, len(events))
	for i, event := range events {
		names[i] = string(event)
	}
	return strings.Join(names, ", ")
}

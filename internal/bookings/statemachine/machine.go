package statemachine

import (
	apperrors "staybook/pkg/errors"
	"staybook/pkg/model"
)

// Event is an input to the booking state machine.
type Event string

const (
	EventPaymentSubmitted   Event = "payment_submitted"
	EventPaymentSucceeded   Event = "payment_succeeded"
	EventPaymentFailedRetry Event = "payment_failed_retry"
	EventPaymentFailedFinal Event = "payment_failed_final"
	EventHoldExpired        Event = "hold_expired"
	EventStuckTimeout       Event = "stuck_timeout"
	EventGuestCancelled     Event = "guest_cancelled"
	EventHostCancelled      Event = "host_cancelled"
	EventSystemCancelled    Event = "system_cancelled"
	EventCheckoutPassed     Event = "checkout_passed"
)

// transitions is the complete legal transition table. An absent (status,
// event) pair is an invalid transition and must not mutate anything.
var transitions = map[string]map[Event]string{
	model.StatusPendingPayment: {
		EventPaymentSubmitted: model.StatusPaymentProcessing,
		EventHoldExpired:      model.StatusCancelledBySystem,
		EventGuestCancelled:   model.StatusCancelledByGuest,
		EventHostCancelled:    model.StatusCancelledByHost,
		EventSystemCancelled:  model.StatusCancelledBySystem,
	},
	model.StatusPaymentProcessing: {
		EventPaymentSucceeded:   model.StatusConfirmed,
		EventPaymentFailedRetry: model.StatusPendingPayment,
		EventPaymentFailedFinal: model.StatusCancelledBySystem,
		EventStuckTimeout:       model.StatusCancelledBySystem,
		EventGuestCancelled:     model.StatusCancelledByGuest,
		EventHostCancelled:      model.StatusCancelledByHost,
		EventSystemCancelled:    model.StatusCancelledBySystem,
	},
	model.StatusConfirmed: {
		EventCheckoutPassed:  model.StatusCompleted,
		EventGuestCancelled:  model.StatusCancelledByGuest,
		EventHostCancelled:   model.StatusCancelledByHost,
		EventSystemCancelled: model.StatusCancelledBySystem,
	},
}

// Next returns the status the booking moves to when event is applied in the
// given status. Unlisted pairs return InvalidTransition.
func Next(status string, event Event) (string, error) {
	if byEvent, ok := transitions[status]; ok {
		if next, ok := byEvent[event]; ok {
			return next, nil
		}
	}
	return "", apperrors.InvalidTransition(status, string(event))
}

// Redundant reports whether the event re-delivers an outcome the booking has
// already absorbed (e.g. a duplicate payment-succeeded webhook on a booking
// that is already confirmed). Redundant events are no-ops, not errors, to
// tolerate at-least-once delivery from the payment processor.
func Redundant(status string, event Event) bool {
	for _, byEvent := range transitions {
		if target, ok := byEvent[event]; ok && target == status {
			return true
		}
	}
	return false
}

// CancelEvent maps an actor role to its cancellation event.
func CancelEvent(actor string) (Event, bool) {
	switch actor {
	case model.ActorGuest:
		return EventGuestCancelled, true
	case model.ActorHost:
		return EventHostCancelled, true
	case model.ActorSystem:
		return EventSystemCancelled, true
	}
	return "", false
}

package entitlement

import "fmt"

// State is a node in the subscription lifecycle.
type State string

const (
	StateNone          State = "none"
	StateActive        State = "active"
	StateCancelPending State = "cancel_pending"
	StateCanceled      State = "canceled"
)

// allowedTransitions encodes the subscription lifecycle.
//
// ACTIVE -> ACTIVE absorbs redelivered confirmation events.
// CANCEL_PENDING -> CANCEL_PENDING absorbs retried cancel requests.
// CANCEL_PENDING never returns to ACTIVE: reactivation of a pending
// cancellation is handled by the processor creating a fresh subscription,
// which arrives as a new confirmation on a record already back at NONE or
// CANCELED.
var allowedTransitions = map[State][]State{
	StateNone:          {StateActive},
	StateActive:        {StateActive, StateCancelPending, StateCanceled},
	StateCancelPending: {StateCancelPending, StateCanceled},
	StateCanceled:      {StateActive},
}

// StateOf maps a persisted record to its lifecycle state.
func StateOf(e UserEntitlement) State {
	switch e.SubscriptionStatus {
	case StatusActive:
		return StateActive
	case StatusCancelPending:
		return StateCancelPending
	case StatusCanceled:
		return StateCanceled
	default:
		return StateNone
	}
}

// CanTransition reports whether moving from one state to another is allowed.
func CanTransition(from, to State) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition validates a state change, returning ErrInvalidTransition with
// both states named when the lifecycle forbids it.
func Transition(from, to State) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

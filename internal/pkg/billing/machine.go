package billing

import (
	"time"

	"github.com/qmuntal/stateless"
)

// newMachine builds the transition table for a subscription currently in the
// given state. The machine only decides legality; effects (processor call,
// store write) happen in the service after a successful CanFire.
func newMachine(current State) *stateless.StateMachine {
	m := stateless.NewStateMachine(current)

	// NONE permits nothing user-driven; a subscription is created through the
	// external checkout flow, not through this state machine.
	m.Configure(StateNone)

	m.Configure(StateActive).
		Permit(TriggerCancel, StateCancelScheduled).
		Permit(TriggerPaymentFailed, StatePastDue)

	m.Configure(StateCancelScheduled).
		Permit(TriggerResume, StateActive).
		Permit(TriggerPeriodElapsed, StateCanceled)

	// A past-due subscription may still be scheduled for cancellation without
	// touching the cancel-at-period-end semantics of the record.
	m.Configure(StatePastDue).
		Permit(TriggerCancel, StateCancelScheduled).
		Permit(TriggerPaymentRecovered, StateActive).
		Permit(TriggerPeriodElapsed, StateCanceled)

	// CANCELED is terminal.
	m.Configure(StateCanceled)

	return m
}

// canFire reports whether the trigger is legal from the given state.
func canFire(current State, trigger Trigger) bool {
	ok, err := newMachine(current).CanFire(trigger)
	return err == nil && ok
}

// refusalFor maps an illegal trigger to its typed refusal.
func refusalFor(state State, trigger Trigger, periodEnd *time.Time) *Refusal {
	switch trigger {
	case TriggerCancel:
		if state == StateCancelScheduled {
			return &Refusal{
				Code:      CodeAlreadyCanceling,
				Message:   "subscription is already scheduled for cancellation",
				PeriodEnd: periodEnd,
			}
		}
		return &Refusal{Code: CodeNoSubscription, Message: "no subscription to cancel"}
	case TriggerResume:
		if state == StateNone || state == StateCanceled {
			return &Refusal{Code: CodeNothingToResume, Message: "no subscription to resume"}
		}
		return &Refusal{Code: CodeNothingToResume, Message: "subscription is not scheduled for cancellation"}
	default:
		return &Refusal{Code: CodeNoSubscription, Message: "transition not allowed"}
	}
}

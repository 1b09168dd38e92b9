package checkout

// State is a checkout attempt's position in the state machine.
type State string

const (
	StateIdle                    State = "idle"
	StateLoadingContext          State = "loading_context"
	StateAddressCheck            State = "address_check"
	StateAwaitingPaymentIntent   State = "awaiting_payment_intent"
	StateAwaitingExternalPayment State = "awaiting_external_payment"
	StateVerifyingPayment        State = "verifying_payment"
	StatePlacingCODOrder         State = "placing_cod_order"
	StateFinalized               State = "finalized"
	StateFailed                  State = "failed"
	StateCancelled               State = "cancelled"
	StateAddressRequired         State = "address_required"
)

var transitions = map[State][]State{
	StateIdle:                    {StateLoadingContext},
	StateLoadingContext:          {StateAddressCheck, StateFailed},
	StateAddressCheck:            {StateAwaitingPaymentIntent, StatePlacingCODOrder, StateAddressRequired},
	StateAwaitingPaymentIntent:   {StateAwaitingExternalPayment, StateFailed},
	StateAwaitingExternalPayment: {StateVerifyingPayment, StateFailed, StateCancelled},
	StateVerifyingPayment:        {StateFinalized, StateFailed},
	StatePlacingCODOrder:         {StateFinalized, StateFailed},
	StateFailed:                  {StateLoadingContext, StateAwaitingPaymentIntent, StatePlacingCODOrder},
	StateCancelled:               {StateAwaitingPaymentIntent},
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s State) CanTransitionTo(next State) bool {
	for _, candidate := range transitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Settled reports whether the attempt is waiting on nothing inside the orchestrator:
// a terminal state, the address suspension, or a failure/cancellation awaiting retry.
func (s State) Settled() bool {
	switch s {
	case StateFinalized, StateFailed, StateCancelled, StateAddressRequired:
		return true
	}
	return false
}

// HoldsSession reports whether an attempt in s blocks a new checkout for the session.
func (s State) HoldsSession() bool {
	return s != StateIdle && !s.Settled()
}

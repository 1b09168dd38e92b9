package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/angelmondragon/bookstore-storefront/internal/payments"
	"github.com/angelmondragon/bookstore-storefront/pkg/auth"
	"github.com/angelmondragon/bookstore-storefront/pkg/enums"
	"github.com/angelmondragon/bookstore-storefront/pkg/types"
)

// CartSource loads the session's authoritative cart. cart.Store satisfies it.
type CartSource interface {
	Load(ctx context.Context) (types.Cart, error)
}

// Transition is one recorded state change.
type Transition struct {
	From State     `json:"from"`
	To   State     `json:"to"`
	At   time.Time `json:"at"`
}

// Attempt is one checkout run. Values returned by the Orchestrator are copies.
type Attempt struct {
	ID        string              `json:"id"`
	SessionID string              `json:"sessionId"`
	UserID    string              `json:"userId,omitempty"`
	Method    enums.PaymentMethod `json:"paymentMethod"`
	State     State               `json:"state"`

	Cart    types.Cart     `json:"cart"`
	Profile types.Profile  `json:"profile"`
	Address *types.Address `json:"address,omitempty"`
	// MissingFields is set when the attempt suspended for address collection.
	MissingFields []string `json:"missingFields,omitempty"`

	// IntentSequence counts payment-order requests made by this attempt.
	IntentSequence int                         `json:"intentSequence"`
	PaymentOrder   *types.PaymentOrder         `json:"paymentOrder,omitempty"`
	Collection     *payments.CollectionRequest `json:"collection,omitempty"`
	// AbandonedOrderRefs lists gateway order refs that were dropped and must not be reused.
	AbandonedOrderRefs []string `json:"abandonedOrderRefs,omitempty"`
	// Signature is the last completion proof submitted for verification.
	Signature *payments.SignatureBundle `json:"-"`

	Order   *types.Order `json:"order,omitempty"`
	Failure *Failure     `json:"failure,omitempty"`

	History   []Transition `json:"history"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// CanRetry reports whether Retry is allowed from the current state.
func (a Attempt) CanRetry() bool {
	switch a.State {
	case StateCancelled:
		return true
	case StateFailed:
		return a.Failure != nil && a.Failure.Retryable
	}
	return false
}

func (a Attempt) clone() Attempt {
	out := a
	out.Cart = a.Cart.Clone()
	if a.Profile.Address != nil {
		addr := *a.Profile.Address
		out.Profile.Address = &addr
	}
	if a.Address != nil {
		addr := *a.Address
		out.Address = &addr
	}
	if a.PaymentOrder != nil {
		po := *a.PaymentOrder
		out.PaymentOrder = &po
	}
	if a.Collection != nil {
		c := *a.Collection
		out.Collection = &c
	}
	if a.Signature != nil {
		sig := *a.Signature
		out.Signature = &sig
	}
	if a.Order != nil {
		o := *a.Order
		out.Order = &o
	}
	if a.Failure != nil {
		f := *a.Failure
		out.Failure = &f
	}
	out.MissingFields = append([]string(nil), a.MissingFields...)
	out.AbandonedOrderRefs = append([]string(nil), a.AbandonedOrderRefs...)
	out.History = append([]Transition(nil), a.History...)
	return out
}

// entry is the orchestrator's mutable record of an attempt.
type entry struct {
	// mu serializes every operation on the attempt, remote calls included.
	mu      sync.Mutex
	attempt Attempt
	cart    CartSource
	contact auth.Contact
	// codUnanswered is set while the last cash-on-delivery request got no definitive answer.
	codUnanswered bool

	// view is the copy readers see while an operation holds mu.
	viewMu sync.RWMutex
	view   Attempt
}

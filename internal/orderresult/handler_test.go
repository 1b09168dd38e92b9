package orderresult

import (
	"testing"

	"github.com/angelmondragon/bookstore-storefront/internal/checkout"
	pkgerrors "github.com/angelmondragon/bookstore-storefront/pkg/errors"
	"github.com/angelmondragon/bookstore-storefront/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(actions []Action) []ActionKind {
	out := make([]ActionKind, 0, len(actions))
	for _, a := range actions {
		out = append(out, a.Kind)
	}
	return out
}

func TestFinalizedNavigatesToConfirmation(t *testing.T) {
	h := NewHandler(Routes{})
	p := h.Present(checkout.Attempt{
		ID:    "att-1",
		State: checkout.StateFinalized,
		Order: &types.Order{ID: "ord 7", OrderNumber: "BK-0007"},
	})

	assert.Equal(t, OutcomeSuccess, p.Outcome)
	assert.Equal(t, "ord 7", p.OrderID)
	assert.Contains(t, p.Message, "BK-0007")
	require.NotNil(t, p.Navigation)
	assert.Equal(t, "/orders/ord%207/confirmation", p.Navigation.Route)
	assert.True(t, p.Navigation.Replace)
	assert.Equal(t, []ActionKind{ActionViewOrder}, kinds(p.Actions))
}

func TestFailedPaymentOffersRetry(t *testing.T) {
	h := NewHandler(Routes{})
	p := h.Present(checkout.Attempt{
		ID:      "att-1",
		State:   checkout.StateFailed,
		Failure: &checkout.Failure{Kind: checkout.FailurePayment, Code: pkgerrors.CodePaymentFailed, Reason: "insufficient_funds", Retryable: true},
	})

	assert.Equal(t, OutcomeFailed, p.Outcome)
	assert.Equal(t, "insufficient_funds", p.Message)
	assert.Equal(t, []ActionKind{ActionRetry, ActionReviewCart}, kinds(p.Actions))
	assert.Nil(t, p.Navigation)
}

func TestVerificationFailureDirectsToSupportWithoutRetry(t *testing.T) {
	h := NewHandler(Routes{Support: "/help"})
	p := h.Present(checkout.Attempt{
		ID:           "att-9",
		State:        checkout.StateFailed,
		PaymentOrder: &types.PaymentOrder{GatewayOrderRef: "order_gw_1", OrderNumber: "BK-0001"},
		Failure:      &checkout.Failure{Kind: checkout.FailureVerification, Reason: "payment could not be confirmed, please contact support"},
	})

	assert.Equal(t, OutcomeFailed, p.Outcome)
	assert.Equal(t, []ActionKind{ActionContactSupport}, kinds(p.Actions))
	assert.Equal(t, "/help?attempt=att-9&gatewayOrder=order_gw_1&order=BK-0001", p.Actions[0].Href)
}

func TestRejectedCartNavigatesToCart(t *testing.T) {
	h := NewHandler(Routes{})
	p := h.Present(checkout.Attempt{
		State:   checkout.StateFailed,
		Failure: &checkout.Failure{Kind: checkout.FailureValidation, Code: pkgerrors.CodeValidation, Reason: "a book in your cart is out of stock", Retryable: true},
	})

	assert.Equal(t, "Please review your order", p.Title)
	assert.Equal(t, []ActionKind{ActionRetry, ActionReviewCart}, kinds(p.Actions))
	require.NotNil(t, p.Navigation)
	assert.Equal(t, "/cart", p.Navigation.Route)
}

func TestRejectedAddressNavigatesToAddressForm(t *testing.T) {
	h := NewHandler(Routes{})
	p := h.Present(checkout.Attempt{
		State:   checkout.StateFailed,
		Failure: &checkout.Failure{Kind: checkout.FailureValidation, Code: pkgerrors.CodeValidation, Reason: "We do not deliver to this Pincode yet", Retryable: true},
	})

	assert.Equal(t, []ActionKind{ActionRetry, ActionEditAddress}, kinds(p.Actions))
	assert.Equal(t, "/checkout/address", p.Actions[1].Href)
	require.NotNil(t, p.Navigation)
	assert.Equal(t, "/checkout/address", p.Navigation.Route)
}

func TestNonRetryableFailureHasNoRetry(t *testing.T) {
	h := NewHandler(Routes{})
	p := h.Present(checkout.Attempt{
		State:   checkout.StateFailed,
		Failure: &checkout.Failure{Kind: checkout.FailureNetwork, Reason: "service unavailable"},
	})

	assert.Equal(t, []ActionKind{ActionReviewCart}, kinds(p.Actions))
}

func TestCancelledIsNeutral(t *testing.T) {
	h := NewHandler(Routes{})
	p := h.Present(checkout.Attempt{State: checkout.StateCancelled})

	assert.Equal(t, OutcomeCancelled, p.Outcome)
	assert.Equal(t, []ActionKind{ActionRetry, ActionReviewCart}, kinds(p.Actions))
	assert.Nil(t, p.Navigation)
}

func TestAddressRequiredRoutesToAddressForm(t *testing.T) {
	h := NewHandler(Routes{})
	p := h.Present(checkout.Attempt{State: checkout.StateAddressRequired, MissingFields: []string{"zipCode"}})

	assert.Equal(t, OutcomeAddressRequired, p.Outcome)
	assert.Equal(t, []string{"zipCode"}, p.MissingFields)
	require.NotNil(t, p.Navigation)
	assert.Equal(t, "/checkout/address", p.Navigation.Route)
}

func TestUnauthenticatedRoutesToLogin(t *testing.T) {
	h := NewHandler(Routes{Login: "/signin"})
	p := h.Present(checkout.Attempt{
		State:   checkout.StateFailed,
		Failure: &checkout.Failure{Kind: checkout.FailureUnauthenticated, Reason: "session expired, please sign in again"},
	})

	assert.Equal(t, OutcomeUnauthenticated, p.Outcome)
	require.NotNil(t, p.Navigation)
	assert.Equal(t, "/signin", p.Navigation.Route)
}

func TestAwaitingPaymentIsPending(t *testing.T) {
	h := NewHandler(Routes{})
	p := h.Present(checkout.Attempt{State: checkout.StateAwaitingExternalPayment})

	assert.Equal(t, OutcomePending, p.Outcome)
	assert.Equal(t, []ActionKind{ActionPay}, kinds(p.Actions))
	assert.Nil(t, p.Navigation)
}

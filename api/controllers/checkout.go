package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/bookstore-storefront/api/responses"
	"github.com/angelmondragon/bookstore-storefront/api/validators"
	"github.com/angelmondragon/bookstore-storefront/internal/checkout"
	"github.com/angelmondragon/bookstore-storefront/internal/orderresult"
	"github.com/angelmondragon/bookstore-storefront/internal/payments"
	"github.com/angelmondragon/bookstore-storefront/pkg/auth"
	"github.com/angelmondragon/bookstore-storefront/pkg/db/models"
	"github.com/angelmondragon/bookstore-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/bookstore-storefront/pkg/errors"
	"github.com/angelmondragon/bookstore-storefront/pkg/logger"
	"github.com/angelmondragon/bookstore-storefront/pkg/types"
)

const maxFailureReasonLen = 500

// CheckoutService is the orchestrator surface the HTTP layer drives.
type CheckoutService interface {
	Start(ctx context.Context, in checkout.StartInput) (checkout.Attempt, error)
	Resolve(ctx context.Context, attemptID string, outcome payments.Outcome) (checkout.Attempt, error)
	Retry(ctx context.Context, attemptID string) (checkout.Attempt, error)
	Cancel(ctx context.Context, attemptID string) (checkout.Attempt, error)
	Attempt(ctx context.Context, attemptID string) (checkout.Attempt, error)
}

// ResultPresenter maps an attempt to what the user sees.
type ResultPresenter interface {
	Present(a checkout.Attempt) orderresult.Presentation
}

// AttemptHistory reads the recorded transitions of the caller's session.
type AttemptHistory interface {
	RecentForSession(ctx context.Context, sessionID string, limit int) ([]models.CheckoutAttemptEvent, error)
}

type checkoutResponse struct {
	Attempt checkout.Attempt         `json:"attempt"`
	Result  orderresult.Presentation `json:"result"`
}

type startCheckoutRequest struct {
	PaymentMethod string         `json:"paymentMethod" validate:"required"`
	Address       *types.Address `json:"address,omitempty"`
}

type outcomeRequest struct {
	Kind             string `json:"kind" validate:"required,oneof=completed failed dismissed"`
	GatewayOrderID   string `json:"gatewayOrderId" validate:"required_if=Kind completed"`
	GatewayPaymentID string `json:"gatewayPaymentId" validate:"required_if=Kind completed"`
	Signature        string `json:"signature" validate:"required_if=Kind completed"`
	Reason           string `json:"reason"`
}

func (o outcomeRequest) toOutcome() payments.Outcome {
	switch payments.OutcomeKind(o.Kind) {
	case payments.OutcomeCompleted:
		return payments.Completed(payments.SignatureBundle{
			GatewayOrderID:   strings.TrimSpace(o.GatewayOrderID),
			GatewayPaymentID: strings.TrimSpace(o.GatewayPaymentID),
			Signature:        strings.TrimSpace(o.Signature),
		})
	case payments.OutcomeFailed:
		return payments.Failed(validators.SanitizeString(o.Reason, maxFailureReasonLen))
	default:
		return payments.Dismissed()
	}
}

// CheckoutStart begins a checkout with the session's cart.
func CheckoutStart(svc CheckoutService, sessions CartSessions, presenter ResultPresenter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload startCheckoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := enums.ParsePaymentMethod(payload.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unsupported payment method").
				WithDetails(map[string]any{"paymentMethod": "must be ONLINE or CASH_ON_DELIVERY"}))
			return
		}
		store, err := sessions.Cart(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		attempt, err := svc.Start(r.Context(), checkout.StartInput{Cart: store, Method: method, Address: payload.Address})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{Attempt: attempt, Result: presenter.Present(attempt)})
	}
}

// CheckoutFetch returns the current view of an attempt.
func CheckoutFetch(svc CheckoutService, presenter ResultPresenter, logg *logger.Logger) http.HandlerFunc {
	return attemptHandler(logg, presenter, func(ctx context.Context, id string, _ *http.Request) (checkout.Attempt, error) {
		return svc.Attempt(ctx, id)
	})
}

// CheckoutOutcome applies the payment collector's result.
func CheckoutOutcome(svc CheckoutService, presenter ResultPresenter, logg *logger.Logger) http.HandlerFunc {
	return attemptHandler(logg, presenter, func(ctx context.Context, id string, r *http.Request) (checkout.Attempt, error) {
		var payload outcomeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return checkout.Attempt{}, err
		}
		return svc.Resolve(ctx, id, payload.toOutcome())
	})
}

// CheckoutRetry re-enters a failed or cancelled attempt.
func CheckoutRetry(svc CheckoutService, presenter ResultPresenter, logg *logger.Logger) http.HandlerFunc {
	return attemptHandler(logg, presenter, func(ctx context.Context, id string, _ *http.Request) (checkout.Attempt, error) {
		return svc.Retry(ctx, id)
	})
}

// CheckoutCancel abandons an attempt awaiting payment.
func CheckoutCancel(svc CheckoutService, presenter ResultPresenter, logg *logger.Logger) http.HandlerFunc {
	return attemptHandler(logg, presenter, func(ctx context.Context, id string, _ *http.Request) (checkout.Attempt, error) {
		return svc.Cancel(ctx, id)
	})
}

// CheckoutHistory lists the session's recorded checkout transitions, newest first.
func CheckoutHistory(history AttemptHistory, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if history == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "checkout history is not enabled"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cred, ok := auth.CredentialFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session credential"))
			return
		}
		events, err := history.RecentForSession(r.Context(), cred.SessionID(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkout history"))
			return
		}
		out := make([]historyEntry, 0, len(events))
		for _, e := range events {
			out = append(out, newHistoryEntry(e))
		}
		responses.WriteSuccess(w, out)
	}
}

type historyEntry struct {
	AttemptID       string  `json:"attemptId"`
	Sequence        int     `json:"sequence"`
	State           string  `json:"state"`
	PaymentMethod   string  `json:"paymentMethod"`
	GatewayOrderRef *string `json:"gatewayOrderRef,omitempty"`
	OrderNumber     *string `json:"orderNumber,omitempty"`
	FailureKind     *string `json:"failureKind,omitempty"`
	Reason          *string `json:"reason,omitempty"`
	At              string  `json:"at"`
}

func newHistoryEntry(e models.CheckoutAttemptEvent) historyEntry {
	return historyEntry{
		AttemptID:       e.AttemptID,
		Sequence:        e.Sequence,
		State:           e.State,
		PaymentMethod:   e.PaymentMethod,
		GatewayOrderRef: e.GatewayOrderRef,
		OrderNumber:     e.OrderNumber,
		FailureKind:     e.FailureKind,
		Reason:          e.Reason,
		At:              e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

func attemptHandler(logg *logger.Logger, presenter ResultPresenter, op func(ctx context.Context, id string, r *http.Request) (checkout.Attempt, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "attemptID"))
		if id == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "attempt id is required"))
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithAttemptID(ctx, id)
		}
		attempt, err := op(ctx, id, r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, checkoutResponse{Attempt: attempt, Result: presenter.Present(attempt)})
	}
}

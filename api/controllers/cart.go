package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/bookstore-storefront/api/responses"
	"github.com/angelmondragon/bookstore-storefront/api/validators"
	"github.com/angelmondragon/bookstore-storefront/internal/cart"
	pkgerrors "github.com/angelmondragon/bookstore-storefront/pkg/errors"
	"github.com/angelmondragon/bookstore-storefront/pkg/logger"
	"github.com/angelmondragon/bookstore-storefront/pkg/types"
)

// CartSessions resolves the cart store of the caller's session.
type CartSessions interface {
	Cart(ctx context.Context) (*cart.Store, error)
}

type cartResponse struct {
	types.Cart
	PendingBookIDs []string `json:"pendingBookIds"`
}

func newCartResponse(c types.Cart, store *cart.Store) cartResponse {
	if c.Items == nil {
		c.Items = []types.CartItem{}
	}
	pending := store.InFlight()
	if pending == nil {
		pending = []string{}
	}
	return cartResponse{Cart: c, PendingBookIDs: pending}
}

type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type clearCartRequest struct {
	Confirm bool `json:"confirm"`
}

// CartFetch loads the authoritative cart.
func CartFetch(sessions CartSessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := sessions.Cart(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		c, err := store.Load(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(c, store))
	}
}

// CartSetQuantity sets one line's quantity.
func CartSetQuantity(sessions CartSessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookID, err := bookIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload setQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		store, err := sessions.Cart(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		c, err := store.SetQuantity(r.Context(), bookID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(c, store))
	}
}

// CartRemoveItem removes one line.
func CartRemoveItem(sessions CartSessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookID, err := bookIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		store, err := sessions.Cart(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		c, err := store.RemoveItem(r.Context(), bookID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(c, store))
	}
}

// CartClear empties the cart. The caller must confirm explicitly.
func CartClear(sessions CartSessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload clearCartRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !payload.Confirm {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "clearing the cart must be confirmed").
				WithDetails(map[string]any{"confirm": "must be true"}))
			return
		}
		store, err := sessions.Cart(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		c, err := store.Clear(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(c, store))
	}
}

func bookIDParam(r *http.Request) (string, error) {
	bookID := strings.TrimSpace(chi.URLParam(r, "bookID"))
	if bookID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "book id is required")
	}
	return bookID, nil
}

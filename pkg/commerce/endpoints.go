package commerce

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/url"
	"strings"

	"github.com/angelmondragon/bookstore-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/bookstore-storefront/pkg/errors"
	"github.com/angelmondragon/bookstore-storefront/pkg/types"
)

const (
	pathCart               = "/api/cart"
	pathCartItems          = "/api/cart/items/"
	pathProfile            = "/api/users/profile"
	pathCreatePaymentOrder = "/api/orders/create-payment-order"
	pathVerifyPayment      = "/api/orders/verify-payment"
)

// PaymentOrderRequest creates either a provisional online payment order or a COD order.
type PaymentOrderRequest struct {
	PaymentMethod   enums.PaymentMethod `json:"paymentMethod"`
	UseSavedAddress bool                `json:"useSavedAddress"`
	Address         *types.Address      `json:"address,omitempty"`
}

// VerifyPaymentRequest is the gateway completion proof submitted for verification.
type VerifyPaymentRequest struct {
	OrderID          string `json:"orderId"`
	GatewayOrderID   string `json:"gatewayOrderId"`
	GatewayPaymentID string `json:"gatewayPaymentId"`
	Signature        string `json:"signature"`
}

// VerificationKey derives the idempotency key for a verify call from the signature bundle.
func VerificationKey(req VerifyPaymentRequest) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{
		req.OrderID, req.GatewayOrderID, req.GatewayPaymentID, req.Signature,
	}, "\x1f")))
	return "verify-" + hex.EncodeToString(sum[:])
}

// GetCart fetches the session's cart.
func (c *Client) GetCart(ctx context.Context) (types.Cart, error) {
	var cart types.Cart
	err := c.do(ctx, call{method: http.MethodGet, path: pathCart, out: &cart})
	return cart, err
}

// SetItemQuantity sets the quantity of one line and returns the recomputed cart.
func (c *Client) SetItemQuantity(ctx context.Context, bookID string, quantity int) (types.Cart, error) {
	path, err := itemPath(bookID)
	if err != nil {
		return types.Cart{}, err
	}
	var cart types.Cart
	err = c.do(ctx, call{
		method: http.MethodPut,
		path:   path,
		body:   map[string]int{"quantity": quantity},
		out:    &cart,
	})
	return cart, err
}

// RemoveItem deletes one line and returns the recomputed cart.
func (c *Client) RemoveItem(ctx context.Context, bookID string) (types.Cart, error) {
	path, err := itemPath(bookID)
	if err != nil {
		return types.Cart{}, err
	}
	var cart types.Cart
	err = c.do(ctx, call{method: http.MethodDelete, path: path, out: &cart})
	return cart, err
}

// ClearCart deletes every line and returns the (empty) recomputed cart.
func (c *Client) ClearCart(ctx context.Context) (types.Cart, error) {
	var cart types.Cart
	err := c.do(ctx, call{method: http.MethodDelete, path: pathCart, out: &cart})
	return cart, err
}

// GetProfile fetches the user profile with its saved address.
func (c *Client) GetProfile(ctx context.Context) (types.Profile, error) {
	var profile types.Profile
	err := c.do(ctx, call{method: http.MethodGet, path: pathProfile, out: &profile})
	return profile, err
}

// CreatePaymentOrder requests a provisional online payment order.
func (c *Client) CreatePaymentOrder(ctx context.Context, req PaymentOrderRequest, idempotencyKey string) (types.PaymentOrder, error) {
	if req.PaymentMethod != enums.PaymentMethodOnline {
		return types.PaymentOrder{}, pkgerrors.New(pkgerrors.CodeValidation, "payment order requires the ONLINE method")
	}
	var order types.PaymentOrder
	err := c.do(ctx, call{
		method:         http.MethodPost,
		path:           pathCreatePaymentOrder,
		body:           req,
		idempotencyKey: idempotencyKey,
		out:            &order,
	})
	if err != nil {
		return types.PaymentOrder{}, err
	}
	if strings.TrimSpace(order.GatewayOrderRef) == "" || strings.TrimSpace(order.OrderID) == "" {
		return types.PaymentOrder{}, pkgerrors.New(pkgerrors.CodeDependency, "payment order response is missing references")
	}
	return order, nil
}

// PlaceCODOrder creates a cash-on-delivery order in a single call.
func (c *Client) PlaceCODOrder(ctx context.Context, req PaymentOrderRequest, idempotencyKey string) (types.Order, error) {
	req.PaymentMethod = enums.PaymentMethodCashOnDelivery
	var order types.Order
	err := c.do(ctx, call{
		method:         http.MethodPost,
		path:           pathCreatePaymentOrder,
		body:           req,
		idempotencyKey: idempotencyKey,
		out:            &order,
	})
	if err != nil {
		return types.Order{}, err
	}
	if strings.TrimSpace(order.ID) == "" {
		return types.Order{}, pkgerrors.New(pkgerrors.CodeDependency, "order response is missing an id")
	}
	if order.PaymentMethod == "" {
		order.PaymentMethod = enums.PaymentMethodCashOnDelivery
	}
	return order, nil
}

// VerifyPayment submits the signature bundle. The call is keyed on the bundle so a
// repeated submission cannot finalize twice.
func (c *Client) VerifyPayment(ctx context.Context, req VerifyPaymentRequest) (types.Order, error) {
	var order types.Order
	err := c.do(ctx, call{
		method:         http.MethodPost,
		path:           pathVerifyPayment,
		body:           req,
		idempotencyKey: VerificationKey(req),
		out:            &order,
	})
	if err != nil {
		return types.Order{}, err
	}
	if strings.TrimSpace(order.ID) == "" {
		order.ID = req.OrderID
	}
	if order.PaymentMethod == "" {
		order.PaymentMethod = enums.PaymentMethodOnline
	}
	return order, nil
}

func itemPath(bookID string) (string, error) {
	trimmed := strings.TrimSpace(bookID)
	if trimmed == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "book id is required")
	}
	return pathCartItems + url.PathEscape(trimmed), nil
}

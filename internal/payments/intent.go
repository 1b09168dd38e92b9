package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/bookstore-storefront/pkg/commerce"
	"github.com/angelmondragon/bookstore-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/bookstore-storefront/pkg/errors"
	"github.com/angelmondragon/bookstore-storefront/pkg/money"
	"github.com/angelmondragon/bookstore-storefront/pkg/types"
)

// Backend is the commerce order surface used for intents, COD orders and verification.
type Backend interface {
	CreatePaymentOrder(ctx context.Context, req commerce.PaymentOrderRequest, idempotencyKey string) (types.PaymentOrder, error)
	PlaceCODOrder(ctx context.Context, req commerce.PaymentOrderRequest, idempotencyKey string) (types.Order, error)
	VerifyPayment(ctx context.Context, req commerce.VerifyPaymentRequest) (types.Order, error)
}

// IntentRequest identifies one payment-order request within an attempt.
type IntentRequest struct {
	AttemptID string
	// Sequence increases on every retry so each request gets a fresh idempotency key.
	Sequence int
	Address  *types.Address
}

func (r IntentRequest) idempotencyKey() string {
	return fmt.Sprintf("%s:%d", r.AttemptID, r.Sequence)
}

func (r IntentRequest) body(method enums.PaymentMethod) commerce.PaymentOrderRequest {
	req := commerce.PaymentOrderRequest{PaymentMethod: method, UseSavedAddress: r.Address == nil}
	if r.Address != nil {
		addr := r.Address.Normalized()
		req.Address = &addr
	}
	return req
}

// IntentClient requests payment orders and submits verification proofs.
type IntentClient struct {
	backend         Backend
	defaultCurrency string
}

// IntentOption configures the IntentClient.
type IntentOption func(*IntentClient)

// WithDefaultCurrency fills in payment orders returned without a currency code.
func WithDefaultCurrency(code string) IntentOption {
	return func(c *IntentClient) {
		c.defaultCurrency = money.NormalizeCurrency(code)
	}
}

// NewIntentClient wraps the commerce backend.
func NewIntentClient(backend Backend, opts ...IntentOption) (*IntentClient, error) {
	if backend == nil {
		return nil, fmt.Errorf("payment backend required")
	}
	c := &IntentClient{backend: backend}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// RequestPaymentOrder asks for a new provisional online payment order.
func (c *IntentClient) RequestPaymentOrder(ctx context.Context, req IntentRequest) (types.PaymentOrder, error) {
	if strings.TrimSpace(req.AttemptID) == "" {
		return types.PaymentOrder{}, pkgerrors.New(pkgerrors.CodeValidation, "attempt id is required")
	}
	order, err := c.backend.CreatePaymentOrder(ctx, req.body(enums.PaymentMethodOnline), req.idempotencyKey())
	if err != nil {
		return types.PaymentOrder{}, err
	}
	if strings.TrimSpace(order.Currency) == "" {
		order.Currency = c.defaultCurrency
	}
	return order, nil
}

// PlaceCODOrder creates a cash-on-delivery order directly.
func (c *IntentClient) PlaceCODOrder(ctx context.Context, req IntentRequest) (types.Order, error) {
	if strings.TrimSpace(req.AttemptID) == "" {
		return types.Order{}, pkgerrors.New(pkgerrors.CodeValidation, "attempt id is required")
	}
	return c.backend.PlaceCODOrder(ctx, req.body(enums.PaymentMethodCashOnDelivery), req.idempotencyKey())
}

// Verify submits the exact signature bundle for orderID.
func (c *IntentClient) Verify(ctx context.Context, orderID string, bundle SignatureBundle) (types.Order, error) {
	return c.backend.VerifyPayment(ctx, commerce.VerifyPaymentRequest{
		OrderID:          orderID,
		GatewayOrderID:   bundle.GatewayOrderID,
		GatewayPaymentID: bundle.GatewayPaymentID,
		Signature:        bundle.Signature,
	})
}

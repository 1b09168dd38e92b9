package payments

import (
	"context"
	"strings"

	"github.com/angelmondragon/bookstore-storefront/pkg/auth"
	pkgerrors "github.com/angelmondragon/bookstore-storefront/pkg/errors"
	"github.com/angelmondragon/bookstore-storefront/pkg/money"
	"github.com/angelmondragon/bookstore-storefront/pkg/types"
)

// CollectionRequest is what the external payment collector is opened with.
type CollectionRequest struct {
	GatewayOrderRef string       `json:"gatewayOrderRef"`
	AmountMinor     int64        `json:"amountMinor"`
	Currency        string       `json:"currency"`
	OrderNumber     string       `json:"orderNumber,omitempty"`
	Prefill         auth.Contact `json:"prefill"`
	KeyID           string       `json:"keyId,omitempty"`
	MerchantName    string       `json:"merchantName,omitempty"`
}

// Collector is the external payment UI. It yields exactly one Outcome per request.
type Collector interface {
	Collect(ctx context.Context, req CollectionRequest) (Outcome, error)
}

// CollectorFunc adapts a function to Collector.
type CollectorFunc func(ctx context.Context, req CollectionRequest) (Outcome, error)

// Collect implements Collector.
func (f CollectorFunc) Collect(ctx context.Context, req CollectionRequest) (Outcome, error) {
	return f(ctx, req)
}

// GatewayIdentity is the public merchant data the collector needs.
type GatewayIdentity struct {
	KeyID        string
	MerchantName string
}

// NewCollectionRequest converts a payment order into the collector's minor-unit request.
func NewCollectionRequest(order types.PaymentOrder, contact auth.Contact, gateway GatewayIdentity) (CollectionRequest, error) {
	currency := money.NormalizeCurrency(order.Currency)
	if currency == "" {
		return CollectionRequest{}, pkgerrors.New(pkgerrors.CodeDependency, "payment order has no currency")
	}
	minor, err := money.ToMinorUnits(order.Amount, currency)
	if err != nil {
		return CollectionRequest{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "payment order amount is not collectable")
	}
	return CollectionRequest{
		GatewayOrderRef: strings.TrimSpace(order.GatewayOrderRef),
		AmountMinor:     minor,
		Currency:        currency,
		OrderNumber:     order.OrderNumber,
		Prefill:         contact,
		KeyID:           gateway.KeyID,
		MerchantName:    gateway.MerchantName,
	}, nil
}

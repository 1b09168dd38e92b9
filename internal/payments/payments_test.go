package payments

import (
	"context"
	"strings"
	"testing"

	"github.com/angelmondragon/bookstore-storefront/pkg/auth"
	"github.com/angelmondragon/bookstore-storefront/pkg/commerce"
	"github.com/angelmondragon/bookstore-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/bookstore-storefront/pkg/errors"
	"github.com/angelmondragon/bookstore-storefront/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingBackend struct {
	intents  []commerce.PaymentOrderRequest
	keys     []string
	cod      []commerce.PaymentOrderRequest
	verifies []commerce.VerifyPaymentRequest
	currency string
}

func (b *recordingBackend) CreatePaymentOrder(_ context.Context, req commerce.PaymentOrderRequest, key string) (types.PaymentOrder, error) {
	b.intents = append(b.intents, req)
	b.keys = append(b.keys, key)
	currency := "INR"
	if b.currency != "" {
		currency = strings.TrimSpace(b.currency)
	}
	return types.PaymentOrder{GatewayOrderRef: "order_G1", Amount: decimal.NewFromInt(250), Currency: currency, OrderID: "o-1"}, nil
}

func (b *recordingBackend) PlaceCODOrder(_ context.Context, req commerce.PaymentOrderRequest, key string) (types.Order, error) {
	b.cod = append(b.cod, req)
	b.keys = append(b.keys, key)
	return types.Order{ID: "o-2", OrderNumber: "BK-2"}, nil
}

func (b *recordingBackend) VerifyPayment(_ context.Context, req commerce.VerifyPaymentRequest) (types.Order, error) {
	b.verifies = append(b.verifies, req)
	return types.Order{ID: req.OrderID}, nil
}

func TestOutcomeConstructorsAndValidate(t *testing.T) {
	bundle := SignatureBundle{GatewayOrderID: "order_G1", GatewayPaymentID: "pay_1", Signature: "sig"}
	require.NoError(t, Completed(bundle).Validate())
	require.NoError(t, Dismissed().Validate())
	require.NoError(t, Failed("insufficient_funds").Validate())

	err := Completed(SignatureBundle{GatewayOrderID: "order_G1"}).Validate()
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, map[string]any{"missing": []string{"gatewayPaymentId", "signature"}}, pkgerrors.As(err).Details())

	assert.Error(t, Outcome{Kind: "maybe"}.Validate())

	assert.Equal(t, "insufficient_funds", Failed("insufficient_funds").FailureReason())
	assert.Equal(t, "payment failed", Failed("  ").FailureReason())
}

func TestNewCollectionRequestUsesMinorUnits(t *testing.T) {
	order := types.PaymentOrder{GatewayOrderRef: " order_G1 ", Amount: decimal.NewFromInt(250), Currency: "inr", OrderNumber: "BK-1"}
	contact := auth.Contact{Name: "Asha", Email: "asha@example.com"}

	req, err := NewCollectionRequest(order, contact, GatewayIdentity{KeyID: "rzp_test", MerchantName: "Bookstore"})
	require.NoError(t, err)
	assert.Equal(t, int64(25000), req.AmountMinor)
	assert.Equal(t, "INR", req.Currency)
	assert.Equal(t, "order_G1", req.GatewayOrderRef)
	assert.Equal(t, contact, req.Prefill)
	assert.Equal(t, "rzp_test", req.KeyID)

	order.Amount = decimal.RequireFromString("10.005")
	_, err = NewCollectionRequest(order, contact, GatewayIdentity{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	order.Currency = ""
	_, err = NewCollectionRequest(order, contact, GatewayIdentity{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestIntentClientKeysAndAddressSelection(t *testing.T) {
	backend := &recordingBackend{}
	client, err := NewIntentClient(backend)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = client.RequestPaymentOrder(ctx, IntentRequest{AttemptID: "att-1", Sequence: 1})
	require.NoError(t, err)
	addr := types.Address{Street: " 12 MG Road ", City: "Pune", State: "MH", ZipCode: "411001"}
	_, err = client.RequestPaymentOrder(ctx, IntentRequest{AttemptID: "att-1", Sequence: 2, Address: &addr})
	require.NoError(t, err)

	require.Len(t, backend.intents, 2)
	assert.Equal(t, enums.PaymentMethodOnline, backend.intents[0].PaymentMethod)
	assert.True(t, backend.intents[0].UseSavedAddress)
	assert.Nil(t, backend.intents[0].Address)
	assert.False(t, backend.intents[1].UseSavedAddress)
	assert.Equal(t, "12 MG Road", backend.intents[1].Address.Street)
	assert.Equal(t, []string{"att-1:1", "att-1:2"}, backend.keys)

	_, err = client.PlaceCODOrder(ctx, IntentRequest{AttemptID: "att-2", Sequence: 1})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentMethodCashOnDelivery, backend.cod[0].PaymentMethod)

	_, err = client.RequestPaymentOrder(ctx, IntentRequest{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestVerifyPassesExactBundle(t *testing.T) {
	backend := &recordingBackend{}
	client, err := NewIntentClient(backend)
	require.NoError(t, err)

	bundle := SignatureBundle{GatewayOrderID: "order_G1", GatewayPaymentID: "pay_1", Signature: "sig"}
	order, err := client.Verify(context.Background(), "o-1", bundle)
	require.NoError(t, err)
	assert.Equal(t, "o-1", order.ID)
	assert.Equal(t, []commerce.VerifyPaymentRequest{{
		OrderID: "o-1", GatewayOrderID: "order_G1", GatewayPaymentID: "pay_1", Signature: "sig",
	}}, backend.verifies)
}

func TestCollectorFunc(t *testing.T) {
	var got CollectionRequest
	collector := CollectorFunc(func(_ context.Context, req CollectionRequest) (Outcome, error) {
		got = req
		return Dismissed(), nil
	})
	out, err := collector.Collect(context.Background(), CollectionRequest{GatewayOrderRef: "g"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeDismissed, out.Kind)
	assert.Equal(t, "g", got.GatewayOrderRef)
}

func TestDefaultCurrencyFillsMissingCode(t *testing.T) {
	backend := &recordingBackend{currency: " "}
	client, err := NewIntentClient(backend, WithDefaultCurrency("inr"))
	require.NoError(t, err)

	order, err := client.RequestPaymentOrder(context.Background(), IntentRequest{AttemptID: "att-1", Sequence: 1})
	require.NoError(t, err)
	assert.Equal(t, "INR", order.Currency)
}

package attempts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/bookstore-storefront/internal/checkout"
	"github.com/angelmondragon/bookstore-storefront/internal/payments"
	"github.com/angelmondragon/bookstore-storefront/pkg/db/models"
	"github.com/angelmondragon/bookstore-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/bookstore-storefront/pkg/errors"
	"github.com/angelmondragon/bookstore-storefront/pkg/migrate"
	"github.com/angelmondragon/bookstore-storefront/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openLedger(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, migrate.Run(context.Background(), sqlDB, "sqlite3", "", "up"))

	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	return svc, conn
}

func attemptAt(states ...checkout.State) checkout.Attempt {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	a := checkout.Attempt{
		ID:        "att-1",
		SessionID: "sess-1",
		UserID:    "user-1",
		Method:    enums.PaymentMethodOnline,
	}
	from := checkout.StateIdle
	for i, s := range states {
		a.History = append(a.History, checkout.Transition{From: from, To: s, At: base.Add(time.Duration(i) * time.Second)})
		from = s
	}
	a.State = from
	return a
}

func TestRecordTransitionStoresTrail(t *testing.T) {
	svc, _ := openLedger(t)
	ctx := context.Background()

	a := attemptAt(checkout.StateLoadingContext)
	require.NoError(t, svc.RecordTransition(ctx, a))

	a = attemptAt(checkout.StateLoadingContext, checkout.StateAddressCheck, checkout.StateAwaitingPaymentIntent, checkout.StateAwaitingExternalPayment)
	a.PaymentOrder = &types.PaymentOrder{GatewayOrderRef: "order_gw_1", OrderID: "ord-1", OrderNumber: "BK-0001", Currency: "INR"}
	a.Collection = &payments.CollectionRequest{GatewayOrderRef: "order_gw_1", AmountMinor: 25000, Currency: "INR"}
	require.NoError(t, svc.RecordTransition(ctx, a))

	a = attemptAt(checkout.StateLoadingContext, checkout.StateAddressCheck, checkout.StateAwaitingPaymentIntent, checkout.StateAwaitingExternalPayment, checkout.StateVerifyingPayment, checkout.StateFailed)
	a.PaymentOrder = &types.PaymentOrder{GatewayOrderRef: "order_gw_1", OrderID: "ord-1", OrderNumber: "BK-0001", Currency: "INR"}
	a.Signature = &payments.SignatureBundle{GatewayOrderID: "order_gw_1", GatewayPaymentID: "pay_1", Signature: "sig"}
	a.Failure = &checkout.Failure{Kind: checkout.FailureVerification, Code: pkgerrors.CodePaymentVerification, Reason: "payment could not be confirmed, please contact support"}
	require.NoError(t, svc.RecordTransition(ctx, a))

	events, err := svc.History(ctx, "att-1")
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, 1, events[0].Sequence)
	assert.Equal(t, "loading_context", events[0].State)
	assert.Nil(t, events[0].GatewayOrderRef)

	assert.Equal(t, "awaiting_external_payment", events[1].State)
	require.NotNil(t, events[1].AmountMinor)
	assert.Equal(t, int64(25000), *events[1].AmountMinor)
	require.NotNil(t, events[1].GatewayOrderRef)
	assert.Equal(t, "order_gw_1", *events[1].GatewayOrderRef)

	last := events[2]
	assert.Equal(t, "failed", last.State)
	require.NotNil(t, last.GatewayPaymentID)
	assert.Equal(t, "pay_1", *last.GatewayPaymentID)
	require.NotNil(t, last.FailureKind)
	assert.Equal(t, "verification", *last.FailureKind)
	assert.Equal(t, "ONLINE", last.PaymentMethod)
}

func TestRecordTransitionIgnoresReplays(t *testing.T) {
	svc, _ := openLedger(t)
	ctx := context.Background()
	a := attemptAt(checkout.StateLoadingContext)

	require.NoError(t, svc.RecordTransition(ctx, a))
	require.NoError(t, svc.RecordTransition(ctx, a))

	events, err := svc.History(ctx, "att-1")
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestRecentForSession(t *testing.T) {
	svc, _ := openLedger(t)
	ctx := context.Background()
	require.NoError(t, svc.RecordTransition(ctx, attemptAt(checkout.StateLoadingContext)))
	require.NoError(t, svc.RecordTransition(ctx, attemptAt(checkout.StateLoadingContext, checkout.StateAddressCheck)))

	events, err := svc.RecentForSession(ctx, "sess-1", 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "address_check", events[0].State)
}

func TestAddressRequiredRecordsMissingFields(t *testing.T) {
	svc, _ := openLedger(t)
	ctx := context.Background()
	a := attemptAt(checkout.StateLoadingContext, checkout.StateAddressCheck, checkout.StateAddressRequired)
	a.MissingFields = []string{"zipCode"}
	require.NoError(t, svc.RecordTransition(ctx, a))

	events, err := svc.History(ctx, "att-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.NotNil(t, events[0].Reason)
	assert.Contains(t, *events[0].Reason, "zipCode")
}

type failingRepo struct{}

func (failingRepo) WithTx(*gorm.DB) Repository { return failingRepo{} }
func (failingRepo) Create(context.Context, *models.CheckoutAttemptEvent) error {
	return errors.New("connection refused")
}
func (failingRepo) ListByAttemptID(context.Context, string) ([]models.CheckoutAttemptEvent, error) {
	return nil, nil
}
func (failingRepo) ListBySessionID(context.Context, string, int) ([]models.CheckoutAttemptEvent, error) {
	return nil, nil
}

func TestRecordTransitionSurfacesWriteErrors(t *testing.T) {
	svc, err := NewService(failingRepo{})
	require.NoError(t, err)

	err = svc.RecordTransition(context.Background(), attemptAt(checkout.StateLoadingContext))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRecordTransitionValidates(t *testing.T) {
	svc, err := NewService(failingRepo{})
	require.NoError(t, err)

	assert.Error(t, svc.RecordTransition(context.Background(), checkout.Attempt{}))
	assert.Error(t, svc.RecordTransition(context.Background(), checkout.Attempt{ID: "att-1"}))

	_, err = NewService(nil)
	assert.Error(t, err)
}

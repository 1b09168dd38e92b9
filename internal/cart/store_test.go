package cart

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/angelmondragon/bookstore-storefront/pkg/auth"
	pkgerrors "github.com/angelmondragon/bookstore-storefront/pkg/errors"
	"github.com/angelmondragon/bookstore-storefront/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRemote struct {
	mu      sync.Mutex
	calls   []string
	cart    types.Cart
	err     error
	gate    chan struct{}
	entered chan string
}

func (s *stubRemote) record(call string) {
	s.mu.Lock()
	s.calls = append(s.calls, call)
	s.mu.Unlock()
	if s.entered != nil {
		s.entered <- call
	}
	if s.gate != nil {
		<-s.gate
	}
}

func (s *stubRemote) result() (types.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return types.Cart{}, s.err
	}
	return s.cart.Clone(), nil
}

func (s *stubRemote) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *stubRemote) GetCart(context.Context) (types.Cart, error) {
	s.record("get")
	return s.result()
}

func (s *stubRemote) SetItemQuantity(_ context.Context, bookID string, _ int) (types.Cart, error) {
	s.record("put:" + bookID)
	return s.result()
}

func (s *stubRemote) RemoveItem(_ context.Context, bookID string) (types.Cart, error) {
	s.record("delete:" + bookID)
	return s.result()
}

func (s *stubRemote) ClearCart(context.Context) (types.Cart, error) {
	s.record("clear")
	return s.result()
}

type rejections struct {
	mu      sync.Mutex
	reasons []string
}

func (r *rejections) IncMutationRejected(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reasons = append(r.reasons, reason)
}

func sessionCtx() context.Context {
	return auth.WithCredential(context.Background(), auth.Credential{Token: "tok"})
}

func serverCart() types.Cart {
	return types.Cart{
		Items: []types.CartItem{
			{BookID: "b1", UnitPrice: decimal.NewFromInt(100), Quantity: 2, Snapshot: types.LineSnapshot{Title: "Godan"}},
			{BookID: "b2", UnitPrice: decimal.NewFromInt(50), Quantity: 1, Snapshot: types.LineSnapshot{Title: "Gaban"}},
		},
		Subtotal:       decimal.NewFromInt(250),
		Discount:       decimal.Zero,
		DeliveryCharge: decimal.Zero,
		FinalTotal:     decimal.NewFromInt(250),
		TotalItemCount: 3,
	}
}

func newStore(t *testing.T, remote Remote, opts ...Option) *Store {
	t.Helper()
	store, err := NewStore(remote, opts...)
	require.NoError(t, err)
	return store
}

func TestLoadReplacesSnapshotWithServerCart(t *testing.T) {
	remote := &stubRemote{cart: serverCart()}
	store := newStore(t, remote)

	_, loaded := store.Snapshot()
	assert.False(t, loaded)

	cart, err := store.Load(sessionCtx())
	require.NoError(t, err)
	assert.Equal(t, serverCart(), cart)

	snap, loaded := store.Snapshot()
	assert.True(t, loaded)
	assert.Equal(t, serverCart(), snap)
}

func TestUnauthenticatedFailsBeforeNetwork(t *testing.T) {
	remote := &stubRemote{cart: serverCart()}
	store := newStore(t, remote)

	_, err := store.Load(context.Background())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	_, err = store.SetQuantity(context.Background(), "b1", 2)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	_, err = store.Clear(context.Background())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	assert.Zero(t, remote.callCount())
}

func TestLoadTransportFailureIsDependency(t *testing.T) {
	store := newStore(t, &stubRemote{err: errors.New("connection refused")})
	_, err := store.Load(sessionCtx())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestSetQuantitySnapshotEqualsServerAggregate(t *testing.T) {
	remote := &stubRemote{cart: serverCart()}
	store := newStore(t, remote)
	_, err := store.Load(sessionCtx())
	require.NoError(t, err)

	updated := serverCart()
	updated.Items[0].Quantity = 3
	updated.Subtotal = decimal.NewFromInt(350)
	updated.Discount = decimal.NewFromInt(35)
	updated.DeliveryCharge = decimal.NewFromInt(40)
	updated.FinalTotal = decimal.NewFromInt(355)
	updated.TotalItemCount = 4
	remote.cart = updated

	cart, err := store.SetQuantity(sessionCtx(), "b1", 3)
	require.NoError(t, err)
	assert.Equal(t, updated, cart)

	snap, _ := store.Snapshot()
	assert.Equal(t, updated, snap)
}

func TestInvalidQuantityRejectedWithoutDispatch(t *testing.T) {
	remote := &stubRemote{cart: serverCart()}
	rec := &rejections{}
	store := newStore(t, remote, WithMetrics(rec))

	for _, qty := range []int{0, -1} {
		_, err := store.SetQuantity(sessionCtx(), "b1", qty)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	}
	assert.Zero(t, remote.callCount())
	assert.Equal(t, []string{"invalid_quantity", "invalid_quantity"}, rec.reasons)
}

func TestSecondMutationForSameBookRejectedBeforeDispatch(t *testing.T) {
	remote := &stubRemote{cart: serverCart(), gate: make(chan struct{}), entered: make(chan string, 4)}
	rec := &rejections{}
	store := newStore(t, remote, WithMetrics(rec))

	done := make(chan error, 1)
	go func() {
		_, err := store.SetQuantity(sessionCtx(), "b1", 3)
		done <- err
	}()
	require.Equal(t, "put:b1", <-remote.entered)
	assert.Equal(t, []string{"b1"}, store.InFlight())

	_, err := store.SetQuantity(sessionCtx(), "b1", 4)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	_, err = store.RemoveItem(sessionCtx(), "b1")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	assert.Equal(t, 1, remote.callCount())

	close(remote.gate)
	require.NoError(t, <-done)
	assert.Empty(t, store.InFlight())
	assert.Equal(t, []string{"locked", "locked"}, rec.reasons)
}

func TestDistinctBooksMutateConcurrently(t *testing.T) {
	remote := &stubRemote{cart: serverCart(), gate: make(chan struct{}), entered: make(chan string, 4)}
	store := newStore(t, remote)

	var wg sync.WaitGroup
	var failures int32
	for _, id := range []string{"b1", "b2"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := store.SetQuantity(sessionCtx(), id, 2); err != nil {
				atomic.AddInt32(&failures, 1)
			}
		}(id)
	}

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case call := <-remote.entered:
			seen[call] = true
		case <-time.After(2 * time.Second):
			t.Fatal("both mutations should be in flight together")
		}
	}
	assert.True(t, seen["put:b1"] && seen["put:b2"])

	close(remote.gate)
	wg.Wait()
	assert.Zero(t, atomic.LoadInt32(&failures))
}

func TestFailedMutationKeepsSnapshotAndReleasesLock(t *testing.T) {
	remote := &stubRemote{cart: serverCart()}
	store := newStore(t, remote)
	_, err := store.Load(sessionCtx())
	require.NoError(t, err)

	remote.err = pkgerrors.New(pkgerrors.CodeValidation, "stock changed")
	_, err = store.SetQuantity(sessionCtx(), "b1", 9)
	require.Error(t, err)
	assert.Equal(t, "stock changed", pkgerrors.As(err).Message())

	snap, _ := store.Snapshot()
	assert.Equal(t, serverCart(), snap)
	assert.Empty(t, store.InFlight())

	remote.err = nil
	_, err = store.RemoveItem(sessionCtx(), "b1")
	require.NoError(t, err)
	assert.Equal(t, 3, remote.callCount())
}

func TestClearRejectedWhileLineMutationInFlight(t *testing.T) {
	remote := &stubRemote{cart: serverCart(), gate: make(chan struct{}), entered: make(chan string, 4)}
	store := newStore(t, remote)

	done := make(chan error, 1)
	go func() {
		_, err := store.RemoveItem(sessionCtx(), "b2")
		done <- err
	}()
	<-remote.entered

	_, err := store.Clear(sessionCtx())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	close(remote.gate)
	require.NoError(t, <-done)

	remote.gate = nil
	remote.entered = nil
	remote.cart = types.Cart{FinalTotal: decimal.Zero, Subtotal: decimal.Zero}
	cart, err := store.Clear(sessionCtx())
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
}

func TestLineMutationRejectedDuringClear(t *testing.T) {
	remote := &stubRemote{cart: types.Cart{}, gate: make(chan struct{}), entered: make(chan string, 4)}
	store := newStore(t, remote)

	done := make(chan error, 1)
	go func() {
		_, err := store.Clear(sessionCtx())
		done <- err
	}()
	<-remote.entered

	_, err := store.SetQuantity(sessionCtx(), "b1", 1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	close(remote.gate)
	require.NoError(t, <-done)
}

func TestConcurrentLoadsShareOneRequest(t *testing.T) {
	remote := &stubRemote{cart: serverCart(), gate: make(chan struct{}), entered: make(chan string, 8)}
	store := newStore(t, remote)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.Load(sessionCtx())
		}()
	}
	<-remote.entered
	// Let the other callers join the in-flight load.
	time.Sleep(50 * time.Millisecond)
	close(remote.gate)
	wg.Wait()

	assert.LessOrEqual(t, remote.callCount(), 3)
	assert.GreaterOrEqual(t, remote.callCount(), 1)
	snap, loaded := store.Snapshot()
	assert.True(t, loaded)
	assert.Equal(t, serverCart(), snap)
}

func TestStaleResponseDoesNotOverwriteNewerSnapshot(t *testing.T) {
	store := newStore(t, &stubRemote{})
	older := store.nextSequence()
	newer := store.nextSequence()

	fresh := serverCart()
	store.apply(newer, fresh)
	stale := types.Cart{FinalTotal: decimal.NewFromInt(1)}
	got := store.apply(older, stale)

	assert.Equal(t, fresh, got)
	snap, _ := store.Snapshot()
	assert.Equal(t, fresh, snap)
}

func TestNewStoreRequiresRemote(t *testing.T) {
	_, err := NewStore(nil)
	assert.Error(t, err)
}

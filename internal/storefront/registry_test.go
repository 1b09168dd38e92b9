package storefront

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/bookstore-storefront/pkg/auth"
	pkgerrors "github.com/angelmondragon/bookstore-storefront/pkg/errors"
	"github.com/angelmondragon/bookstore-storefront/pkg/types"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRemote struct {
	gate chan struct{}
}

func (s *stubRemote) cart() types.Cart {
	return types.Cart{
		Items:      []types.CartItem{{BookID: "b1", UnitPrice: decimal.NewFromInt(100), Quantity: 1}},
		Subtotal:   decimal.NewFromInt(100),
		FinalTotal: decimal.NewFromInt(100),
	}
}

func (s *stubRemote) GetCart(context.Context) (types.Cart, error) { return s.cart(), nil }
func (s *stubRemote) SetItemQuantity(context.Context, string, int) (types.Cart, error) {
	if s.gate != nil {
		<-s.gate
	}
	return s.cart(), nil
}
func (s *stubRemote) RemoveItem(context.Context, string) (types.Cart, error) { return s.cart(), nil }
func (s *stubRemote) ClearCart(context.Context) (types.Cart, error)          { return types.Cart{}, nil }

type gauge struct {
	mu   sync.Mutex
	last int
}

func (g *gauge) SetActiveSessions(n int) {
	g.mu.Lock()
	g.last = n
	g.mu.Unlock()
}

func ctxFor(session string) context.Context {
	return auth.WithCredential(context.Background(), auth.Credential{
		Token:  "tok",
		Claims: auth.SessionClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: session}},
	})
}

func TestSessionIsStablePerCredential(t *testing.T) {
	g := &gauge{}
	r, err := NewRegistry(&stubRemote{}, WithGauge(g))
	require.NoError(t, err)

	a1, err := r.Cart(ctxFor("u1"))
	require.NoError(t, err)
	a2, err := r.Cart(ctxFor("u1"))
	require.NoError(t, err)
	b, err := r.Cart(ctxFor("u2"))
	require.NoError(t, err)

	assert.Same(t, a1, a2)
	assert.NotSame(t, a1, b)
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, 2, g.last)
}

func TestSessionRequiresCredential(t *testing.T) {
	r, err := NewRegistry(&stubRemote{})
	require.NoError(t, err)

	_, err = r.Session(context.Background())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	assert.Zero(t, r.Len())
}

func TestEvictIdleKeepsRecentAndBusySessions(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	remote := &stubRemote{gate: make(chan struct{})}
	g := &gauge{}
	r, err := NewRegistry(remote, WithIdleTTL(time.Hour), WithClock(clock), WithGauge(g))
	require.NoError(t, err)

	_, err = r.Session(ctxFor("idle"))
	require.NoError(t, err)
	busy, err := r.Cart(ctxFor("busy"))
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = busy.SetQuantity(ctxFor("busy"), "b1", 2)
	}()
	require.Eventually(t, func() bool { return len(busy.InFlight()) == 1 }, time.Second, 5*time.Millisecond)

	now = now.Add(90 * time.Minute)
	_, err = r.Session(ctxFor("fresh"))
	require.NoError(t, err)

	assert.Equal(t, []string{"idle"}, r.EvictIdle())
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, 2, g.last)

	close(remote.gate)
	<-done
	assert.Equal(t, []string{"busy"}, r.EvictIdle())
}

func TestNewRegistryRequiresRemote(t *testing.T) {
	_, err := NewRegistry(nil)
	assert.Error(t, err)
}

package storefront

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/angelmondragon/bookstore-storefront/internal/cart"
	"github.com/angelmondragon/bookstore-storefront/pkg/auth"
	pkgerrors "github.com/angelmondragon/bookstore-storefront/pkg/errors"
	"github.com/angelmondragon/bookstore-storefront/pkg/logger"
)

const defaultIdleTTL = 2 * time.Hour

type sessionGauge interface {
	SetActiveSessions(n int)
}

// Session is one signed-in shopper's server-side state.
type Session struct {
	ID       string
	Cart     *cart.Store
	lastSeen time.Time
}

// Registry owns the per-session cart stores.
type Registry struct {
	remote    cart.Remote
	storeOpts []cart.Option
	idleTTL   time.Duration
	gauge     sessionGauge
	logg      *logger.Logger
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// Option configures the Registry.
type Option func(*Registry)

// WithIdleTTL sets how long an untouched session survives.
func WithIdleTTL(ttl time.Duration) Option {
	return func(r *Registry) {
		if ttl > 0 {
			r.idleTTL = ttl
		}
	}
}

// WithStoreOptions passes options to every cart store the registry creates.
func WithStoreOptions(opts ...cart.Option) Option {
	return func(r *Registry) {
		r.storeOpts = append(r.storeOpts, opts...)
	}
}

// WithGauge reports the live session count.
func WithGauge(g sessionGauge) Option {
	return func(r *Registry) {
		r.gauge = g
	}
}

// WithLogger attaches a logger.
func WithLogger(l *logger.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logg = l
		}
	}
}

// WithClock overrides the clock.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRegistry builds an empty registry over the cart service.
func NewRegistry(remote cart.Remote, opts ...Option) (*Registry, error) {
	if remote == nil {
		return nil, fmt.Errorf("cart remote required")
	}
	r := &Registry{
		remote:   remote,
		idleTTL:  defaultIdleTTL,
		logg:     logger.Nop(),
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

// Session returns the session for the credential in ctx, creating it on first use.
func (r *Registry) Session(ctx context.Context) (*Session, error) {
	cred, err := auth.RequireCredential(ctx, r.now())
	if err != nil {
		return nil, err
	}
	id := cred.SessionID()
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session credential has no session id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		s.lastSeen = r.now()
		return s, nil
	}

	store, err := cart.NewStore(r.remote, r.storeOpts...)
	if err != nil {
		return nil, err
	}
	s := &Session{ID: id, Cart: store, lastSeen: r.now()}
	r.sessions[id] = s
	r.report()
	r.logg.Info(r.logg.WithSessionID(ctx, id), "storefront session opened")
	return s, nil
}

// Cart returns the cart store of the session in ctx.
func (r *Registry) Cart(ctx context.Context) (*cart.Store, error) {
	s, err := r.Session(ctx)
	if err != nil {
		return nil, err
	}
	return s.Cart, nil
}

// EvictIdle drops sessions idle longer than the TTL. Sessions with cart mutations in
// flight are kept.
func (r *Registry) EvictIdle() []string {
	cutoff := r.now().Add(-r.idleTTL)

	r.mu.Lock()
	defer r.mu.Unlock()
	var evicted []string
	for id, s := range r.sessions {
		if s.lastSeen.After(cutoff) || len(s.Cart.InFlight()) > 0 {
			continue
		}
		delete(r.sessions, id)
		evicted = append(evicted, id)
	}
	if len(evicted) > 0 {
		r.report()
	}
	sort.Strings(evicted)
	return evicted
}

// Len returns the live session count.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) report() {
	if r.gauge != nil {
		r.gauge.SetActiveSessions(len(r.sessions))
	}
}

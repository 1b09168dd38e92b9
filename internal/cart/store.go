package cart

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/bookstore-storefront/pkg/auth"
	pkgerrors "github.com/angelmondragon/bookstore-storefront/pkg/errors"
	"github.com/angelmondragon/bookstore-storefront/pkg/logger"
	"github.com/angelmondragon/bookstore-storefront/pkg/types"
	"golang.org/x/sync/singleflight"
)

// Remote is the commerce cart service. Every call returns the full recomputed cart.
type Remote interface {
	GetCart(ctx context.Context) (types.Cart, error)
	SetItemQuantity(ctx context.Context, bookID string, quantity int) (types.Cart, error)
	RemoveItem(ctx context.Context, bookID string) (types.Cart, error)
	ClearCart(ctx context.Context) (types.Cart, error)
}

type rejectionRecorder interface {
	IncMutationRejected(reason string)
}

// Store is one session's view of the remote cart. Aggregates are only ever copied
// from server responses.
type Store struct {
	remote  Remote
	locks   *MutationLock
	loads   singleflight.Group
	logg    *logger.Logger
	metrics rejectionRecorder
	now     func() time.Time

	mu       sync.RWMutex
	snapshot types.Cart
	loaded   bool
	// dispatched numbers every remote call; applied is the newest one reflected in snapshot.
	dispatched uint64
	applied    uint64
}

// Option configures a Store.
type Option func(*Store)

// WithLogger attaches a logger.
func WithLogger(logg *logger.Logger) Option {
	return func(s *Store) {
		if logg != nil {
			s.logg = logg
		}
	}
}

// WithMetrics records locally rejected mutations.
func WithMetrics(m rejectionRecorder) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// WithClock overrides the clock used for credential expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore builds a Store over the remote cart service.
func NewStore(remote Remote, opts ...Option) (*Store, error) {
	if remote == nil {
		return nil, fmt.Errorf("cart remote required")
	}
	s := &Store{
		remote: remote,
		locks:  NewMutationLock(),
		logg:   logger.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Load fetches the authoritative cart and replaces the snapshot. Concurrent loads
// share one request.
func (s *Store) Load(ctx context.Context) (types.Cart, error) {
	if _, err := auth.RequireCredential(ctx, s.now()); err != nil {
		return types.Cart{}, err
	}

	v, err, _ := s.loads.Do("load", func() (any, error) {
		seq := s.nextSequence()
		cart, err := s.remote.GetCart(ctx)
		if err != nil {
			return nil, remoteError(err, "load cart")
		}
		return s.apply(seq, cart), nil
	})
	if err != nil {
		return types.Cart{}, err
	}
	return v.(types.Cart).Clone(), nil
}

// SetQuantity changes one line's quantity. The request is refused before dispatch
// when quantity < 1 or another mutation for bookID is in flight.
func (s *Store) SetQuantity(ctx context.Context, bookID string, quantity int) (types.Cart, error) {
	if quantity < 1 {
		s.reject("invalid_quantity")
		return types.Cart{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").
			WithDetails(map[string]any{"bookId": bookID, "quantity": quantity})
	}
	return s.mutateLine(ctx, bookID, "set quantity", func(ctx context.Context, id string) (types.Cart, error) {
		return s.remote.SetItemQuantity(ctx, id, quantity)
	})
}

// RemoveItem deletes one line under the same locking discipline as SetQuantity.
func (s *Store) RemoveItem(ctx context.Context, bookID string) (types.Cart, error) {
	return s.mutateLine(ctx, bookID, "remove item", s.remote.RemoveItem)
}

// Clear empties the cart. Confirmation is the caller's job. It is refused while any
// line mutation is in flight.
func (s *Store) Clear(ctx context.Context) (types.Cart, error) {
	if _, err := auth.RequireCredential(ctx, s.now()); err != nil {
		return types.Cart{}, err
	}
	if !s.locks.TryAcquireAll() {
		s.reject("clear_while_busy")
		return types.Cart{}, pkgerrors.New(pkgerrors.CodeConflict, "cart has updates in progress").
			WithDetails(map[string]any{"inFlight": s.locks.InFlight()})
	}
	defer s.locks.ReleaseAll()

	seq := s.nextSequence()
	cart, err := s.remote.ClearCart(ctx)
	if err != nil {
		return types.Cart{}, remoteError(err, "clear cart")
	}
	return s.apply(seq, cart).Clone(), nil
}

func (s *Store) mutateLine(ctx context.Context, bookID, op string, call func(context.Context, string) (types.Cart, error)) (types.Cart, error) {
	bookID = strings.TrimSpace(bookID)
	if bookID == "" {
		return types.Cart{}, pkgerrors.New(pkgerrors.CodeValidation, "book id is required")
	}
	if _, err := auth.RequireCredential(ctx, s.now()); err != nil {
		return types.Cart{}, err
	}
	if !s.locks.TryAcquire(bookID) {
		s.reject("locked")
		return types.Cart{}, pkgerrors.New(pkgerrors.CodeConflict, "an update for this item is already in progress").
			WithDetails(map[string]any{"bookId": bookID})
	}
	defer s.locks.Release(bookID)

	seq := s.nextSequence()
	cart, err := call(ctx, bookID)
	if err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"book_id": bookID, "op": op, "error": err.Error()}), "cart mutation failed")
		return types.Cart{}, remoteError(err, op)
	}
	return s.apply(seq, cart).Clone(), nil
}

// Snapshot returns a copy of the last server cart and whether one was loaded.
func (s *Store) Snapshot() (types.Cart, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.Clone(), s.loaded
}

// InFlight lists book ids with a pending mutation.
func (s *Store) InFlight() []string {
	return s.locks.InFlight()
}

func (s *Store) nextSequence() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatched++
	return s.dispatched
}

// apply replaces the snapshot unless a later-dispatched response already landed.
func (s *Store) apply(seq uint64, cart types.Cart) types.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq > s.applied {
		s.snapshot = cart.Clone()
		s.applied = seq
		s.loaded = true
	}
	return s.snapshot
}

func (s *Store) reject(reason string) {
	if s.metrics != nil {
		s.metrics.IncMutationRejected(reason)
	}
}

func remoteError(err error, op string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op+" failed")
}

package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Guard keeps checkout single-flight per session.
type Guard interface {
	// Acquire claims the session for attemptID. When another attempt holds it,
	// ok is false and holder names that attempt.
	Acquire(ctx context.Context, sessionID, attemptID string) (holder string, ok bool, err error)
	// Release frees the session if attemptID still holds it.
	Release(ctx context.Context, sessionID, attemptID string) error
}

// MemoryGuard is the in-process Guard.
type MemoryGuard struct {
	mu      sync.Mutex
	holders map[string]string
}

// NewMemoryGuard returns an empty MemoryGuard.
func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{holders: make(map[string]string)}
}

// Acquire implements Guard.
func (g *MemoryGuard) Acquire(_ context.Context, sessionID, attemptID string) (string, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if holder, ok := g.holders[sessionID]; ok && holder != attemptID {
		return holder, false, nil
	}
	g.holders[sessionID] = attemptID
	return attemptID, true, nil
}

// Release implements Guard.
func (g *MemoryGuard) Release(_ context.Context, sessionID, attemptID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.holders[sessionID] == attemptID {
		delete(g.holders, sessionID)
	}
	return nil
}

type guardStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	DeleteIfValue(ctx context.Context, key, value string) (bool, error)
	CheckoutGuardKey(sessionID string) string
}

// RedisGuard shares the single-flight claim across replicas. The TTL bounds how long
// a crashed replica can block a session.
type RedisGuard struct {
	store guardStore
	ttl   time.Duration
}

// NewRedisGuard builds a RedisGuard over the storefront redis client.
func NewRedisGuard(store guardStore, ttl time.Duration) (*RedisGuard, error) {
	if store == nil {
		return nil, fmt.Errorf("redis store required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("guard ttl must be positive")
	}
	return &RedisGuard{store: store, ttl: ttl}, nil
}

// Acquire implements Guard.
func (g *RedisGuard) Acquire(ctx context.Context, sessionID, attemptID string) (string, bool, error) {
	key := g.store.CheckoutGuardKey(sessionID)
	ok, err := g.store.SetNX(ctx, key, attemptID, g.ttl)
	if err != nil {
		return "", false, fmt.Errorf("acquire checkout guard: %w", err)
	}
	if ok {
		return attemptID, true, nil
	}
	holder, err := g.store.Get(ctx, key)
	if errors.Is(err, goredis.Nil) {
		// Expired between SETNX and GET; one more try.
		ok, err = g.store.SetNX(ctx, key, attemptID, g.ttl)
		if err != nil {
			return "", false, fmt.Errorf("acquire checkout guard: %w", err)
		}
		if ok {
			return attemptID, true, nil
		}
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read checkout guard: %w", err)
	}
	if holder != attemptID {
		return holder, false, nil
	}
	// The holder is checking in again; keep its claim alive.
	if _, err := g.store.Expire(ctx, key, g.ttl); err != nil {
		return "", false, fmt.Errorf("refresh checkout guard: %w", err)
	}
	return attemptID, true, nil
}

// Release implements Guard.
func (g *RedisGuard) Release(ctx context.Context, sessionID, attemptID string) error {
	if _, err := g.store.DeleteIfValue(ctx, g.store.CheckoutGuardKey(sessionID), attemptID); err != nil {
		return fmt.Errorf("release checkout guard: %w", err)
	}
	return nil
}

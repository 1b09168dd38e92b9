package cart

import (
	"sort"
	"sync"
)

// MutationLock tracks book ids with an in-flight mutation. A clear holds the whole
// cart exclusively.
type MutationLock struct {
	mu        sync.Mutex
	held      map[string]struct{}
	exclusive bool
}

// NewMutationLock returns an empty lock set.
func NewMutationLock() *MutationLock {
	return &MutationLock{held: make(map[string]struct{})}
}

// TryAcquire locks bookID unless it is already locked or the cart is held exclusively.
func (l *MutationLock) TryAcquire(bookID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.exclusive {
		return false
	}
	if _, ok := l.held[bookID]; ok {
		return false
	}
	l.held[bookID] = struct{}{}
	return true
}

// Release unlocks bookID.
func (l *MutationLock) Release(bookID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, bookID)
}

// TryAcquireAll takes the cart exclusively. It fails while any line is locked.
func (l *MutationLock) TryAcquireAll() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.exclusive || len(l.held) > 0 {
		return false
	}
	l.exclusive = true
	return true
}

// ReleaseAll drops exclusive ownership.
func (l *MutationLock) ReleaseAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.exclusive = false
}

// Held reports whether bookID is currently locked.
func (l *MutationLock) Held(bookID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.exclusive {
		return true
	}
	_, ok := l.held[bookID]
	return ok
}

// InFlight lists the locked book ids in sorted order.
func (l *MutationLock) InFlight() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]string, 0, len(l.held))
	for id := range l.held {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

package cache

import "sync"

// LockMap provides per-key mutual exclusion. Callers for the same key queue
// and run sequentially; callers for different keys proceed fully in parallel.
// Lock entries are reference counted and removed once the last waiter leaves,
// so the map does not grow with the number of distinct hashes ever seen.
type LockMap struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// NewLockMap creates an empty LockMap.
func NewLockMap() *LockMap {
	return &LockMap{locks: make(map[string]*lockEntry)}
}

// WithLock runs fn while holding the lock for key and returns fn's error.
func (m *LockMap) WithLock(key string, fn func() error) error {
	e := m.acquire(key)
	defer m.release(key, e)

	e.mu.Lock()
	defer e.mu.Unlock()
	return fn()
}

func (m *LockMap) acquire(key string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.locks[key]
	if !ok {
		e = &lockEntry{}
		m.locks[key] = e
	}
	e.refs++
	return e
}

func (m *LockMap) release(key string, e *lockEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(m.locks, key)
	}
}

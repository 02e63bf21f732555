package chord

import "sync"

// slot is the creation cell behind Singleton and Scoped caching. It moves
// Uncreated -> Creating -> Created; a failed construction returns it to
// Uncreated so a later resolve may retry. Concurrent resolvers of a cold slot
// block on the mutex until the winner completes, so exactly one construction
// occurs.
type slot struct {
	mu      sync.Mutex
	created bool
	value   any
}

// resolve returns the cached value, or runs build and caches the result.
// The second return reports whether this call constructed the value.
func (s *slot) resolve(build func() (any, error)) (any, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.created {
		return s.value, false, nil
	}

	v, err := build()
	if err != nil {
		// Stay Uncreated: the cache must remain retryable, never poisoned.
		return nil, false, err
	}

	s.value = v
	s.created = true
	return v, true, nil
}

// lifetimeManager holds the per-descriptor instance caching state. One
// manager exists per descriptor; managers are never shared across
// descriptors.
type lifetimeManager struct {
	lifetime Lifetime

	// Singleton state.
	singleton slot

	// Scoped state: one slot per scope identity, torn down with the scope.
	mu     sync.Mutex
	scoped map[string]*slot
}

func newLifetimeManager(lt Lifetime) *lifetimeManager {
	return &lifetimeManager{lifetime: lt}
}

// scopeSlot returns the creation cell for the given scope, creating it on
// first access.
func (m *lifetimeManager) scopeSlot(scopeID string) *slot {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.scoped == nil {
		m.scoped = make(map[string]*slot)
	}
	s, ok := m.scoped[scopeID]
	if !ok {
		s = &slot{}
		m.scoped[scopeID] = s
	}
	return s
}

// dropScope releases the cell for a closed scope. The scope itself owns
// disposal of the cached instances.
func (m *lifetimeManager) dropScope(scopeID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.scoped, scopeID)
}

// resolve applies the lifetime policy: return a cached instance or run build
// and cache per policy. The second return reports whether build ran.
func (m *lifetimeManager) resolve(scopeID string, build func() (any, error)) (any, bool, error) {
	switch m.lifetime {
	case Singleton:
		return m.singleton.resolve(build)

	case Scoped:
		if scopeID == "" {
			return nil, false, ErrScopeRequired
		}
		return m.scopeSlot(scopeID).resolve(build)

	default:
		// Transient and Factory: no cache, no locking beyond the factory's own.
		v, err := build()
		if err != nil {
			return nil, false, err
		}
		return v, true, nil
	}
}

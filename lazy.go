package chord

import (
	"fmt"
	"sync"
)

// Lazy is an explicit deferred-resolution handle: it holds a resolver and a
// key and performs the resolve only on first use. Because the deferred
// resolve runs as a new top-level resolution (outside the stack that created
// the handle), lazy dependencies are the sanctioned way to break cycles.
//
// Constructors declare lazy parameters with LazyDep and receive a *Lazy in
// place of the value:
//
//	chord.NewConstructor(func(args []any) (any, error) {
//	    return &ServiceA{b: args[0].(*chord.Lazy)}, nil
//	}, chord.LazyDep(chord.KeyOf[*ServiceB]()))
type Lazy struct {
	key      Key
	resolver Resolver

	mu    sync.Mutex
	done  bool
	value any
}

func newLazy(r Resolver, key Key) *Lazy {
	return &Lazy{key: key, resolver: r}
}

// Key returns the key this handle resolves.
func (l *Lazy) Key() Key {
	return l.key
}

// Value resolves and caches the dependency on first call. A failed resolve is
// not cached, so a later call may retry.
func (l *Lazy) Value() (any, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.done {
		return l.value, nil
	}

	v, err := l.resolver.Resolve(l.key)
	if err != nil {
		return nil, err
	}

	l.value = v
	l.done = true
	return v, nil
}

// Resolved reports whether the handle has resolved its value.
func (l *Lazy) Resolved() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done
}

// LazyValue resolves the handle and asserts the result to T.
func LazyValue[T any](l *Lazy) (T, error) {
	var zero T
	v, err := l.Value()
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, ResolutionError{Key: l.key, Cause: fmt.Errorf("resolved value of type %T is not assignable to the requested type", v)}
	}
	return t, nil
}

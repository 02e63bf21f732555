package chord

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Scope is a bounded unit of Scoped-instance sharing and deterministic
// teardown. Scoped registrations resolved through a scope are cached per
// scope; Singleton and Transient behavior is identical whether resolved
// through a scope or the root container.
//
// In web applications a scope is typically created per request:
//
//	scope, err := container.CreateScope()
//	if err != nil { ... }
//	defer scope.Close()
//
//	svc, err := scope.Resolve(chord.KeyOf[*RequestHandler]())
//
// Scopes do not nest: only root-container-to-single-scope depth is
// supported.
type Scope struct {
	id        string
	container *Container

	closed atomic.Bool

	mu          sync.Mutex
	disposables []any // in creation order, released in reverse
}

var _ Resolver = (*Scope)(nil)

// CreateScope creates a new scope.
func (c *Container) CreateScope() (*Scope, error) {
	if c.closed.Load() {
		return nil, ErrContainerClosed
	}

	s := &Scope{
		id:        uuid.NewString(),
		container: c,
	}

	c.scopesMu.Lock()
	c.scopes[s.id] = s
	c.scopesMu.Unlock()

	return s, nil
}

// InScope runs fn inside a fresh scope and guarantees the scope is closed
// when fn returns, even when fn fails or panics.
func (c *Container) InScope(fn func(*Scope) error) (err error) {
	s, cerr := c.CreateScope()
	if cerr != nil {
		return cerr
	}

	defer func() {
		if cerr := s.Close(); cerr != nil {
			if err == nil {
				err = cerr
			} else {
				err = DisposalError{Context: "scope", Errors: []error{err, cerr}}
			}
		}
	}()

	return fn(s)
}

// ID returns the scope's unique identity token.
func (s *Scope) ID() string {
	return s.id
}

// Container returns the parent container.
func (s *Scope) Container() *Container {
	return s.container
}

// IsClosed reports whether the scope has been closed.
func (s *Scope) IsClosed() bool {
	return s.closed.Load()
}

// Resolve resolves key within this scope: Scoped registrations hit the
// scope's private cache, everything else routes to the parent container's
// managers.
func (s *Scope) Resolve(key Key) (any, error) {
	rc := &resolveContext{container: s.container, scope: s}
	return rc.Resolve(key)
}

// ResolveOptional resolves key within this scope, returning
// (nil, false, nil) when it is not registered.
func (s *Scope) ResolveOptional(key Key) (any, bool, error) {
	rc := &resolveContext{container: s.container, scope: s}
	return rc.ResolveOptional(key)
}

// ResolveAsync resolves key within this scope, allowing async-factory
// registrations.
func (s *Scope) ResolveAsync(ctx context.Context, key Key) (any, error) {
	rc := &resolveContext{container: s.container, scope: s, ctx: ctx}
	return rc.Resolve(key)
}

// ResolveGeneric resolves the generic key (base, args...) within this scope.
func (s *Scope) ResolveGeneric(base Key, args ...Key) (any, error) {
	return s.Resolve(GenericOf(base, args...))
}

// trackDisposable records an instance for release on Close, in creation
// order.
func (s *Scope) trackDisposable(instance any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disposables = append(s.disposables, instance)
}

// Close releases the scope's disposables in strictly reverse creation order
// and marks the scope closed. Resolving on a closed scope fails with a
// ResolutionError. Close is idempotent.
func (s *Scope) Close() error {
	return s.closeContext(context.Background())
}

// CloseContext is Close with a context passed to DisposableWithContext
// services.
func (s *Scope) CloseContext(ctx context.Context) error {
	return s.closeContext(ctx)
}

func (s *Scope) closeContext(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	// Drop the scope's cache slots from every lifetime manager.
	c := s.container
	c.mu.RLock()
	for _, mgr := range c.managers {
		mgr.dropScope(s.id)
	}
	c.mu.RUnlock()

	c.scopesMu.Lock()
	delete(c.scopes, s.id)
	c.scopesMu.Unlock()

	s.mu.Lock()
	disposables := s.disposables
	s.disposables = nil
	s.mu.Unlock()

	var errs []error
	for i := len(disposables) - 1; i >= 0; i-- {
		if err := disposeInstance(ctx, disposables[i]); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return DisposalError{Context: "scope", Errors: errs}
	}
	return nil
}

package chord

import (
	"context"
	"fmt"
	"slices"
)

// resolveContext carries the state of one top-level resolve call: the
// cycle-detection stack, the active scope (nil at the root), and the context
// for async factories. It is created fresh per top-level call and never
// shared across calls, so independent concurrent resolutions cannot falsely
// report a cycle.
type resolveContext struct {
	container *Container
	scope     *Scope
	ctx       context.Context // nil outside ResolveAsync
	stack     []Key
}

var _ Resolver = (*resolveContext)(nil)

// Resolve resolves key on the root container.
func (c *Container) Resolve(key Key) (any, error) {
	rc := &resolveContext{container: c}
	return rc.Resolve(key)
}

// ResolveOptional resolves key, returning (nil, false, nil) when it is not
// registered. Other failures are still errors.
func (c *Container) ResolveOptional(key Key) (any, bool, error) {
	rc := &resolveContext{container: c}
	return rc.ResolveOptional(key)
}

// ResolveAsync resolves key, allowing async-factory registrations. The
// context is observed only at factory-invocation boundaries; registry and
// lifetime bookkeeping stays synchronous.
func (c *Container) ResolveAsync(ctx context.Context, key Key) (any, error) {
	rc := &resolveContext{container: c, ctx: ctx}
	return rc.Resolve(key)
}

// ResolveGeneric resolves the service registered under the generic key
// (base, args...).
func (c *Container) ResolveGeneric(base Key, args ...Key) (any, error) {
	return c.Resolve(GenericOf(base, args...))
}

// ResolveAs resolves key through r and asserts the result to T.
func ResolveAs[T any](r Resolver, key Key) (T, error) {
	var zero T
	v, err := r.Resolve(key)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, ResolutionError{Key: key, Cause: fmt.Errorf("resolved value of type %T is not assignable to the requested type", v)}
	}
	return t, nil
}

// ResolveType resolves the type key for T through r.
func ResolveType[T any](r Resolver) (T, error) {
	return ResolveAs[T](r, KeyOf[T]())
}

func (rc *resolveContext) Resolve(key Key) (any, error) {
	if key == nil {
		return nil, ResolutionError{Key: stringKey("<nil>"), Cause: ErrServiceKeyNil}
	}
	return rc.resolve(key)
}

func (rc *resolveContext) ResolveOptional(key Key) (any, bool, error) {
	if key == nil {
		return nil, false, nil
	}
	v, err := rc.resolve(key)
	if err != nil {
		// Absent is only the key itself being unregistered; a missing
		// dependency deeper in the graph is still an error.
		if nf, ok := err.(ServiceNotFoundError); ok && nf.Key == key {
			return nil, false, nil
		}
		return nil, false, err
	}
	return v, true, nil
}

// resolve is one step of the resolution pipeline: lookup, before hooks,
// cycle check, lifetime manager dispatch, disposal tracking.
func (rc *resolveContext) resolve(key Key) (any, error) {
	c := rc.container

	if c.closed.Load() {
		return nil, ResolutionError{Key: key, Cause: ErrContainerClosed}
	}
	if rc.scope != nil && rc.scope.closed.Load() {
		return nil, ResolutionError{Key: key, Cause: ErrScopeClosed}
	}
	if rc.ctx != nil {
		if err := rc.ctx.Err(); err != nil {
			return nil, ResolutionError{Key: key, Cause: err}
		}
	}

	d, mgr, ok := c.lookup(key)
	if !ok {
		err := ServiceNotFoundError{Key: key, Registered: c.ListKeys()}
		c.runError(key, err)
		return nil, err
	}
	key = d.Key // aliases report errors under the target key

	if d.IsAsync() && rc.ctx == nil {
		err := ResolutionError{Key: key, Cause: ErrAsyncFactory}
		c.runError(key, err)
		return nil, err
	}

	if err := c.runBefore(key); err != nil {
		wrapped := ResolutionError{Key: key, Cause: err}
		c.runError(key, wrapped)
		return nil, wrapped
	}

	// Cycle check: the key must not already be on this call chain.
	if slices.Contains(rc.stack, key) {
		path := append(slices.Clone(rc.stack), key)
		err := CircularDependencyError{Path: path}
		c.runError(key, err)
		return nil, err
	}
	rc.stack = append(rc.stack, key)
	defer func() { rc.stack = rc.stack[:len(rc.stack)-1] }()

	scopeID := ""
	if d.Lifetime == Scoped {
		if rc.scope == nil {
			err := ResolutionError{Key: key, Cause: ErrScopeRequired}
			c.runError(key, err)
			return nil, err
		}
		scopeID = rc.scope.id
	}

	// After hooks run inside the build step so the cached instance is the
	// hook-adjusted value.
	build := func() (any, error) {
		v, err := rc.build(key, d)
		if err != nil {
			return nil, err
		}
		return c.runAfter(key, v)
	}

	value, created, err := mgr.resolve(scopeID, build)
	if err != nil {
		wrapped := wrapResolveError(key, err)
		c.runError(key, wrapped)
		return nil, wrapped
	}

	if created && isDisposable(value) {
		switch {
		case d.Lifetime == Singleton:
			c.trackDisposable(value)
		case rc.scope != nil:
			// Scoped instances, plus transient and factory products created
			// through a scope, are released when the scope closes.
			rc.scope.trackDisposable(value)
		}
	}

	return value, nil
}

// build invokes the descriptor's implementation.
func (rc *resolveContext) build(key Key, d *Descriptor) (any, error) {
	switch {
	case d.hasInstance:
		return d.Instance, nil
	case d.Factory != nil:
		return d.Factory(rc)
	case d.AsyncFactory != nil:
		return d.AsyncFactory(rc.ctx, rc)
	case d.Constructor != nil:
		return rc.construct(key, d.Constructor)
	default:
		return nil, InvalidServiceError{Key: key, Reason: "no implementation, factory, or instance set"}
	}
}

// construct resolves the constructor's parameters in declaration order and
// invokes the build function.
func (rc *resolveContext) construct(owner Key, ctor *Constructor) (any, error) {
	args := make([]any, len(ctor.Params))
	for i, p := range ctor.Params {
		switch {
		case p.Lazy:
			// Deferred handle: the cycle check happens on first use, as a
			// new top-level resolve outside this stack.
			args[i] = newLazy(rc.deferredResolver(), p.Key)

		case p.Optional && !rc.container.Has(p.Key):
			args[i] = p.Default

		default:
			v, err := rc.resolve(p.Key)
			if err != nil {
				return nil, ResolutionError{Key: owner, Parameter: p.Name, Cause: err}
			}
			args[i] = v
		}
	}
	return ctor.Build(args)
}

// deferredResolver returns the resolver lazy handles bind to: the active
// scope when there is one, so scoped dependencies stay scope-local, and the
// root container otherwise.
func (rc *resolveContext) deferredResolver() Resolver {
	if rc.scope != nil {
		return rc.scope
	}
	return rc.container
}

// wrapResolveError adds key context to a build failure while passing
// container error types through unchanged, so recursive steps accumulate
// path context without double-wrapping.
func wrapResolveError(key Key, err error) error {
	switch err.(type) {
	case ServiceNotFoundError, CircularDependencyError, ResolutionError, InvalidServiceError, RegistrationError:
		return err
	}
	return ResolutionError{Key: key, Cause: err}
}

package chord

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
)

// Container is the service registry and resolver. A container is safe for
// concurrent use: registrations are serialized under a registry-wide lock and
// lookups never observe a partially-applied registration.
//
// There is no process-wide default container; construct one with New and pass
// it explicitly.
type Container struct {
	mu          sync.RWMutex
	descriptors map[Key]*Descriptor
	managers    map[Key]*lifetimeManager
	order       []Key       // registration order, for ListKeys snapshots
	aliases     map[Key]Key // alias -> target

	interceptorsMu sync.RWMutex
	interceptors   []any

	scopesMu sync.Mutex
	scopes   map[string]*Scope

	disposablesMu sync.Mutex
	disposables   []any // singleton disposables in creation order

	closed atomic.Bool
}

// New creates an empty container.
func New() *Container {
	return &Container{
		descriptors: make(map[Key]*Descriptor),
		managers:    make(map[Key]*lifetimeManager),
		aliases:     make(map[Key]Key),
		scopes:      make(map[string]*Scope),
	}
}

// ========================================
// Registration
// ========================================

// Register registers a constructible implementation under key. The default
// lifetime is Singleton; use WithLifetime to change it.
func (c *Container) Register(key Key, ctor *Constructor, opts ...RegisterOption) error {
	if ctor == nil {
		return RegistrationError{Key: orNilKey(key), Operation: "register", Cause: ErrImplementationNil}
	}
	return c.register(&Descriptor{Key: key, Lifetime: Singleton, Constructor: ctor}, applyOptions(opts))
}

// RegisterFactory registers a factory function under key with the given
// lifetime. A lifetime of Factory makes the registration transparent: the
// factory is re-invoked on every resolve with no caching.
func (c *Container) RegisterFactory(key Key, factory FactoryFunc, lifetime Lifetime, opts ...RegisterOption) error {
	if factory == nil {
		return RegistrationError{Key: orNilKey(key), Operation: "register", Cause: ErrFactoryNil}
	}
	return c.register(&Descriptor{Key: key, Lifetime: lifetime, Factory: factory}, applyOptions(opts))
}

// RegisterAsyncFactory registers a context-aware factory under key. Async
// registrations can only be resolved through ResolveAsync.
func (c *Container) RegisterAsyncFactory(key Key, factory AsyncFactoryFunc, lifetime Lifetime, opts ...RegisterOption) error {
	if factory == nil {
		return RegistrationError{Key: orNilKey(key), Operation: "register", Cause: ErrFactoryNil}
	}
	return c.register(&Descriptor{Key: key, Lifetime: lifetime, AsyncFactory: factory}, applyOptions(opts))
}

// RegisterInstance registers a pre-built value under key. Instance
// registrations are always Singleton-equivalent: every resolve returns the
// same value.
func (c *Container) RegisterInstance(key Key, value any, opts ...RegisterOption) error {
	o := applyOptions(opts)
	// The declared lifetime of an instance is ignored, not an error.
	o.lifetimeSet = false
	return c.register(&Descriptor{Key: key, Lifetime: Singleton, Instance: value, hasInstance: true}, o)
}

// RegisterGeneric registers an implementation under the generic key
// (base, args...). impl may be a *Constructor, a FactoryFunc, an
// AsyncFactoryFunc, or a pre-built instance.
func (c *Container) RegisterGeneric(base Key, args []Key, impl any, lifetime Lifetime, opts ...RegisterOption) error {
	key := GenericOf(base, args...)
	switch impl := impl.(type) {
	case *Constructor:
		opts = append(slices.Clone(opts), WithLifetime(lifetime))
		return c.Register(key, impl, opts...)
	case FactoryFunc:
		return c.RegisterFactory(key, impl, lifetime, opts...)
	case func(Resolver) (any, error):
		return c.RegisterFactory(key, impl, lifetime, opts...)
	case AsyncFactoryFunc:
		return c.RegisterAsyncFactory(key, impl, lifetime, opts...)
	case func(context.Context, Resolver) (any, error):
		return c.RegisterAsyncFactory(key, impl, lifetime, opts...)
	default:
		return c.RegisterInstance(key, impl, opts...)
	}
}

// register validates the descriptor and inserts it atomically.
func (c *Container) register(d *Descriptor, o *registerOptions) error {
	if c.closed.Load() {
		return RegistrationError{Key: orNilKey(d.Key), Operation: "register", Cause: ErrContainerClosed}
	}

	if o.lifetimeSet {
		if d.Lifetime == Factory && o.lifetime != Factory {
			return InvalidServiceError{Key: d.Key, Reason: "Factory lifetime cannot be combined with a lifetime override"}
		}
		d.Lifetime = o.lifetime
		d.lifetimeOverridden = true
	}
	o.decorate(d)

	if err := d.validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.descriptors[d.Key]; exists {
		if !o.override {
			return RegistrationError{Key: d.Key, Operation: "register", Cause: ErrAlreadyRegistered}
		}
	} else {
		c.order = append(c.order, d.Key)
	}

	// Descriptor and manager are replaced together so a concurrent resolve
	// never pairs a new descriptor with stale cache state.
	c.descriptors[d.Key] = d
	c.managers[d.Key] = newLifetimeManager(d.Lifetime)

	return nil
}

// Alias makes name resolve to target. The alias is transparent: Resolve,
// Has, and GetDescriptor all follow it.
func (c *Container) Alias(name string, target Key) error {
	key := Named(name)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.descriptors[key]; exists {
		return RegistrationError{Key: key, Operation: "alias", Cause: ErrAlreadyRegistered}
	}
	if _, exists := c.aliases[key]; exists {
		return RegistrationError{Key: key, Operation: "alias", Cause: ErrAlreadyRegistered}
	}

	c.aliases[key] = target
	return nil
}

// Unregister removes the registration or alias for key, reporting whether
// anything was removed. Lifetime caches for the key are dropped with it;
// already-created singleton disposables remain owned by the container and are
// released on Close.
func (c *Container) Unregister(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.aliases[key]; ok {
		delete(c.aliases, key)
		return true
	}

	if _, ok := c.descriptors[key]; !ok {
		return false
	}

	delete(c.descriptors, key)
	delete(c.managers, key)
	if i := slices.Index(c.order, key); i >= 0 {
		c.order = slices.Delete(c.order, i, i+1)
	}
	return true
}

// Clear removes every registration and alias. As with Unregister, disposables
// created before the clear stay owned by the container until Close.
func (c *Container) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.descriptors = make(map[Key]*Descriptor)
	c.managers = make(map[Key]*lifetimeManager)
	c.aliases = make(map[Key]Key)
	c.order = nil
}

// ========================================
// Lookup
// ========================================

// Has reports whether key (or an alias for it) is registered.
func (c *Container) Has(key Key) bool {
	_, _, ok := c.lookup(key)
	return ok
}

// GetDescriptor returns the descriptor registered under key, following
// aliases. The descriptor is shared and must be treated as read-only.
func (c *Container) GetDescriptor(key Key) (*Descriptor, bool) {
	d, _, ok := c.lookup(key)
	return d, ok
}

// ListKeys returns a snapshot of the registered keys in registration order.
func (c *Container) ListKeys() []Key {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.order)
}

// lookup resolves aliases and returns the descriptor and its lifetime
// manager under a read lock.
func (c *Container) lookup(key Key) (*Descriptor, *lifetimeManager, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	// Aliases are single-level; a chain is followed defensively but bounded.
	for i := 0; i < 8; i++ {
		target, ok := c.aliases[key]
		if !ok {
			break
		}
		key = target
	}

	d, ok := c.descriptors[key]
	if !ok {
		return nil, nil, false
	}
	return d, c.managers[key], true
}

// ========================================
// Interceptors
// ========================================

// AddInterceptor registers an interceptor. The value must implement at least
// one of BeforeResolver, AfterResolver, or ErrorObserver.
func (c *Container) AddInterceptor(interceptor any) error {
	switch interceptor.(type) {
	case BeforeResolver, AfterResolver, ErrorObserver:
	default:
		return ErrInterceptorNoHooks
	}

	c.interceptorsMu.Lock()
	defer c.interceptorsMu.Unlock()
	c.interceptors = append(c.interceptors, interceptor)
	return nil
}

func (c *Container) snapshotInterceptors() []any {
	c.interceptorsMu.RLock()
	defer c.interceptorsMu.RUnlock()
	return slices.Clone(c.interceptors)
}

func (c *Container) runBefore(key Key) error {
	for _, itc := range c.snapshotInterceptors() {
		if b, ok := itc.(BeforeResolver); ok {
			if err := b.BeforeResolve(key); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Container) runAfter(key Key, value any) (any, error) {
	current := value
	for _, itc := range c.snapshotInterceptors() {
		if a, ok := itc.(AfterResolver); ok {
			next, err := a.AfterResolve(key, current)
			if err != nil {
				return nil, err
			}
			current = next
		}
	}
	return current, nil
}

func (c *Container) runError(key Key, err error) {
	for _, itc := range c.snapshotInterceptors() {
		if o, ok := itc.(ErrorObserver); ok {
			o.OnError(key, err)
		}
	}
}

// ========================================
// Warmup and teardown
// ========================================

// Warmup eagerly constructs the given Singleton registrations so that first
// requests hit a warm cache. Keys with non-caching lifetimes are skipped.
func (c *Container) Warmup(keys ...Key) error {
	for _, key := range keys {
		d, _, ok := c.lookup(key)
		if !ok {
			return ServiceNotFoundError{Key: key, Registered: c.ListKeys()}
		}
		if d.Lifetime != Singleton {
			continue
		}
		if _, err := c.Resolve(key); err != nil {
			return err
		}
	}
	return nil
}

// trackDisposable records a singleton disposable in creation order.
func (c *Container) trackDisposable(instance any) {
	c.disposablesMu.Lock()
	defer c.disposablesMu.Unlock()
	c.disposables = append(c.disposables, instance)
}

// Close closes the container: open scopes are closed first, then singleton
// disposables are released in reverse creation order. After Close, resolves
// and registrations fail.
func (c *Container) Close() error {
	return c.CloseContext(context.Background())
}

// CloseContext is Close with a context passed to DisposableWithContext
// services.
func (c *Container) CloseContext(ctx context.Context) error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	var errs []error

	c.scopesMu.Lock()
	open := make([]*Scope, 0, len(c.scopes))
	for _, s := range c.scopes {
		open = append(open, s)
	}
	c.scopesMu.Unlock()

	for _, s := range open {
		if err := s.closeContext(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	c.disposablesMu.Lock()
	disposables := c.disposables
	c.disposables = nil
	c.disposablesMu.Unlock()

	for i := len(disposables) - 1; i >= 0; i-- {
		if err := disposeInstance(ctx, disposables[i]); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return DisposalError{Context: "container", Errors: errs}
	}
	return nil
}

// IsClosed reports whether the container has been closed.
func (c *Container) IsClosed() bool {
	return c.closed.Load()
}

func orNilKey(key Key) Key {
	if key == nil {
		return stringKey("<nil>")
	}
	return key
}

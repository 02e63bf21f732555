package chord

import "context"

// Resolver resolves services. It is implemented by Container, by Scope, and
// by the call-local resolution context handed to factories, so that a factory
// calling back into the container stays on the same cycle-detection stack.
type Resolver interface {
	// Resolve returns the service registered under key.
	Resolve(key Key) (any, error)

	// ResolveOptional returns the service registered under key, or
	// (nil, false, nil) when the key is not registered. Failures other than
	// a missing registration are still reported as errors.
	ResolveOptional(key Key) (any, bool, error)
}

// FactoryFunc creates a service instance. The Resolver is bound to the
// active resolution context; recursive resolves made through it are subject
// to cycle detection.
type FactoryFunc func(r Resolver) (any, error)

// AsyncFactoryFunc creates a service instance with a context. Async
// factories can only be resolved through ResolveAsync; the surrounding
// registry and lifetime bookkeeping stays synchronous, only the factory call
// itself observes the context.
type AsyncFactoryFunc func(ctx context.Context, r Resolver) (any, error)

// Param describes one constructor dependency. Parameters are declared
// explicitly at registration time; the container never inspects function
// signatures.
type Param struct {
	// Key is the dependency's service key.
	Key Key

	// Name is the parameter name, used in error messages.
	Name string

	// Optional marks the dependency as optional: when no registration
	// exists, Default is injected instead of failing.
	Optional bool

	// Default is the value injected for a missing optional dependency.
	Default any

	// Lazy marks the dependency as deferred: a *Lazy handle is injected and
	// the actual resolve happens on first use, outside the original
	// resolution stack. This is the sanctioned mechanism for breaking
	// cycles.
	Lazy bool
}

// Dep declares a required constructor dependency.
func Dep(key Key) Param {
	return Param{Key: key, Name: key.String()}
}

// OptionalDep declares an optional constructor dependency with a default
// value injected when the key is not registered.
func OptionalDep(key Key, def any) Param {
	return Param{Key: key, Name: key.String(), Optional: true, Default: def}
}

// LazyDep declares a deferred constructor dependency. The constructor
// receives a *Lazy in place of the value.
func LazyDep(key Key) Param {
	return Param{Key: key, Name: key.String(), Lazy: true}
}

// Named sets the parameter name used in diagnostics.
func (p Param) Named(name string) Param {
	p.Name = name
	return p
}

// Constructor describes a constructible implementation: an explicit ordered
// dependency list plus a build function invoked with the resolved arguments
// in declaration order.
type Constructor struct {
	// Params are the constructor's dependencies in declaration order.
	Params []Param

	// Build receives one argument per Param, in order. Lazy parameters
	// arrive as *Lazy; missing optional parameters arrive as their Default.
	Build func(args []any) (any, error)
}

// NewConstructor builds a Constructor from a build function and its
// dependency declarations.
func NewConstructor(build func(args []any) (any, error), params ...Param) *Constructor {
	return &Constructor{Params: params, Build: build}
}

// Descriptor is the stored registration record. Descriptors are immutable
// after registration: exactly one of Constructor, Factory, AsyncFactory, or
// Instance is set.
type Descriptor struct {
	// Key is the identity the registration is stored under.
	Key Key

	// Lifetime is the caching policy. A descriptor holding an Instance is
	// always effectively Singleton regardless of the declared lifetime.
	Lifetime Lifetime

	// Exactly one of the following is populated.
	Constructor  *Constructor
	Factory      FactoryFunc
	AsyncFactory AsyncFactoryFunc
	Instance     any

	// Tags and Categories are informational sets for diagnostics and
	// filtering; the resolver does not consult them.
	Tags       map[string]struct{}
	Categories map[string]struct{}

	// Metadata is an open key-value map for extensions.
	Metadata map[string]any

	// hasInstance distinguishes a registered nil instance from no instance.
	hasInstance bool

	// lifetimeOverridden records that WithLifetime was applied, for the
	// Factory-lifetime conflict check.
	lifetimeOverridden bool
}

// IsAsync reports whether the descriptor must be resolved through
// ResolveAsync.
func (d *Descriptor) IsAsync() bool {
	return d.AsyncFactory != nil
}

// Dependencies returns the declared dependency keys of the descriptor:
// constructor parameters, or the keys declared with WithDependencies for
// factory registrations. Informational only.
func (d *Descriptor) Dependencies() []Key {
	if d.Constructor != nil {
		keys := make([]Key, 0, len(d.Constructor.Params))
		for _, p := range d.Constructor.Params {
			keys = append(keys, p.Key)
		}
		return keys
	}
	if deps, ok := d.Metadata[metadataDependencies].([]Key); ok {
		return deps
	}
	return nil
}

// HasTag reports whether the descriptor carries the given tag.
func (d *Descriptor) HasTag(tag string) bool {
	_, ok := d.Tags[tag]
	return ok
}

// HasCategory reports whether the descriptor belongs to the given category.
func (d *Descriptor) HasCategory(category string) bool {
	_, ok := d.Categories[category]
	return ok
}

// metadataDependencies is the metadata slot WithDependencies writes to.
const metadataDependencies = "chord.dependencies"

// validate enforces the descriptor invariants before the registry accepts it.
func (d *Descriptor) validate() error {
	if d.Key == nil {
		return InvalidServiceError{Key: stringKey("<nil>"), Reason: ErrServiceKeyNil.Error()}
	}

	set := 0
	if d.Constructor != nil {
		if d.Constructor.Build == nil {
			return InvalidServiceError{Key: d.Key, Reason: ErrConstructorNil.Error()}
		}
		set++
	}
	if d.Factory != nil {
		set++
	}
	if d.AsyncFactory != nil {
		set++
	}
	if d.hasInstance {
		set++
	}

	switch {
	case set == 0:
		return InvalidServiceError{Key: d.Key, Reason: "no implementation, factory, or instance set"}
	case set > 1:
		return InvalidServiceError{Key: d.Key, Reason: "more than one of implementation, factory, and instance set"}
	}

	if !d.Lifetime.IsValid() {
		return InvalidServiceError{Key: d.Key, Reason: LifetimeError{Value: d.Lifetime}.Error()}
	}

	if d.Lifetime == Factory {
		if d.Factory == nil && d.AsyncFactory == nil {
			return InvalidServiceError{Key: d.Key, Reason: "Factory lifetime requires a factory function"}
		}
		if d.lifetimeOverridden {
			return InvalidServiceError{Key: d.Key, Reason: "Factory lifetime cannot be combined with a lifetime override"}
		}
	}

	return nil
}

// RegisterOption customizes a registration.
type RegisterOption func(*registerOptions)

type registerOptions struct {
	override     bool
	lifetime     Lifetime
	lifetimeSet  bool
	tags         []string
	categories   []string
	metadata     map[string]any
	dependencies []Key
}

// WithOverride allows the registration to replace an existing one for the
// same key instead of failing with a RegistrationError.
func WithOverride() RegisterOption {
	return func(o *registerOptions) {
		o.override = true
	}
}

// WithLifetime overrides the registration's lifetime. Applying it to a
// Factory-lifetime registration fails with an InvalidServiceError: Factory
// results are never cached, so a caching override is a contradiction.
func WithLifetime(lt Lifetime) RegisterOption {
	return func(o *registerOptions) {
		o.lifetime = lt
		o.lifetimeSet = true
	}
}

// WithTags attaches informational tags to the descriptor.
func WithTags(tags ...string) RegisterOption {
	return func(o *registerOptions) {
		o.tags = append(o.tags, tags...)
	}
}

// WithCategories attaches informational categories to the descriptor.
func WithCategories(categories ...string) RegisterOption {
	return func(o *registerOptions) {
		o.categories = append(o.categories, categories...)
	}
}

// WithMetadata attaches an open metadata entry to the descriptor.
func WithMetadata(key string, value any) RegisterOption {
	return func(o *registerOptions) {
		if o.metadata == nil {
			o.metadata = make(map[string]any)
		}
		o.metadata[key] = value
	}
}

// WithDependencies declares the dependency keys of a factory registration
// for diagnostics and graph export. The resolver does not consult them.
func WithDependencies(keys ...Key) RegisterOption {
	return func(o *registerOptions) {
		o.dependencies = append(o.dependencies, keys...)
	}
}

func applyOptions(opts []RegisterOption) *registerOptions {
	o := &registerOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *registerOptions) decorate(d *Descriptor) {
	if len(o.tags) > 0 {
		d.Tags = make(map[string]struct{}, len(o.tags))
		for _, t := range o.tags {
			d.Tags[t] = struct{}{}
		}
	}
	if len(o.categories) > 0 {
		d.Categories = make(map[string]struct{}, len(o.categories))
		for _, c := range o.categories {
			d.Categories[c] = struct{}{}
		}
	}
	if len(o.metadata) > 0 || len(o.dependencies) > 0 {
		d.Metadata = make(map[string]any, len(o.metadata)+1)
		for k, v := range o.metadata {
			d.Metadata[k] = v
		}
		if len(o.dependencies) > 0 {
			d.Metadata[metadataDependencies] = o.dependencies
		}
	}
}

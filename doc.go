// Package chord provides a dependency injection container for Go
// applications: a service registry and resolver that builds object graphs on
// demand, enforces lifetime rules, detects circular dependencies, and
// releases scoped resources deterministically.
//
// # Overview
//
// chord offers:
//   - Four service lifetimes: Singleton, Transient, Scoped, and Factory
//   - Explicit, declaration-order constructor injection with no reflection
//     over function signatures
//   - Optional and lazy (cycle-breaking) dependencies
//   - Generic keys distinguishing Repository[User] from Repository[Order]
//   - Resolution interceptors (before/after/on-error hooks)
//   - Deterministic reverse-order disposal of scopes and the container
//   - Thread-safe registration and resolution
//
// # Basic Usage
//
// Create a container, register services, and resolve:
//
//	c := chord.New()
//
//	c.RegisterFactory(chord.KeyOf[*Database](), func(r chord.Resolver) (any, error) {
//	    return OpenDatabase()
//	}, chord.Singleton)
//
//	c.Register(chord.KeyOf[*UserService](), chord.NewConstructor(
//	    func(args []any) (any, error) {
//	        return &UserService{db: args[0].(*Database)}, nil
//	    },
//	    chord.Dep(chord.KeyOf[*Database]()),
//	))
//
//	svc, err := c.Resolve(chord.KeyOf[*UserService]())
//
// # Service Lifetimes
//
//   - Singleton: one instance, created on first resolve and shared for the
//     container's lifetime
//   - Transient: a new instance on every resolve
//   - Scoped: one instance per scope (per HTTP request in web applications)
//   - Factory: the registered factory is re-invoked on every resolve, with
//     no caching at any level
//
// # Scopes
//
// Scopes isolate Scoped instances and tear them down in reverse creation
// order:
//
//	err := c.InScope(func(s *chord.Scope) error {
//	    tx, err := s.Resolve(chord.KeyOf[*Transaction]())
//	    ...
//	    return nil
//	}) // the scope is closed here, even on error
//
// # Breaking Cycles
//
// A dependency cycle fails with a CircularDependencyError naming the full
// path. Marking one edge lazy with LazyDep breaks the cycle: the constructor
// receives a *Lazy handle and the deferred resolve runs on first use.
package chord

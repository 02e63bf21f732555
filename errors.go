package chord

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ========================================
// Core Error Values (Sentinel Errors)
// ========================================
// These are base errors that should be wrapped in typed errors when returned.
// Never return these directly to users - always wrap them with context.

var (
	// Service resolution errors.
	ErrServiceNotFound = errors.New("service not found")
	ErrServiceKeyNil   = errors.New("service key cannot be nil")
	ErrScopeRequired   = errors.New("no active scope: service requires a scope")

	// Lifecycle errors.
	ErrContainerClosed = errors.New("container has been closed")
	ErrScopeClosed     = errors.New("scope has been closed")

	// Registration errors.
	ErrAlreadyRegistered  = errors.New("service already registered")
	ErrImplementationNil  = errors.New("implementation cannot be nil")
	ErrFactoryNil         = errors.New("factory cannot be nil")
	ErrConstructorNil     = errors.New("constructor build function cannot be nil")
	ErrAsyncFactory       = errors.New("service has an async factory: use ResolveAsync")
	ErrInterceptorNoHooks = errors.New("interceptor implements no hook interface")
)

var (
	_ error = LifetimeError{}
	_ error = ServiceNotFoundError{}
	_ error = CircularDependencyError{}
	_ error = InvalidServiceError{}
	_ error = RegistrationError{}
	_ error = ResolutionError{}
	_ error = DisposalError{}
)

// LifetimeError indicates an invalid service lifetime value.
type LifetimeError struct {
	Value any
}

func (e LifetimeError) Error() string {
	return fmt.Sprintf("invalid service lifetime: %v", e.Value)
}

// ServiceNotFoundError indicates that the requested key has no registration.
// It carries the registered keys so callers can render suggestions.
type ServiceNotFoundError struct {
	Key        Key
	Registered []Key
}

func (e ServiceNotFoundError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("service not found: %s", e.Key))

	if similar := findSimilarKeys(e.Key, e.Registered); len(similar) > 0 {
		b.WriteString("\n\nDid you mean one of these?\n")
		for _, k := range similar {
			b.WriteString(fmt.Sprintf("  • %s\n", k))
		}
	}

	b.WriteString("\nMake sure the service is registered before resolving it.")

	return b.String()
}

func (e ServiceNotFoundError) Unwrap() error {
	return ErrServiceNotFound
}

// findSimilarKeys finds registered keys with similar display names using a
// simple substring match, capped at five suggestions.
func findSimilarKeys(target Key, registered []Key) []Key {
	if target == nil || len(registered) == 0 {
		return nil
	}

	targetName := strings.ToLower(target.String())

	var similar []Key
	for _, k := range registered {
		if k == nil || k == target {
			continue
		}

		name := strings.ToLower(k.String())
		if strings.Contains(name, targetName) || strings.Contains(targetName, name) {
			similar = append(similar, k)
		}

		if len(similar) >= 5 {
			break
		}
	}

	return similar
}

// CircularDependencyError indicates a cycle in the dependency graph,
// detected during recursive resolution. Path holds the offending chain in
// traversal order, ending with the repeated key.
type CircularDependencyError struct {
	Path []Key
}

func (e CircularDependencyError) Error() string {
	var b strings.Builder
	b.WriteString("circular dependency detected: ")

	for i, k := range e.Path {
		if i > 0 {
			b.WriteString(" -> ")
		}
		b.WriteString(k.String())
	}

	b.WriteString("\n\nTo resolve this:\n")
	b.WriteString("  • Mark one edge of the cycle as a lazy dependency\n")
	b.WriteString("  • Restructure to remove the circular relationship\n")

	return b.String()
}

// InvalidServiceError indicates a malformed descriptor, for example no
// implementation set, more than one set, or a lifetime override that
// contradicts a Factory registration.
type InvalidServiceError struct {
	Key    Key
	Reason string
}

func (e InvalidServiceError) Error() string {
	return fmt.Sprintf("invalid service %s: %s", e.Key, e.Reason)
}

// RegistrationError wraps errors during service registration.
type RegistrationError struct {
	Key       Key
	Operation string // "register", "alias", "unregister", etc.
	Cause     error
}

func (e RegistrationError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Key, e.Cause)
}

func (e RegistrationError) Unwrap() error {
	return e.Cause
}

// ResolutionError wraps resolution-time failures that are not covered by the
// other categories: a missing required constructor dependency, a required
// scope that is absent, or a factory/constructor that itself failed.
type ResolutionError struct {
	Key       Key
	Parameter string // offending constructor parameter, if any
	Cause     error
}

func (e ResolutionError) Error() string {
	if e.Parameter != "" {
		return fmt.Sprintf("failed to resolve %s: parameter %q: %v", e.Key, e.Parameter, e.Cause)
	}
	return fmt.Sprintf("failed to resolve %s: %v", e.Key, e.Cause)
}

func (e ResolutionError) Unwrap() error {
	return e.Cause
}

// DisposalError aggregates disposal errors from a scope or container close.
type DisposalError struct {
	Context string // "container", "scope"
	Errors  []error
}

func (e DisposalError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("%s disposal failed: %v", e.Context, e.Errors[0])
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s disposal failed with %d errors:", e.Context, len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("\n  %d. %v", i+1, err))
	}
	return sb.String()
}

func (e DisposalError) Unwrap() []error {
	return e.Errors
}

// formatType formats a reflect.Type for keys and error messages.
func formatType(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	switch t.Kind() {
	case reflect.Pointer:
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "*" + elem.Name()
		}
		return t.String()
	case reflect.Slice:
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "[]" + elem.Name()
		}
		return t.String()
	case reflect.Interface, reflect.Struct:
		if t.Name() != "" {
			return t.Name()
		}
		return t.String()
	default:
		if t.Name() != "" {
			return t.Name()
		}
		return t.String()
	}
}

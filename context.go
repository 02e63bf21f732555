package chord

import (
	"context"
	"errors"
)

// ErrNoScopeInContext indicates FromContext was called on a context without
// an attached scope.
var ErrNoScopeInContext = errors.New("no scope attached to context")

type scopeContextKey struct{}

// ContextWithScope returns a copy of ctx carrying the scope. Framework
// adapters use this to make the request scope reachable from handlers.
func ContextWithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, s)
}

// FromContext returns the scope attached to ctx, or ErrNoScopeInContext.
func FromContext(ctx context.Context) (*Scope, error) {
	s, ok := ctx.Value(scopeContextKey{}).(*Scope)
	if !ok {
		return nil, ErrNoScopeInContext
	}
	return s, nil
}

package chord_test

import (
	"context"
	"errors"
	"testing"

	"github.com/chord-di/chord"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScopedContainer(t *testing.T) *chord.Container {
	t.Helper()
	c := chord.New()
	require.NoError(t, c.RegisterFactory(dbKey, dbFactory, chord.Scoped))
	return c
}

func mustScope(t *testing.T, c *chord.Container) *chord.Scope {
	t.Helper()
	s, err := c.CreateScope()
	require.NoError(t, err)
	return s
}

func TestScope_Resolve(t *testing.T) {
	t.Run("same instance within a scope", func(t *testing.T) {
		c := newScopedContainer(t)
		scope := mustScope(t, c)
		defer scope.Close()

		v1, err := scope.Resolve(dbKey)
		require.NoError(t, err)
		v2, err := scope.Resolve(dbKey)
		require.NoError(t, err)
		assert.Same(t, v1, v2)
	})

	t.Run("distinct instances across scopes", func(t *testing.T) {
		c := newScopedContainer(t)
		s1 := mustScope(t, c)
		defer s1.Close()
		s2 := mustScope(t, c)
		defer s2.Close()

		v1, err := s1.Resolve(dbKey)
		require.NoError(t, err)
		v2, err := s2.Resolve(dbKey)
		require.NoError(t, err)
		assert.NotSame(t, v1, v2)
	})

	t.Run("scoped service at the root fails", func(t *testing.T) {
		c := newScopedContainer(t)
		_, err := c.Resolve(dbKey)
		assert.ErrorIs(t, err, chord.ErrScopeRequired)
	})

	t.Run("singleton is shared between scope and root", func(t *testing.T) {
		c := newTestContainer()
		scope := mustScope(t, c)
		defer scope.Close()

		fromScope, err := scope.Resolve(dbKey)
		require.NoError(t, err)
		fromRoot, err := c.Resolve(dbKey)
		require.NoError(t, err)
		assert.Same(t, fromRoot, fromScope)
	})

	t.Run("transient through a scope is fresh per resolve", func(t *testing.T) {
		c := chord.New()
		require.NoError(t, c.RegisterFactory(dbKey, dbFactory, chord.Transient))
		scope := mustScope(t, c)
		defer scope.Close()

		v1, err := scope.Resolve(dbKey)
		require.NoError(t, err)
		v2, err := scope.Resolve(dbKey)
		require.NoError(t, err)
		assert.NotSame(t, v1, v2)
	})
}

func TestScope_Close(t *testing.T) {
	t.Run("disposes in reverse creation order", func(t *testing.T) {
		c := chord.New()
		var log []string
		first, second := chord.Named("first"), chord.Named("second")
		require.NoError(t, c.RegisterFactory(first, func(r chord.Resolver) (any, error) {
			return &orderedDisposable{name: "first", log: &log}, nil
		}, chord.Scoped))
		require.NoError(t, c.RegisterFactory(second, func(r chord.Resolver) (any, error) {
			return &orderedDisposable{name: "second", log: &log}, nil
		}, chord.Scoped))

		scope := mustScope(t, c)
		_, err := scope.Resolve(first)
		require.NoError(t, err)
		_, err = scope.Resolve(second)
		require.NoError(t, err)

		require.NoError(t, scope.Close())
		assert.Equal(t, []string{"second", "first"}, log)
	})

	t.Run("resolve after close fails", func(t *testing.T) {
		c := newScopedContainer(t)
		scope := mustScope(t, c)
		require.NoError(t, scope.Close())
		assert.True(t, scope.IsClosed())

		_, err := scope.Resolve(dbKey)
		assert.ErrorIs(t, err, chord.ErrScopeClosed)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		c := newScopedContainer(t)
		scope := mustScope(t, c)
		require.NoError(t, scope.Close())
		require.NoError(t, scope.Close())
	})

	t.Run("transient disposables created through the scope are released", func(t *testing.T) {
		c := chord.New()
		var log []string
		key := chord.Named("conn")
		require.NoError(t, c.RegisterFactory(key, func(r chord.Resolver) (any, error) {
			return &orderedDisposable{name: "conn", log: &log}, nil
		}, chord.Transient))

		scope := mustScope(t, c)
		_, err := scope.Resolve(key)
		require.NoError(t, err)
		_, err = scope.Resolve(key)
		require.NoError(t, err)

		require.NoError(t, scope.Close())
		assert.Equal(t, []string{"conn", "conn"}, log)
	})

	t.Run("container close closes open scopes", func(t *testing.T) {
		c := newScopedContainer(t)
		scope := mustScope(t, c)
		_, err := scope.Resolve(dbKey)
		require.NoError(t, err)

		require.NoError(t, c.Close())
		assert.True(t, scope.IsClosed())
	})

	t.Run("a new scope recomputes scoped instances", func(t *testing.T) {
		c := newScopedContainer(t)

		s1 := mustScope(t, c)
		v1, err := s1.Resolve(dbKey)
		require.NoError(t, err)
		require.NoError(t, s1.Close())

		s2 := mustScope(t, c)
		defer s2.Close()
		v2, err := s2.Resolve(dbKey)
		require.NoError(t, err)
		assert.NotSame(t, v1, v2)
	})
}

func TestInScope(t *testing.T) {
	t.Run("runs the body with a live scope and closes it", func(t *testing.T) {
		c := newScopedContainer(t)
		var captured *chord.Scope

		err := c.InScope(func(s *chord.Scope) error {
			captured = s
			_, err := s.Resolve(dbKey)
			return err
		})
		require.NoError(t, err)
		assert.True(t, captured.IsClosed())
	})

	t.Run("propagates the body error and still closes", func(t *testing.T) {
		c := newScopedContainer(t)
		boom := errors.New("handler failed")
		var captured *chord.Scope

		err := c.InScope(func(s *chord.Scope) error {
			captured = s
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.True(t, captured.IsClosed())
	})
}

func TestScope_Context(t *testing.T) {
	c := newScopedContainer(t)
	scope := mustScope(t, c)
	defer scope.Close()

	ctx := chord.ContextWithScope(context.Background(), scope)
	got, err := chord.FromContext(ctx)
	require.NoError(t, err)
	assert.Same(t, scope, got)

	t.Run("missing scope", func(t *testing.T) {
		_, err := chord.FromContext(context.Background())
		assert.ErrorIs(t, err, chord.ErrNoScopeInContext)
	})
}

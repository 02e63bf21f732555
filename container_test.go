package chord_test

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/chord-di/chord"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_Duplicate(t *testing.T) {
	c := chord.New()
	key := chord.Named("service")

	require.NoError(t, c.RegisterFactory(key, dbFactory, chord.Singleton))

	t.Run("without override fails", func(t *testing.T) {
		err := c.RegisterFactory(key, dbFactory, chord.Singleton)
		require.Error(t, err)
		assert.ErrorIs(t, err, chord.ErrAlreadyRegistered)
		assert.IsType(t, chord.RegistrationError{}, err)
	})

	t.Run("with override replaces and resolve reflects it", func(t *testing.T) {
		err := c.RegisterFactory(key, func(r chord.Resolver) (any, error) {
			return &testDatabase{dsn: "replacement"}, nil
		}, chord.Singleton, chord.WithOverride())
		require.NoError(t, err)

		v, err := c.Resolve(key)
		require.NoError(t, err)
		assert.Equal(t, "replacement", v.(*testDatabase).dsn)
	})
}

func TestRegister_InvalidDescriptors(t *testing.T) {
	c := chord.New()

	t.Run("nil constructor", func(t *testing.T) {
		err := c.Register(chord.Named("svc"), nil)
		assert.ErrorIs(t, err, chord.ErrImplementationNil)
	})

	t.Run("nil factory", func(t *testing.T) {
		err := c.RegisterFactory(chord.Named("svc"), nil, chord.Singleton)
		assert.ErrorIs(t, err, chord.ErrFactoryNil)
	})

	t.Run("constructor without build function", func(t *testing.T) {
		err := c.Register(chord.Named("svc"), &chord.Constructor{})
		assert.IsType(t, chord.InvalidServiceError{}, err)
	})

	t.Run("invalid lifetime", func(t *testing.T) {
		err := c.RegisterFactory(chord.Named("svc"), dbFactory, chord.Lifetime(42))
		assert.IsType(t, chord.InvalidServiceError{}, err)
	})

	t.Run("Factory lifetime on a constructor", func(t *testing.T) {
		err := c.Register(chord.Named("svc"), userServiceConstructor(), chord.WithLifetime(chord.Factory))
		assert.IsType(t, chord.InvalidServiceError{}, err)
	})

	t.Run("Factory lifetime with a lifetime override", func(t *testing.T) {
		err := c.RegisterFactory(chord.Named("svc"), dbFactory, chord.Factory, chord.WithLifetime(chord.Singleton))
		assert.IsType(t, chord.InvalidServiceError{}, err)
	})
}

func TestRegisterInstance(t *testing.T) {
	c := chord.New()
	instance := &testDatabase{dsn: "prebuilt"}
	require.NoError(t, c.RegisterInstance(dbKey, instance))

	t.Run("resolve returns the exact value", func(t *testing.T) {
		v, err := c.Resolve(dbKey)
		require.NoError(t, err)
		assert.Same(t, instance, v)
	})

	t.Run("declared lifetime is ignored", func(t *testing.T) {
		key := chord.Named("instance-with-lifetime")
		require.NoError(t, c.RegisterInstance(key, instance, chord.WithLifetime(chord.Transient)))

		d, ok := c.GetDescriptor(key)
		require.True(t, ok)
		assert.Equal(t, chord.Singleton, d.Lifetime)

		v1, err := c.Resolve(key)
		require.NoError(t, err)
		v2, err := c.Resolve(key)
		require.NoError(t, err)
		assert.Same(t, v1, v2)
	})
}

func TestContainer_Lookup(t *testing.T) {
	c := newTestContainer()
	require.NoError(t, c.Register(userSvcKey, userServiceConstructor(), chord.WithTags("web"), chord.WithCategories("services")))

	t.Run("Has", func(t *testing.T) {
		assert.True(t, c.Has(dbKey))
		assert.False(t, c.Has(chord.Named("missing")))
	})

	t.Run("GetDescriptor", func(t *testing.T) {
		d, ok := c.GetDescriptor(userSvcKey)
		require.True(t, ok)
		assert.Equal(t, userSvcKey, d.Key)
		assert.True(t, d.HasTag("web"))
		assert.True(t, d.HasCategory("services"))
		assert.Equal(t, []chord.Key{dbKey, loggerKey}, d.Dependencies())

		_, ok = c.GetDescriptor(chord.Named("missing"))
		assert.False(t, ok)
	})

	t.Run("ListKeys preserves registration order", func(t *testing.T) {
		assert.Equal(t, []chord.Key{dbKey, loggerKey, userSvcKey}, c.ListKeys())
	})

	t.Run("ListKeys is a snapshot", func(t *testing.T) {
		keys := c.ListKeys()
		keys[0] = chord.Named("mutated")
		assert.Equal(t, dbKey, c.ListKeys()[0])
	})
}

func TestContainer_Unregister(t *testing.T) {
	c := newTestContainer()

	assert.True(t, c.Unregister(dbKey))
	assert.False(t, c.Has(dbKey))
	assert.Equal(t, []chord.Key{loggerKey}, c.ListKeys())

	t.Run("no-op when absent", func(t *testing.T) {
		assert.False(t, c.Unregister(dbKey))
	})

	t.Run("resolve after unregister fails not-found", func(t *testing.T) {
		_, err := c.Resolve(dbKey)
		assert.ErrorIs(t, err, chord.ErrServiceNotFound)
	})
}

func TestContainer_Clear(t *testing.T) {
	c := newTestContainer()
	c.Clear()

	assert.Empty(t, c.ListKeys())
	assert.False(t, c.Has(dbKey))

	// The container stays usable after a clear.
	require.NoError(t, c.RegisterFactory(dbKey, dbFactory, chord.Singleton))
	_, err := c.Resolve(dbKey)
	assert.NoError(t, err)
}

func TestContainer_Alias(t *testing.T) {
	c := newTestContainer()
	require.NoError(t, c.Alias("primary-db", dbKey))

	t.Run("alias resolves to the target registration", func(t *testing.T) {
		direct, err := c.Resolve(dbKey)
		require.NoError(t, err)
		viaAlias, err := c.Resolve(chord.Named("primary-db"))
		require.NoError(t, err)
		assert.Same(t, direct, viaAlias)
	})

	t.Run("alias is visible to Has and GetDescriptor", func(t *testing.T) {
		assert.True(t, c.Has(chord.Named("primary-db")))
		d, ok := c.GetDescriptor(chord.Named("primary-db"))
		require.True(t, ok)
		assert.Equal(t, dbKey, d.Key)
	})

	t.Run("duplicate alias fails", func(t *testing.T) {
		err := c.Alias("primary-db", loggerKey)
		assert.ErrorIs(t, err, chord.ErrAlreadyRegistered)
	})

	t.Run("unregister removes the alias only", func(t *testing.T) {
		assert.True(t, c.Unregister(chord.Named("primary-db")))
		assert.False(t, c.Has(chord.Named("primary-db")))
		assert.True(t, c.Has(dbKey))
	})
}

func TestContainer_Warmup(t *testing.T) {
	c := chord.New()

	var calls atomic.Int32
	require.NoError(t, c.RegisterFactory(dbKey, func(r chord.Resolver) (any, error) {
		calls.Add(1)
		return &testDatabase{}, nil
	}, chord.Singleton))
	require.NoError(t, c.RegisterFactory(loggerKey, loggerFactory, chord.Transient))

	require.NoError(t, c.Warmup(dbKey, loggerKey))
	assert.Equal(t, int32(1), calls.Load(), "singleton constructed exactly once during warmup")

	_, err := c.Resolve(dbKey)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load(), "resolve after warmup hits the cache")

	t.Run("unknown key fails", func(t *testing.T) {
		err := c.Warmup(chord.Named("missing"))
		assert.ErrorIs(t, err, chord.ErrServiceNotFound)
	})
}

func TestContainer_Close(t *testing.T) {
	t.Run("releases singleton disposables in reverse creation order", func(t *testing.T) {
		c := chord.New()
		var log []string

		first := chord.Named("first")
		second := chord.Named("second")
		require.NoError(t, c.RegisterFactory(first, func(r chord.Resolver) (any, error) {
			return &orderedDisposable{name: "first", log: &log}, nil
		}, chord.Singleton))
		require.NoError(t, c.RegisterFactory(second, func(r chord.Resolver) (any, error) {
			return &orderedDisposable{name: "second", log: &log}, nil
		}, chord.Singleton))

		_, err := c.Resolve(first)
		require.NoError(t, err)
		_, err = c.Resolve(second)
		require.NoError(t, err)

		require.NoError(t, c.Close())
		assert.Equal(t, []string{"second", "first"}, log)
	})

	t.Run("operations on a closed container fail", func(t *testing.T) {
		c := newTestContainer()
		require.NoError(t, c.Close())
		assert.True(t, c.IsClosed())

		_, err := c.Resolve(dbKey)
		assert.ErrorIs(t, err, chord.ErrContainerClosed)

		err = c.RegisterFactory(chord.Named("late"), dbFactory, chord.Singleton)
		assert.ErrorIs(t, err, chord.ErrContainerClosed)

		_, err = c.CreateScope()
		assert.ErrorIs(t, err, chord.ErrContainerClosed)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		c := newTestContainer()
		require.NoError(t, c.Close())
		assert.NoError(t, c.Close())
	})

	t.Run("aggregates disposal failures", func(t *testing.T) {
		c := chord.New()
		require.NoError(t, c.RegisterInstance(chord.Named("broken"), failingDisposable{}))
		_, err := c.Resolve(chord.Named("broken"))
		require.NoError(t, err)

		err = c.Close()
		require.Error(t, err)
		var de chord.DisposalError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "container", de.Context)
	})
}

type failingDisposable struct{}

func (failingDisposable) Close() error { return errors.New("close failed") }

func TestAddInterceptor_RequiresAHook(t *testing.T) {
	c := chord.New()
	assert.ErrorIs(t, c.AddInterceptor(struct{}{}), chord.ErrInterceptorNoHooks)
	assert.NoError(t, c.AddInterceptor(chord.InterceptorFuncs{}))
}

package chord_test

import (
	"testing"

	"github.com/chord-di/chord"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type genericUser struct{ id string }

type genericOrder struct{ id string }

type userRepository struct{ table string }

type orderRepository struct{ table string }

func TestRegisterGeneric(t *testing.T) {
	repo := chord.Named("Repository")
	userKey := chord.KeyOf[genericUser]()
	orderKey := chord.KeyOf[genericOrder]()

	t.Run("same base with different arguments coexist", func(t *testing.T) {
		c := chord.New()
		require.NoError(t, c.RegisterGeneric(repo, []chord.Key{userKey}, &userRepository{}, chord.Singleton))
		require.NoError(t, c.RegisterGeneric(repo, []chord.Key{orderKey}, &orderRepository{}, chord.Singleton))

		users, err := c.ResolveGeneric(repo, userKey)
		require.NoError(t, err)
		assert.IsType(t, &userRepository{}, users)

		orders, err := c.ResolveGeneric(repo, orderKey)
		require.NoError(t, err)
		assert.IsType(t, &orderRepository{}, orders)
	})

	t.Run("one instantiation does not satisfy another", func(t *testing.T) {
		c := chord.New()
		require.NoError(t, c.RegisterGeneric(repo, []chord.Key{userKey}, &userRepository{}, chord.Singleton))

		_, err := c.ResolveGeneric(repo, orderKey)
		assert.ErrorIs(t, err, chord.ErrServiceNotFound)
	})

	t.Run("factory implementations run per the declared lifetime", func(t *testing.T) {
		c := chord.New()
		require.NoError(t, c.RegisterGeneric(repo, []chord.Key{userKey}, chord.FactoryFunc(func(r chord.Resolver) (any, error) {
			return &userRepository{}, nil
		}), chord.Transient))

		v1, err := c.ResolveGeneric(repo, userKey)
		require.NoError(t, err)
		v2, err := c.ResolveGeneric(repo, userKey)
		require.NoError(t, err)
		assert.NotSame(t, v1, v2)
	})

	t.Run("generic keys work as constructor dependencies", func(t *testing.T) {
		c := chord.New()
		require.NoError(t, c.RegisterGeneric(repo, []chord.Key{userKey}, &userRepository{}, chord.Singleton))

		svcKey := chord.Named("user-service")
		require.NoError(t, c.Register(svcKey, chord.NewConstructor(func(args []any) (any, error) {
			return args[0], nil
		}, chord.Dep(chord.GenericOf(repo, userKey)))))

		v, err := c.Resolve(svcKey)
		require.NoError(t, err)
		assert.IsType(t, &userRepository{}, v)
	})

	t.Run("duplicate instantiation requires override", func(t *testing.T) {
		c := chord.New()
		require.NoError(t, c.RegisterGeneric(repo, []chord.Key{userKey}, &userRepository{}, chord.Singleton))

		err := c.RegisterGeneric(repo, []chord.Key{userKey}, &userRepository{}, chord.Singleton)
		assert.ErrorIs(t, err, chord.ErrAlreadyRegistered)

		require.NoError(t, c.RegisterGeneric(repo, []chord.Key{userKey}, &userRepository{}, chord.Singleton, chord.WithOverride()))
	})
}

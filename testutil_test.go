package chord_test

import (
	"github.com/chord-di/chord"
)

// Shared fixtures for container, resolution, and scope tests.

type testDatabase struct {
	dsn string
}

type testLogger struct {
	lines []string
}

type testUserService struct {
	db     *testDatabase
	logger *testLogger
}

var (
	dbKey      = chord.KeyOf[*testDatabase]()
	loggerKey  = chord.KeyOf[*testLogger]()
	userSvcKey = chord.KeyOf[*testUserService]()
)

func dbFactory(r chord.Resolver) (any, error) {
	return &testDatabase{dsn: "postgres://localhost"}, nil
}

func loggerFactory(r chord.Resolver) (any, error) {
	return &testLogger{}, nil
}

// userServiceConstructor wires *testDatabase and *testLogger in declaration
// order.
func userServiceConstructor() *chord.Constructor {
	return chord.NewConstructor(func(args []any) (any, error) {
		return &testUserService{
			db:     args[0].(*testDatabase),
			logger: args[1].(*testLogger),
		}, nil
	}, chord.Dep(dbKey), chord.Dep(loggerKey))
}

// orderedDisposable records its name into a shared log when closed.
type orderedDisposable struct {
	name string
	log  *[]string
}

func (d *orderedDisposable) Close() error {
	*d.log = append(*d.log, d.name)
	return nil
}

// newTestContainer returns a container with the database and logger
// registered as singletons.
func newTestContainer() *chord.Container {
	c := chord.New()
	if err := c.RegisterFactory(dbKey, dbFactory, chord.Singleton); err != nil {
		panic(err)
	}
	if err := c.RegisterFactory(loggerKey, loggerFactory, chord.Singleton); err != nil {
		panic(err)
	}
	return c
}

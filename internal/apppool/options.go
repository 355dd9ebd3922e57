package apppool

import (
	"time"

	"github.com/smazurov/apppool/internal/logging"
)

// Spawner starts a worker for an application root. It is the only source of
// errors returned by Pool.Get.
type Spawner[W any] interface {
	Spawn(appRoot, user, group string) (W, error)
}

// SpawnFunc adapts a function to the Spawner interface.
type SpawnFunc[W any] func(appRoot, user, group string) (W, error)

// Spawn calls f(appRoot, user, group).
func (f SpawnFunc[W]) Spawn(appRoot, user, group string) (W, error) {
	return f(appRoot, user, group)
}

// SpawnResult describes one spawn attempt. Worker is the zero value when
// Err is set.
type SpawnResult[W any] struct {
	Worker  W
	AppRoot string
	User    string
	Group   string
	Elapsed time.Duration
	Cached  int // cache size after the attempt
	Err     error
}

// SpawnCallback is called after every spawn attempt, successful or not.
// It runs while the pool guard is held and must not call back into the pool.
type SpawnCallback[W any] func(SpawnResult[W])

// HitCallback is called when Get is answered from the cache.
type HitCallback func(appRoot string)

// Options configures a new Pool.
type Options[W any] struct {
	// ThreadSafe selects a mutex guard instead of the no-op guard.
	ThreadSafe bool

	// OnSpawn observes spawn attempts (optional).
	OnSpawn SpawnCallback[W]

	// OnHit observes cache hits (optional).
	OnHit HitCallback

	// Logger for pool operations. If nil, uses the "pool" module logger.
	Logger logging.Logger
}

package apppool

import (
	"sort"
	"sync"
	"time"

	"github.com/smazurov/apppool/internal/logging"
)

// Pool caches worker handles by application root.
type Pool[W any] struct {
	spawner Spawner[W]
	opts    Options[W]
	logger  logging.Logger

	guard sync.Locker
	apps  map[string]W
}

// New creates a pool that spawns workers with spawner.
func New[W any](spawner Spawner[W], opts *Options[W]) *Pool[W] {
	if spawner == nil {
		panic("apppool: Spawner is required")
	}

	var o Options[W]
	if opts != nil {
		o = *opts
	}

	logger := o.Logger
	if logger == nil {
		logger = logging.GetLogger("pool")
	}

	return &Pool[W]{
		spawner: spawner,
		opts:    o,
		logger:  logger,
		guard:   newGuard(o.ThreadSafe),
		apps:    make(map[string]W),
	}
}

// EnableThreadSafety switches the pool to a mutex guard. It cannot be undone.
//
// It must be called before any goroutine other than the caller uses the
// pool; calling it concurrently with Get is a data race.
func (p *Pool[W]) EnableThreadSafety() {
	if _, ok := p.guard.(NoopLocker); ok {
		p.guard = &sync.Mutex{}
		p.opts.ThreadSafe = true
	}
}

// ThreadSafe reports whether the pool uses a mutex guard.
func (p *Pool[W]) ThreadSafe() bool {
	return p.opts.ThreadSafe
}

// Get returns the worker for appRoot, spawning one on the first request.
// A cached worker is returned as-is, without checking that it is still
// alive. A spawn error is returned unchanged and nothing is cached.
//
// TODO: the guard is held across the spawn, so one slow spawn stalls every
// other Get. A per-root single-flight would let unrelated roots proceed.
func (p *Pool[W]) Get(appRoot, user, group string) (W, error) {
	root := normalizePath(appRoot)

	p.guard.Lock()
	defer p.guard.Unlock()

	if w, ok := p.apps[root]; ok {
		if p.opts.OnHit != nil {
			p.opts.OnHit(root)
		}
		return w, nil
	}

	p.logger.Debug("Spawning worker", "app_root", root, "user", user, "group", group)

	start := time.Now()
	w, err := p.spawner.Spawn(root, user, group)
	elapsed := time.Since(start)

	if err != nil {
		p.logger.Warn("Failed to spawn worker", "app_root", root, "error", err, "elapsed", elapsed)
		p.notifySpawn(SpawnResult[W]{AppRoot: root, User: user, Group: group, Elapsed: elapsed, Cached: len(p.apps), Err: err})
		var zero W
		return zero, err
	}

	p.apps[root] = w
	p.notifySpawn(SpawnResult[W]{Worker: w, AppRoot: root, User: user, Group: group, Elapsed: elapsed, Cached: len(p.apps)})
	p.logger.Info("Worker cached", "app_root", root, "elapsed", elapsed, "workers", len(p.apps))
	return w, nil
}

func (p *Pool[W]) notifySpawn(r SpawnResult[W]) {
	if p.opts.OnSpawn != nil {
		p.opts.OnSpawn(r)
	}
}

// Len returns the number of cached workers.
func (p *Pool[W]) Len() int {
	p.guard.Lock()
	defer p.guard.Unlock()
	return len(p.apps)
}

// AppRoots returns the cached application roots in sorted order.
func (p *Pool[W]) AppRoots() []string {
	p.guard.Lock()
	defer p.guard.Unlock()

	roots := make([]string, 0, len(p.apps))
	for root := range p.apps {
		roots = append(roots, root)
	}
	sort.Strings(roots)
	return roots
}

// Lookup returns the cached worker for appRoot without spawning.
func (p *Pool[W]) Lookup(appRoot string) (W, bool) {
	p.guard.Lock()
	defer p.guard.Unlock()
	w, ok := p.apps[normalizePath(appRoot)]
	return w, ok
}

// stopper is implemented by worker handles that can be shut down.
type stopper interface {
	Stop() error
}

// StopAll stops every cached worker that supports it. Entries stay cached.
func (p *Pool[W]) StopAll() {
	p.guard.Lock()
	workers := make(map[string]W, len(p.apps))
	for root, w := range p.apps {
		workers[root] = w
	}
	p.guard.Unlock()

	p.logger.Info("Stopping all workers", "workers", len(workers))
	for root, w := range workers {
		s, ok := any(w).(stopper)
		if !ok {
			continue
		}
		if err := s.Stop(); err != nil {
			p.logger.Warn("Failed to stop worker", "app_root", root, "error", err)
		}
	}
}

// normalizePath returns path unchanged: roots are compared textually, so
// "/srv/app" and "/srv/app/" are different entries.
func normalizePath(path string) string {
	return path
}

// Package apppool caches one worker handle per application root.
//
// Get returns the cached handle for an application root, spawning a worker
// through the configured Spawner on the first request. Handles are never
// evicted, refreshed or health-checked: a hit returns whatever was cached.
//
// Thread safety is chosen when the pool is built. A pool created with
// Options.ThreadSafe holds a mutex across the whole lookup, spawn and insert
// sequence, so spawns are serialized across all roots and concurrent
// requests for a new root spawn it once. Without it the pool uses a no-op
// guard and must only be used from one goroutine at a time.
//
//	pool := apppool.New[*spawn.Worker](manager, &apppool.Options[*spawn.Worker]{ThreadSafe: true})
//	worker, err := pool.Get("/srv/blog", "www-data", "www-data")
package apppool

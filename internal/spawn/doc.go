// Package spawn starts application workers as child processes.
//
// A Manager turns (app root, user, group) into a running Worker:
//   - The loader command runs in the app root with a private work dir whose
//     args/ files carry the startup arguments (APPPOOL_SPAWN_WORK_DIR)
//   - User and group are resolved to process credentials
//   - stdout and stderr are drained by pipewatch watchers, one per stream
//   - Stop sends SIGINT and force-kills after a timeout
//
// Manager implements apppool.Spawner[*Worker]:
//
//	mgr, err := spawn.NewManager(&spawn.ManagerOptions{Command: "ruby loader.rb"})
//	if err != nil {
//	    return err
//	}
//	pool := apppool.New[*spawn.Worker](mgr, &apppool.Options[*spawn.Worker]{ThreadSafe: true})
//	w, err := pool.Get("/srv/blog", "www", "www")
package spawn

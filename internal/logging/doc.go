// Package logging provides structured logging with per-module log levels.
//
// Loggers are plain *slog.Logger values tagged with a "module" attribute.
// Each module owns a *slog.LevelVar so levels can be changed at runtime,
// e.g. when the configuration file is reloaded.
//
// Initialize the logging system once at startup:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"pool": "debug",
//			"app":  "warn",
//		},
//	})
//
// Then get a logger per module:
//
//	logger := logging.GetLogger("pool")
//	logger.Info("Worker spawned", "app_root", root, "pid", pid)
//
// # Output Destinations
//
// Records go to stdout (text or JSON) when stdout is a terminal, pipe,
// socket or regular file, and to the systemd journal when journald is
// reachable. When both are available a MultiHandler fans out to both.
//
//	journalctl -t apppool MODULE=app PID=1234
//
// # Worker Output
//
// Lines read from worker stdout/stderr are logged under the "app" module
// with "pid" and "stream" attributes, so a single worker can be followed
// with journalctl -t apppool MODULE=app PID=<pid>.
package logging

package main

import (
	"context"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"

	"github.com/smazurov/apppool/cmd"
	"github.com/smazurov/apppool/internal/api"
	"github.com/smazurov/apppool/internal/apppool"
	"github.com/smazurov/apppool/internal/config"
	"github.com/smazurov/apppool/internal/events"
	"github.com/smazurov/apppool/internal/logging"
	"github.com/smazurov/apppool/internal/metrics"
	"github.com/smazurov/apppool/internal/metrics/exporters"
	"github.com/smazurov/apppool/internal/spawn"
	"github.com/smazurov/apppool/internal/systemd"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"apppool.toml"`

	// Server settings
	Port       string `help:"Port to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`
	CORSOrigin string `help:"Allowed CORS origin (empty disables CORS)" default:"" toml:"server.cors_origin" env:"SERVER_CORS_ORIGIN"`

	// Auth settings
	AuthUsername string `help:"Basic auth username (empty disables auth)" default:"" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Spawn settings
	SpawnCommand         string        `help:"Loader command line run for every worker" default:"" toml:"spawn.command" env:"SPAWN_COMMAND"`
	SpawnInterpreter     string        `help:"Interpreter prepended to the loader command" default:"" toml:"spawn.interpreter" env:"SPAWN_INTERPRETER"`
	SpawnEnvironment     string        `help:"Application environment (APP_ENV, RACK_ENV)" default:"production" toml:"spawn.environment" env:"SPAWN_ENVIRONMENT"`
	SpawnLogFile         string        `help:"Append raw worker output to this file" default:"" toml:"spawn.log_file" env:"SPAWN_LOG_FILE"`
	SpawnWorkDir         string        `help:"Base directory for worker work dirs" default:"" toml:"spawn.work_dir" env:"SPAWN_WORK_DIR"`
	SpawnGracefulTimeout time.Duration `help:"Wait after SIGINT before killing a worker" default:"5s" toml:"spawn.graceful_timeout" env:"SPAWN_GRACEFUL_TIMEOUT"`
	SpawnKillTimeout     time.Duration `help:"Wait after SIGKILL before giving up on a worker" default:"5s" toml:"spawn.kill_timeout" env:"SPAWN_KILL_TIMEOUT"`
	SpawnDrainTimeout    time.Duration `help:"Wait for output to drain after a worker exits" default:"2s" toml:"spawn.drain_timeout" env:"SPAWN_DRAIN_TIMEOUT"`
	SpawnTailSize        int           `help:"Bytes of recent output kept per worker" default:"65536" toml:"spawn.tail_size" env:"SPAWN_TAIL_SIZE"`

	// Logging settings
	LoggingLevel     string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat    string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingPool      string `help:"Pool logging level" default:"info" toml:"logging.pool" env:"LOGGING_POOL"`
	LoggingSpawn     string `help:"Spawn manager logging level" default:"info" toml:"logging.spawn" env:"LOGGING_SPAWN"`
	LoggingPipewatch string `help:"Pipe watcher logging level" default:"info" toml:"logging.pipewatch" env:"LOGGING_PIPEWATCH"`
	LoggingApp       string `help:"Application output logging level" default:"info" toml:"logging.app" env:"LOGGING_APP"`
	LoggingAPI       string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Defaults and flags, before the file and env are applied
		base := *opts
		loadLogging := loggingLoader(base, cli.Root())

		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			logging.GetLogger("main").Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(withFileModules(loggingConfig(opts), opts.Config))

		logger := logging.GetLogger("main")

		// Create event bus for in-process event handling
		eventBus := events.New()

		manager, err := spawn.NewManager(&spawn.ManagerOptions{
			Command:         opts.SpawnCommand,
			Interpreter:     opts.SpawnInterpreter,
			Environment:     opts.SpawnEnvironment,
			LogFile:         opts.SpawnLogFile,
			WorkDirBase:     opts.SpawnWorkDir,
			GracefulTimeout: opts.SpawnGracefulTimeout,
			KillTimeout:     opts.SpawnKillTimeout,
			DrainTimeout:    opts.SpawnDrainTimeout,
			TailSize:        opts.SpawnTailSize,
			LogParser:       spawn.ParseBracketLevel,
			OnExit: func(w *spawn.Worker, exitCode int) {
				eventBus.Publish(workerExitedEvent(w, exitCode))
			},
		})
		if err != nil {
			logger.Error("Invalid spawn settings", "error", err)
			os.Exit(1)
		}

		pool := apppool.New[*spawn.Worker](manager, &apppool.Options[*spawn.Worker]{
			OnSpawn: func(r apppool.SpawnResult[*spawn.Worker]) {
				metrics.RecordSpawn(r.Elapsed, r.Err)
				metrics.SetCachedWorkers(r.Cached)
				eventBus.Publish(spawnEvent(r))
			},
			OnHit: func(string) {
				metrics.RecordCacheHit()
			},
		})

		// Re-apply logging levels when the config file changes
		watcher := config.NewConfigWatcher(opts.Config, loadLogging, logging.GetLogger("config"))
		watcher.OnReload(func(cfg logging.Config) {
			logging.Initialize(cfg)
			logger.Info("Logging configuration reloaded", "level", cfg.Level)
		})

		server := api.NewServer(&api.Options{
			AuthUsername:      opts.AuthUsername,
			AuthPassword:      opts.AuthPassword,
			CORSOrigin:        opts.CORSOrigin,
			Pool:              pool,
			EventBus:          eventBus,
			PrometheusHandler: exporters.HTTPHandler(),
		})

		notifier := systemd.NewNotifier(logging.GetLogger("systemd"))

		hooks.OnStart(func() {
			// HTTP handlers call Get concurrently
			pool.EnableThreadSafety()

			if _, statErr := os.Stat(opts.Config); statErr == nil {
				if startErr := watcher.Start(); startErr != nil {
					logger.Warn("Failed to watch config file", "error", startErr)
				}
			}

			_ = notifier.Ready()
			_ = notifier.Status("Listening on %s", opts.Port)

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down server")
			_ = notifier.Stopping()

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if stopErr := server.Stop(ctx); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}

			if stopErr := watcher.Stop(); stopErr != nil {
				logger.Warn("Error stopping config watcher", "error", stopErr)
			}

			// Stop workers after the HTTP server stops accepting requests
			logger.Info("Stopping all workers")
			pool.StopAll()

			if closeErr := manager.Close(); closeErr != nil {
				logger.Warn("Error closing worker log file", "error", closeErr)
			}
		})
	})

	cli.Root().Use = "apppool"
	cli.Root().AddCommand(cmd.CreateSpawnCmd())

	// Run the CLI
	cli.Run()
}

// loggingConfig maps the logging options to per-module levels.
func loggingConfig(opts *Options) logging.Config {
	return logging.Config{
		Level:  opts.LoggingLevel,
		Format: opts.LoggingFormat,
		Modules: map[string]string{
			"pool":      opts.LoggingPool,
			"spawn":     opts.LoggingSpawn,
			"pipewatch": opts.LoggingPipewatch,
			"app":       opts.LoggingApp,
			"api":       opts.LoggingAPI,
			"http":      opts.LoggingAPI,
		},
	}
}

// withFileModules adds levels for modules that only the config file names,
// e.g. `systemd = "debug"` under [logging].
func withFileModules(cfg logging.Config, path string) logging.Config {
	fileCfg, err := config.ReadLoggingConfig(path)
	if err != nil {
		return cfg
	}
	for module, level := range fileCfg.Modules {
		if _, ok := cfg.Modules[module]; !ok {
			cfg.Modules[module] = level
		}
	}
	return cfg
}

// loggingLoader returns a config watcher loader that re-reads path with the
// startup precedence: flags set on cmd and APPPOOL_* env vars still override
// the file, and keys removed from the file fall back to base.
func loggingLoader(base Options, cmd *cobra.Command) func(path string) (logging.Config, error) {
	return func(path string) (logging.Config, error) {
		opts := base
		opts.Config = path
		if err := config.LoadConfig(&opts, cmd); err != nil {
			return logging.Config{}, err
		}
		return withFileModules(loggingConfig(&opts), path), nil
	}
}

func spawnEvent(r apppool.SpawnResult[*spawn.Worker]) events.Event {
	now := time.Now().Format(time.RFC3339)
	if r.Err != nil {
		return events.SpawnFailedEvent{
			AppRoot:   r.AppRoot,
			User:      r.User,
			Group:     r.Group,
			Error:     r.Err.Error(),
			Timestamp: now,
		}
	}
	return events.WorkerSpawnedEvent{
		WorkerID:  r.Worker.ID,
		AppRoot:   r.AppRoot,
		User:      r.User,
		Group:     r.Group,
		PID:       r.Worker.PID(),
		ElapsedMs: r.Elapsed.Milliseconds(),
		Timestamp: now,
	}
}

func workerExitedEvent(w *spawn.Worker, exitCode int) events.WorkerExitedEvent {
	ev := events.WorkerExitedEvent{
		WorkerID:  w.ID,
		AppRoot:   w.AppRoot,
		PID:       w.PID(),
		ExitCode:  exitCode,
		Timestamp: time.Now().Format(time.RFC3339),
	}
	for _, pw := range w.Watchers() {
		if pw.Err() != nil {
			ev.ReadErrors = append(ev.ReadErrors, pw.Stream())
		}
	}
	return ev
}

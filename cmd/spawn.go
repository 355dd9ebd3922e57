package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/smazurov/apppool/internal/apppool"
	"github.com/smazurov/apppool/internal/config"
	"github.com/smazurov/apppool/internal/logging"
	"github.com/smazurov/apppool/internal/spawn"
)

// SpawnSettings are the loader settings shared with the server config file.
type SpawnSettings struct {
	Config string

	Command         string        `toml:"spawn.command" env:"SPAWN_COMMAND"`
	Interpreter     string        `toml:"spawn.interpreter" env:"SPAWN_INTERPRETER"`
	Environment     string        `toml:"spawn.environment" env:"SPAWN_ENVIRONMENT"`
	LogFile         string        `toml:"spawn.log_file" env:"SPAWN_LOG_FILE"`
	GracefulTimeout time.Duration `toml:"spawn.graceful_timeout" env:"SPAWN_GRACEFUL_TIMEOUT"`
}

// CreateSpawnCmd creates the spawn command.
func CreateSpawnCmd() *cobra.Command {
	var settings SpawnSettings
	var user, group string
	var logJSON bool

	cmd := &cobra.Command{
		Use:   "spawn [app-root]",
		Short: "Spawn one application worker in the foreground",
		Long: `Spawns a worker for the given application root with the configured loader, ` +
			`streams its output until it exits, and forwards SIGINT/SIGTERM as a graceful stop.`,
		Args: cobra.ExactArgs(1),
		Run: func(c *cobra.Command, args []string) {
			appRoot := args[0]

			loggingConfig := config.LoadLoggingConfig(settings.Config)
			if logJSON {
				loggingConfig.Format = "json"
			}
			logging.Initialize(loggingConfig)
			logger := logging.GetLogger("spawn").With("app_root", appRoot)

			if err := config.LoadConfig(&settings, c); err != nil {
				logger.Error("Failed to load config", "error", err, "config", settings.Config)
				os.Exit(1)
			}

			os.Exit(runSpawn(appRoot, user, group, &settings, logger))
		},
	}

	cmd.Flags().StringVarP(&settings.Config, "config", "c", "apppool.toml", "Path to configuration file")
	cmd.Flags().StringVar(&settings.Command, "command", "", "Loader command line")
	cmd.Flags().StringVar(&settings.Interpreter, "interpreter", "", "Interpreter prepended to the loader command")
	cmd.Flags().StringVar(&settings.Environment, "environment", spawn.DefaultEnvironment, "Application environment")
	cmd.Flags().StringVar(&settings.LogFile, "log-file", "", "Append raw worker output to this file")
	cmd.Flags().DurationVar(&settings.GracefulTimeout, "graceful-timeout", 5*time.Second, "Time to wait after SIGINT before killing the worker")
	cmd.Flags().StringVarP(&user, "user", "u", "", "Run the worker as this user")
	cmd.Flags().StringVarP(&group, "group", "g", "", "Run the worker as this group")
	cmd.Flags().BoolVar(&logJSON, "log-json", false, "Log in JSON format")

	return cmd
}

// runSpawn spawns one worker and blocks until it exits. It returns the exit code.
func runSpawn(appRoot, user, group string, settings *SpawnSettings, logger logging.Logger) int {
	manager, err := spawn.NewManager(&spawn.ManagerOptions{
		Command:         settings.Command,
		Interpreter:     settings.Interpreter,
		Environment:     settings.Environment,
		LogFile:         settings.LogFile,
		GracefulTimeout: settings.GracefulTimeout,
		Logger:          logger,
		LogParser:       spawn.ParseBracketLevel,
	})
	if err != nil {
		logger.Error("Invalid spawn settings", "error", err)
		return 1
	}
	defer manager.Close()

	// One caller, so the no-op guard is enough.
	pool := apppool.New[*spawn.Worker](manager, &apppool.Options[*spawn.Worker]{Logger: logger})

	worker, err := pool.Get(appRoot, user, group)
	if err != nil {
		logger.Error("Failed to spawn worker", "error", err)
		return 1
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", "signal", sig.String())
		pool.StopAll()
	case <-worker.Done():
	}

	code := worker.Wait()
	logger.Info("Worker finished", "pid", worker.PID(), "exit_code", code)
	return code
}

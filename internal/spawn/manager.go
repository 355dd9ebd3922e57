package spawn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/smazurov/apppool/internal/logging"
	"github.com/smazurov/apppool/internal/pipewatch"
)

// DefaultEnvironment is the application environment when none is configured.
const DefaultEnvironment = "production"

// watcherStopTimeout bounds the join after watchers have been interrupted.
const watcherStopTimeout = time.Second

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	// Command is the loader command line run for every worker (required).
	Command string

	// Interpreter is prepended to Command when set (e.g. "ruby").
	Interpreter string

	// Environment is exported as APP_ENV and RACK_ENV. Default: production.
	Environment string

	// LogFile receives the raw output of every worker when set.
	LogFile string

	// WorkDirBase is where work dirs are created. Default: os.TempDir().
	WorkDirBase string

	// GracefulTimeout is how long Stop waits after SIGINT. Default: 5s.
	GracefulTimeout time.Duration

	// KillTimeout is how long Stop waits after SIGKILL. Default: 5s.
	KillTimeout time.Duration

	// DrainTimeout bounds how long output is drained after the process exits.
	// Default: 2s.
	DrainTimeout time.Duration

	// TailSize is the number of output bytes kept per worker.
	TailSize int

	// Logger for manager operations. If nil, uses the "spawn" module logger.
	Logger logging.Logger

	// Sink receives worker output lines. If nil, lines are logged to
	// LineLogger (default: the "app" module logger) using LogParser.
	Sink       pipewatch.LineSink
	LineLogger *slog.Logger
	LogParser  pipewatch.LogParser

	// OnExit is called once a worker has exited and its output is drained.
	OnExit func(w *Worker, exitCode int)
}

// Manager spawns workers for application roots.
type Manager struct {
	opts   ManagerOptions
	argv   []string
	logger logging.Logger
	sink   pipewatch.LineSink

	logMu   sync.Mutex
	logFile *os.File
}

// NewManager validates opts and opens the log file, if any.
func NewManager(opts *ManagerOptions) (*Manager, error) {
	if opts == nil {
		return nil, errors.New("spawn: options are required")
	}
	o := *opts

	argv, err := buildArgv(o.Interpreter, o.Command)
	if err != nil {
		return nil, fmt.Errorf("spawn: %w", err)
	}

	if o.Environment == "" {
		o.Environment = DefaultEnvironment
	}
	if o.WorkDirBase == "" {
		o.WorkDirBase = os.TempDir()
	}
	if o.GracefulTimeout <= 0 {
		o.GracefulTimeout = 5 * time.Second
	}
	if o.KillTimeout <= 0 {
		o.KillTimeout = 5 * time.Second
	}
	if o.DrainTimeout <= 0 {
		o.DrainTimeout = 2 * time.Second
	}
	if o.TailSize <= 0 {
		o.TailSize = DefaultTailSize
	}

	m := &Manager{opts: o, argv: argv, logger: o.Logger, sink: o.Sink}
	if m.logger == nil {
		m.logger = logging.GetLogger("spawn")
	}
	if m.sink == nil {
		lineLogger := o.LineLogger
		if lineLogger == nil {
			lineLogger = logging.GetLogger("app")
		}
		m.sink = pipewatch.NewSlogSink(lineLogger, o.LogParser)
	}

	if o.LogFile != "" {
		f, err := os.OpenFile(o.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("spawn: open log file: %w", err)
		}
		m.logFile = f
	}

	return m, nil
}

// Environment returns the application environment passed to workers.
func (m *Manager) Environment() string {
	return m.opts.Environment
}

// Close releases the log file. Running workers are not affected, but their
// output is no longer copied to it.
func (m *Manager) Close() error {
	m.logMu.Lock()
	defer m.logMu.Unlock()
	if m.logFile == nil {
		return nil
	}
	err := m.logFile.Close()
	m.logFile = nil
	return err
}

// Spawn starts a worker for appRoot running as user and group. Empty user and
// group keep the server's own credentials.
func (m *Manager) Spawn(appRoot, user, group string) (*Worker, error) {
	cred, err := resolveCredential(user, group)
	if err != nil {
		return nil, fmt.Errorf("spawn %s: %w", appRoot, err)
	}

	workDir, err := prepareWorkDir(m.opts.WorkDirBase, map[string]string{
		"app_root":    appRoot,
		"environment": m.opts.Environment,
		"user":        user,
		"group":       group,
	}, cred)
	if err != nil {
		return nil, fmt.Errorf("spawn %s: %w", appRoot, err)
	}

	w, err := m.start(appRoot, user, group, workDir, cred)
	if err != nil {
		_ = os.RemoveAll(workDir)
		return nil, fmt.Errorf("spawn %s: %w", appRoot, err)
	}
	return w, nil
}

func (m *Manager) start(appRoot, user, group, workDir string, cred *syscall.Credential) (*Worker, error) {
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		closeAll(stdoutR, stdoutW)
		return nil, fmt.Errorf("create stderr pipe: %w", err)
	}

	cmd := exec.Command(m.argv[0], m.argv[1:]...)
	cmd.Dir = appRoot
	cmd.Env = append(os.Environ(),
		WorkDirEnv+"="+workDir,
		"APP_ENV="+m.opts.Environment,
		"RACK_ENV="+m.opts.Environment,
	)
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true, Credential: cred}

	if err := cmd.Start(); err != nil {
		closeAll(stdoutR, stdoutW, stderrR, stderrW)
		m.logger.Error("Failed to start worker", "app_root", appRoot, "error", err)
		return nil, err
	}
	// The child holds its own copies; EOF arrives once it closes them.
	closeAll(stdoutW, stderrW)

	w := &Worker{
		ID:              uuid.NewString(),
		AppRoot:         appRoot,
		User:            user,
		Group:           group,
		StartedAt:       time.Now(),
		cmd:             cmd,
		pid:             cmd.Process.Pid,
		workDir:         workDir,
		watchers:        pipewatch.NewGroup(context.Background()),
		tail:            NewOutputTail(m.opts.TailSize),
		logger:          m.logger,
		gracefulTimeout: m.opts.GracefulTimeout,
		killTimeout:     m.opts.KillTimeout,
		state:           StateRunning,
		done:            make(chan struct{}),
	}

	m.logger.Info("Worker started", "id", w.ID, "pid", w.pid, "app_root", appRoot, "user", user, "group", group)

	cfg := &pipewatch.Config{
		Sink:          m.sink,
		OutputHandler: m.outputHandler(w),
		Logger:        m.logger,
	}
	w.watchers.Add(pipewatch.New(cfg, stdoutR, "stdout", w.pid))
	w.watchers.Add(pipewatch.New(cfg, stderrR, "stderr", w.pid))
	w.watchers.StartAll()

	go m.reap(w)

	return w, nil
}

// outputHandler copies raw output into the worker's tail and the log file.
func (m *Manager) outputHandler(w *Worker) pipewatch.OutputHandler {
	return func(buf []byte, n int) {
		_, _ = w.tail.Write(buf[:n])

		m.logMu.Lock()
		defer m.logMu.Unlock()
		if m.logFile == nil {
			return
		}
		if _, err := m.logFile.Write(buf[:n]); err != nil {
			m.logger.Warn("Failed to write worker output to log file", "pid", w.pid, "error", err)
		}
	}
}

// reap waits for the process, drains its output and runs OnExit.
func (m *Manager) reap(w *Worker) {
	code := exitCodeFromError(w.cmd.Wait())

	// Grandchildren may keep the pipes open past the worker's exit.
	if !m.joinWatchers(w, m.opts.DrainTimeout) {
		m.logger.Warn("Output not drained after worker exit", "pid", w.pid, "timeout", m.opts.DrainTimeout)
		w.watchers.Cancel()
		if !m.joinWatchers(w, watcherStopTimeout) {
			m.logger.Error("Output watchers did not stop", "pid", w.pid, "timeout", watcherStopTimeout)
		}
	}

	if err := os.RemoveAll(w.workDir); err != nil {
		m.logger.Warn("Failed to remove work dir", "dir", w.workDir, "error", err)
	}

	m.logger.Info("Worker exited", "id", w.ID, "pid", w.pid, "app_root", w.AppRoot, "exit_code", code)
	w.finish(code)

	if m.opts.OnExit != nil {
		m.opts.OnExit(w, code)
	}
}

// joinWatchers waits up to timeout for the worker's watchers to exit.
func (m *Manager) joinWatchers(w *Worker, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return w.watchers.Wait(ctx) == nil
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}

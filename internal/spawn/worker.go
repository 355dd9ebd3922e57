package spawn

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/smazurov/apppool/internal/logging"
	"github.com/smazurov/apppool/internal/pipewatch"
)

// Worker is a spawned application process.
type Worker struct {
	ID        string
	AppRoot   string
	User      string
	Group     string
	StartedAt time.Time

	cmd      *exec.Cmd
	pid      int
	workDir  string
	watchers *pipewatch.Group
	tail     *OutputTail
	logger   logging.Logger

	gracefulTimeout time.Duration
	killTimeout     time.Duration

	mu       sync.Mutex
	state    State
	exitCode int
	done     chan struct{}
}

// PID returns the worker's process ID.
func (w *Worker) PID() int {
	return w.pid
}

// Done is closed once the process has been reaped and its output drained.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Wait blocks until the worker exits and returns its exit code.
func (w *Worker) Wait() int {
	<-w.done
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.exitCode
}

// ExitCode returns the exit code, or false while the worker is running.
func (w *Worker) ExitCode() (int, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateExited {
		return 0, false
	}
	return w.exitCode, true
}

// State returns the worker's current state.
func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Output returns the most recent raw output of the worker.
func (w *Worker) Output() []byte {
	return w.tail.Bytes()
}

// Watchers returns the stdout and stderr watchers.
func (w *Worker) Watchers() []*pipewatch.Watcher {
	return w.watchers.Watchers()
}

// Info returns a snapshot of the worker.
func (w *Worker) Info() Info {
	w.mu.Lock()
	defer w.mu.Unlock()

	info := Info{
		ID:        w.ID,
		AppRoot:   w.AppRoot,
		User:      w.User,
		Group:     w.Group,
		PID:       w.pid,
		State:     w.state,
		StartedAt: w.StartedAt,
	}
	if w.state == StateExited {
		code := w.exitCode
		info.ExitCode = &code
	}
	return info
}

// Stop sends SIGINT and waits for the worker to exit, force-killing it after
// the graceful timeout. Stopping an exited worker is a no-op.
func (w *Worker) Stop() error {
	w.mu.Lock()
	if w.state == StateExited {
		w.mu.Unlock()
		return nil
	}
	w.state = StateStopping
	w.mu.Unlock()

	w.logger.Info("Sending SIGINT to worker", "pid", w.pid, "app_root", w.AppRoot)
	if err := w.cmd.Process.Signal(syscall.SIGINT); err != nil && !errors.Is(err, os.ErrProcessDone) {
		w.logger.Warn("Failed to send SIGINT", "pid", w.pid, "error", err)
	}

	select {
	case <-w.done:
		return nil
	case <-time.After(w.gracefulTimeout):
	}

	w.logger.Warn("Graceful shutdown timeout, forcing kill", "pid", w.pid, "timeout", w.gracefulTimeout)
	if err := w.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		w.logger.Error("Failed to kill worker", "pid", w.pid, "error", err)
	}

	select {
	case <-w.done:
		return nil
	case <-time.After(w.killTimeout):
		w.logger.Error("Worker did not exit after kill signal", "pid", w.pid)
		return fmt.Errorf("worker %d did not exit after kill", w.pid)
	}
}

func (w *Worker) finish(code int) {
	w.mu.Lock()
	w.exitCode = code
	w.state = StateExited
	w.mu.Unlock()
	close(w.done)
}

// exitCodeFromError extracts the exit code from a Wait error.
// A process killed by a signal reports 128 plus the signal number.
func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return 128 + int(ws.Signal())
		}
		return exitErr.ExitCode()
	}
	return 1
}

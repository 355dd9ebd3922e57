package pipewatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/smazurov/apppool/internal/logging"
	"github.com/smazurov/apppool/internal/metrics"
)

// readBufferSize bounds a single read, and therefore a single parsed chunk.
const readBufferSize = 8 * 1024

// Config holds the collaborators shared by the watchers of a worker.
type Config struct {
	// Sink receives parsed log lines. Defaults to a SlogSink on module "app".
	Sink LineSink

	// OutputHandler receives the raw bytes of every read (optional).
	OutputHandler OutputHandler

	// Logger reports read failures. Defaults to module "pipewatch".
	Logger logging.Logger
}

// ReadError is recorded when a watcher stops on an unexpected read failure.
type ReadError struct {
	PID    int
	Stream string
	Err    error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("cannot read from process %d %s: %v", e.PID, e.Stream, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// Watcher drains one worker output descriptor until it closes.
type Watcher struct {
	cfg    Config
	r      io.Reader
	stream string
	pid    int

	mu    sync.Mutex
	state State
	err   error

	initOnce  sync.Once
	startOnce sync.Once
	started   chan struct{}
	done      chan struct{}
}

// New creates a watcher for r, which it owns from now on: r is closed when
// the read loop exits if it implements io.Closer.
func New(cfg *Config, r io.Reader, stream string, pid int) *Watcher {
	var c Config
	if cfg != nil {
		c = *cfg
	}
	if c.Logger == nil {
		c.Logger = logging.GetLogger("pipewatch")
	}
	if c.Sink == nil {
		c.Sink = NewSlogSink(logging.GetLogger("app"), nil)
	}

	return &Watcher{
		cfg:     c,
		r:       r,
		stream:  stream,
		pid:     pid,
		state:   StateConstructed,
		started: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Initialize launches the background goroutine, which waits for Start before
// reading. Cancelling ctx before Start makes the goroutine exit without
// reading. Calls after the first are no-ops.
func (w *Watcher) Initialize(ctx context.Context) {
	w.initOnce.Do(func() {
		go w.run(ctx)
	})
}

// Start arms the watcher and releases its goroutine.
func (w *Watcher) Start() {
	w.startOnce.Do(func() {
		w.mu.Lock()
		if w.state == StateConstructed {
			w.state = StateArmed
		}
		w.mu.Unlock()
		close(w.started)
	})
}

// Done is closed when the goroutine exits. It never closes if Initialize was
// not called.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

// State returns the current lifecycle phase.
func (w *Watcher) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Err returns the *ReadError that stopped the watcher, or nil.
func (w *Watcher) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Stream returns the stream name, e.g. "stdout".
func (w *Watcher) Stream() string {
	return w.stream
}

// PID returns the pid of the worker that owns the descriptor.
func (w *Watcher) PID() int {
	return w.pid
}

// readDeadliner is implemented by descriptors with deadline support, such as
// *os.File pipes.
type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

// Interrupt unblocks a read in progress, after which the watcher terminates
// without recording an error. The descriptor gets an immediate read deadline
// when it supports one and is closed otherwise. Calling Interrupt on a
// terminated watcher is a no-op.
func (w *Watcher) Interrupt() {
	if d, ok := w.r.(readDeadliner); ok {
		if err := d.SetReadDeadline(time.Now()); err == nil {
			return
		}
	}
	w.closeDescriptor()
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)
	defer w.closeDescriptor()

	select {
	case <-w.started:
	case <-ctx.Done():
		w.terminate(nil)
		return
	}

	w.setState(StateRunning)
	metrics.WatcherStarted()
	defer metrics.WatcherStopped()

	w.terminate(w.readLoop(ctx))
}

// readLoop returns nil on end-of-stream, benign closure or cancellation.
func (w *Watcher) readLoop(ctx context.Context) error {
	buf := make([]byte, readBufferSize)

	for ctx.Err() == nil {
		n, err := w.r.Read(buf)
		if n > 0 {
			w.handleChunk(buf, n)
		}
		if err == nil {
			continue
		}

		switch classify(err) {
		case outcomeRetry:
			continue
		case outcomeClosed:
			return nil
		default:
			w.warnReadFailure(err)
			return &ReadError{PID: w.pid, Stream: w.stream, Err: err}
		}
	}
	return nil
}

// handleChunk logs the lines of one read and forwards the raw bytes.
// Lines are split within this chunk only; partial lines are not carried over.
func (w *Watcher) handleChunk(buf []byte, n int) {
	chunk := buf[:n]
	lines := 0

	if n == 1 && chunk[0] == '\n' {
		w.cfg.Sink.PrintAppOutput(w.pid, w.stream, chunk[:0])
		lines = 1
	} else {
		chunk = bytes.TrimSuffix(chunk, []byte{'\n'})
		for _, line := range bytes.Split(chunk, []byte{'\n'}) {
			w.cfg.Sink.PrintAppOutput(w.pid, w.stream, line)
			lines++
		}
	}

	metrics.AddPipeRead(w.stream, n, lines)

	if w.cfg.OutputHandler != nil {
		w.cfg.OutputHandler(buf[:n], n)
	}
}

func (w *Watcher) warnReadFailure(err error) {
	attrs := []any{"pid", w.pid, "stream", w.stream, "error", err}
	var errno unix.Errno
	if errors.As(err, &errno) {
		attrs = append(attrs, "errno", int(errno))
	}
	w.cfg.Logger.Warn("Cannot read from process", attrs...)
	metrics.IncPipeReadError(w.stream)
}

func (w *Watcher) terminate(err error) {
	w.mu.Lock()
	w.state = StateTerminated
	w.err = err
	w.mu.Unlock()
}

func (w *Watcher) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

func (w *Watcher) closeDescriptor() {
	if c, ok := w.r.(io.Closer); ok {
		_ = c.Close()
	}
}

type readOutcome int

const (
	outcomeFatal readOutcome = iota
	outcomeClosed
	outcomeRetry
)

// classify maps a read error to what the loop does next.
func classify(err error) readOutcome {
	switch {
	case errors.Is(err, io.EOF),
		errors.Is(err, io.ErrClosedPipe),
		errors.Is(err, os.ErrClosed),
		errors.Is(err, os.ErrDeadlineExceeded),
		errors.Is(err, unix.ECONNRESET):
		return outcomeClosed
	case errors.Is(err, unix.EAGAIN),
		errors.Is(err, unix.EWOULDBLOCK),
		errors.Is(err, unix.EINTR):
		// Unexpected on a blocking descriptor but harmless to retry.
		return outcomeRetry
	default:
		return outcomeFatal
	}
}

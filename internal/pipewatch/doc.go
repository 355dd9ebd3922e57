// Package pipewatch drains worker output descriptors in the background.
//
// A Watcher owns exactly one descriptor (a worker's stdout or stderr) and
// runs one goroutine that reads it until end-of-stream or an unrecoverable
// error. Startup is two-phase:
//
//	w := pipewatch.New(cfg, stdoutR, "stdout", pid)
//	w.Initialize(ctx) // goroutine launched, blocked on the start signal
//	// ... register the worker, attach loggers ...
//	w.Start()         // reading begins
//
// so an owner can set up several watchers for one worker and only then let
// them consume output.
//
// Each read of up to 8 KiB is split into log lines strictly within that read:
// a line whose bytes arrive in two reads is logged as two lines. The raw
// bytes of every read are also passed to the optional OutputHandler.
//
// Cancellation through the context is cooperative and checked once per
// iteration; it cannot interrupt a read that is already blocked. Interrupt
// (and Group.Cancel) unblock such a read by expiring the descriptor's read
// deadline, or by closing it when deadlines are not supported.
//
// Group supervises the watchers of one worker so they can be started, cancelled
// and joined together.
package pipewatch

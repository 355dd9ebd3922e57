package pipewatch

import (
	"context"
	"sync"
)

// Group supervises the watchers of one worker. Watchers added to a group are
// initialized under the group's context, started together, and can be
// cancelled and joined when the worker is torn down.
type Group struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	watchers []*Watcher
	started  bool
}

// NewGroup creates a group whose watchers stop when parent is cancelled.
func NewGroup(parent context.Context) *Group {
	ctx, cancel := context.WithCancel(parent)
	return &Group{ctx: ctx, cancel: cancel}
}

// Add initializes w under the group context and tracks it. A watcher added
// after StartAll is started immediately.
func (g *Group) Add(w *Watcher) {
	w.Initialize(g.ctx)

	g.mu.Lock()
	g.watchers = append(g.watchers, w)
	started := g.started
	g.mu.Unlock()

	if started {
		w.Start()
	}
}

// StartAll releases every tracked watcher.
func (g *Group) StartAll() {
	g.mu.Lock()
	g.started = true
	watchers := g.snapshot()
	g.mu.Unlock()

	for _, w := range watchers {
		w.Start()
	}
}

// Cancel stops every watcher. Reads in progress are interrupted, so a
// watcher exits even while another process still holds the write end.
func (g *Group) Cancel() {
	g.cancel()

	g.mu.Lock()
	watchers := g.snapshot()
	g.mu.Unlock()

	for _, w := range watchers {
		w.Interrupt()
	}
}

// Wait blocks until every tracked watcher has exited or ctx is done.
func (g *Group) Wait(ctx context.Context) error {
	g.mu.Lock()
	watchers := g.snapshot()
	g.mu.Unlock()

	for _, w := range watchers {
		select {
		case <-w.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Watchers returns the tracked watchers in the order they were added.
func (g *Group) Watchers() []*Watcher {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshot()
}

func (g *Group) snapshot() []*Watcher {
	out := make([]*Watcher, len(g.watchers))
	copy(out, g.watchers)
	return out
}

package pipewatch

import (
	"context"
	"os"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupStartsWatchersTogether(t *testing.T) {
	sink := &recordingSink{}
	cfg := &Config{Sink: sink, Logger: &warnRecorder{}}

	outR, outW, err := os.Pipe()
	require.NoError(t, err)
	errR, errW, err := os.Pipe()
	require.NoError(t, err)

	g := NewGroup(context.Background())
	g.Add(New(cfg, outR, "stdout", 1))
	g.Add(New(cfg, errR, "stderr", 1))

	_, err = outW.Write([]byte("out\n"))
	require.NoError(t, err)
	_, err = errW.Write([]byte("err\n"))
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, sink.Lines(), "no output may be consumed before StartAll")

	g.StartAll()
	require.NoError(t, outW.Close())
	require.NoError(t, errW.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, g.Wait(ctx))

	lines := sink.Lines()
	sort.Strings(lines)
	assert.Equal(t, []string{"err", "out"}, lines)

	for _, w := range g.Watchers() {
		assert.Equal(t, StateTerminated, w.State())
	}
}

func TestGroupCancelJoinsUnstartedWatchers(t *testing.T) {
	pr, pw, err := os.Pipe()
	require.NoError(t, err)
	defer pw.Close()

	g := NewGroup(context.Background())
	w := New(&Config{Sink: &recordingSink{}, Logger: &warnRecorder{}}, pr, "stdout", 1)
	g.Add(w)

	g.Cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, g.Wait(ctx))
	assert.Equal(t, StateTerminated, w.State())
}

func TestGroupWaitHonoursContext(t *testing.T) {
	pr, pw, err := os.Pipe()
	require.NoError(t, err)
	defer pw.Close()

	g := NewGroup(context.Background())
	g.Add(New(&Config{Sink: &recordingSink{}, Logger: &warnRecorder{}}, pr, "stdout", 1))
	g.StartAll()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, g.Wait(ctx), context.DeadlineExceeded)

	// Closing the write end unblocks the read so the watcher can exit.
	require.NoError(t, pw.Close())
	ctx2, cancel2 := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel2()
	require.NoError(t, g.Wait(ctx2))
}

func TestGroupAddAfterStartAll(t *testing.T) {
	sink := &recordingSink{}
	g := NewGroup(context.Background())
	g.StartAll()

	r := &scriptedReader{steps: []readStep{{data: "late\n"}}}
	w := New(&Config{Sink: sink, Logger: &warnRecorder{}}, r, "stdout", 1)
	g.Add(w)

	waitDone(t, w)
	assert.Equal(t, []string{"late"}, sink.Lines())
}

func TestGroupCancelUnblocksReads(t *testing.T) {
	sink := &recordingSink{}
	cfg := &Config{Sink: sink, Logger: &warnRecorder{}}

	outR, outW, err := os.Pipe()
	require.NoError(t, err)
	defer outW.Close()
	errR, errW, err := os.Pipe()
	require.NoError(t, err)
	defer errW.Close()

	g := NewGroup(context.Background())
	g.Add(New(cfg, outR, "stdout", 1))
	g.Add(New(cfg, errR, "stderr", 1))
	g.StartAll()

	_, err = outW.Write([]byte("partial\n"))
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)

	// Write ends stay open, as if another process still held them.
	g.Cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, g.Wait(ctx))

	assert.Equal(t, []string{"partial"}, sink.Lines())
	for _, w := range g.Watchers() {
		assert.Equal(t, StateTerminated, w.State(), w.Stream())
		assert.NoError(t, w.Err(), w.Stream())
	}
}

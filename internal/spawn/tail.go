package spawn

import "sync"

// DefaultTailSize is the number of output bytes kept per worker.
const DefaultTailSize = 64 * 1024

// OutputTail keeps the most recent bytes written to it.
type OutputTail struct {
	mu   sync.Mutex
	buf  []byte
	next int
	full bool
}

// NewOutputTail returns a tail holding up to size bytes.
func NewOutputTail(size int) *OutputTail {
	if size <= 0 {
		size = DefaultTailSize
	}
	return &OutputTail{buf: make([]byte, size)}
}

// Write appends p, discarding the oldest bytes once the tail is full.
func (t *OutputTail) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(p)
	if n >= len(t.buf) {
		copy(t.buf, p[n-len(t.buf):])
		t.next = 0
		t.full = true
		return n, nil
	}

	c := copy(t.buf[t.next:], p)
	if c < n {
		copy(t.buf, p[c:])
		t.full = true
	}
	t.next = (t.next + n) % len(t.buf)
	if t.next == 0 && n > 0 {
		t.full = true
	}
	return n, nil
}

// Bytes returns a copy of the retained output, oldest first.
func (t *OutputTail) Bytes() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.full {
		return append([]byte(nil), t.buf[:t.next]...)
	}
	out := make([]byte, 0, len(t.buf))
	out = append(out, t.buf[t.next:]...)
	return append(out, t.buf[:t.next]...)
}

// Len returns the number of retained bytes.
func (t *OutputTail) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.full {
		return len(t.buf)
	}
	return t.next
}

package apppool

import "sync"

// NoopLocker is a sync.Locker that does nothing. It is the guard of pools
// built without thread safety.
type NoopLocker struct{}

// Lock does nothing.
func (NoopLocker) Lock() {}

// Unlock does nothing.
func (NoopLocker) Unlock() {}

func newGuard(threadSafe bool) sync.Locker {
	if threadSafe {
		return &sync.Mutex{}
	}
	return NoopLocker{}
}

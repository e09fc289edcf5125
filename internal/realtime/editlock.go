package realtime

import "sync"

// EditLock is the advisory single-holder editing token. It arbitrates
// broadcast scope only; it never blocks API writes.
type EditLock struct {
	mu     sync.Mutex
	holder *Client
}

// NewEditLock returns an unlocked edit lock.
func NewEditLock() *EditLock {
	return &EditLock{}
}

// Acquire makes the client the holder regardless of prior state. The lock is
// cooperative; the last acquirer wins and nobody queues or gets rejected.
// Returns the displaced holder, if any.
func (l *EditLock) Acquire(c *Client) *Client {
	l.mu.Lock()
	defer l.mu.Unlock()
	previous := l.holder
	l.holder = c
	if previous == c {
		return nil
	}
	return previous
}

// Release clears the lock only if the client is the current holder.
// Returns true when the lock actually transitioned to unlocked.
func (l *EditLock) Release(c *Client) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.holder != c {
		return false
	}
	l.holder = nil
	return true
}

// Holder returns the current holder, or nil when unlocked.
func (l *EditLock) Holder() *Client {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.holder
}

// IsHolder reports whether the client currently holds the lock.
func (l *EditLock) IsHolder(c *Client) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return c != nil && l.holder == c
}

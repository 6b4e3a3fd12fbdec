// ABOUTME: Single-slot rendezvous between the player observer and the scheduler
// ABOUTME: Newer writes overwrite unread ones; only the latest state ever matters here
package mailbox

import (
	"sync"

	"mtcbridge/internal/status"
)

// Mailbox is a single-slot cache with new/unread semantics: the observer
// writes complete snapshots, the scheduler reads them, blocking until a new
// one arrives. There is no FIFO — a write that lands before the previous
// one is read simply replaces it. Multiple readers and writers are
// permitted; the bridge itself only ever uses one of each.
type Mailbox struct {
	mu    sync.Mutex
	cond  *sync.Cond
	value status.Snapshot
	fresh bool
}

// New creates an empty mailbox holding the zero snapshot, not fresh.
func New() *Mailbox {
	m := &Mailbox{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Write replaces the cached value, marks it fresh, and wakes one waiting
// reader. It returns the former freshness flag: true means a previously
// written value was never read.
func (m *Mailbox) Write(v status.Snapshot) (wasUnread bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wasUnread = m.fresh
	m.value = v
	m.fresh = true
	m.cond.Signal()
	return wasUnread
}

// Read returns the cached value. With blocking true it waits until a fresh
// value is available. With blocking false it returns immediately, fresh or
// not. Either way the freshness flag is cleared before Read returns.
func (m *Mailbox) Read(blocking bool) status.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	if blocking {
		for !m.fresh {
			m.cond.Wait()
		}
	}
	m.fresh = false
	return m.value
}

// ReadBlocking is Read(true), the scheduler's only blocking call.
func (m *Mailbox) ReadBlocking() status.Snapshot {
	return m.Read(true)
}

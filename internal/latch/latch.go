// Package latch provides a one-shot resettable latch for guarding actions
// that must happen at most once per cycle, such as final-state resolution.
package latch

import "sync"

// Latch permits an action exactly once until Reset. The zero value is open.
type Latch struct {
	mu   sync.Mutex
	shut bool
}

// TryAcquire closes the latch and returns true if it was open. Subsequent
// calls return false until Reset.
func (l *Latch) TryAcquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.shut {
		return false
	}
	l.shut = true
	return true
}

// Closed returns true if the latch has been acquired.
func (l *Latch) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.shut
}

// Reset reopens the latch, permitting one more acquisition.
func (l *Latch) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.shut = false
}

package stub

import (
	"context"
	"sync"
	"time"
)

// Notifications is an in-memory notification-readiness provider.
type Notifications struct {
	mu    sync.RWMutex
	ready bool

	InitDelay time.Duration
	InitErr   error
}

// NewNotifications creates a notifications stub.
func NewNotifications() *Notifications {
	return &Notifications{}
}

// InitializeBase performs simulated baseline SDK setup.
func (n *Notifications) InitializeBase(ctx context.Context) error {
	if n.InitDelay > 0 {
		select {
		case <-time.After(n.InitDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if n.InitErr != nil {
		return n.InitErr
	}
	n.mu.Lock()
	n.ready = true
	n.mu.Unlock()
	return nil
}

// Ready reports whether baseline setup has completed.
func (n *Notifications) Ready() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.ready
}

package stub

import (
	"context"
	"sync"
	"time"
)

// Entitlement is an in-memory entitlement provider. Cached and Server may
// disagree to exercise the optimistic-then-corrected resolution path.
type Entitlement struct {
	mu          sync.RWMutex
	cached      bool
	server      bool
	loading     bool
	initialized bool
	userID      string
	checkCount  int

	CheckDelay time.Duration
	// CheckFailures makes EnsureSubscriptionStatusChecked fail this many
	// times before succeeding, to exercise the retry backoff.
	CheckFailures int
	CheckErr      error
}

// NewEntitlement creates an entitlement stub. cached is the last-known flag
// available before any server round-trip; server is the definitive answer.
func NewEntitlement(cached, server bool) *Entitlement {
	return &Entitlement{
		cached:      cached,
		server:      server,
		initialized: true,
	}
}

// HasActiveSubscription returns the last-known entitlement flag.
func (e *Entitlement) HasActiveSubscription() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cached
}

// IsLoading reports whether a server check is in flight.
func (e *Entitlement) IsLoading() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.loading
}

// Initialized reports whether the provider has been configured.
func (e *Entitlement) Initialized() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.initialized
}

// IdentifyUser binds the stub to a user.
func (e *Entitlement) IdentifyUser(ctx context.Context, userID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.userID = userID
	return nil
}

// EnsureSubscriptionStatusChecked performs the simulated server check and
// updates the cached flag with the definitive result.
func (e *Entitlement) EnsureSubscriptionStatusChecked(ctx context.Context) (bool, error) {
	e.mu.Lock()
	e.loading = true
	e.checkCount++
	failing := e.CheckFailures > 0
	if failing {
		e.CheckFailures--
	}
	e.mu.Unlock()

	if e.CheckDelay > 0 {
		select {
		case <-time.After(e.CheckDelay):
		case <-ctx.Done():
			e.setLoading(false)
			return false, ctx.Err()
		}
	}

	if failing {
		e.setLoading(false)
		return false, e.CheckErr
	}

	e.mu.Lock()
	e.cached = e.server
	e.loading = false
	result := e.server
	e.mu.Unlock()
	return result, nil
}

// ResetUser clears the user binding on sign-out.
func (e *Entitlement) ResetUser(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.userID = ""
	e.cached = false
	return nil
}

// SetServer changes the definitive server-side answer.
func (e *Entitlement) SetServer(active bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.server = active
}

// UserID returns the currently identified user.
func (e *Entitlement) UserID() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.userID
}

// CheckCount returns how many server checks have been attempted.
func (e *Entitlement) CheckCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.checkCount
}

func (e *Entitlement) setLoading(v bool) {
	e.mu.Lock()
	e.loading = v
	e.mu.Unlock()
}

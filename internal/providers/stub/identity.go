// Package stub provides in-memory provider implementations for the dev
// harness and tests. They stand in for the vendor identity, billing, and
// notification SDKs, with optional latency and failure injection.
package stub

import (
	"context"
	"sync"
	"time"

	"github.com/limbera/dripmax-app-sub001/internal/providers"
)

// SessionCache is the durable store the identity stub restores from. The
// launch store's session repository satisfies it.
type SessionCache interface {
	GetSession(ctx context.Context) (*providers.Session, error)
	SaveSession(ctx context.Context, s *providers.Session) error
	DeleteSession(ctx context.Context) error
}

// Identity is an in-memory identity provider.
type Identity struct {
	mu          sync.RWMutex
	session     *providers.Session
	loading     bool
	initialized bool
	listeners   []func(*providers.Session)

	cache     SessionCache
	InitDelay time.Duration
	InitErr   error
	// Hang makes Initialize block until the context is cancelled, simulating
	// an identity backend that never settles.
	Hang bool
}

// NewIdentity creates an identity stub. cache may be nil; session may be nil
// for a signed-out start.
func NewIdentity(cache SessionCache, session *providers.Session) *Identity {
	return &Identity{
		cache:   cache,
		session: session,
	}
}

// Session returns the current session, or nil when signed out.
func (i *Identity) Session() *providers.Session {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.session
}

// IsLoading reports whether Initialize is in flight.
func (i *Identity) IsLoading() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.loading
}

// Initialized reports whether the first restoration attempt has completed.
func (i *Identity) Initialized() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.initialized
}

// Initialize restores the cached session, if any.
func (i *Identity) Initialize(ctx context.Context) error {
	i.mu.Lock()
	i.loading = true
	i.mu.Unlock()

	if i.Hang {
		<-ctx.Done()
		return ctx.Err()
	}
	if i.InitDelay > 0 {
		select {
		case <-time.After(i.InitDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	var restored *providers.Session
	if i.cache != nil {
		cached, err := i.cache.GetSession(ctx)
		if err == nil && cached != nil && cached.ExpiresAt.After(time.Now()) {
			restored = cached
		}
	}

	i.mu.Lock()
	if restored != nil {
		i.session = restored
	}
	i.loading = false
	i.initialized = true
	err := i.InitErr
	i.mu.Unlock()

	return err
}

// OnChange registers a session change callback.
func (i *Identity) OnChange(cb func(*providers.Session)) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.listeners = append(i.listeners, cb)
}

// SetSession replaces the current session and notifies listeners. Passing nil
// simulates sign-out.
func (i *Identity) SetSession(s *providers.Session) {
	i.mu.Lock()
	i.session = s
	listeners := make([]func(*providers.Session), len(i.listeners))
	copy(listeners, i.listeners)
	i.mu.Unlock()

	if i.cache != nil {
		ctx := context.Background()
		if s == nil {
			_ = i.cache.DeleteSession(ctx)
		} else {
			_ = i.cache.SaveSession(ctx, s)
		}
	}

	for _, cb := range listeners {
		cb(s)
	}
}

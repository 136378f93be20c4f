// Package providers defines the narrow interfaces through which the launch
// lifecycle consumes its external collaborators: the identity backend, the
// subscription entitlement backend, and the push-notification SDK. Concrete
// implementations wrap vendor SDKs and live outside this core.
package providers

import (
	"context"
	"time"
)

// Session is the authenticated session exposed by the identity provider.
type Session struct {
	ID        string
	UserID    string
	Email     string
	ExpiresAt time.Time
}

// Identity exposes the current session and its loading lifecycle.
type Identity interface {
	// Session returns the current session, or nil when signed out.
	Session() *Session

	// IsLoading reports whether a session check is still in flight.
	IsLoading() bool

	// Initialized reports whether the provider has completed its first
	// session restoration attempt.
	Initialized() bool

	// Initialize restores any cached session and begins watching for changes.
	Initialize(ctx context.Context) error

	// OnChange registers a callback invoked whenever the session changes,
	// including sign-out (nil session).
	OnChange(func(*Session))
}

// Entitlement exposes the user's subscription status.
type Entitlement interface {
	// HasActiveSubscription returns the last-known entitlement flag. May be
	// stale until EnsureSubscriptionStatusChecked has completed.
	HasActiveSubscription() bool

	// IsLoading reports whether an entitlement check is in flight.
	IsLoading() bool

	// Initialized reports whether the provider has been configured.
	Initialized() bool

	// IdentifyUser binds the entitlement backend to the signed-in user.
	IdentifyUser(ctx context.Context, userID string) error

	// EnsureSubscriptionStatusChecked forces a fresh server-backed check and
	// returns the definitive entitlement flag.
	EnsureSubscriptionStatusChecked(ctx context.Context) (bool, error)

	// ResetUser clears the backend's user binding on sign-out.
	ResetUser(ctx context.Context) error
}

// NotificationReadiness exposes baseline push-notification SDK setup.
// Baseline setup does not prompt for OS permission.
type NotificationReadiness interface {
	InitializeBase(ctx context.Context) error
	Ready() bool
}

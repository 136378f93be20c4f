// Package state provides the finite state machine for the application launch lifecycle.
package state

// State represents a state in the application launch lifecycle.
type State string

const (
	// Bootstrap phases, entered strictly in order
	StateInitializing              State = "initializing"
	StateLoadingFonts              State = "loading_fonts"
	StateCheckingAuth              State = "checking_auth"
	StateCheckingSubscription      State = "checking_subscription"
	StateInitializingNotifications State = "initializing_notifications"

	// Terminal states (the app is initialized once one is reached)
	StateUnauthenticated               State = "unauthenticated"
	StateAuthenticatedNoSubscription   State = "authenticated_no_subscription"
	StateAuthenticatedWithSubscription State = "authenticated_with_subscription"
	StateError                         State = "error"
)

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// IsBootstrap returns true if the state is one of the five bootstrap phases.
func (s State) IsBootstrap() bool {
	switch s {
	case StateInitializing, StateLoadingFonts, StateCheckingAuth,
		StateCheckingSubscription, StateInitializingNotifications:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if the state is a terminal classification.
// Once terminal, the machine may move between terminal states (sign-out,
// purchase, entitlement correction) but never re-enters a bootstrap phase.
func (s State) IsTerminal() bool {
	switch s {
	case StateUnauthenticated, StateAuthenticatedNoSubscription,
		StateAuthenticatedWithSubscription, StateError:
		return true
	default:
		return false
	}
}

// IsAuthenticated returns true if the state represents a signed-in user.
func (s State) IsAuthenticated() bool {
	switch s {
	case StateAuthenticatedNoSubscription, StateAuthenticatedWithSubscription:
		return true
	default:
		return false
	}
}

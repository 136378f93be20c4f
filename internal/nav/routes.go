// Package nav translates terminal application states into route changes,
// with debouncing, duplicate suppression, and a safety watchdog.
package nav

import "github.com/limbera/dripmax-app-sub001/internal/state"

// Route identifies a navigable destination. The set is closed so the
// state-to-route mapping stays exhaustively checkable.
type Route string

const (
	RouteLoading         Route = "/loading"
	RouteLogin           Route = "/auth/login"
	RouteOnboarding      Route = "/onboarding/capture"
	RouteHome            Route = "/home"
	RouteCaptureContinue Route = "/onboarding/processing"
	RouteError           Route = "/error"
)

// String returns the string representation of the route.
func (r Route) String() string {
	return string(r)
}

// RouteFor maps an application state to its destination. Bootstrap states map
// to the loading screen, which never triggers a route change.
func RouteFor(s state.State) Route {
	switch s {
	case state.StateUnauthenticated:
		return RouteLogin
	case state.StateAuthenticatedNoSubscription:
		return RouteOnboarding
	case state.StateAuthenticatedWithSubscription:
		return RouteHome
	case state.StateError:
		return RouteError
	default:
		return RouteLoading
	}
}

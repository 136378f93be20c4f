package nav

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/limbera/dripmax-app-sub001/internal/config"
	"github.com/limbera/dripmax-app-sub001/internal/state"
)

// Router performs the actual route change. Always a replacement, never a
// push, so back-navigation cannot return to a stale bootstrap screen.
type Router interface {
	Replace(ctx context.Context, route Route) error
}

// StateSource is the coordinator's view of the launch lifecycle.
type StateSource interface {
	CurrentState() state.State
	IsInitialized() bool
	RecheckInFlight() bool
	ForceUnauthenticated(ctx context.Context) error
}

// PendingSource reports whether a captured image is waiting to be processed.
type PendingSource interface {
	HasPending() bool
}

// NavRecorder receives a tick per completed route change.
type NavRecorder interface {
	RecordNavigation()
}

// Coordinator issues at most one route change per state transition. It runs
// for the lifetime of the process, reacting to every state change.
type Coordinator struct {
	router   Router
	source   StateSource
	pending  PendingSource
	recorder NavRecorder
	debounce time.Duration
	ceiling  time.Duration
	log      *slog.Logger

	mu        sync.Mutex
	inFlight  bool
	lastRoute Route
	lastNavAt time.Time
	watchdog  *time.Timer
}

// NewCoordinator creates a navigation coordinator. pending and recorder may
// be nil.
func NewCoordinator(cfg *config.Config, router Router, source StateSource, pending PendingSource, recorder NavRecorder) *Coordinator {
	return &Coordinator{
		router:   router,
		source:   source,
		pending:  pending,
		recorder: recorder,
		debounce: cfg.NavigationDebounce,
		ceiling:  cfg.SafetyTimeout,
		log:      slog.Default(),
	}
}

// Arm starts the one-shot safety watchdog. If the lifecycle is still not
// initialized when it fires, the user is forced onto the login screen rather
// than left on a loading screen indefinitely.
func (c *Coordinator) Arm(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.watchdog != nil {
		return
	}
	c.watchdog = time.AfterFunc(c.ceiling, func() {
		if c.source.IsInitialized() {
			return
		}
		c.log.Warn("safety timeout reached before initialization, forcing login", "ceiling", c.ceiling)
		if err := c.source.ForceUnauthenticated(ctx); err != nil {
			c.log.Error("failed to force unauthenticated state", "error", err)
		}
		// The forced transition reaches HandleStateChange through the state
		// listener and performs the login navigation.
	})
}

// Disarm cancels the safety watchdog.
func (c *Coordinator) Disarm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.watchdog != nil {
		c.watchdog.Stop()
		c.watchdog = nil
	}
}

// HandleStateChange computes the target route for the current state and
// navigates if permitted. Call on every application state change.
func (c *Coordinator) HandleStateChange(ctx context.Context) {
	if !c.source.IsInitialized() {
		return
	}
	// A terminal state has been observed; normal resolution won the race.
	c.Disarm()

	if c.source.RecheckInFlight() {
		c.log.Debug("navigation deferred, entitlement recheck in flight")
		return
	}

	target := c.targetRoute(c.source.CurrentState())

	c.mu.Lock()
	if !c.canNavigate(target) {
		c.mu.Unlock()
		return
	}
	c.inFlight = true
	c.lastNavAt = time.Now()
	c.mu.Unlock()

	err := c.router.Replace(ctx, target)

	c.mu.Lock()
	if err != nil {
		// The in-flight flag is still released below so later attempts are
		// not permanently blocked.
		c.log.Error("navigation failed", "route", target, "error", err)
	} else {
		c.lastRoute = target
		c.log.Info("navigated", "route", target)
		if c.recorder != nil {
			c.recorder.RecordNavigation()
		}
	}
	c.mu.Unlock()

	time.AfterFunc(c.debounce, func() {
		c.mu.Lock()
		c.inFlight = false
		c.mu.Unlock()
	})
}

// targetRoute applies the capture-continuation special case: a subscriber
// with a pending captured image resumes processing instead of landing home.
// The consuming screen clears the image, not the coordinator.
func (c *Coordinator) targetRoute(s state.State) Route {
	target := RouteFor(s)
	if target == RouteHome && c.pending != nil && c.pending.HasPending() {
		return RouteCaptureContinue
	}
	return target
}

// canNavigate returns false if a navigation is in flight, the debounce window
// has not elapsed, or the target equals the last route. Caller holds mu.
func (c *Coordinator) canNavigate(target Route) bool {
	if c.inFlight {
		return false
	}
	if !c.lastNavAt.IsZero() && time.Since(c.lastNavAt) < c.debounce {
		return false
	}
	if target == c.lastRoute {
		return false
	}
	return true
}

// LastRoute returns the last route navigated to, or empty.
func (c *Coordinator) LastRoute() Route {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRoute
}

package state

import (
	"context"
	"sync"

	"github.com/qmuntal/stateless"
)

// TransitionCallback is called when a state transition occurs.
type TransitionCallback func(ctx context.Context, from, to State, trigger Trigger)

// Machine wraps the stateless state machine with launch-lifecycle-specific
// behavior. Illegal transitions (anything not configured below, such as
// jumping backward into a bootstrap phase) are hard errors from Fire.
type Machine struct {
	sm          *stateless.StateMachine
	callbacks   []TransitionCallback
	callbacksMu sync.RWMutex
}

// NewMachine creates a new state machine starting in Initializing state.
func NewMachine() *Machine {
	m := &Machine{
		callbacks: make([]TransitionCallback, 0),
	}

	sm := stateless.NewStateMachine(StateInitializing)

	// Bootstrap phases advance strictly forward. Every phase can fault, and
	// every phase can be forced to Unauthenticated by the safety watchdog.
	sm.Configure(StateInitializing).
		Permit(TriggerLoadFonts, StateLoadingFonts).
		Permit(TriggerWatchdogExpired, StateUnauthenticated).
		Permit(TriggerFault, StateError)

	sm.Configure(StateLoadingFonts).
		Permit(TriggerCheckAuth, StateCheckingAuth).
		Permit(TriggerWatchdogExpired, StateUnauthenticated).
		Permit(TriggerFault, StateError)

	sm.Configure(StateCheckingAuth).
		Permit(TriggerCheckSubscription, StateCheckingSubscription).
		Permit(TriggerWatchdogExpired, StateUnauthenticated).
		Permit(TriggerFault, StateError)

	sm.Configure(StateCheckingSubscription).
		Permit(TriggerInitNotifications, StateInitializingNotifications).
		Permit(TriggerWatchdogExpired, StateUnauthenticated).
		Permit(TriggerFault, StateError)

	sm.Configure(StateInitializingNotifications).
		Permit(TriggerResolveUnauthenticated, StateUnauthenticated).
		Permit(TriggerResolveNoSubscription, StateAuthenticatedNoSubscription).
		Permit(TriggerResolveSubscribed, StateAuthenticatedWithSubscription).
		Permit(TriggerWatchdogExpired, StateUnauthenticated).
		Permit(TriggerFault, StateError)

	// Terminal states: re-entry into bootstrap is never permitted, but the
	// classification may change on sign-in, sign-out, purchase, or a
	// corrective entitlement check.
	sm.Configure(StateUnauthenticated).
		Permit(TriggerResolveNoSubscription, StateAuthenticatedNoSubscription).
		Permit(TriggerResolveSubscribed, StateAuthenticatedWithSubscription).
		Permit(TriggerFault, StateError)

	sm.Configure(StateAuthenticatedNoSubscription).
		Permit(TriggerEntitlementGranted, StateAuthenticatedWithSubscription).
		Permit(TriggerPurchaseCompleted, StateAuthenticatedWithSubscription).
		Permit(TriggerSignedOut, StateUnauthenticated).
		Permit(TriggerFault, StateError)

	sm.Configure(StateAuthenticatedWithSubscription).
		Permit(TriggerEntitlementRevoked, StateAuthenticatedNoSubscription).
		Permit(TriggerSignedOut, StateUnauthenticated).
		Permit(TriggerFault, StateError)

	sm.Configure(StateError).
		PermitReentry(TriggerFault).
		Permit(TriggerRetry, StateUnauthenticated)

	// Set up transition callback
	sm.OnTransitioned(func(ctx context.Context, t stateless.Transition) {
		m.callbacksMu.RLock()
		callbacks := make([]TransitionCallback, len(m.callbacks))
		copy(callbacks, m.callbacks)
		m.callbacksMu.RUnlock()

		from := t.Source.(State)
		to := t.Destination.(State)
		trigger := t.Trigger.(Trigger)

		for _, cb := range callbacks {
			cb(ctx, from, to, trigger)
		}
	})

	m.sm = sm
	return m
}

// State returns the current state.
func (m *Machine) State(ctx context.Context) (State, error) {
	state, err := m.sm.State(ctx)
	if err != nil {
		return "", err
	}
	return state.(State), nil
}

// Fire triggers a state transition.
func (m *Machine) Fire(ctx context.Context, trigger Trigger, args ...any) error {
	return m.sm.FireCtx(ctx, trigger, args...)
}

// CanFire returns true if the trigger can be fired from the current state.
func (m *Machine) CanFire(ctx context.Context, trigger Trigger, args ...any) (bool, error) {
	return m.sm.CanFireCtx(ctx, trigger, args...)
}

// IsInState returns true if the machine is in the specified state.
func (m *Machine) IsInState(ctx context.Context, state State) (bool, error) {
	currentState, err := m.State(ctx)
	if err != nil {
		return false, err
	}
	return currentState == state, nil
}

// OnTransition registers a callback to be called on state transitions.
func (m *Machine) OnTransition(cb TransitionCallback) {
	m.callbacksMu.Lock()
	defer m.callbacksMu.Unlock()
	m.callbacks = append(m.callbacks, cb)
}

// MustState returns the current state, panicking on error.
func (m *Machine) MustState() State {
	state, err := m.State(context.Background())
	if err != nil {
		panic(err)
	}
	return state
}

// IsInitialized returns true once the machine has reached a terminal state.
func (m *Machine) IsInitialized() bool {
	return m.MustState().IsTerminal()
}

package state

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// advanceToResolution walks the machine through all five bootstrap phases.
func advanceToResolution(ctx context.Context, m *Machine) {
	_ = m.Fire(ctx, TriggerLoadFonts)
	_ = m.Fire(ctx, TriggerCheckAuth)
	_ = m.Fire(ctx, TriggerCheckSubscription)
	_ = m.Fire(ctx, TriggerInitNotifications)
}

func TestNewMachine(t *testing.T) {
	m := NewMachine()
	require.NotNil(t, m)

	state, err := m.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateInitializing, state)
	assert.False(t, m.IsInitialized())
}

func TestMachine_BootstrapSequence(t *testing.T) {
	ctx := context.Background()
	m := NewMachine()

	steps := []struct {
		trigger Trigger
		want    State
	}{
		{TriggerLoadFonts, StateLoadingFonts},
		{TriggerCheckAuth, StateCheckingAuth},
		{TriggerCheckSubscription, StateCheckingSubscription},
		{TriggerInitNotifications, StateInitializingNotifications},
	}

	for _, step := range steps {
		err := m.Fire(ctx, step.trigger)
		require.NoError(t, err)
		state, _ := m.State(ctx)
		assert.Equal(t, step.want, state)
		assert.False(t, m.IsInitialized())
	}
}

func TestMachine_ResolveUnauthenticated(t *testing.T) {
	ctx := context.Background()
	m := NewMachine()
	advanceToResolution(ctx, m)

	err := m.Fire(ctx, TriggerResolveUnauthenticated)
	require.NoError(t, err)
	state, _ := m.State(ctx)
	assert.Equal(t, StateUnauthenticated, state)
	assert.True(t, m.IsInitialized())
}

func TestMachine_ResolveSubscribed(t *testing.T) {
	ctx := context.Background()
	m := NewMachine()
	advanceToResolution(ctx, m)

	err := m.Fire(ctx, TriggerResolveSubscribed)
	require.NoError(t, err)
	state, _ := m.State(ctx)
	assert.Equal(t, StateAuthenticatedWithSubscription, state)
	assert.True(t, m.IsInitialized())
}

func TestMachine_EntitlementCorrection(t *testing.T) {
	ctx := context.Background()
	m := NewMachine()
	advanceToResolution(ctx, m)

	// Optimistic resolution without entitlement
	require.NoError(t, m.Fire(ctx, TriggerResolveNoSubscription))

	// Background check corrects upward
	require.NoError(t, m.Fire(ctx, TriggerEntitlementGranted))
	state, _ := m.State(ctx)
	assert.Equal(t, StateAuthenticatedWithSubscription, state)

	// And a later revocation corrects downward
	require.NoError(t, m.Fire(ctx, TriggerEntitlementRevoked))
	state, _ = m.State(ctx)
	assert.Equal(t, StateAuthenticatedNoSubscription, state)
}

func TestMachine_PurchaseCompleted(t *testing.T) {
	ctx := context.Background()
	m := NewMachine()
	advanceToResolution(ctx, m)

	require.NoError(t, m.Fire(ctx, TriggerResolveNoSubscription))

	err := m.Fire(ctx, TriggerPurchaseCompleted)
	require.NoError(t, err)
	state, _ := m.State(ctx)
	assert.Equal(t, StateAuthenticatedWithSubscription, state)
}

func TestMachine_SignOutAndBackIn(t *testing.T) {
	ctx := context.Background()
	m := NewMachine()
	advanceToResolution(ctx, m)

	require.NoError(t, m.Fire(ctx, TriggerResolveSubscribed))

	// Sign out -> Unauthenticated, still initialized
	require.NoError(t, m.Fire(ctx, TriggerSignedOut))
	state, _ := m.State(ctx)
	assert.Equal(t, StateUnauthenticated, state)
	assert.True(t, m.IsInitialized())

	// Fresh sign-in resolves again without re-entering bootstrap
	require.NoError(t, m.Fire(ctx, TriggerResolveNoSubscription))
	state, _ = m.State(ctx)
	assert.Equal(t, StateAuthenticatedNoSubscription, state)
}

func TestMachine_NoBootstrapReentry(t *testing.T) {
	ctx := context.Background()
	m := NewMachine()
	advanceToResolution(ctx, m)
	require.NoError(t, m.Fire(ctx, TriggerResolveUnauthenticated))

	// No terminal state may fire a bootstrap advancement trigger
	for _, trigger := range []Trigger{
		TriggerLoadFonts, TriggerCheckAuth, TriggerCheckSubscription, TriggerInitNotifications,
	} {
		err := m.Fire(ctx, trigger)
		assert.Error(t, err, "trigger %s should be rejected after initialization", trigger)
	}

	state, _ := m.State(ctx)
	assert.Equal(t, StateUnauthenticated, state)
}

func TestMachine_IllegalBootstrapJump(t *testing.T) {
	ctx := context.Background()
	m := NewMachine()

	// Cannot skip ahead from Initializing
	err := m.Fire(ctx, TriggerCheckSubscription)
	assert.Error(t, err)

	err = m.Fire(ctx, TriggerResolveSubscribed)
	assert.Error(t, err)

	state, _ := m.State(ctx)
	assert.Equal(t, StateInitializing, state)
}

func TestMachine_FaultFromAnyState(t *testing.T) {
	tests := []struct {
		name      string
		setupFunc func(ctx context.Context, m *Machine)
		fromState State
	}{
		{
			name:      "from initializing",
			setupFunc: func(ctx context.Context, m *Machine) {},
			fromState: StateInitializing,
		},
		{
			name: "from checking auth",
			setupFunc: func(ctx context.Context, m *Machine) {
				_ = m.Fire(ctx, TriggerLoadFonts)
				_ = m.Fire(ctx, TriggerCheckAuth)
			},
			fromState: StateCheckingAuth,
		},
		{
			name: "from unauthenticated",
			setupFunc: func(ctx context.Context, m *Machine) {
				advanceToResolution(ctx, m)
				_ = m.Fire(ctx, TriggerResolveUnauthenticated)
			},
			fromState: StateUnauthenticated,
		},
		{
			name: "from authenticated with subscription",
			setupFunc: func(ctx context.Context, m *Machine) {
				advanceToResolution(ctx, m)
				_ = m.Fire(ctx, TriggerResolveSubscribed)
			},
			fromState: StateAuthenticatedWithSubscription,
		},
		{
			name: "from error",
			setupFunc: func(ctx context.Context, m *Machine) {
				_ = m.Fire(ctx, TriggerFault)
			},
			fromState: StateError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			m := NewMachine()
			tt.setupFunc(ctx, m)

			state, _ := m.State(ctx)
			assert.Equal(t, tt.fromState, state)

			err := m.Fire(ctx, TriggerFault)
			require.NoError(t, err)

			state, _ = m.State(ctx)
			assert.Equal(t, StateError, state)
		})
	}
}

func TestMachine_WatchdogFromBootstrapStates(t *testing.T) {
	tests := []struct {
		name      string
		setupFunc func(ctx context.Context, m *Machine)
	}{
		{"from initializing", func(ctx context.Context, m *Machine) {}},
		{"from loading fonts", func(ctx context.Context, m *Machine) {
			_ = m.Fire(ctx, TriggerLoadFonts)
		}},
		{"from checking subscription", func(ctx context.Context, m *Machine) {
			_ = m.Fire(ctx, TriggerLoadFonts)
			_ = m.Fire(ctx, TriggerCheckAuth)
			_ = m.Fire(ctx, TriggerCheckSubscription)
		}},
		{"from initializing notifications", func(ctx context.Context, m *Machine) {
			advanceToResolution(ctx, m)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			m := NewMachine()
			tt.setupFunc(ctx, m)

			err := m.Fire(ctx, TriggerWatchdogExpired)
			require.NoError(t, err)

			state, _ := m.State(ctx)
			assert.Equal(t, StateUnauthenticated, state)
			assert.True(t, m.IsInitialized())
		})
	}
}

func TestMachine_WatchdogRejectedAfterInitialization(t *testing.T) {
	ctx := context.Background()
	m := NewMachine()
	advanceToResolution(ctx, m)
	require.NoError(t, m.Fire(ctx, TriggerResolveSubscribed))

	err := m.Fire(ctx, TriggerWatchdogExpired)
	assert.Error(t, err)
}

func TestMachine_ErrorRetry(t *testing.T) {
	ctx := context.Background()
	m := NewMachine()

	require.NoError(t, m.Fire(ctx, TriggerFault))

	// Retry recovers to the login classification
	err := m.Fire(ctx, TriggerRetry)
	require.NoError(t, err)
	state, _ := m.State(ctx)
	assert.Equal(t, StateUnauthenticated, state)
}

func TestMachine_CanFire(t *testing.T) {
	ctx := context.Background()
	m := NewMachine()

	canAdvance, err := m.CanFire(ctx, TriggerLoadFonts)
	require.NoError(t, err)
	assert.True(t, canAdvance)

	canResolve, err := m.CanFire(ctx, TriggerResolveSubscribed)
	require.NoError(t, err)
	assert.False(t, canResolve)
}

func TestMachine_IsInState(t *testing.T) {
	ctx := context.Background()
	m := NewMachine()
	advanceToResolution(ctx, m)
	_ = m.Fire(ctx, TriggerResolveNoSubscription)

	inNoSub, err := m.IsInState(ctx, StateAuthenticatedNoSubscription)
	require.NoError(t, err)
	assert.True(t, inNoSub)

	inBootstrap, err := m.IsInState(ctx, StateInitializing)
	require.NoError(t, err)
	assert.False(t, inBootstrap)
}

func TestMachine_OnTransitionCallback(t *testing.T) {
	ctx := context.Background()
	m := NewMachine()

	var transitions []struct {
		from    State
		to      State
		trigger Trigger
	}

	m.OnTransition(func(ctx context.Context, from, to State, trigger Trigger) {
		transitions = append(transitions, struct {
			from    State
			to      State
			trigger Trigger
		}{from, to, trigger})
	})

	_ = m.Fire(ctx, TriggerLoadFonts)
	_ = m.Fire(ctx, TriggerCheckAuth)
	_ = m.Fire(ctx, TriggerCheckSubscription)

	assert.Len(t, transitions, 3)
	assert.Equal(t, StateInitializing, transitions[0].from)
	assert.Equal(t, StateLoadingFonts, transitions[0].to)
	assert.Equal(t, TriggerLoadFonts, transitions[0].trigger)
}

func TestState_Classification(t *testing.T) {
	assert.True(t, StateCheckingAuth.IsBootstrap())
	assert.False(t, StateCheckingAuth.IsTerminal())

	assert.True(t, StateError.IsTerminal())
	assert.False(t, StateError.IsAuthenticated())

	assert.True(t, StateAuthenticatedWithSubscription.IsAuthenticated())
	assert.True(t, StateAuthenticatedNoSubscription.IsTerminal())
	assert.False(t, StateUnauthenticated.IsAuthenticated())
}

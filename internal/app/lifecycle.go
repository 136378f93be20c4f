// Package app provides the launch lifecycle orchestrator: it owns the
// application state machine, aggregates readiness from the identity,
// entitlement, and notification providers, and resolves the terminal
// classification exactly once per session.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/limbera/dripmax-app-sub001/internal/config"
	"github.com/limbera/dripmax-app-sub001/internal/health"
	"github.com/limbera/dripmax-app-sub001/internal/latch"
	"github.com/limbera/dripmax-app-sub001/internal/providers"
	"github.com/limbera/dripmax-app-sub001/internal/state"
	"github.com/limbera/dripmax-app-sub001/internal/store"
)

// Lifecycle coordinates the application bootstrap and classification.
type Lifecycle struct {
	identity      providers.Identity
	entitlement   providers.Entitlement
	notifications providers.NotificationReadiness
	machine       *state.Machine
	progress      *state.Progress
	monitor       *health.Monitor
	store         *store.SQLiteStore
	config        *config.Config
	log           *slog.Logger

	mu                 sync.Mutex
	authReady          bool
	subscriptionReady  bool
	notificationsReady bool
	errMsg             string
	resolvedSessionID  string

	// resolved permits one final-state resolution per session; corrected
	// permits one post-resolution entitlement override. Both reset on
	// sign-out.
	resolved  latch.Latch
	corrected latch.Latch

	recheckInFlight atomic.Bool

	stateListeners []func(from, to state.State)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewLifecycle creates the launch lifecycle. storeDB may not be nil; the
// providers are the app's external collaborators.
func NewLifecycle(cfg *config.Config, storeDB *store.SQLiteStore, identity providers.Identity, entitlement providers.Entitlement, notifications providers.NotificationReadiness) *Lifecycle {
	ctx, cancel := context.WithCancel(context.Background())

	machine := state.NewMachine()
	progress := state.NewProgress()

	l := &Lifecycle{
		identity:      identity,
		entitlement:   entitlement,
		notifications: notifications,
		machine:       machine,
		progress:      progress,
		monitor:       health.NewMonitor(cfg, machine, progress),
		store:         storeDB,
		config:        cfg,
		log:           slog.Default(),
		ctx:           ctx,
		cancel:        cancel,
	}

	// Register state transition callback
	l.machine.OnTransition(func(ctx context.Context, from, to state.State, trigger state.Trigger) {
		l.log.Info("state transition", "from", from, "to", to, "trigger", trigger, "progress", l.progress.Percent())

		// Persist state
		if err := l.store.Launch.SaveState(ctx, to); err != nil {
			l.log.Error("failed to save state", "error", err)
		}

		// Log transition
		if err := l.store.Launch.LogTransition(ctx, from, to, string(trigger)); err != nil {
			l.log.Error("failed to log transition", "error", err)
		}

		// Notify listeners
		l.mu.Lock()
		listeners := make([]func(from, to state.State), len(l.stateListeners))
		copy(listeners, l.stateListeners)
		l.mu.Unlock()

		for _, listener := range listeners {
			listener(from, to)
		}
	})

	// Watch for session changes (sign-out, fresh sign-in)
	l.identity.OnChange(l.handleSessionChange)

	return l
}

// Bootstrap runs the five initialization phases in order and resolves the
// terminal classification. Transient provider failures are logged and the
// affected phase still completes; only unexpected failures force Error.
func (l *Lifecycle) Bootstrap(ctx context.Context) error {
	defer func() {
		if r := recover(); r != nil {
			l.SetError(ctx, fmt.Sprintf("critical initialization failure: %v", r))
		}
	}()

	l.monitor.Start()

	// Initializing
	started := time.Now()
	if !l.advance(ctx, state.TriggerLoadFonts) {
		return nil
	}
	l.completePhase(state.PhaseInitializing, started)

	// LoadingFonts: fonts are loaded by the host UI layer; the core treats
	// the phase as settled once the machine passes through it.
	started = time.Now()
	if !l.advance(ctx, state.TriggerCheckAuth) {
		return nil
	}
	l.completePhase(state.PhaseLoadingFonts, started)

	// CheckingAuth
	started = time.Now()
	pctx, cancel := context.WithTimeout(ctx, l.config.ProviderTimeout)
	if err := l.identity.Initialize(pctx); err != nil {
		l.log.Warn("identity initialization failed", "error", err)
	}
	cancel()
	l.setReady(func() { l.authReady = true })
	l.completePhase(state.PhaseCheckingAuth, started)
	if !l.advance(ctx, state.TriggerCheckSubscription) {
		return nil
	}

	// CheckingSubscription
	started = time.Now()
	if sess := l.identity.Session(); sess != nil {
		pctx, cancel := context.WithTimeout(ctx, l.config.ProviderTimeout)
		if err := l.entitlement.IdentifyUser(pctx, sess.UserID); err != nil {
			l.log.Warn("entitlement identification failed", "error", err)
		}
		cancel()
	}
	l.setReady(func() { l.subscriptionReady = true })
	l.completePhase(state.PhaseCheckingSubscription, started)
	if !l.advance(ctx, state.TriggerInitNotifications) {
		return nil
	}

	// InitializingNotifications
	started = time.Now()
	pctx, cancel = context.WithTimeout(ctx, l.config.ProviderTimeout)
	if err := l.notifications.InitializeBase(pctx); err != nil {
		l.log.Warn("notification setup failed", "error", err)
	}
	cancel()
	l.setReady(func() { l.notificationsReady = true })
	l.completePhase(state.PhaseInitializingNotifications, started)

	l.Resolve(ctx)
	return nil
}

// advance fires a bootstrap phase trigger. A rejected trigger after the
// machine has already settled (watchdog or fault won the race) quietly ends
// the bootstrap; any other rejection is a critical failure.
func (l *Lifecycle) advance(ctx context.Context, trigger state.Trigger) bool {
	if err := l.machine.Fire(ctx, trigger); err != nil {
		if l.machine.IsInitialized() {
			l.log.Debug("bootstrap overtaken", "trigger", trigger, "state", l.machine.MustState())
			return false
		}
		l.SetError(ctx, fmt.Sprintf("bootstrap transition %s failed: %v", trigger, err))
		return false
	}
	return true
}

func (l *Lifecycle) completePhase(phase state.Phase, started time.Time) {
	l.progress.MarkComplete(phase)
	l.monitor.RecordPhase(phase, time.Since(started))
	l.log.Debug("phase complete", "phase", phase, "progress", l.progress.Percent())
}

func (l *Lifecycle) setReady(set func()) {
	l.mu.Lock()
	set()
	l.mu.Unlock()
}

// readyToResolve is the resolution gate: every readiness flag is set and the
// identity provider has settled.
func (l *Lifecycle) readyToResolve() bool {
	l.mu.Lock()
	flags := l.authReady && l.subscriptionReady && l.notificationsReady
	l.mu.Unlock()
	return flags && !l.identity.IsLoading() && l.identity.Initialized()
}

// Resolve computes the terminal classification once all providers have
// settled. The resolution latch guarantees the first caller past the gate
// wins; later calls with unchanged inputs are no-ops. The latch closes only
// on a successful determination: a rejected transition releases it so a
// later Resolve can retry. With a session present
// the classification is optimistic (last-known entitlement flag) and a
// definitive server check runs in the background, allowed to correct the
// terminal state exactly once.
func (l *Lifecycle) Resolve(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			l.SetError(ctx, fmt.Sprintf("resolution failure: %v", r))
		}
	}()

	if !l.readyToResolve() {
		return
	}
	if !l.resolved.TryAcquire() {
		return
	}

	sess := l.identity.Session()
	if sess == nil {
		if err := l.machine.Fire(ctx, state.TriggerResolveUnauthenticated); err != nil {
			// The latch only stays closed for a resolution that actually
			// landed; a rejected trigger must not consume it, or a later
			// Resolve (after Retry, say) would be a silent no-op.
			l.resolved.Reset()
			l.log.Error("state transition failed", "trigger", state.TriggerResolveUnauthenticated, "error", err)
			return
		}
		l.monitor.RecordResolution()
		return
	}

	l.mu.Lock()
	l.resolvedSessionID = sess.ID
	l.mu.Unlock()

	// Optimistic: classify from the last-known entitlement flag so
	// navigation is not blocked on a network round-trip.
	trigger := state.TriggerResolveNoSubscription
	if l.entitlement.HasActiveSubscription() {
		trigger = state.TriggerResolveSubscribed
	}
	if err := l.machine.Fire(ctx, trigger); err != nil {
		l.resolved.Reset()
		l.mu.Lock()
		l.resolvedSessionID = ""
		l.mu.Unlock()
		l.log.Error("state transition failed", "trigger", trigger, "error", err)
		return
	}
	l.monitor.RecordResolution()

	l.recheckInFlight.Store(true)
	l.wg.Add(1)
	go l.recheck(sess.ID)
}

// recheck performs the definitive server-backed entitlement check with
// backoff, then applies at most one correction to the terminal state.
func (l *Lifecycle) recheck(sessionID string) {
	defer l.wg.Done()
	defer l.recheckInFlight.Store(false)

	for {
		cctx, cancel := context.WithTimeout(l.ctx, l.config.ProviderTimeout)
		definitive, err := l.entitlement.EnsureSubscriptionStatusChecked(cctx)
		cancel()

		if err == nil {
			l.monitor.ResetRecheckBackoff()
			// Release the in-flight gate before applying so the resulting
			// transition is free to navigate.
			l.recheckInFlight.Store(false)
			l.applyDefinitive(definitive, sessionID)
			return
		}
		if l.ctx.Err() != nil {
			return
		}

		l.log.Warn("subscription recheck failed", "error", err)
		if l.monitor.RecheckRetriesExceeded() {
			l.log.Warn("subscription recheck retries exhausted, keeping optimistic classification")
			return
		}

		delay := l.monitor.NextRecheckDelay()
		l.log.Debug("scheduling subscription recheck", "delay", delay)
		select {
		case <-time.After(delay):
		case <-l.ctx.Done():
			return
		}
	}
}

// applyDefinitive reconciles the definitive entitlement result with the
// optimistic classification. Results for a session that has since changed
// are discarded.
func (l *Lifecycle) applyDefinitive(definitive bool, sessionID string) {
	cur := l.identity.Session()
	if cur == nil || cur.ID != sessionID {
		l.log.Debug("discarding stale entitlement result", "session", sessionID)
		return
	}

	current := l.machine.MustState()
	if !current.IsAuthenticated() {
		return
	}
	optimistic := current == state.StateAuthenticatedWithSubscription
	if definitive == optimistic {
		return
	}

	if !l.corrected.TryAcquire() {
		l.log.Warn("entitlement correction already applied, ignoring further override")
		return
	}

	trigger := state.TriggerEntitlementRevoked
	if definitive {
		trigger = state.TriggerEntitlementGranted
	}
	if err := l.machine.Fire(l.ctx, trigger); err != nil {
		l.log.Error("state transition failed", "trigger", trigger, "error", err)
		return
	}
	l.monitor.RecordCorrection()
}

// handleSessionChange reacts to identity provider session events. Sign-out
// resets both latches so the next sign-in resolves afresh.
func (l *Lifecycle) handleSessionChange(sess *providers.Session) {
	if sess == nil {
		if l.machine.MustState().IsAuthenticated() {
			if err := l.machine.Fire(l.ctx, state.TriggerSignedOut); err != nil {
				l.log.Error("state transition failed", "trigger", state.TriggerSignedOut, "error", err)
			}
		}

		l.resolved.Reset()
		l.corrected.Reset()
		l.mu.Lock()
		l.resolvedSessionID = ""
		l.mu.Unlock()

		rctx, cancel := context.WithTimeout(l.ctx, l.config.ProviderTimeout)
		if err := l.entitlement.ResetUser(rctx); err != nil {
			l.log.Warn("entitlement reset failed", "error", err)
		}
		cancel()
		return
	}

	// Fresh sign-in after the launch already settled
	if l.machine.IsInitialized() {
		l.Resolve(l.ctx)
	}
}

// SetError records a message and forces the Error state. Fatal for the
// current session; recoverable only via Retry (back to login).
func (l *Lifecycle) SetError(ctx context.Context, msg string) {
	l.mu.Lock()
	l.errMsg = msg
	l.mu.Unlock()

	l.log.Error("launch error", "message", msg)
	if err := l.machine.Fire(ctx, state.TriggerFault); err != nil {
		l.log.Error("state transition failed", "trigger", state.TriggerFault, "error", err)
	}
}

// Retry recovers from the Error state back to the login classification.
func (l *Lifecycle) Retry(ctx context.Context) error {
	if err := l.machine.Fire(ctx, state.TriggerRetry); err != nil {
		return fmt.Errorf("retry not available: %w", err)
	}
	l.mu.Lock()
	l.errMsg = ""
	l.mu.Unlock()
	return nil
}

// MarkPurchaseCompleted transitions to the subscribed classification after a
// successful purchase. Called by the payment flow.
func (l *Lifecycle) MarkPurchaseCompleted(ctx context.Context) error {
	if err := l.machine.Fire(ctx, state.TriggerPurchaseCompleted); err != nil {
		return fmt.Errorf("purchase transition failed: %w", err)
	}
	return nil
}

// ForceUnauthenticated is the safety-watchdog escape hatch: it abandons a
// stalled bootstrap and lands the user on the login classification.
func (l *Lifecycle) ForceUnauthenticated(ctx context.Context) error {
	if err := l.machine.Fire(ctx, state.TriggerWatchdogExpired); err != nil {
		return fmt.Errorf("watchdog transition failed: %w", err)
	}
	return nil
}

// Stop shuts down background work.
func (l *Lifecycle) Stop() {
	l.cancel()
	l.wg.Wait()
}

// CurrentState returns the current application state.
func (l *Lifecycle) CurrentState() state.State {
	return l.machine.MustState()
}

// IsInitialized returns true once a terminal state has been reached.
func (l *Lifecycle) IsInitialized() bool {
	return l.machine.IsInitialized()
}

// Progress returns the loading percentage in [0,100].
func (l *Lifecycle) Progress() int {
	return l.progress.Percent()
}

// Err returns the recorded error message, if any.
func (l *Lifecycle) Err() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.errMsg
}

// RecheckInFlight reports whether the definitive entitlement check is still
// running; navigation is deferred while it is.
func (l *Lifecycle) RecheckInFlight() bool {
	return l.recheckInFlight.Load()
}

// OnStateChange registers a callback for state changes.
func (l *Lifecycle) OnStateChange(handler func(from, to state.State)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stateListeners = append(l.stateListeners, handler)
}

// Machine returns the state machine for direct manipulation (testing).
func (l *Lifecycle) Machine() *state.Machine {
	return l.machine
}

// Monitor returns the launch monitor.
func (l *Lifecycle) Monitor() *health.Monitor {
	return l.monitor
}

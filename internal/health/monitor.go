// Package health provides launch diagnostics and retry pacing for the app core.
package health

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/limbera/dripmax-app-sub001/internal/config"
	"github.com/limbera/dripmax-app-sub001/internal/state"
)

// Status represents a launch diagnostics snapshot.
type Status struct {
	State            string                   `json:"state"`
	Initialized      bool                     `json:"initialized"`
	UptimeSeconds    int64                    `json:"uptime_seconds"`
	Progress         int                      `json:"progress"`
	PhaseDurations   map[string]time.Duration `json:"phase_durations"`
	Resolutions      int64                    `json:"resolutions"`
	Corrections      int64                    `json:"corrections"`
	Navigations      int64                    `json:"navigations"`
	RecheckAttempts  int                      `json:"recheck_attempts"`
}

// Monitor tracks launch timing and owns the entitlement-recheck backoff.
type Monitor struct {
	config       *config.Config
	stateMachine *state.Machine
	progress     *state.Progress
	log          *slog.Logger

	recheckBackoff *backoff.ExponentialBackOff
	maxRetries     int
	retryCount     int

	startTime      time.Time
	phaseDurations map[state.Phase]time.Duration
	resolutions    atomic.Int64
	corrections    atomic.Int64
	navigations    atomic.Int64

	mu sync.RWMutex
}

// NewMonitor creates a new launch monitor.
func NewMonitor(cfg *config.Config, sm *state.Machine, progress *state.Progress) *Monitor {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.RecheckBaseDelay
	bo.MaxInterval = cfg.RecheckMaxDelay
	bo.MaxElapsedTime = 0 // Never stop based on elapsed time
	bo.Reset()

	return &Monitor{
		config:         cfg,
		stateMachine:   sm,
		progress:       progress,
		log:            slog.Default(),
		recheckBackoff: bo,
		maxRetries:     cfg.RecheckMaxRetries,
		startTime:      time.Now(),
		phaseDurations: make(map[state.Phase]time.Duration),
	}
}

// Start marks the beginning of the launch being monitored.
func (m *Monitor) Start() {
	m.mu.Lock()
	m.startTime = time.Now()
	m.mu.Unlock()
	m.log.Info("launch monitor started", "safety_timeout", m.config.SafetyTimeout)
}

// GetStatus returns the current diagnostics snapshot.
func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	currentState, _ := m.stateMachine.State(context.Background())

	durations := make(map[string]time.Duration, len(m.phaseDurations))
	for phase, d := range m.phaseDurations {
		durations[string(phase)] = d
	}

	return Status{
		State:           string(currentState),
		Initialized:     currentState.IsTerminal(),
		UptimeSeconds:   int64(time.Since(m.startTime).Seconds()),
		Progress:        m.progress.Percent(),
		PhaseDurations:  durations,
		Resolutions:     m.resolutions.Load(),
		Corrections:     m.corrections.Load(),
		Navigations:     m.navigations.Load(),
		RecheckAttempts: m.retryCount,
	}
}

// RecordPhase records how long a bootstrap phase took.
func (m *Monitor) RecordPhase(phase state.Phase, d time.Duration) {
	m.mu.Lock()
	m.phaseDurations[phase] = d
	m.mu.Unlock()
}

// RecordResolution records a final-state resolution.
func (m *Monitor) RecordResolution() {
	m.resolutions.Add(1)
}

// RecordCorrection records a post-resolution entitlement correction.
func (m *Monitor) RecordCorrection() {
	m.corrections.Add(1)
}

// RecordNavigation records a completed route change.
func (m *Monitor) RecordNavigation() {
	m.navigations.Add(1)
}

// NextRecheckDelay returns the next entitlement-recheck delay using
// exponential backoff.
func (m *Monitor) NextRecheckDelay() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.retryCount++
	return m.recheckBackoff.NextBackOff()
}

// ResetRecheckBackoff resets the backoff to initial values.
func (m *Monitor) ResetRecheckBackoff() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.recheckBackoff.Reset()
	m.retryCount = 0
}

// RecheckRetriesExceeded returns true if max recheck retries have been exceeded.
func (m *Monitor) RecheckRetriesExceeded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.retryCount > m.maxRetries
}

package state

import "sync"

// Phase identifies one of the five bootstrap phases for progress tracking.
type Phase string

const (
	PhaseInitializing              Phase = "initializing"
	PhaseLoadingFonts              Phase = "loading_fonts"
	PhaseCheckingAuth              Phase = "checking_auth"
	PhaseCheckingSubscription      Phase = "checking_subscription"
	PhaseInitializingNotifications Phase = "initializing_notifications"
)

// phaseWeights sums to 100. The auth and subscription checks dominate because
// they are the only phases that wait on the network.
var phaseWeights = map[Phase]int{
	PhaseInitializing:              15,
	PhaseLoadingFonts:              15,
	PhaseCheckingAuth:              25,
	PhaseCheckingSubscription:      25,
	PhaseInitializingNotifications: 20,
}

// bootstrapCap holds the displayed progress below 100 until every phase is
// complete, so the loading bar never shows 100% on a stalled launch.
const bootstrapCap = 95

// Progress tracks completed bootstrap phases and derives a monotonically
// non-decreasing loading percentage. Phases are append-only: once complete,
// a phase never reverts.
type Progress struct {
	mu        sync.Mutex
	completed map[Phase]bool
}

// NewProgress creates an empty progress tracker.
func NewProgress() *Progress {
	return &Progress{
		completed: make(map[Phase]bool, len(phaseWeights)),
	}
}

// MarkComplete records a phase as finished. Idempotent: marking a phase twice
// has no additional effect.
func (p *Progress) MarkComplete(phase Phase) {
	if _, ok := phaseWeights[phase]; !ok {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed[phase] = true
}

// Completed returns true if the phase has been marked complete.
func (p *Progress) Completed(phase Phase) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completed[phase]
}

// Percent returns the loading percentage in [0,100]. The value is capped at
// 95 until all five phases are complete, then snaps to 100.
func (p *Progress) Percent() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	total := 0
	for phase, weight := range phaseWeights {
		if p.completed[phase] {
			total += weight
		}
	}
	if len(p.completed) == len(phaseWeights) {
		return 100
	}
	if total > bootstrapCap {
		return bootstrapCap
	}
	return total
}

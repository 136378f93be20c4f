package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgress_Empty(t *testing.T) {
	p := NewProgress()
	assert.Equal(t, 0, p.Percent())
	assert.False(t, p.Completed(PhaseInitializing))
}

func TestProgress_Monotonic(t *testing.T) {
	p := NewProgress()

	phases := []Phase{
		PhaseInitializing,
		PhaseLoadingFonts,
		PhaseCheckingAuth,
		PhaseCheckingSubscription,
		PhaseInitializingNotifications,
	}

	last := 0
	for _, phase := range phases {
		p.MarkComplete(phase)
		pct := p.Percent()
		assert.GreaterOrEqual(t, pct, last, "progress regressed after %s", phase)
		last = pct
	}
	assert.Equal(t, 100, last)
}

func TestProgress_CappedUntilAllComplete(t *testing.T) {
	p := NewProgress()

	// Four of five phases: capped below 100 regardless of weights.
	p.MarkComplete(PhaseInitializing)
	p.MarkComplete(PhaseLoadingFonts)
	p.MarkComplete(PhaseCheckingAuth)
	p.MarkComplete(PhaseCheckingSubscription)

	assert.LessOrEqual(t, p.Percent(), 95)
	assert.Greater(t, p.Percent(), 0)

	p.MarkComplete(PhaseInitializingNotifications)
	assert.Equal(t, 100, p.Percent())
}

func TestProgress_MarkCompleteIdempotent(t *testing.T) {
	p := NewProgress()

	p.MarkComplete(PhaseCheckingAuth)
	first := p.Percent()

	p.MarkComplete(PhaseCheckingAuth)
	p.MarkComplete(PhaseCheckingAuth)

	assert.Equal(t, first, p.Percent())
	assert.True(t, p.Completed(PhaseCheckingAuth))
}

func TestProgress_UnknownPhaseIgnored(t *testing.T) {
	p := NewProgress()
	p.MarkComplete(Phase("bogus"))
	assert.Equal(t, 0, p.Percent())
}

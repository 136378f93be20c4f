package store

import (
	"time"

	"github.com/limbera/dripmax-app-sub001/internal/state"
)

// Transition represents a state machine transition record.
type Transition struct {
	ID        int64       `json:"id"`
	FromState state.State `json:"from_state"`
	ToState   state.State `json:"to_state"`
	Trigger   string      `json:"trigger"`
	Timestamp time.Time   `json:"timestamp"`
}

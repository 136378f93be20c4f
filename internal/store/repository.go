// Package store provides SQLite-backed persistence for the app's durable
// session cache and the launch-state audit trail.
package store

import (
	"context"
	"errors"

	"github.com/limbera/dripmax-app-sub001/internal/providers"
	"github.com/limbera/dripmax-app-sub001/internal/state"
)

// ErrNotFound is returned when a requested item is not found.
var ErrNotFound = errors.New("not found")

// SessionRepository defines operations for the durable session cache the
// identity provider restores from on launch.
type SessionRepository interface {
	GetSession(ctx context.Context) (*providers.Session, error)
	SaveSession(ctx context.Context, s *providers.Session) error
	DeleteSession(ctx context.Context) error
}

// LaunchRepository defines operations for launch-state persistence.
type LaunchRepository interface {
	GetState(ctx context.Context) (state.State, error)
	SaveState(ctx context.Context, s state.State) error
	LogTransition(ctx context.Context, from, to state.State, trigger string) error
	GetTransitionHistory(ctx context.Context, limit int) ([]Transition, error)
}

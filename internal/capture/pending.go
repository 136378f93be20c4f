// Package capture holds the image captured during onboarding before the user
// has an active subscription. The handle has sub-session lifetime: written by
// the capture flow, read by the navigation coordinator after a purchase, and
// cleared by the screen that consumes it.
package capture

import (
	"sync"
	"time"
)

// PendingImage is a handle to a captured-but-unprocessed outfit photo.
type PendingImage struct {
	URI        string
	CapturedAt time.Time
}

// PendingStore owns the nullable pending image.
type PendingStore struct {
	mu      sync.Mutex
	pending *PendingImage
}

// NewPendingStore creates an empty pending store.
func NewPendingStore() *PendingStore {
	return &PendingStore{}
}

// Set replaces the pending image.
func (s *PendingStore) Set(img PendingImage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = &img
}

// Peek returns the pending image without consuming it, or nil.
func (s *PendingStore) Peek() *PendingImage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// HasPending returns true if an image is waiting to be processed.
func (s *PendingStore) HasPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

// Take returns the pending image and clears it, or nil.
func (s *PendingStore) Take() *PendingImage {
	s.mu.Lock()
	defer s.mu.Unlock()
	img := s.pending
	s.pending = nil
	return img
}

// Clear discards the pending image.
func (s *PendingStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
}

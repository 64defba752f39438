package sim

import (
	"strings"
	"sync"
)

// Selection holds the selected solar-system body and the tracking flag. It
// implements core.Selection and core.Movement.
type Selection struct {
	mu       sync.RWMutex
	body     string
	tracking bool
}

// NewSelection returns an empty selection.
func NewSelection() *Selection {
	return &Selection{}
}

// Select makes body the current selection. An empty name clears it.
func (s *Selection) Select(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.body = strings.TrimSpace(body)
}

// IsAnySelected reports whether something is selected.
func (s *Selection) IsAnySelected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.body != ""
}

// SelectedBody returns the selected body name, or "".
func (s *Selection) SelectedBody() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.body
}

// ClearSelection drops the selection and stops tracking it.
func (s *Selection) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.body = ""
	s.tracking = false
}

// SetTrackingEnabled turns tracking of the selection on or off.
func (s *Selection) SetTrackingEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracking = enabled && s.body != ""
}

// Tracking reports whether the view follows the selection.
func (s *Selection) Tracking() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tracking
}

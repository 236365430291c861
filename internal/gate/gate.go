// Package gate implements the global kill switch. When engaged, every
// mutative operation in the system is refused until an admin disengages
// it. The gate is binary and global; there is no partial kill.
package gate

import (
	"sync"
	"time"

	"docpilot/internal/apperr"
)

// Status is the audit-stamped state of the kill switch.
type Status struct {
	Enabled       bool       `json:"enabled"`
	LastToggledAt *time.Time `json:"lastToggledAt"`
	LastToggledBy string     `json:"lastToggledBy,omitempty"`
}

// Gate is a guarded shared cell holding the kill-switch status.
// Construct one in main and inject it; the package has no globals.
type Gate struct {
	mu     sync.RWMutex
	status Status
}

// New returns a gate in the disabled state with no audit stamp.
func New() *Gate {
	return &Gate{}
}

// Status returns a copy of the current status.
func (g *Gate) Status() Status {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.status
}

// Set flips the switch and refreshes the audit stamp, even when the
// value is unchanged: toggling disabled to disabled still records who
// touched it and when.
func (g *Gate) Set(enabled bool, actorID string) Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := time.Now()
	g.status = Status{
		Enabled:       enabled,
		LastToggledAt: &now,
		LastToggledBy: actorID,
	}
	return g.status
}

// AssertNotKilled fails when the switch is engaged. Every mutative
// operation must call this before taking effect.
func (g *Gate) AssertNotKilled() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.status.Enabled {
		return apperr.KillSwitchActive()
	}
	return nil
}

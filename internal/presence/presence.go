// Package presence tracks agent connection state and derives the
// effective tri-state reported to observers.
package presence

import (
	"time"

	"go.uber.org/zap"

	"github.com/david0ql/helpdeskd/internal/store"
)

// State is the effective connection state of an agent.
type State string

const (
	Disconnected State = "disconnected"
	Connected    State = "connected"
	// Stale means the stored flag says connected but the agent has
	// produced no interaction recently. Derived at read time, never
	// persisted.
	Stale State = "stale"
)

// StaleAfter is how long a connected agent may stay silent before
// observers see them as stale.
const StaleAfter = 120 * time.Second

// Tracker records agent connection lifecycle and interactions.
type Tracker struct {
	db     *store.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewTracker creates a presence tracker.
func NewTracker(db *store.DB, logger *zap.Logger) *Tracker {
	return &Tracker{db: db, logger: logger, now: time.Now}
}

// Connect flags the agent as connected. A missing agent is skipped.
func (t *Tracker) Connect(userID int64) {
	if err := t.db.SetUserConnected(userID, true); err != nil {
		t.logger.Warn("failed to flag agent connected", zap.Int64("user", userID), zap.Error(err))
	}
}

// Disconnect clears the agent's connected flag. A missing agent is skipped.
func (t *Tracker) Disconnect(userID int64) {
	if err := t.db.SetUserConnected(userID, false); err != nil {
		t.logger.Warn("failed to flag agent disconnected", zap.Int64("user", userID), zap.Error(err))
	}
}

// Touch records an interaction timestamp for the agent.
func (t *Tracker) Touch(userID int64) {
	if err := t.db.RecordInteraction(userID); err != nil {
		t.logger.Warn("failed to record interaction", zap.Int64("user", userID), zap.Error(err))
	}
}

// StateOf returns the effective state for an agent, consulting the
// stored flag and the last interaction instant.
func (t *Tracker) StateOf(user *store.User) (State, error) {
	if !user.IsConnected {
		return Disconnected, nil
	}
	last, err := t.db.LastInteraction(user.ID)
	if err != nil {
		return Disconnected, err
	}
	return Derive(user.IsConnected, last, t.now()), nil
}

// Derive computes the effective state from a stored connected flag and
// the last interaction instant in Unix milliseconds (0 = never).
func Derive(connected bool, lastInteraction int64, now time.Time) State {
	if !connected {
		return Disconnected
	}
	if lastInteraction > 0 && now.Sub(time.UnixMilli(lastInteraction)) > StaleAfter {
		return Stale
	}
	return Connected
}

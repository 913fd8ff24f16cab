// Package crossing tracks repeated path crossings between pairs of users and
// decides when a pair has crossed often enough to unlock direct messaging.
package crossing

import (
	"fmt"
	"sort"
	"time"

	"github.com/nearu/nearu-backend/internal/models"
	"github.com/nearu/nearu-backend/internal/spatial"
)

// Config holds the accumulator tuning
type Config struct {
	Debounce          time.Duration // Minimum spacing between processed updates per pair
	Retention         time.Duration // Events older than this are evicted
	MaxDistanceMeters float64       // Maximum distance that counts as a crossing
	RequiredCrossings int           // Crossings needed to unlock chat
}

// DefaultConfig returns the production configuration
func DefaultConfig() Config {
	return Config{
		Debounce:          5 * time.Second,
		Retention:         time.Hour,
		MaxDistanceMeters: 5,
		RequiredCrossings: 3,
	}
}

// TestModeConfig returns the shortened windows used for campus testing
func TestModeConfig() Config {
	return Config{
		Debounce:          500 * time.Millisecond,
		Retention:         6 * time.Minute,
		MaxDistanceMeters: 5,
		RequiredCrossings: 3,
	}
}

// Accumulator applies crossing candidates to a pair's state
type Accumulator struct {
	cfg Config
}

// NewAccumulator creates a new accumulator
func NewAccumulator(cfg Config) *Accumulator {
	return &Accumulator{cfg: cfg}
}

// Config returns the accumulator configuration
func (a *Accumulator) Config() Config {
	return a.cfg
}

// Process ingests one crossing candidate observed at nowMs and returns the new state.
// The input state is never modified.
func (a *Accumulator) Process(
	nowMs int64,
	subjectUserID, counterpartyUserID string,
	subjectLoc, counterpartyLoc models.Location,
	state models.CrossingState,
) (models.CrossingState, error) {
	if subjectUserID == "" || counterpartyUserID == "" || subjectUserID == counterpartyUserID {
		return state, fmt.Errorf("%w: crossing needs two distinct users", models.ErrInvalidInput)
	}

	if a.Debounced(nowMs, state) {
		return state, nil
	}

	cutoff := nowMs - a.cfg.Retention.Milliseconds()
	recent := make([]models.CrossingEvent, 0, len(state.Events)+1)
	for _, ev := range state.Events {
		if ev.Timestamp > cutoff {
			recent = append(recent, ev)
		}
	}

	distance, err := spatial.DistanceMeters(subjectLoc, counterpartyLoc)
	if err != nil {
		return state, err
	}
	if distance > a.cfg.MaxDistanceMeters {
		return models.CrossingState{Events: recent, LastProcessedMs: nowMs}, nil
	}

	recent = append(recent, models.CrossingEvent{
		SubjectUserID: subjectUserID,
		Timestamp:     nowMs,
		Location:      subjectLoc,
	})
	return models.CrossingState{Events: recent, LastProcessedMs: nowMs}, nil
}

// Debounced reports whether an update at nowMs falls inside the debounce
// window of state and would leave it unchanged
func (a *Accumulator) Debounced(nowMs int64, state models.CrossingState) bool {
	return nowMs-state.LastProcessedMs < a.cfg.Debounce.Milliseconds()
}

// CanUnlockChat reports whether userID has reached the required crossings
func (a *Accumulator) CanUnlockChat(events []models.CrossingEvent, userID string) bool {
	return CanUnlockChat(events, userID, a.cfg.RequiredCrossings)
}

// Phase returns the state machine position of the pair from userID's side
func (a *Accumulator) Phase(state *models.CrossingState, userID string) models.CrossingPhase {
	return Phase(state, userID, a.cfg.RequiredCrossings)
}

// PairID returns the canonical identifier of an unordered user pair. The
// length of the smaller id leads so that ids containing the separator
// cannot collide.
func PairID(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return fmt.Sprintf("%d:%s_%s", len(ids[0]), ids[0], ids[1])
}

// CrossingCount counts the events recorded for userID
func CrossingCount(events []models.CrossingEvent, userID string) int {
	n := 0
	for _, ev := range events {
		if ev.SubjectUserID == userID {
			n++
		}
	}
	return n
}

// CanUnlockChat reports whether userID has at least required crossings in events
func CanUnlockChat(events []models.CrossingEvent, userID string, required int) bool {
	return CrossingCount(events, userID) >= required
}

// Phase returns NoHistory for a missing record, Unlocked at or above the threshold
// and BelowThreshold otherwise
func Phase(state *models.CrossingState, userID string, required int) models.CrossingPhase {
	if state == nil {
		return models.PhaseNoHistory
	}
	if CanUnlockChat(state.Events, userID, required) {
		return models.PhaseUnlocked
	}
	return models.PhaseBelowThreshold
}

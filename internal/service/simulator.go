package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nearu/nearu-backend/internal/location"
	"github.com/nearu/nearu-backend/internal/logging"
	"github.com/nearu/nearu-backend/internal/models"
)

// Simulator moves fake users between campus spots in test mode
type Simulator struct {
	presence *PresenceService
	users    []string
	interval time.Duration

	mu       sync.Mutex
	trackers []*location.Tracker
}

// NewSimulator creates a simulator for the given user ids
func NewSimulator(presence *PresenceService, users []string, interval time.Duration) *Simulator {
	return &Simulator{presence: presence, users: users, interval: interval}
}

// Start creates the simulated profiles and begins moving them. Each user
// starts at a different spot.
func (s *Simulator) Start(ctx context.Context) error {
	for i, userID := range s.users {
		profile := models.ProfileRequest{
			DisplayName: fmt.Sprintf("Simulated %d", i+1),
			Program:     "Test Mode",
		}
		if _, err := s.presence.UpdateProfile(ctx, userID, profile); err != nil {
			return fmt.Errorf("failed to create simulated user %s: %w", userID, err)
		}

		spots := make([]location.Spot, 0, len(location.CampusSpots))
		for j := range location.CampusSpots {
			spots = append(spots, location.CampusSpots[(i+j)%len(location.CampusSpots)])
		}

		uid := userID
		sampler := location.NewSampler(location.NewSimulatedSource(spots, s.interval))
		tracker, err := sampler.StartTracking(func(loc models.Location) {
			if _, err := s.presence.Checkin(ctx, uid, loc); err != nil {
				logging.Warn().Err(err).Str("user_id", uid).Msg("simulated check-in failed")
			}
		}, nil)
		if err != nil {
			return fmt.Errorf("failed to start simulated user %s: %w", userID, err)
		}

		s.mu.Lock()
		s.trackers = append(s.trackers, tracker)
		s.mu.Unlock()
	}

	logging.Info().Int("users", len(s.users)).Dur("interval", s.interval).Msg("simulator started")
	return nil
}

// Stop halts all simulated users
func (s *Simulator) Stop() {
	s.mu.Lock()
	trackers := s.trackers
	s.trackers = nil
	s.mu.Unlock()

	for _, t := range trackers {
		t.Stop()
	}
}

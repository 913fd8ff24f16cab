package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/nearu/nearu-backend/internal/feed"
	"github.com/nearu/nearu-backend/internal/logging"
	"github.com/nearu/nearu-backend/internal/metrics"
	"github.com/nearu/nearu-backend/internal/models"
	"github.com/nearu/nearu-backend/internal/repository"
	"github.com/nearu/nearu-backend/internal/spatial"
)

const unknownField = "Unknown"

// PresenceConfig holds the nearby discovery thresholds
type PresenceConfig struct {
	NearbyRadiusMeters float64
	ActiveWindow       time.Duration
	MinMoveMeters      float64
}

// DefaultPresenceConfig returns 500 m, 1 h and 50 m
func DefaultPresenceConfig() PresenceConfig {
	return PresenceConfig{
		NearbyRadiusMeters: 500,
		ActiveWindow:       time.Hour,
		MinMoveMeters:      50,
	}
}

// PresenceService owns users/{uid}: profile, presence, location and nearby discovery
type PresenceService struct {
	users     *repository.UserRepository
	crossings *CrossingService
	feed      feed.Feed
	metrics   metrics.Recorder
	cfg       PresenceConfig
	now       func() time.Time
}

// NewPresenceService creates a new presence service
func NewPresenceService(
	users *repository.UserRepository,
	crossings *CrossingService,
	changes feed.Feed,
	rec metrics.Recorder,
	cfg PresenceConfig,
) *PresenceService {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &PresenceService{
		users:     users,
		crossings: crossings,
		feed:      changes,
		metrics:   rec,
		cfg:       cfg,
		now:       time.Now,
	}
}

// GetProfile returns the user document
func (s *PresenceService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("user %s: %w", userID, models.ErrNotFound)
	}
	return u, nil
}

// UpdateProfile creates or updates the user's profile fields
func (s *PresenceService) UpdateProfile(ctx context.Context, userID string, req models.ProfileRequest) (*models.User, error) {
	if err := s.users.UpsertProfile(ctx, userID, req.DisplayName, req.Program, req.Email, s.now()); err != nil {
		return nil, err
	}
	s.publish(ctx, feed.EventPresence, userID)
	return s.GetProfile(ctx, userID)
}

// SetGhostMode hides or shows the user. A ghost is inactive and never nearby.
func (s *PresenceService) SetGhostMode(ctx context.Context, userID string, enabled bool) error {
	if err := s.users.SetGhostMode(ctx, userID, enabled, s.now()); err != nil {
		return err
	}
	s.publish(ctx, feed.EventPresence, userID)
	return nil
}

// SignOut marks the user inactive
func (s *PresenceService) SignOut(ctx context.Context, userID string) error {
	if err := s.users.UpdatePresence(ctx, userID, nil, false, s.now()); err != nil {
		return err
	}
	s.publish(ctx, feed.EventPresence, userID)
	return nil
}

// Nearby returns the users near userID's stored location. A user with no
// stored location has nobody nearby.
func (s *PresenceService) Nearby(ctx context.Context, userID string) ([]models.NearbyUser, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil || u.Location == nil || u.GhostMode {
		return []models.NearbyUser{}, nil
	}
	return s.NearbyFrom(ctx, userID, *u.Location)
}

// NearbyFrom returns active, visible, recently seen users within the nearby
// radius of loc, closest first
func (s *PresenceService) NearbyFrom(ctx context.Context, userID string, loc models.Location) ([]models.NearbyUser, error) {
	if err := spatial.ValidateLocation(loc); err != nil {
		return nil, err
	}

	users, err := s.users.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := s.now().Add(-s.cfg.ActiveWindow)
	nearby := make([]models.NearbyUser, 0)
	for _, u := range users {
		if u.ID == userID || !u.IsActive || u.GhostMode || u.Location == nil {
			continue
		}
		if u.LastActive.Before(cutoff) {
			continue
		}

		distance, err := spatial.DistanceMeters(loc, *u.Location)
		if err != nil {
			// stored coordinates are validated on write; skip anything odd
			continue
		}
		if distance > s.cfg.NearbyRadiusMeters {
			continue
		}

		nearby = append(nearby, models.NewNearbyUser(u, orUnknown(u.DisplayName), orUnknown(u.Program), distance))
	}

	sort.SliceStable(nearby, func(i, j int) bool {
		return nearby[i].DistanceMeters < nearby[j].DistanceMeters
	})
	return nearby, nil
}

// Checkin handles one accepted location sample: presence, nearby users and
// a crossing check against each of them
func (s *PresenceService) Checkin(ctx context.Context, userID string, loc models.Location) (*models.CheckinResult, error) {
	if err := spatial.ValidateLocation(loc); err != nil {
		s.metrics.RecordSample(false)
		return nil, err
	}

	now := s.now()
	if loc.Timestamp == 0 {
		loc.Timestamp = now.UnixMilli()
	}

	current, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	ghost := current != nil && current.GhostMode

	moved := true
	if current != nil && current.Location != nil {
		d, err := spatial.DistanceMeters(*current.Location, loc)
		moved = err != nil || d >= s.cfg.MinMoveMeters
	}
	if moved {
		err = s.users.UpdatePresence(ctx, userID, &loc, !ghost, now)
	} else {
		// small moves only refresh the last sample
		err = s.users.RecordSample(ctx, userID, loc, !ghost, now)
	}
	if err != nil {
		return nil, err
	}
	s.metrics.RecordSample(true)

	result := &models.CheckinResult{
		Accepted:  true,
		Location:  &loc,
		Nearby:    []models.NearbyUser{},
		Crossings: []models.PairStatus{},
	}
	if ghost {
		return result, nil
	}

	nearby, err := s.NearbyFrom(ctx, userID, loc)
	if err != nil {
		return nil, err
	}
	result.Nearby = nearby

	for _, n := range nearby {
		status, err := s.crossings.Record(ctx, now.UnixMilli(), userID, n.UserID, loc, n.LastSample())
		if err != nil {
			return nil, err
		}
		result.Crossings = append(result.Crossings, *status)
	}

	if moved {
		s.publish(ctx, feed.EventLocation, userID)
	} else {
		s.publish(ctx, feed.EventPresence, userID)
	}
	return result, nil
}

func (s *PresenceService) publish(ctx context.Context, typ, userID string) {
	if s.feed == nil {
		return
	}
	ev := feed.Event{Type: typ, UserID: userID, At: s.now().UnixMilli()}
	if err := s.feed.Publish(ctx, ev); err != nil {
		logging.Warn().Err(err).Str("user_id", userID).Msg("failed to publish user change")
	}
}

func orUnknown(s string) string {
	if s == "" {
		return unknownField
	}
	return s
}

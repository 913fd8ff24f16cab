package service

import (
	"context"
	"fmt"

	"github.com/nearu/nearu-backend/internal/crossing"
	"github.com/nearu/nearu-backend/internal/logging"
	"github.com/nearu/nearu-backend/internal/metrics"
	"github.com/nearu/nearu-backend/internal/models"
	"github.com/nearu/nearu-backend/internal/repository"
	"github.com/nearu/nearu-backend/internal/spatial"
)

// CrossingService persists path crossings per pair and decides chat unlocks
type CrossingService struct {
	repo          *repository.CrossingRepository
	matches       *repository.MatchRequestRepository
	acc           *crossing.Accumulator
	notifications *NotificationService
	metrics       metrics.Recorder
}

// NewCrossingService creates a new crossing service
func NewCrossingService(
	repo *repository.CrossingRepository,
	matches *repository.MatchRequestRepository,
	acc *crossing.Accumulator,
	notifications *NotificationService,
	rec metrics.Recorder,
) *CrossingService {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &CrossingService{
		repo:          repo,
		matches:       matches,
		acc:           acc,
		notifications: notifications,
		metrics:       rec,
	}
}

// Record runs the accumulator for subject against counterparty and stores the
// result. The first time either side reaches the threshold the pair is marked
// unlocked for good and both users are notified.
func (s *CrossingService) Record(
	ctx context.Context,
	nowMs int64,
	subjectID, counterpartyID string,
	subjectLoc, counterpartyLoc models.Location,
) (*models.PairStatus, error) {
	pairID := crossing.PairID(subjectID, counterpartyID)
	var crossed, newlyUnlocked bool

	rec, err := s.repo.Update(ctx, pairID, func(cur *models.CrossingRecord) (*models.CrossingRecord, error) {
		crossed, newlyUnlocked = false, false

		var state models.CrossingState
		var unlockedAt *int64
		if cur != nil {
			state = cur.State
			unlockedAt = cur.UnlockedAt
		}

		next, err := s.acc.Process(nowMs, subjectID, counterpartyID, subjectLoc, counterpartyLoc, state)
		if err != nil {
			return nil, err
		}
		if cur != nil && s.acc.Debounced(nowMs, state) {
			return nil, nil
		}

		crossed, err = spatial.IsWithinProximity(subjectLoc, counterpartyLoc, s.acc.Config().MaxDistanceMeters)
		if err != nil {
			return nil, err
		}

		if unlockedAt == nil &&
			(s.acc.CanUnlockChat(next.Events, subjectID) || s.acc.CanUnlockChat(next.Events, counterpartyID)) {
			at := nowMs
			unlockedAt = &at
			newlyUnlocked = true
		}

		return &models.CrossingRecord{State: next, UnlockedAt: unlockedAt, UpdatedAt: nowMs}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record crossing %s: %w", pairID, err)
	}

	if crossed {
		s.metrics.RecordCrossing()
	}
	if newlyUnlocked {
		s.metrics.RecordUnlock()
		s.notifyUnlocked(ctx, subjectID, counterpartyID)
	}

	accepted, err := s.matches.HasAccepted(ctx, subjectID, counterpartyID)
	if err != nil {
		return nil, err
	}
	status := s.status(rec, subjectID, counterpartyID, accepted)
	status.NewlyUnlocked = newlyUnlocked
	return status, nil
}

func (s *CrossingService) notifyUnlocked(ctx context.Context, a, b string) {
	for _, pair := range [][2]string{{a, b}, {b, a}} {
		_, err := s.notifications.Notify(ctx, pair[0], models.NotificationChatUnlocked,
			"Chat Unlocked", "You crossed paths enough times to start chatting!", pair[1])
		if err != nil {
			logging.Warn().Err(err).Str("user_id", pair[0]).Msg("failed to store unlock notification")
		}
	}
}

// Status returns the pair as seen by userID
func (s *CrossingService) Status(ctx context.Context, userID, otherID string) (*models.PairStatus, error) {
	if userID == "" || otherID == "" || userID == otherID {
		return nil, fmt.Errorf("%w: pair needs two distinct users", models.ErrInvalidInput)
	}

	rec, err := s.repo.Get(ctx, crossing.PairID(userID, otherID))
	if err != nil {
		return nil, err
	}
	accepted, err := s.matches.HasAccepted(ctx, userID, otherID)
	if err != nil {
		return nil, err
	}
	return s.status(rec, userID, otherID, accepted), nil
}

// IsUnlocked reports whether the pair may chat
func (s *CrossingService) IsUnlocked(ctx context.Context, a, b string) (bool, error) {
	status, err := s.Status(ctx, a, b)
	if err != nil {
		return false, err
	}
	return status.ChatUnlocked, nil
}

func (s *CrossingService) status(rec *models.CrossingRecord, userID, otherID string, matched bool) *models.PairStatus {
	cfg := s.acc.Config()
	status := &models.PairStatus{
		PairID:            crossing.PairID(userID, otherID),
		UserID:            userID,
		OtherUserID:       otherID,
		RequiredCrossings: cfg.RequiredCrossings,
		Phase:             models.PhaseNoHistory,
		ChatUnlocked:      matched,
	}
	if rec == nil {
		return status
	}

	status.Crossings = crossing.CrossingCount(rec.State.Events, userID)
	status.OtherCrossings = crossing.CrossingCount(rec.State.Events, otherID)
	status.Phase = s.acc.Phase(&rec.State, userID)
	status.ChatUnlocked = matched || rec.UnlockedAt != nil ||
		s.acc.CanUnlockChat(rec.State.Events, userID) || s.acc.CanUnlockChat(rec.State.Events, otherID)
	return status
}

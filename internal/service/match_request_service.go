package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nearu/nearu-backend/internal/logging"
	"github.com/nearu/nearu-backend/internal/models"
	"github.com/nearu/nearu-backend/internal/repository"
)

// MatchRequestService handles match requests between users
type MatchRequestService struct {
	repo          *repository.MatchRequestRepository
	users         *repository.UserRepository
	notifications *NotificationService
	now           func() time.Time
}

// NewMatchRequestService creates a new match request service
func NewMatchRequestService(
	repo *repository.MatchRequestRepository,
	users *repository.UserRepository,
	notifications *NotificationService,
) *MatchRequestService {
	return &MatchRequestService{repo: repo, users: users, notifications: notifications, now: time.Now}
}

// Create sends a match request from fromID. Only one pending request per
// direction is allowed.
func (s *MatchRequestService) Create(ctx context.Context, fromID string, req models.CreateMatchRequest) (*models.MatchRequest, error) {
	toID := strings.TrimSpace(req.ToUserID)
	if toID == "" || toID == fromID {
		return nil, fmt.Errorf("%w: cannot send a match request to yourself", models.ErrInvalidInput)
	}

	target, err := s.users.Get(ctx, toID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, fmt.Errorf("user %s: %w", toID, models.ErrNotFound)
	}

	pending, err := s.repo.HasPending(ctx, fromID, toID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, fmt.Errorf("match request to %s already pending: %w", toID, models.ErrConflict)
	}

	m := &models.MatchRequest{
		ID:         uuid.NewString(),
		FromUserID: fromID,
		ToUserID:   toID,
		Status:     models.MatchPending,
		Message:    strings.TrimSpace(req.Message),
		CreatedAt:  s.now().UTC(),
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}

	body := fmt.Sprintf("%s wants to connect with you", s.displayName(ctx, fromID))
	if _, err := s.notifications.Notify(ctx, toID, models.NotificationMatchRequest, "New Match Request", body, fromID); err != nil {
		logging.Warn().Err(err).Str("request_id", m.ID).Msg("failed to store match request notification")
	}
	return m, nil
}

// ListPending returns the requests waiting for userID's answer
func (s *MatchRequestService) ListPending(ctx context.Context, userID string) ([]models.MatchRequest, error) {
	return s.repo.ListPending(ctx, userID)
}

// Accept accepts a request addressed to userID
func (s *MatchRequestService) Accept(ctx context.Context, userID, id string) (*models.MatchRequest, error) {
	return s.respond(ctx, userID, id, models.MatchAccepted)
}

// Reject rejects a request addressed to userID
func (s *MatchRequestService) Reject(ctx context.Context, userID, id string) (*models.MatchRequest, error) {
	return s.respond(ctx, userID, id, models.MatchRejected)
}

func (s *MatchRequestService) respond(ctx context.Context, userID, id string, status models.MatchRequestStatus) (*models.MatchRequest, error) {
	m, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("match request %s: %w", id, models.ErrNotFound)
	}
	if m.ToUserID != userID {
		return nil, fmt.Errorf("match request %s is not addressed to you: %w", id, models.ErrForbidden)
	}

	if err := s.repo.Respond(ctx, id, status); err != nil {
		return nil, err
	}
	m.Status = status

	verb := "declined"
	if status == models.MatchAccepted {
		verb = "accepted"
	}
	body := fmt.Sprintf("%s %s your match request", s.displayName(ctx, userID), verb)
	if _, err := s.notifications.Notify(ctx, m.FromUserID, models.NotificationMatchResponse, "Match Request Update", body, userID); err != nil {
		logging.Warn().Err(err).Str("request_id", id).Msg("failed to store match response notification")
	}
	return m, nil
}

func (s *MatchRequestService) displayName(ctx context.Context, userID string) string {
	u, err := s.users.Get(ctx, userID)
	if err != nil || u == nil {
		return "Someone"
	}
	if u.DisplayName == "" {
		return "Someone"
	}
	return u.DisplayName
}

package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nearu/nearu-backend/internal/crossing"
	"github.com/nearu/nearu-backend/internal/logging"
	"github.com/nearu/nearu-backend/internal/models"
	"github.com/nearu/nearu-backend/internal/repository"
)

// ChatService sends and lists messages between unlocked pairs
type ChatService struct {
	messages      *repository.MessageRepository
	crossings     *CrossingService
	notifications *NotificationService
	now           func() time.Time
}

// NewChatService creates a new chat service
func NewChatService(
	messages *repository.MessageRepository,
	crossings *CrossingService,
	notifications *NotificationService,
) *ChatService {
	return &ChatService{messages: messages, crossings: crossings, notifications: notifications, now: time.Now}
}

// Send stores a message from fromID to toID. The pair must be unlocked.
func (s *ChatService) Send(ctx context.Context, fromID, toID, text string) (*models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty message", models.ErrInvalidInput)
	}
	if fromID == "" || toID == "" || fromID == toID {
		return nil, fmt.Errorf("%w: message needs two distinct users", models.ErrInvalidInput)
	}

	unlocked, err := s.crossings.IsUnlocked(ctx, fromID, toID)
	if err != nil {
		return nil, err
	}
	if !unlocked {
		return nil, models.ErrChatLocked
	}

	m := &models.Message{
		ID:           uuid.NewString(),
		Participants: crossing.PairID(fromID, toID),
		SenderID:     fromID,
		Text:         text,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.messages.Create(ctx, m, fromID, toID); err != nil {
		return nil, err
	}

	if _, err := s.notifications.Notify(ctx, toID, models.NotificationMessage, "New Message", "You have a new message!", fromID); err != nil {
		logging.Warn().Err(err).Str("message_id", m.ID).Msg("failed to store message notification")
	}
	return m, nil
}

// List returns the messages between userID and otherID, oldest first
func (s *ChatService) List(ctx context.Context, userID, otherID string) ([]models.Message, error) {
	if userID == otherID {
		return nil, fmt.Errorf("%w: message needs two distinct users", models.ErrInvalidInput)
	}
	return s.messages.ListByParticipants(ctx, crossing.PairID(userID, otherID))
}

// Conversations returns the latest message of each of userID's conversations
func (s *ChatService) Conversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	return s.messages.ListConversations(ctx, userID)
}

package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nearu/nearu-backend/internal/logging"
	"github.com/nearu/nearu-backend/internal/models"
	"github.com/nearu/nearu-backend/internal/notify"
	"github.com/nearu/nearu-backend/internal/repository"
)

const pushTimeout = 10 * time.Second

// NotificationService stores in-app notifications and pushes them to the
// recipient's device
type NotificationService struct {
	notifications *repository.NotificationRepository
	tokens        *repository.TokenRepository
	pusher        notify.Pusher
	now           func() time.Time

	pending sync.WaitGroup
}

// NewNotificationService creates a new notification service
func NewNotificationService(
	notifications *repository.NotificationRepository,
	tokens *repository.TokenRepository,
	pusher notify.Pusher,
) *NotificationService {
	if pusher == nil {
		pusher = notify.LogPusher{}
	}
	return &NotificationService{
		notifications: notifications,
		tokens:        tokens,
		pusher:        pusher,
		now:           time.Now,
	}
}

// Notify stores a notification for userID and pushes it in the background
func (s *NotificationService) Notify(ctx context.Context, userID, typ, title, body, fromUser string) (*models.Notification, error) {
	n := &models.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Body:      body,
		FromUser:  fromUser,
		CreatedAt: s.now().UTC(),
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		return nil, err
	}

	data := map[string]string{"type": typ, "notificationId": n.ID}
	if fromUser != "" {
		data["fromUserId"] = fromUser
	}
	s.push(userID, title, body, data)
	return n, nil
}

// push delivers to the user's registered token. Failures are logged only.
func (s *NotificationService) push(userID, title, body string, data map[string]string) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
		defer cancel()

		token, err := s.tokens.Get(ctx, userID)
		if err != nil {
			logging.Warn().Err(err).Str("user_id", userID).Msg("failed to load device token")
			return
		}
		if token == "" {
			return
		}

		payload := models.PushPayload{Token: token, Title: title, Body: body, Data: data}
		if err := s.pusher.Push(ctx, payload); err != nil {
			logging.Warn().Err(err).Str("user_id", userID).Msg("failed to push notification")
		}
	}()
}

// Wait blocks until in-flight pushes have finished
func (s *NotificationService) Wait() {
	s.pending.Wait()
}

// ListUnread returns the user's unread notifications, newest first
func (s *NotificationService) ListUnread(ctx context.Context, userID string) ([]models.Notification, error) {
	list, err := s.notifications.ListUnread(ctx, userID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.Notification{}
	}
	return list, nil
}

// UnreadCount counts unread notifications, optionally of one type
func (s *NotificationService) UnreadCount(ctx context.Context, userID, typ string) (int, error) {
	return s.notifications.CountUnread(ctx, userID, typ)
}

// MarkRead marks one of the user's notifications as read
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	return s.notifications.MarkRead(ctx, userID, id)
}

// RegisterToken stores the user's device token, replacing any previous one
func (s *NotificationService) RegisterToken(ctx context.Context, userID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: empty device token", models.ErrInvalidInput)
	}
	return s.tokens.Save(ctx, userID, token, s.now())
}

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/nearu/nearu-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationService_PushNeedsToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.notifications.Notify(ctx, "u1", models.NotificationMessage, "New Message", "You have a new message!", "u2")
	require.NoError(t, err)
	env.notifications.Wait()
	assert.Empty(t, env.pusher.Payloads())

	require.NoError(t, env.notifications.RegisterToken(ctx, "u1", "old"))
	require.NoError(t, env.notifications.RegisterToken(ctx, "u1", "new"))

	n, err := env.notifications.Notify(ctx, "u1", models.NotificationMessage, "New Message", "You have a new message!", "u2")
	require.NoError(t, err)
	env.notifications.Wait()

	payloads := env.pusher.Payloads()
	require.Len(t, payloads, 1)
	assert.Equal(t, "new", payloads[0].Token)
	assert.Equal(t, n.ID, payloads[0].Data["notificationId"])
	assert.Equal(t, models.NotificationMessage, payloads[0].Data["type"])
}

func TestNotificationService_PushFailureIsNotReturned(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.pusher.Err = errors.New("broker down")

	require.NoError(t, env.notifications.RegisterToken(ctx, "u1", "tok"))
	_, err := env.notifications.Notify(ctx, "u1", models.NotificationChatUnlocked, "Chat Unlocked", "body", "")
	require.NoError(t, err)
	env.notifications.Wait()
	assert.Len(t, env.pusher.Payloads(), 1)
}

func TestNotificationService_ReadFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.notifications.Notify(ctx, "u1", models.NotificationMessage, "t", "b", "u2")
	require.NoError(t, err)
	_, err = env.notifications.Notify(ctx, "u1", models.NotificationMatchRequest, "t", "b", "u3")
	require.NoError(t, err)

	count, err := env.notifications.UnreadCount(ctx, "u1", "")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, env.notifications.MarkRead(ctx, "u1", first.ID))
	assert.True(t, errors.Is(env.notifications.MarkRead(ctx, "u2", first.ID), models.ErrNotFound))

	list, err := env.notifications.ListUnread(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.NotificationMatchRequest, list[0].Type)

	assert.True(t, errors.Is(env.notifications.RegisterToken(ctx, "u1", "  "), models.ErrInvalidInput))
}

package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/nearu/nearu-backend/internal/feed"
	"github.com/nearu/nearu-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresenceService_NearbyFilters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// seen 2 hours ago
	env.seedUser(t, "stale", "Stale", &mc)
	env.clock.Advance(2 * time.Hour)

	env.seedUser(t, "me", "Me", &dcLibrary)
	env.seedUser(t, "close", "Close", &dcLibrary)
	env.seedUser(t, "mc", "", &mc)
	env.seedUser(t, "ghost", "Ghost", &mc)
	require.NoError(t, env.presence.SetGhostMode(ctx, "ghost", true))
	env.seedUser(t, "far", "Far", &farAway)
	env.seedUser(t, "nolocation", "No Location", nil)

	nearby, err := env.presence.Nearby(ctx, "me")
	require.NoError(t, err)
	require.Len(t, nearby, 2)

	assert.Equal(t, "close", nearby[0].UserID)
	assert.InDelta(t, 0, nearby[0].DistanceMeters, 0.001)
	assert.Equal(t, "mc", nearby[1].UserID)
	assert.Equal(t, "Unknown", nearby[1].DisplayName)
	assert.Greater(t, nearby[1].DistanceMeters, 20.0)
	assert.Less(t, nearby[1].DistanceMeters, 40.0)
}

func TestPresenceService_NearbyWithoutLocation(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "me", "Me", nil)

	nearby, err := env.presence.Nearby(context.Background(), "me")
	require.NoError(t, err)
	assert.Empty(t, nearby)
}

func TestPresenceService_CheckinSkipsSmallMoves(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := dcLibrary
	_, err := env.presence.Checkin(ctx, "me", first)
	require.NoError(t, err)

	env.clock.Advance(time.Minute)
	// roughly 11 m north
	nudged := dcLibrary
	nudged.Latitude += 0.0001
	res, err := env.presence.Checkin(ctx, "me", nudged)
	require.NoError(t, err)
	assert.True(t, res.Accepted)

	u, err := env.presence.GetProfile(ctx, "me")
	require.NoError(t, err)
	require.NotNil(t, u.Location)
	assert.Equal(t, first.Latitude, u.Location.Latitude)
	assert.Equal(t, env.clock.Now().UnixMilli(), u.LastActive.UnixMilli())
	assert.True(t, u.IsActive)

	// roughly 100 m north
	moved := dcLibrary
	moved.Latitude += 0.0009
	_, err = env.presence.Checkin(ctx, "me", moved)
	require.NoError(t, err)
	u, err = env.presence.GetProfile(ctx, "me")
	require.NoError(t, err)
	assert.Equal(t, moved.Latitude, u.Location.Latitude)
}

func TestPresenceService_CheckinRejectsInvalidLocation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.presence.Checkin(context.Background(), "me", models.Location{Latitude: 91, Longitude: 0})
	assert.True(t, errors.Is(err, models.ErrInvalidLocation))

	_, err = env.presence.Checkin(context.Background(), "me", models.Location{Latitude: math.NaN(), Longitude: 0})
	assert.True(t, errors.Is(err, models.ErrInvalidLocation))
}

func TestPresenceService_CheckinPublishesChange(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := env.feed.Subscribe(ctx)
	require.NoError(t, err)

	_, err = env.presence.Checkin(ctx, "me", dcLibrary)
	require.NoError(t, err)

	select {
	case ev := <-events:
		assert.Equal(t, feed.EventLocation, ev.Type)
		assert.Equal(t, "me", ev.UserID)
	case <-time.After(time.Second):
		t.Fatal("no change event")
	}
}

func TestPresenceService_GhostAndSignOut(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "other", "Other", &dcLibrary)

	require.NoError(t, env.presence.SetGhostMode(ctx, "me", true))
	res, err := env.presence.Checkin(ctx, "me", dcLibrary)
	require.NoError(t, err)
	assert.Empty(t, res.Nearby)
	assert.Empty(t, res.Crossings)

	u, err := env.presence.GetProfile(ctx, "me")
	require.NoError(t, err)
	assert.True(t, u.GhostMode)
	assert.False(t, u.IsActive)

	nearby, err := env.presence.Nearby(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, nearby)

	require.NoError(t, env.presence.SignOut(ctx, "other"))
	u, err = env.presence.GetProfile(ctx, "other")
	require.NoError(t, err)
	assert.False(t, u.IsActive)
}

func TestPresenceService_ProfileNotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.presence.GetProfile(context.Background(), "nobody")
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nearu/nearu-backend/internal/crossing"
	"github.com/nearu/nearu-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrossingService_UnlocksAfterThreeCrossings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "other", "Other", &dcLibrary)

	checkin := func() models.PairStatus {
		t.Helper()
		res, err := env.presence.Checkin(ctx, "me", dcLibrary)
		require.NoError(t, err)
		require.Len(t, res.Crossings, 1)
		return res.Crossings[0]
	}

	first := checkin()
	assert.Equal(t, 1, first.Crossings)
	assert.Equal(t, models.PhaseBelowThreshold, first.Phase)
	assert.False(t, first.ChatUnlocked)

	env.clock.Advance(time.Second)
	assert.Equal(t, 2, checkin().Crossings)

	// inside the debounce window
	env.clock.Advance(100 * time.Millisecond)
	assert.Equal(t, 2, checkin().Crossings)

	env.clock.Advance(time.Second)
	third := checkin()
	assert.Equal(t, 3, third.Crossings)
	assert.Equal(t, 3, third.RequiredCrossings)
	assert.Equal(t, models.PhaseUnlocked, third.Phase)
	assert.True(t, third.ChatUnlocked)
	assert.True(t, third.NewlyUnlocked)

	env.clock.Advance(time.Second)
	assert.False(t, checkin().NewlyUnlocked)

	env.notifications.Wait()
	for _, uid := range []string{"me", "other"} {
		n, err := env.notifications.UnreadCount(ctx, uid, models.NotificationChatUnlocked)
		require.NoError(t, err)
		assert.Equal(t, 1, n, uid)
	}

	// either side reaching the threshold unlocks the pair
	otherSide, err := env.crossings.Status(ctx, "other", "me")
	require.NoError(t, err)
	assert.Equal(t, 0, otherSide.Crossings)
	assert.Equal(t, 4, otherSide.OtherCrossings)
	assert.Equal(t, models.PhaseBelowThreshold, otherSide.Phase)
	assert.True(t, otherSide.ChatUnlocked)
}

func TestCrossingService_UnlockIsSticky(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "other", "Other", &dcLibrary)

	for i := 0; i < 3; i++ {
		_, err := env.presence.Checkin(ctx, "me", dcLibrary)
		require.NoError(t, err)
		env.clock.Advance(time.Second)
	}

	// past retention, and too far apart to cross again
	env.clock.Advance(7 * time.Minute)
	res, err := env.presence.Checkin(ctx, "me", mc)
	require.NoError(t, err)
	require.Len(t, res.Crossings, 1)

	status := res.Crossings[0]
	assert.Equal(t, 0, status.Crossings)
	assert.Equal(t, models.PhaseBelowThreshold, status.Phase)
	assert.True(t, status.ChatUnlocked)
	assert.False(t, status.NewlyUnlocked)

	rec, err := env.crossingRepo.Get(ctx, status.PairID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Empty(t, rec.State.Events)
	assert.NotNil(t, rec.UnlockedAt)
}

func TestCrossingService_StatusWithoutHistory(t *testing.T) {
	env := newTestEnv(t)

	status, err := env.crossings.Status(context.Background(), "me", "stranger")
	require.NoError(t, err)
	assert.Equal(t, "2:me_stranger", status.PairID)
	assert.Equal(t, models.PhaseNoHistory, status.Phase)
	assert.False(t, status.ChatUnlocked)

	_, err = env.crossings.Status(context.Background(), "me", "me")
	assert.True(t, errors.Is(err, models.ErrInvalidInput))
}

func TestCrossingService_RecordRejectsInvalidLocation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.crossings.Record(context.Background(), env.clock.Now().UnixMilli(), "a", "b",
		models.Location{Latitude: 200}, dcLibrary)
	assert.True(t, errors.Is(err, models.ErrInvalidLocation))

	rec, err := env.crossingRepo.Get(context.Background(), crossing.PairID("a", "b"))
	require.NoError(t, err)
	assert.Nil(t, rec)
}

// about 30 m north of dcLibrary
var dcLibraryNorth = models.Location{Latitude: 43.47257, Longitude: -80.5449, Accuracy: models.Meters(5)}

func TestCrossingService_UsesCounterpartyLatestSample(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.presence.Checkin(ctx, "other", dcLibrary)
	require.NoError(t, err)
	env.clock.Advance(time.Second)
	_, err = env.presence.Checkin(ctx, "other", dcLibraryNorth)
	require.NoError(t, err)

	// the public location stays put for a move under 50 m
	other, err := env.presence.GetProfile(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, dcLibrary.Latitude, other.Location.Latitude)

	for i := 0; i < 3; i++ {
		env.clock.Advance(time.Second)
		res, err := env.presence.Checkin(ctx, "me", dcLibrary)
		require.NoError(t, err)
		require.Len(t, res.Crossings, 1)
		assert.Equal(t, 0, res.Crossings[0].Crossings)
		assert.False(t, res.Crossings[0].ChatUnlocked)
	}
}

func TestCrossingService_CountsCounterpartyWhoMovedCloser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.presence.Checkin(ctx, "other", dcLibraryNorth)
	require.NoError(t, err)
	env.clock.Advance(time.Second)
	_, err = env.presence.Checkin(ctx, "other", dcLibrary)
	require.NoError(t, err)

	env.clock.Advance(time.Second)
	res, err := env.presence.Checkin(ctx, "me", dcLibrary)
	require.NoError(t, err)
	require.Len(t, res.Crossings, 1)
	assert.Equal(t, 1, res.Crossings[0].Crossings)
}

func TestCrossingService_ZeroDebounceKeepsEveryEvent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cfg := crossing.TestModeConfig()
	cfg.Debounce = 0
	svc := NewCrossingService(env.crossingRepo, env.matchRepo, crossing.NewAccumulator(cfg), env.notifications, nil)

	nowMs := env.clock.Now().UnixMilli()
	for want := 1; want <= 3; want++ {
		status, err := svc.Record(ctx, nowMs, "a", "b", dcLibrary, dcLibrary)
		require.NoError(t, err)
		assert.Equal(t, want, status.Crossings)
	}
}

func TestCrossingService_RecordReportsAcceptedMatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "me", "Me", nil)
	env.seedUser(t, "other", "Other", &dcLibrary)

	req, err := env.matches.Create(ctx, "me", models.CreateMatchRequest{ToUserID: "other"})
	require.NoError(t, err)
	_, err = env.matches.Accept(ctx, "other", req.ID)
	require.NoError(t, err)

	status, err := env.crossings.Record(ctx, env.clock.Now().UnixMilli(), "me", "other", dcLibrary, dcLibrary)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Crossings)
	assert.True(t, status.ChatUnlocked)

	viaStatus, err := env.crossings.Status(ctx, "me", "other")
	require.NoError(t, err)
	assert.Equal(t, viaStatus.ChatUnlocked, status.ChatUnlocked)
}

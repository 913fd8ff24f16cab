package service

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nearu/nearu-backend/internal/crossing"
	"github.com/nearu/nearu-backend/internal/database"
	"github.com/nearu/nearu-backend/internal/feed"
	"github.com/nearu/nearu-backend/internal/models"
	"github.com/nearu/nearu-backend/internal/notify"
	"github.com/nearu/nearu-backend/internal/repository"
	"github.com/stretchr/testify/require"
)

// Campus reference points
var (
	dcLibrary = models.Location{Latitude: 43.4723, Longitude: -80.5449, Accuracy: models.Meters(5)}
	mc        = models.Location{Latitude: 43.4721, Longitude: -80.5447, Accuracy: models.Meters(5)}
	farAway   = models.Location{Latitude: 43.4900, Longitude: -80.5449, Accuracy: models.Meters(5)}
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	db            *sql.DB
	users         *repository.UserRepository
	crossingRepo  *repository.CrossingRepository
	matchRepo     *repository.MatchRequestRepository
	notifications *NotificationService
	crossings     *CrossingService
	presence      *PresenceService
	matches       *MatchRequestService
	chat          *ChatService
	sessions      *SessionManager
	pusher        *notify.RecordingPusher
	feed          *feed.MemoryFeed
	clock         *fakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "nearu.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clock := &fakeClock{t: time.UnixMilli(1_700_000_000_000)}
	env := &testEnv{
		db:           db,
		users:        repository.NewUserRepository(db),
		crossingRepo: repository.NewCrossingRepository(db),
		pusher:       &notify.RecordingPusher{},
		feed:         feed.NewMemoryFeed(),
		clock:        clock,
	}
	matchRepo := repository.NewMatchRequestRepository(db)
	env.matchRepo = matchRepo

	env.notifications = NewNotificationService(
		repository.NewNotificationRepository(db), repository.NewTokenRepository(db), env.pusher)
	env.notifications.now = clock.Now

	env.crossings = NewCrossingService(env.crossingRepo, matchRepo,
		crossing.NewAccumulator(crossing.TestModeConfig()), env.notifications, nil)

	env.presence = NewPresenceService(env.users, env.crossings, env.feed, nil, DefaultPresenceConfig())
	env.presence.now = clock.Now

	env.matches = NewMatchRequestService(matchRepo, env.users, env.notifications)
	env.matches.now = clock.Now

	env.chat = NewChatService(repository.NewMessageRepository(db), env.crossings, env.notifications)
	env.chat.now = clock.Now

	env.sessions = NewSessionManager(env.presence, nil)
	t.Cleanup(env.sessions.StopAll)
	t.Cleanup(env.notifications.Wait)
	return env
}

// seedUser creates an active user at loc, last seen now
func (e *testEnv) seedUser(t *testing.T, id, name string, loc *models.Location) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.users.UpsertProfile(ctx, id, name, "Computer Science", "", e.clock.Now()))
	if loc != nil {
		l := *loc
		l.Timestamp = e.clock.Now().UnixMilli()
		require.NoError(t, e.users.UpdatePresence(ctx, id, &l, true, e.clock.Now()))
	}
}

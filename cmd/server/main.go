package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nearu/nearu-backend/internal/api"
	"github.com/nearu/nearu-backend/internal/config"
	"github.com/nearu/nearu-backend/internal/crossing"
	"github.com/nearu/nearu-backend/internal/database"
	"github.com/nearu/nearu-backend/internal/feed"
	"github.com/nearu/nearu-backend/internal/handler"
	"github.com/nearu/nearu-backend/internal/logging"
	"github.com/nearu/nearu-backend/internal/metrics"
	"github.com/nearu/nearu-backend/internal/middleware"
	"github.com/nearu/nearu-backend/internal/notify"
	"github.com/nearu/nearu-backend/internal/repository"
	"github.com/nearu/nearu-backend/internal/service"
	"github.com/nearu/nearu-backend/internal/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load config")
	}

	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if cfg.AppEnv != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 初始化数据库
	db, err := database.Open(database.Config{Path: cfg.DBPath})
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.NewCollector(reg)

	changes, closeFeed := openFeed(ctx, cfg)
	defer closeFeed()

	pusher, closePusher := openPusher(cfg)
	defer closePusher()

	users := repository.NewUserRepository(db)
	matchRepo := repository.NewMatchRequestRepository(db)

	notifications := service.NewNotificationService(
		repository.NewNotificationRepository(db), repository.NewTokenRepository(db), pusher)
	crossings := service.NewCrossingService(
		repository.NewCrossingRepository(db), matchRepo, crossing.NewAccumulator(cfg.Crossing), notifications, rec)
	presence := service.NewPresenceService(users, crossings, changes, rec, service.PresenceConfig{
		NearbyRadiusMeters: cfg.NearbyRadiusMeters,
		ActiveWindow:       cfg.ActiveWindow,
		MinMoveMeters:      cfg.MinMoveMeters,
	})
	sessions := service.NewSessionManager(presence, rec)
	defer sessions.StopAll()
	go sessions.Run(ctx, 5*time.Minute)

	hub := websocket.NewHub(presence.Nearby)
	events, err := changes.Subscribe(ctx)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to subscribe to user changes")
	}
	go func() {
		if err := hub.Run(ctx, events); err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("websocket hub stopped")
		}
	}()

	if len(cfg.SimulatedUsers) > 0 {
		sim := service.NewSimulator(presence, cfg.SimulatedUsers, cfg.SimulationInterval)
		if err := sim.Start(ctx); err != nil {
			logging.Fatal().Err(err).Msg("failed to start simulator")
		}
		defer sim.Stop()
	}

	limiter := middleware.NewRateLimiter(cfg.RLRequestsPerSecond, cfg.RLBurst, 5*time.Minute)
	defer limiter.Stop()

	// 初始化路由
	router := api.SetupRouter(api.Handlers{
		User:         handler.NewUserHandler(presence, sessions),
		Location:     handler.NewLocationHandler(presence, sessions),
		Crossing:     handler.NewCrossingHandler(crossings),
		MatchRequest: handler.NewMatchRequestHandler(service.NewMatchRequestService(matchRepo, users, notifications)),
		Message:      handler.NewMessageHandler(service.NewChatService(repository.NewMessageRepository(db), crossings, notifications)),
		Notification: handler.NewNotificationHandler(notifications),
		Websocket:    handler.NewWebsocketHandler(hub),
	}, api.Options{
		Verifier:    middleware.NewTokenVerifier(cfg.JWTSecret, cfg.JWTIssuer),
		RateLimiter: limiter,
		Metrics:     rec,
		Gatherer:    reg,
	})

	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 启动服务器
	go func() {
		logging.Info().
			Str("port", cfg.Port).
			Bool("test_mode", cfg.TestMode).
			Dur("crossing_debounce", cfg.Crossing.Debounce).
			Dur("crossing_retention", cfg.Crossing.Retention).
			Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	logging.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("server shutdown failed")
	}
	notifications.Wait()
}

// openFeed selects Redis when REDIS_ADDR is set, the in-process feed otherwise
func openFeed(ctx context.Context, cfg *config.Config) (feed.Feed, func()) {
	if cfg.RedisAddr == "" {
		logging.Info().Msg("using in-process change feed")
		return feed.NewMemoryFeed(), func() {}
	}

	rf := feed.NewRedisFeed(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rf.Ping(pingCtx); err != nil {
		logging.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("failed to connect to redis")
	}
	logging.Info().Str("addr", cfg.RedisAddr).Msg("using redis change feed")
	return rf, func() { _ = rf.Close() }
}

// openPusher selects RabbitMQ when RABBITMQ_URL is set, log-only delivery otherwise
func openPusher(cfg *config.Config) (notify.Pusher, func()) {
	if cfg.RabbitURL == "" {
		logging.Info().Msg("push notifications will be logged only")
		return notify.LogPusher{}, func() {}
	}

	p, err := notify.NewAMQPPusher(cfg.RabbitURL, cfg.RabbitExchange)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to connect push publisher")
	}
	logging.Info().Str("exchange", cfg.RabbitExchange).Msg("publishing push notifications to rabbitmq")
	return p, p.Close
}

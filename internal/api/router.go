package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nearu/nearu-backend/internal/handler"
	"github.com/nearu/nearu-backend/internal/metrics"
	"github.com/nearu/nearu-backend/internal/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// Handlers groups every HTTP handler the router mounts
type Handlers struct {
	User         *handler.UserHandler
	Location     *handler.LocationHandler
	Crossing     *handler.CrossingHandler
	MatchRequest *handler.MatchRequestHandler
	Message      *handler.MessageHandler
	Notification *handler.NotificationHandler
	Websocket    *handler.WebsocketHandler
}

// Options carries the cross-cutting pieces of the router
type Options struct {
	Verifier    *middleware.TokenVerifier
	RateLimiter *middleware.RateLimiter
	Metrics     metrics.Recorder
	Gatherer    prometheus.Gatherer
}

// SetupRouter 设置路由
func SetupRouter(h Handlers, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(opts.Metrics))

	// CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "NearU API is running",
		})
	})
	if opts.Gatherer != nil {
		r.GET("/metrics", metrics.GinHandler(opts.Gatherer))
	}

	api := r.Group("/api/v1")
	if opts.RateLimiter != nil {
		api.Use(opts.RateLimiter.Middleware())
	}
	api.Use(middleware.Auth(opts.Verifier))
	{
		me := api.Group("/me")
		{
			me.GET("", h.User.GetMe)
			me.PUT("", h.User.UpdateMe)
			me.PUT("/ghost-mode", h.User.SetGhostMode)
			me.POST("/sign-out", h.User.SignOut)
		}

		loc := api.Group("/location")
		{
			loc.POST("/samples", h.Location.SubmitSample)
			loc.POST("/checkin", h.Location.Checkin)
		}
		api.GET("/nearby", h.Location.Nearby)

		api.GET("/crossings/:userId", h.Crossing.GetStatus)

		matches := api.Group("/match-requests")
		{
			matches.POST("", h.MatchRequest.Create)
			matches.GET("", h.MatchRequest.ListPending)
			matches.POST("/:id/accept", h.MatchRequest.Accept)
			matches.POST("/:id/reject", h.MatchRequest.Reject)
		}

		messages := api.Group("/messages")
		{
			messages.GET("", h.Message.ListConversations)
			messages.GET("/:userId", h.Message.List)
			messages.POST("/:userId", h.Message.Send)
		}

		notifications := api.Group("/notifications")
		{
			notifications.GET("", h.Notification.ListUnread)
			notifications.POST("/:id/read", h.Notification.MarkRead)
		}
		api.PUT("/devices/token", h.Notification.RegisterToken)

		if h.Websocket != nil {
			api.GET("/ws", h.Websocket.Serve)
		}
	}

	return r
}

package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"room-status-backend/config"
	"room-status-backend/internal/auth"
	"room-status-backend/internal/mw"
	"room-status-backend/internal/notification"
	"room-status-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg *config.Config, s store.Store, sessions *auth.Sessions, webpushOptions *webpush.Options, pool *notification.WorkerPool) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(cfg, s, sessions, webpushOptions, pool)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)

	// A cache TTL of zero disables response caching entirely.
	var caching gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if cfg.Server.CacheTTLSeconds > 0 {
		cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
		cacheStore := cache.New(cacheTTL, 10*cacheTTL)
		caching = mw.Cache(cacheStore, cacheTTL)
	}

	// API group
	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		// Public, read-only
		api.GET("/status", caching, handler.GetStatus)
		api.GET("/layout", caching, handler.GetLayout)

		// Lease operations
		api.POST("/start", handler.StartLease)
		api.POST("/finish", handler.FinishLease)
		api.POST("/heartbeat", handler.Heartbeat)

		// Identity
		api.POST("/session", handler.PostSession)
		api.GET("/session", handler.GetSession)
		api.DELETE("/session", handler.DeleteSession)

		// Push subscriptions
		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}

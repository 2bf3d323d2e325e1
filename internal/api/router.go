package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"parkbot/config"
	"parkbot/internal/mw"
)

// NewRouter creates and configures the admin router. events serves the Slack
// Events API webhook and is not rate limited; Slack retries on its own.
func NewRouter(cfg config.ServerConfig, handler *Handler, events gin.HandlerFunc) *gin.Engine {
	r := gin.Default()

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst, cfg.RequestIPHeader)

	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(ttl, 2*ttl)
	caching := mw.Cache(cacheStore, ttl)

	r.GET("/healthz", handler.Health)
	if events != nil {
		r.POST("/slack/events", events)
	}

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/sessions", caching, handler.ListSessions)
		api.GET("/sessions/:user_id", caching, handler.GetSession)

		api.PUT("/locations", handler.PutLocation)
		api.GET("/locations/:user_id", handler.GetLocation)
		api.DELETE("/locations/:user_id", handler.DeleteLocation)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}

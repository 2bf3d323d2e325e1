package api

import (
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"parkbot/internal/session"
	"parkbot/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	sessions session.Store
	store    store.Store
	webpush  *webpush.Options
}

// NewHandler creates a new API handler. webpushOptions may be nil when push
// mirroring is disabled.
func NewHandler(sessions session.Store, s store.Store, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		sessions: sessions,
		store:    s,
		webpush:  webpushOptions,
	}
}

// Health reports liveness and the number of tracked sessions.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": h.sessions.Len()})
}

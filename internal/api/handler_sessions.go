package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"parkbot/internal/session"
)

// sessionResponse is the JSON view of a parking session.
type sessionResponse struct {
	UserID           string     `json:"userId"`
	DisplayName      string     `json:"displayName,omitempty"`
	Email            string     `json:"email,omitempty"`
	ReplyChannel     string     `json:"replyChannel"`
	StartTime        time.Time  `json:"startTime"`
	DurationMinutes  int64      `json:"durationMinutes"`
	Expiry           time.Time  `json:"expiry"`
	RemainingSeconds int64      `json:"remainingSeconds"`
	Expired          bool       `json:"expired"`
	ReminderSent     bool       `json:"reminderSent"`
	ExpiredSent      bool       `json:"expiredSent"`
	AlertTime        *time.Time `json:"alertTime,omitempty"`
}

func newSessionResponse(s session.Session, now time.Time) sessionResponse {
	return sessionResponse{
		UserID:           s.UserID,
		DisplayName:      s.DisplayName,
		Email:            s.Email,
		ReplyChannel:     s.ReplyChannel,
		StartTime:        s.StartTime,
		DurationMinutes:  int64(s.Duration / time.Minute),
		Expiry:           s.Expiry(),
		RemainingSeconds: int64(s.Remaining(now) / time.Second),
		Expired:          s.Expired(now),
		ReminderSent:     s.ReminderSent,
		ExpiredSent:      s.ExpiredSent,
		AlertTime:        s.AlertTime,
	}
}

// ListSessions handles GET /api/sessions.
func (h *Handler) ListSessions(c *gin.Context) {
	now := time.Now()
	snapshot := h.sessions.Snapshot()

	response := make([]sessionResponse, 0, len(snapshot))
	for _, s := range snapshot {
		response = append(response, newSessionResponse(s, now))
	}
	c.JSON(http.StatusOK, response)
}

// GetSession handles GET /api/sessions/:user_id.
func (h *Handler) GetSession(c *gin.Context) {
	s, ok := h.sessions.Get(c.Param("user_id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, newSessionResponse(s, time.Now()))
}

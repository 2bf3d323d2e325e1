package slack

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	slackapi "github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkbot/config"
	"parkbot/internal/chat"
)

func testConfig(baseURL string) config.SlackConfig {
	return config.SlackConfig{
		BotToken:   "xoxb-test",
		APIBaseURL: baseURL,
		Username:   "Parkbot",
		IconEmoji:  ":car:",
		RatePerSec: 1000,
		RateBurst:  100,
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(testConfig(server.URL))
}

// hasToken accepts the bot token either as a bearer header or a form field.
func hasToken(r *http.Request) bool {
	return r.Header.Get("Authorization") == "Bearer xoxb-test" || r.FormValue("token") == "xoxb-test"
}

func TestClient_SendMessage(t *testing.T) {
	var form map[string]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat.postMessage", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, r.ParseForm())
		assert.True(t, hasToken(r))
		form = map[string]string{}
		for _, k := range []string{"channel", "text", "username", "icon_emoji", "attachments"} {
			form[k] = r.FormValue(k)
		}
		w.Write([]byte(`{"ok":true,"channel":"D1","ts":"1.2"}`))
	})

	err := client.SendMessage(context.Background(), "D1", "hello",
		chat.Attachment{Title: "Route", ImageURL: "https://maps.example/img.png"})
	require.NoError(t, err)

	assert.Equal(t, "D1", form["channel"])
	assert.Equal(t, "hello", form["text"])
	assert.Equal(t, "Parkbot", form["username"])
	assert.Equal(t, ":car:", form["icon_emoji"])

	var attachments []slackapi.Attachment
	require.NoError(t, json.Unmarshal([]byte(form["attachments"]), &attachments))
	require.Len(t, attachments, 1)
	assert.Equal(t, "https://maps.example/img.png", attachments[0].ImageURL)
	assert.Equal(t, "Route", attachments[0].Fallback)
}

func TestClient_SendMessageAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false,"error":"channel_not_found"}`))
	})

	err := client.SendMessage(context.Background(), "C404", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slack chat.postMessage")
	assert.Contains(t, err.Error(), "channel_not_found")
}

func TestClient_SendMessageRateLimited(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	err := client.SendMessage(context.Background(), "D1", "hello")
	var limited *slackapi.RateLimitedError
	require.True(t, errors.As(err, &limited))
	assert.Equal(t, 30*time.Second, limited.RetryAfter)
}

func TestClient_SendMessageServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	err := client.SendMessage(context.Background(), "D1", "hello")
	var statusErr slackapi.StatusCodeError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.Code)
}

func TestClient_Broadcast(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]int{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		channel := r.FormValue("channel")
		mu.Lock()
		seen[channel]++
		mu.Unlock()
		if channel == "C2" {
			w.Write([]byte(`{"ok":false,"error":"is_archived"}`))
			return
		}
		w.Write([]byte(`{"ok":true}`))
	})

	results := client.Broadcast(context.Background(), []string{"C1", "C2", "C1", "C3"}, "tow truck!")
	require.Len(t, results, 3)
	assert.NoError(t, results["C1"])
	assert.Error(t, results["C2"])
	assert.NoError(t, results["C3"])
	assert.Equal(t, map[string]int{"C1": 1, "C2": 1, "C3": 1}, seen)
}

func TestClient_ResolveUser(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users.info", r.URL.Path)
		assert.Equal(t, "U1", r.FormValue("user"))
		w.Write([]byte(`{"ok":true,"user":{"id":"U1","name":"dana","real_name":"Dana Smith",
			"profile":{"first_name":"Dana","email":"dana@example.com"}}}`))
	})

	u, err := client.ResolveUser(context.Background(), "U1")
	require.NoError(t, err)
	assert.Equal(t, "U1", u.ID)
	assert.Equal(t, "Dana", u.DisplayName)
	assert.Equal(t, "dana@example.com", u.Email)
}

func TestClient_ResolveUserFallsBackToRealName(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true,"user":{"id":"U2","name":"sam","real_name":"Sam Lee","profile":{}}}`))
	})

	u, err := client.ResolveUser(context.Background(), "U2")
	require.NoError(t, err)
	assert.Equal(t, "Sam Lee", u.DisplayName)
	assert.Empty(t, u.Email)
}

func TestClient_ResolveUserNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false,"error":"user_not_found"}`))
	})

	_, err := client.ResolveUser(context.Background(), "U404")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user_not_found")
}

func TestClient_CancelledContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, client.SendMessage(ctx, "D1", "hello"))
}

func TestMessageToEvent(t *testing.T) {
	assert.Equal(t, chat.Event{SenderID: "U1", Channel: "D1", Text: "2P"}, messageToEvent("U1", "D1", "2P", "", ""))
	assert.Equal(t, chat.SubtypeBotMessage, messageToEvent("", "D1", "hi", "", "B1").Subtype)
	assert.Equal(t, "message_changed", messageToEvent("U1", "D1", "", "message_changed", "B1").Subtype)
}

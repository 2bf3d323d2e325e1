package slack

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	slackapi "github.com/slack-go/slack"
	"golang.org/x/time/rate"

	"parkbot/config"
	"parkbot/internal/chat"
	"parkbot/internal/directory"
)

// Client talks to the Slack Web API. It implements chat.Sender and
// directory.Resolver. All calls share one rate limiter.
type Client struct {
	api       *slackapi.Client
	username  string
	iconEmoji string
	limiter   *rate.Limiter
}

// NewClient creates a Web API client from the Slack configuration.
func NewClient(cfg config.SlackConfig) *Client {
	api := slackapi.New(cfg.BotToken,
		slackapi.OptionAPIURL(strings.TrimRight(cfg.APIBaseURL, "/")+"/"),
		slackapi.OptionHTTPClient(&http.Client{Timeout: 30 * time.Second}),
	)
	return &Client{
		api:       api,
		username:  cfg.Username,
		iconEmoji: cfg.IconEmoji,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RateBurst),
	}
}

// SendMessage posts text, and any attachments, to a channel with chat.postMessage.
func (c *Client) SendMessage(ctx context.Context, channel, text string, attachments ...chat.Attachment) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("slack chat.postMessage: rate limiter: %w", err)
	}

	opts := []slackapi.MsgOption{
		slackapi.MsgOptionText(text, false),
		slackapi.MsgOptionUsername(c.username),
		slackapi.MsgOptionIconEmoji(c.iconEmoji),
	}
	if len(attachments) > 0 {
		converted := make([]slackapi.Attachment, 0, len(attachments))
		for _, a := range attachments {
			fallback := a.Title
			if fallback == "" {
				fallback = a.ImageURL
			}
			converted = append(converted, slackapi.Attachment{
				Fallback: fallback,
				Title:    a.Title,
				Text:     a.Text,
				ImageURL: a.ImageURL,
			})
		}
		opts = append(opts, slackapi.MsgOptionAttachments(converted...))
	}

	if _, _, err := c.api.PostMessageContext(ctx, channel, opts...); err != nil {
		return wrapError("chat.postMessage", err)
	}
	return nil
}

// Broadcast posts text to each distinct channel in turn.
func (c *Client) Broadcast(ctx context.Context, channels []string, text string) map[string]error {
	results := make(map[string]error, len(channels))
	for _, ch := range channels {
		if _, done := results[ch]; done {
			continue
		}
		results[ch] = c.SendMessage(ctx, ch, text)
	}
	return results
}

// ResolveUser looks the user up with users.info.
func (c *Client) ResolveUser(ctx context.Context, userID string) (directory.User, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return directory.User{}, fmt.Errorf("slack users.info: rate limiter: %w", err)
	}

	u, err := c.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		return directory.User{}, wrapError("users.info", err)
	}

	p := u.Profile
	name := firstNonEmpty(p.FirstName, p.DisplayName, p.RealName, u.RealName, u.Name)
	return directory.User{ID: userID, DisplayName: name, Email: p.Email}, nil
}

func wrapError(method string, err error) error {
	var limited *slackapi.RateLimitedError
	if errors.As(err, &limited) {
		log.Printf("Slack rate limited %s, retry after %s", method, limited.RetryAfter)
	}
	return fmt.Errorf("slack %s: %w", method, err)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

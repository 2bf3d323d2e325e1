package slack

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	slackapi "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"

	"parkbot/internal/chat"
)

// EventsHandler serves the Events API webhook. Every request must carry a
// valid X-Slack-Signature for signingSecret. It answers the URL verification
// handshake and hands message events to handle in the background, since
// Slack expects an answer within three seconds.
func EventsHandler(signingSecret string, handle func(context.Context, chat.Event)) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
			return
		}

		sv, err := slackapi.NewSecretsVerifier(c.Request.Header, signingSecret)
		if err != nil {
			log.Printf("Rejected Slack event from %s: %v", c.ClientIP(), err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}
		if _, err := sv.Write(body); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if err := sv.Ensure(); err != nil {
			log.Printf("Rejected Slack event from %s: %v", c.ClientIP(), err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}

		outer, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
		if outer.Type == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event payload"})
			return
		}
		if err != nil {
			// Inner event types slackevents does not know are acknowledged
			// so Slack does not keep retrying them.
			log.Printf("Ignoring Slack event: %v", err)
			c.Status(http.StatusOK)
			return
		}

		switch outer.Type {
		case slackevents.URLVerification:
			var challenge slackevents.ChallengeResponse
			if err := json.Unmarshal(body, &challenge); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid challenge"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"challenge": challenge.Challenge})
		case slackevents.CallbackEvent:
			if ev, ok := outer.InnerEvent.Data.(*slackevents.MessageEvent); ok {
				event := messageToEvent(ev.User, ev.Channel, ev.Text, ev.SubType, ev.BotID)
				go handle(context.WithoutCancel(c.Request.Context()), event)
			}
			c.Status(http.StatusOK)
		default:
			c.Status(http.StatusOK)
		}
	}
}

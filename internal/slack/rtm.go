package slack

import (
	"context"
	"log"

	slackapi "github.com/slack-go/slack"

	"parkbot/internal/chat"
)

// Listener receives messages over the RTM websocket and hands each one to
// the handler in its own goroutine. Connection upkeep (pings, reconnects
// with backoff) is left to the slack-go RTM manager.
type Listener struct {
	rtm    *slackapi.RTM
	handle func(context.Context, chat.Event)
}

// NewListener creates a listener that connects through client.
func NewListener(client *Client, handle func(context.Context, chat.Event)) *Listener {
	return &Listener{
		rtm:    client.api.NewRTM(),
		handle: handle,
	}
}

// Run consumes RTM events until ctx is cancelled or the token is rejected.
func (l *Listener) Run(ctx context.Context) {
	log.Println("Starting Slack RTM listener...")
	go l.rtm.ManageConnection()
	defer l.rtm.Disconnect()

	var selfID string
	for {
		select {
		case <-ctx.Done():
			log.Println("Slack RTM listener shutting down.")
			return
		case msg := <-l.rtm.IncomingEvents:
			switch ev := msg.Data.(type) {
			case *slackapi.ConnectedEvent:
				if ev.Info != nil && ev.Info.User != nil {
					selfID = ev.Info.User.ID
				}
				log.Printf("Slack RTM connected as %s (connection %d)", selfID, ev.ConnectionCount)
			case *slackapi.MessageEvent:
				if selfID != "" && ev.User == selfID {
					continue
				}
				go l.handle(ctx, messageToEvent(ev.User, ev.Channel, ev.Text, ev.SubType, ev.BotID))
			case *slackapi.ConnectionErrorEvent:
				log.Printf("Slack RTM connection error (attempt %d): %v", ev.Attempt, ev.ErrorObj)
			case *slackapi.RTMError:
				log.Printf("Slack RTM error: %s", ev.Error())
			case *slackapi.InvalidAuthEvent:
				log.Println("Slack RTM rejected the bot token; listener stopped.")
				return
			}
		}
	}
}

// messageToEvent maps a Slack message onto a chat event. Messages carrying
// a bot_id are reported as bot messages even without the subtype.
func messageToEvent(user, channel, text, subtype, botID string) chat.Event {
	ev := chat.Event{SenderID: user, Channel: channel, Text: text, Subtype: subtype}
	if ev.Subtype == "" && botID != "" {
		ev.Subtype = chat.SubtypeBotMessage
	}
	return ev
}

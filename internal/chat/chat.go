package chat

import (
	"context"
	"errors"
	"sort"
)

// SubtypeBotMessage marks messages posted by bots, including this one.
const SubtypeBotMessage = "bot_message"

// Event is one inbound chat message.
type Event struct {
	SenderID string
	Channel  string
	Text     string
	Subtype  string
}

// FromBot reports whether the event was posted by a bot.
func (e Event) FromBot() bool {
	return e.Subtype == SubtypeBotMessage
}

// Attachment is extra content sent with a message, such as a map image.
type Attachment struct {
	Title    string
	Text     string
	ImageURL string
}

// Sender delivers outbound messages.
type Sender interface {
	SendMessage(ctx context.Context, channel, text string, attachments ...Attachment) error
	// Broadcast posts text to every channel and reports the result per channel.
	// A nil value means that channel was delivered.
	Broadcast(ctx context.Context, channels []string, text string) map[string]error
}

// BroadcastError joins the failed channels of a Broadcast result, or returns
// nil when every channel was delivered.
func BroadcastError(results map[string]error) error {
	channels := make([]string, 0, len(results))
	for ch, err := range results {
		if err != nil {
			channels = append(channels, ch)
		}
	}
	if len(channels) == 0 {
		return nil
	}
	sort.Strings(channels)

	errs := make([]error, 0, len(channels))
	for _, ch := range channels {
		errs = append(errs, &ChannelError{Channel: ch, Err: results[ch]})
	}
	return errors.Join(errs...)
}

// ChannelError is a delivery failure for one channel.
type ChannelError struct {
	Channel string
	Err     error
}

func (e *ChannelError) Error() string {
	return "channel " + e.Channel + ": " + e.Err.Error()
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}

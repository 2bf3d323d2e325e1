package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"parkbot/config"
	"parkbot/internal/chat"
	"parkbot/internal/command"
	"parkbot/internal/directory"
	"parkbot/internal/maps"
	"parkbot/internal/model"
	"parkbot/internal/parse"
	"parkbot/internal/session"
	"parkbot/internal/store"
)

const (
	nobodyParkedText = "Nobody is parked right now."
	noLocationText   = "No location on file. Register one with the parkbot API first."
	noTrafficText    = "Traffic info is unavailable right now."
	timeUpText       = "Your parking time is up."
)

// LocationStore looks up a user's registered commute.
type LocationStore interface {
	GetLocation(ctx context.Context, userID string) (*model.UserLocation, error)
}

// TrafficMapper renders a route between two points.
type TrafficMapper interface {
	GetTrafficImage(ctx context.Context, origin, dest maps.LatLng, mode maps.Mode) (maps.TrafficImage, error)
}

// Handler turns inbound chat messages into session changes and replies.
type Handler struct {
	sessions       session.Store
	sender         chat.Sender
	directory      directory.Resolver
	locations      LocationStore
	mapper         TrafficMapper
	reminderWindow time.Duration
	loc            *time.Location
	now            func() time.Time
	selfID         string
}

// Option customizes a Handler.
type Option func(*Handler)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

// WithSelfID makes the handler ignore messages from the bot's own user.
func WithSelfID(id string) Option {
	return func(h *Handler) { h.selfID = id }
}

// NewHandler wires a command handler. The reminder window and timezone come
// from the scheduler configuration so replies match what the scheduler does.
func NewHandler(cfg config.SchedulerConfig, sessions session.Store, sender chat.Sender, dir directory.Resolver,
	locations LocationStore, mapper TrafficMapper, opts ...Option) *Handler {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	h := &Handler{
		sessions:       sessions,
		sender:         sender,
		directory:      dir,
		locations:      locations,
		mapper:         mapper,
		reminderWindow: cfg.ReminderWindow,
		loc:            loc,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Serve handles one event and logs any failure. It matches the callback
// shape the chat transports expect.
func (h *Handler) Serve(ctx context.Context, ev chat.Event) {
	if err := h.HandleEvent(ctx, ev); err != nil {
		log.Printf("Error handling message from %s in %s: %v", ev.SenderID, ev.Channel, err)
	}
}

// HandleEvent classifies one inbound message and acts on it. Bot messages
// are dropped before classification. The returned error reports a failed
// reply; replies are not retried.
func (h *Handler) HandleEvent(ctx context.Context, ev chat.Event) error {
	if ev.FromBot() || ev.SenderID == "" || (h.selfID != "" && ev.SenderID == h.selfID) {
		return nil
	}

	cmd := command.Classify(ev.Text)
	if cmd.Kind != command.Unknown {
		log.Printf("Command %s from %s in %s", cmd.Kind, ev.SenderID, ev.Channel)
	}
	switch cmd.Kind {
	case command.Park:
		return h.park(ctx, ev, cmd.DurationText)
	case command.List:
		return h.list(ctx, ev)
	case command.Alert:
		return h.alert(ctx, ev)
	case command.GoDriving:
		return h.traffic(ctx, ev, maps.ModeDriving)
	case command.GoTransit:
		return h.traffic(ctx, ev, maps.ModeTransit)
	case command.Status:
		return h.status(ctx, ev)
	default:
		return nil
	}
}

func (h *Handler) park(ctx context.Context, ev chat.Event, durationText string) error {
	if !parse.IsParkNotation(durationText) {
		return nil
	}

	now := h.now()
	sess := session.Session{
		UserID:       ev.SenderID,
		ReplyChannel: ev.Channel,
		StartTime:    now,
		Duration:     parse.Duration(durationText),
	}

	if u, err := h.directory.ResolveUser(ctx, ev.SenderID); err != nil {
		log.Printf("Warning: could not resolve user %s: %v", ev.SenderID, err)
	} else {
		sess.DisplayName = u.DisplayName
		sess.Email = u.Email
	}

	sess = h.sessions.Upsert(sess)
	log.Printf("User %s parked for %s", sess.UserID, sess.Duration)

	return h.sender.SendMessage(ctx, ev.Channel, h.parkText(sess))
}

func (h *Handler) parkText(sess session.Session) string {
	d := parse.FormatDuration(sess.Duration)
	if sess.Duration <= h.reminderWindow {
		return fmt.Sprintf("Parked for %s. That is inside the %s reminder window, so expect a reminder right away.",
			d, parse.FormatDuration(h.reminderWindow))
	}
	return fmt.Sprintf("Parked for %s. I'll remind you %s before your time is up (at %s).",
		d, parse.FormatDuration(h.reminderWindow), h.clock(sess.ReminderAt(h.reminderWindow)))
}

func (h *Handler) list(ctx context.Context, ev chat.Event) error {
	sessions := h.sessions.Snapshot()
	if len(sessions) == 0 {
		return h.sender.SendMessage(ctx, ev.Channel, nobodyParkedText)
	}

	now := h.now()
	lines := make([]string, 0, len(sessions))
	for _, s := range sessions {
		line := fmt.Sprintf("%s parked at %s for %s", s.Label(), h.clock(s.StartTime), parse.FormatDuration(s.Duration))
		if s.Expired(now) {
			line += " (expired)"
		}
		lines = append(lines, line)
	}
	return h.sender.SendMessage(ctx, ev.Channel, strings.Join(lines, "\n"))
}

func (h *Handler) alert(ctx context.Context, ev chat.Event) error {
	sessions := h.sessions.Snapshot()
	if len(sessions) == 0 {
		return nil
	}

	now := h.now()
	alerter := "<@" + ev.SenderID + ">"
	if u, err := h.directory.ResolveUser(ctx, ev.SenderID); err != nil {
		log.Printf("Warning: could not resolve alerting user %s: %v", ev.SenderID, err)
	} else if u.DisplayName != "" {
		alerter = u.DisplayName
	}
	h.sessions.SetAlertTime(ev.SenderID, now)

	seen := make(map[string]bool, len(sessions))
	channels := make([]string, 0, len(sessions))
	for _, s := range sessions {
		if s.ReplyChannel == "" || seen[s.ReplyChannel] {
			continue
		}
		seen[s.ReplyChannel] = true
		channels = append(channels, s.ReplyChannel)
	}

	text := fmt.Sprintf("Parking alert raised by %s at %s. Check on your car!", alerter, h.clock(now))
	log.Printf("User %s raised an alert to %d channels", ev.SenderID, len(channels))
	return chat.BroadcastError(h.sender.Broadcast(ctx, channels, text))
}

func (h *Handler) traffic(ctx context.Context, ev chat.Event, mode maps.Mode) error {
	loc, err := h.locations.GetLocation(ctx, ev.SenderID)
	if errors.Is(err, store.ErrNotFound) {
		return h.sender.SendMessage(ctx, ev.Channel, noLocationText)
	}
	if err != nil {
		return fmt.Errorf("failed to look up location for %s: %w", ev.SenderID, err)
	}

	origin := maps.LatLng{Lat: loc.OriginLat, Lng: loc.OriginLng}
	dest := maps.LatLng{Lat: loc.DestLat, Lng: loc.DestLng}
	img, err := h.mapper.GetTrafficImage(ctx, origin, dest, mode)
	if err != nil {
		sendErr := h.sender.SendMessage(ctx, ev.Channel, noTrafficText)
		return errors.Join(fmt.Errorf("traffic lookup for %s: %w", ev.SenderID, err), sendErr)
	}

	return h.sender.SendMessage(ctx, ev.Channel, img.Summary,
		chat.Attachment{Title: img.Summary, ImageURL: img.URL})
}

func (h *Handler) status(ctx context.Context, ev chat.Event) error {
	sess, ok := h.sessions.Get(ev.SenderID)
	if !ok {
		return nil
	}

	left := sess.Remaining(h.now())
	if left == 0 {
		return h.sender.SendMessage(ctx, ev.Channel, timeUpText)
	}

	minutes := int((left + time.Minute - 1) / time.Minute)
	unit := "minutes"
	if minutes == 1 {
		unit = "minute"
	}
	return h.sender.SendMessage(ctx, ev.Channel,
		fmt.Sprintf("%d %s left on your parking (until %s).", minutes, unit, h.clock(sess.Expiry())))
}

func (h *Handler) clock(t time.Time) string {
	return t.In(h.loc).Format("15:04")
}

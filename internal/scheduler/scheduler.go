package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"parkbot/config"
	"parkbot/internal/chat"
	"parkbot/internal/parse"
	"parkbot/internal/session"
)

// Mirror receives a copy of every notification that reached chat.
// TryDispatch must not block.
type Mirror interface {
	TryDispatch(userID, message string) bool
}

// TickResult summarizes one pass over the store.
type TickResult struct {
	Reminders int
	Expiries  int
	Failures  int
}

// Scheduler raises reminder and expiry notifications for parked users.
type Scheduler struct {
	store          session.Store
	sender         chat.Sender
	mirror         Mirror
	interval       time.Duration
	reminderWindow time.Duration
	sendTimeout    time.Duration
	loc            *time.Location
	now            func() time.Time
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithMirror forwards delivered notifications to m.
func WithMirror(m Mirror) Option {
	return func(s *Scheduler) { s.mirror = m }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New creates a scheduler using the interval, reminder window, send timeout
// and timezone from cfg.
func New(cfg config.SchedulerConfig, store session.Store, sender chat.Sender, opts ...Option) *Scheduler {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	s := &Scheduler{
		store:          store,
		sender:         sender,
		interval:       cfg.Interval,
		reminderWindow: cfg.ReminderWindow,
		sendTimeout:    cfg.SendTimeout,
		loc:            loc,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run ticks on the configured interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	log.Printf("Starting expiry scheduler (interval %s, reminder window %s)...", s.interval, s.reminderWindow)

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Expiry scheduler shutting down.")
			return
		case <-timer.C:
			s.Tick(ctx)
			timer.Reset(s.interval)
		}
	}
}

// Tick evaluates every session once. The store is only read through a
// snapshot; flags are set after a dispatch succeeds, and only if the session
// has not been replaced in the meantime.
func (s *Scheduler) Tick(ctx context.Context) TickResult {
	var res TickResult
	now := s.now()

	for _, sess := range s.store.Snapshot() {
		if ctx.Err() != nil {
			return res
		}

		// A reminder still pending once the expiry notice went out is stale
		// and would arrive after it, so it is dropped.
		if !sess.ReminderSent && !sess.ExpiredSent && !now.Before(sess.ReminderAt(s.reminderWindow)) {
			if s.notify(ctx, sess, s.reminderText(sess, now)) {
				s.store.MarkReminderSent(sess.UserID, sess.ID)
				res.Reminders++
			} else {
				res.Failures++
			}
		}

		if !sess.ExpiredSent && sess.Expired(now) {
			if s.notify(ctx, sess, expiryText(sess)) {
				s.store.MarkExpiredSent(sess.UserID, sess.ID)
				res.Expiries++
			} else {
				res.Failures++
			}
		}
	}

	if res != (TickResult{}) {
		log.Printf("Scheduler tick: %d reminders, %d expiries, %d failures", res.Reminders, res.Expiries, res.Failures)
	}
	return res
}

func (s *Scheduler) notify(ctx context.Context, sess session.Session, text string) bool {
	sendCtx := ctx
	if s.sendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, s.sendTimeout)
		defer cancel()
	}

	if err := s.sender.SendMessage(sendCtx, sess.ReplyChannel, text); err != nil {
		log.Printf("Error notifying user %s on channel %s: %v", sess.UserID, sess.ReplyChannel, err)
		return false
	}

	if s.mirror != nil && !s.mirror.TryDispatch(sess.UserID, text) {
		log.Printf("Push mirror queue full, dropping copy for user %s", sess.UserID)
	}
	return true
}

func (s *Scheduler) reminderText(sess session.Session, now time.Time) string {
	left := sess.Remaining(now)
	return fmt.Sprintf("Heads up %s, your parking runs out in %s (at %s). Time to move the car!",
		sess.Label(), parse.FormatDuration(left.Round(time.Minute)), sess.Expiry().In(s.loc).Format("15:04"))
}

func expiryText(sess session.Session) string {
	return fmt.Sprintf("%s, your %s of parking is up.", sess.Label(), parse.FormatDuration(sess.Duration))
}

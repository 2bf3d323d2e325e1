package session

import "time"

// State is where a session sits in its notification lifecycle.
type State string

const (
	StateActive      State = "active"
	StateReminderDue State = "reminder_due"
	StateExpiredDue  State = "expired_due"
)

// Session is one user's parking session and its notification flags.
type Session struct {
	// ID changes on every upsert and guards flag updates against stale snapshots.
	ID           string
	UserID       string
	DisplayName  string
	Email        string
	ReplyChannel string
	StartTime    time.Time
	Duration     time.Duration
	ReminderSent bool
	ExpiredSent  bool
	AlertTime    *time.Time
}

// Expiry is the instant the parking time runs out.
func (s Session) Expiry() time.Time {
	return s.StartTime.Add(s.Duration)
}

// ReminderAt is the instant the reminder becomes due for the given window.
func (s Session) ReminderAt(window time.Duration) time.Time {
	return s.Expiry().Add(-window)
}

// Remaining returns the time left at now, never negative.
func (s Session) Remaining(now time.Time) time.Duration {
	left := s.Expiry().Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// Expired reports whether now has reached the expiry instant.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.Expiry())
}

// State derives the lifecycle state at now.
func (s Session) State(now time.Time, window time.Duration) State {
	switch {
	case s.Expired(now):
		return StateExpiredDue
	case !now.Before(s.ReminderAt(window)):
		return StateReminderDue
	default:
		return StateActive
	}
}

// Label is how the session's owner is shown in messages.
func (s Session) Label() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return "<@" + s.UserID + ">"
}

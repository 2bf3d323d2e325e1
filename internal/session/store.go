package session

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store defines the operations on the shared session state.
type Store interface {
	Upsert(s Session) Session
	Get(userID string) (Session, bool)
	Snapshot() []Session
	MarkReminderSent(userID, sessionID string) bool
	MarkExpiredSent(userID, sessionID string) bool
	SetAlertTime(userID string, at time.Time) bool
	Len() int
}

// memoryStore keeps sessions in a map guarded by a single lock. Sessions are
// stored and returned by value so callers never hold a reference into the map.
type memoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() Store {
	return &memoryStore{sessions: make(map[string]Session)}
}

// Upsert replaces whatever the user had with s. The stored copy gets a fresh
// ID and cleared notification state, and is returned.
func (m *memoryStore) Upsert(s Session) Session {
	s.ID = uuid.NewString()
	s.ReminderSent = false
	s.ExpiredSent = false
	s.AlertTime = nil
	if s.Duration < 0 {
		s.Duration = 0
	}

	m.mu.Lock()
	m.sessions[s.UserID] = s
	m.mu.Unlock()
	return s
}

func (m *memoryStore) Get(userID string) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[userID]
	return copySession(s), ok
}

// Snapshot returns copies of all sessions ordered by start time.
func (m *memoryStore) Snapshot() []Session {
	m.mu.RLock()
	out := make([]Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, copySession(s))
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

func (m *memoryStore) MarkReminderSent(userID, sessionID string) bool {
	return m.update(userID, sessionID, func(s *Session) { s.ReminderSent = true })
}

func (m *memoryStore) MarkExpiredSent(userID, sessionID string) bool {
	return m.update(userID, sessionID, func(s *Session) { s.ExpiredSent = true })
}

// SetAlertTime stamps the user's current session with the time they raised an alert.
func (m *memoryStore) SetAlertTime(userID string, at time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		return false
	}
	s.AlertTime = &at
	m.sessions[userID] = s
	return true
}

func (m *memoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// update applies fn only if the user's current session is still sessionID.
func (m *memoryStore) update(userID, sessionID string, fn func(*Session)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok || s.ID != sessionID {
		return false
	}
	fn(&s)
	m.sessions[userID] = s
	return true
}

func copySession(s Session) Session {
	if s.AlertTime != nil {
		at := *s.AlertTime
		s.AlertTime = &at
	}
	return s
}

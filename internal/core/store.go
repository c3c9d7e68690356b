package core

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session store defaults.
const (
	DefaultSessionTTL  = 2 * time.Hour
	DefaultMaxSessions = 1000
)

// SessionStore keeps sessions in memory, keyed by an opaque ID. Sessions idle
// for longer than the TTL are treated as gone and removed by Sweep.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	ttl time.Duration
	max int
	now func() time.Time
	rec Recorder
}

// NewSessionStore creates a store. Non-positive limits fall back to defaults.
func NewSessionStore(ttl time.Duration, maxSessions int, rec Recorder) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	if rec == nil {
		rec = nopRecorder{}
	}
	return &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		max:      maxSessions,
		now:      time.Now,
		rec:      rec,
	}
}

// Create starts a new empty session. When the store is full, expired
// sessions are swept first; ErrTooManySessions is returned if that frees
// nothing.
func (st *SessionStore) Create() (*Session, error) {
	if st.Len() >= st.max {
		st.Sweep()
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if len(st.sessions) >= st.max {
		return nil, ErrTooManySessions
	}
	s := newSession(uuid.New().String(), st.now(), st.rec)
	st.sessions[s.ID] = s
	st.rec.SessionsActive(len(st.sessions))
	return s, nil
}

// Get returns a live session and marks it as used.
func (st *SessionStore) Get(id string) (*Session, error) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	now := st.now()
	if s.expired(now, st.ttl) {
		st.Delete(id)
		return nil, ErrSessionNotFound
	}
	s.touch(now)
	return s, nil
}

// Delete forgets a session. Unknown IDs are ignored.
func (st *SessionStore) Delete(id string) {
	st.mu.Lock()
	delete(st.sessions, id)
	n := len(st.sessions)
	st.mu.Unlock()
	st.rec.SessionsActive(n)
}

// Sweep removes every expired session and returns how many it removed.
func (st *SessionStore) Sweep() int {
	now := st.now()

	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for id, s := range st.sessions {
		if s.expired(now, st.ttl) {
			delete(st.sessions, id)
			removed++
		}
	}
	st.rec.SessionsActive(len(st.sessions))
	return removed
}

// Len returns the number of stored sessions, expired or not.
func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// TTL returns the idle timeout.
func (st *SessionStore) TTL() time.Duration { return st.ttl }

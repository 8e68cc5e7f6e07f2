package quiz

import (
	"sync"
	"time"
)

const defaultSessionTTL = 2 * time.Hour

// Store holds live sessions in process memory, keyed by session id.
// Concurrent requests from the same session are last-write-wins, which the
// single-request-per-session model accepts. Expired sessions are swept
// opportunistically on writes.
type Store struct {
	mu       sync.Mutex
	sessions map[string]storedSession
	ttl      time.Duration
	now      func() time.Time
}

type storedSession struct {
	session   *Session
	expiresAt time.Time
}

// StoreConfig configures session retention.
type StoreConfig struct {
	TTL   time.Duration
	Clock func() time.Time
}

// NewStore constructs an empty session store.
func NewStore(cfg StoreConfig) *Store {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Store{
		sessions: make(map[string]storedSession),
		ttl:      ttl,
		now:      clock,
	}
}

// Get returns the session for an id, if present and unexpired.
func (s *Store) Get(sessionID string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.sessions[sessionID]
	if !ok {
		return nil, false
	}
	if s.now().After(stored.expiresAt) {
		delete(s.sessions, sessionID)
		return nil, false
	}
	return stored.session, true
}

// Put stores a session and refreshes its expiry.
func (s *Store) Put(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	s.sessions[session.ID] = storedSession{
		session:   session,
		expiresAt: s.now().Add(s.ttl),
	}
}

// Delete removes a session.
func (s *Store) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

func (s *Store) sweepLocked() {
	now := s.now()
	for sessionID, stored := range s.sessions {
		if now.After(stored.expiresAt) {
			delete(s.sessions, sessionID)
		}
	}
}

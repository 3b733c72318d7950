package auth

import (
	"sync"
	"time"

	"safe-gateway-lite/internal/apperr"
)

type Session struct {
	ID        string
	Address   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// SessionStore indexes live sessions by credential id (the JWT jti).
type SessionStore struct {
	mu   sync.RWMutex
	byID map[string]Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{byID: make(map[string]Session)}
}

func (s *SessionStore) Put(sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[sess.ID] = sess
}

func (s *SessionStore) Get(id string, now time.Time) (Session, error) {
	s.mu.RLock()
	sess, ok := s.byID[id]
	s.mu.RUnlock()

	if !ok {
		return Session{}, apperr.Wrap(apperr.ErrUnauthorized, "unknown session")
	}
	if !now.Before(sess.ExpiresAt) {
		return Session{}, apperr.Wrap(apperr.ErrUnauthorized, "session expired")
	}
	return sess, nil
}

func (s *SessionStore) Revoke(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
}

func (s *SessionStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.byID {
		if !now.Before(sess.ExpiresAt) {
			delete(s.byID, id)
			removed++
		}
	}
	return removed
}

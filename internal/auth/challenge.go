package auth

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"safe-gateway-lite/internal/apperr"
)

type Challenge struct {
	Nonce     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ChallengeStore keeps issued, unconsumed nonces until they are redeemed or expire.
type ChallengeStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	issued map[string]Challenge
}

func NewChallengeStore(ttl time.Duration) *ChallengeStore {
	return &ChallengeStore{ttl: ttl, issued: make(map[string]Challenge)}
}

func (s *ChallengeStore) Issue(now time.Time) (Challenge, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return Challenge{}, err
	}
	ch := Challenge{
		Nonce:     hex.EncodeToString(buf),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}

	s.mu.Lock()
	s.issued[ch.Nonce] = ch
	s.mu.Unlock()
	return ch, nil
}

// Consume redeems nonce. A nonce is removed on the first attempt whatever
// its outcome, so concurrent redemptions see exactly one winner.
func (s *ChallengeStore) Consume(nonce string, now time.Time) error {
	s.mu.Lock()
	ch, ok := s.issued[nonce]
	if ok {
		delete(s.issued, nonce)
	}
	s.mu.Unlock()

	if !ok {
		return apperr.Wrap(apperr.ErrInvalidChallenge, "unknown or already used nonce")
	}
	if !now.Before(ch.ExpiresAt) {
		return apperr.Wrap(apperr.ErrInvalidChallenge, "nonce expired")
	}
	return nil
}

// Sweep drops expired nonces and returns how many were removed.
func (s *ChallengeStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for nonce, ch := range s.issued {
		if !now.Before(ch.ExpiresAt) {
			delete(s.issued, nonce)
			removed++
		}
	}
	return removed
}

func (s *ChallengeStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.issued)
}

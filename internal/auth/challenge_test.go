package auth

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"safe-gateway-lite/internal/apperr"
)

func TestChallengeStore_IssueAndConsume(t *testing.T) {
	s := NewChallengeStore(time.Minute)
	now := time.Now()

	ch, err := s.Issue(now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if len(ch.Nonce) != 32 {
		t.Fatalf("expected 32 hex chars, got %q", ch.Nonce)
	}
	if err := s.Consume(ch.Nonce, now); err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if err := s.Consume(ch.Nonce, now); !apperr.Is(err, apperr.ErrInvalidChallenge) {
		t.Fatalf("expected InvalidChallenge on reuse, got %v", err)
	}
}

func TestChallengeStore_Expired(t *testing.T) {
	s := NewChallengeStore(time.Minute)
	now := time.Now()
	ch, _ := s.Issue(now)

	if err := s.Consume(ch.Nonce, now.Add(time.Minute)); !apperr.Is(err, apperr.ErrInvalidChallenge) {
		t.Fatalf("expected InvalidChallenge, got %v", err)
	}
}

func TestChallengeStore_ConcurrentConsume(t *testing.T) {
	s := NewChallengeStore(time.Minute)
	now := time.Now()
	ch, _ := s.Issue(now)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Consume(ch.Nonce, now) == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	if wins.Load() != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins.Load())
	}
}

func TestChallengeStore_Sweep(t *testing.T) {
	s := NewChallengeStore(time.Minute)
	now := time.Now()
	s.Issue(now)
	s.Issue(now.Add(30 * time.Second))

	if n := s.Sweep(now.Add(time.Minute)); n != 1 {
		t.Fatalf("expected 1 swept, got %d", n)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 left, got %d", s.Len())
	}
}

func TestSessionStore(t *testing.T) {
	s := NewSessionStore()
	now := time.Now()
	s.Put(Session{ID: "a", Address: testAddr, IssuedAt: now, ExpiresAt: now.Add(time.Hour)})

	if _, err := s.Get("a", now); err != nil {
		t.Fatalf("Get: %v", err)
	}
	_, err := s.Get("a", now.Add(time.Hour))
	if !apperr.Is(err, apperr.ErrUnauthorized) || apperr.Message(err) != "session expired" {
		t.Fatalf("expected session expired, got %v", err)
	}
	_, err = s.Get("b", now)
	if apperr.Message(err) != "unknown session" {
		t.Fatalf("expected unknown session, got %v", err)
	}

	s.Revoke("a")
	if _, err := s.Get("a", now); err == nil {
		t.Fatalf("expected revoked session to be gone")
	}
	if n := s.Sweep(now); n != 0 {
		t.Fatalf("expected nothing to sweep, got %d", n)
	}
}

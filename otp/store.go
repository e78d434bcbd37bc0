package otp

import (
	"fmt"
	"sync"
	"time"
)

// Store persists challenges and issuance history per (purpose, email) pair.
// Issuance history outlives the challenge itself: the rate-limit window keeps
// counting across verify/re-issue cycles.
type Store interface {
	Challenge(purpose Purpose, email string) (*Challenge, bool, error)
	PutChallenge(purpose Purpose, email string, challenge *Challenge) error
	DeleteChallenge(purpose Purpose, email string) error

	// ReserveIssue applies the rate-limit and cooldown guards for the pair
	// and records the issuance when allowed, as one atomic step. A rejected
	// reservation (ErrRateLimited or *CooldownError) records nothing.
	ReserveIssue(purpose Purpose, email string, now time.Time) error

	// Sweep removes challenges expired before now and returns how many were
	// dropped.
	Sweep(now time.Time) int
}

func storeKey(purpose Purpose, email string) string {
	return fmt.Sprintf("%s:%s", purpose, email)
}

// MemoryStore keeps challenges in process memory. Used in tests and as a
// fallback when Redis is not configured.
type MemoryStore struct {
	mu         sync.Mutex
	challenges map[string]*Challenge
	issued     map[string][]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		challenges: make(map[string]*Challenge),
		issued:     make(map[string][]time.Time),
	}
}

func (s *MemoryStore) Challenge(purpose Purpose, email string) (*Challenge, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	challenge, ok := s.challenges[storeKey(purpose, email)]
	if !ok {
		return nil, false, nil
	}
	copied := *challenge
	return &copied, true, nil
}

func (s *MemoryStore) PutChallenge(purpose Purpose, email string, challenge *Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *challenge
	s.challenges[storeKey(purpose, email)] = &copied
	return nil
}

func (s *MemoryStore) DeleteChallenge(purpose Purpose, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.challenges, storeKey(purpose, email))
	return nil
}

func (s *MemoryStore) ReserveIssue(purpose Purpose, email string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := storeKey(purpose, email)
	recent := s.issued[key][:0]
	for _, t := range s.issued[key] {
		if now.Sub(t) < RateWindow {
			recent = append(recent, t)
		}
	}
	if len(recent) >= MaxIssuesPerWindow {
		s.issued[key] = recent
		return ErrRateLimited
	}
	if len(recent) > 0 {
		if elapsed := now.Sub(recent[len(recent)-1]); elapsed < ResendCooldown {
			s.issued[key] = recent
			return &CooldownError{Remaining: ResendCooldown - elapsed}
		}
	}
	s.issued[key] = append(recent, now)
	return nil
}

func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, challenge := range s.challenges {
		if now.After(challenge.ExpiresAt) {
			delete(s.challenges, key)
			removed++
		}
	}
	for key, times := range s.issued {
		recent := times[:0]
		for _, t := range times {
			if now.Sub(t) < RateWindow {
				recent = append(recent, t)
			}
		}
		if len(recent) == 0 {
			delete(s.issued, key)
		} else {
			s.issued[key] = recent
		}
	}
	return removed
}

package otp

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	code      string
	expiresAt time.Time
	attempts  int
}

// MemoryStore keeps passcodes in a process-local map. Entries do not survive
// a restart, and a horizontally scaled deployment must use RedisStore instead
// so every instance sees the same codes.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]entry), ttl: TTL}
}

func (s *MemoryStore) Issue(_ context.Context, identifier string) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[identifier] = entry{code: code, expiresAt: time.Now().Add(s.ttl)}
	return code, nil
}

func (s *MemoryStore) Verify(_ context.Context, identifier, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[identifier]
	if !ok {
		return false, nil
	}
	if time.Now().After(e.expiresAt) {
		delete(s.entries, identifier)
		return false, nil
	}
	if e.attempts >= MaxAttempts {
		delete(s.entries, identifier)
		return false, nil
	}
	if e.code != code {
		e.attempts++
		s.entries[identifier] = e
		return false, nil
	}
	delete(s.entries, identifier)
	return true, nil
}

func (s *MemoryStore) Regenerate(ctx context.Context, identifier string) (string, error) {
	s.mu.Lock()
	e, ok := s.entries[identifier]
	if ok && time.Now().Before(e.expiresAt) && e.attempts < MaxAttempts {
		s.mu.Unlock()
		return "", ErrOTPStillValid
	}
	delete(s.entries, identifier)
	s.mu.Unlock()
	return s.Issue(ctx, identifier)
}

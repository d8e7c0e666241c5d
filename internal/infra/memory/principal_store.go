package memory

import (
	"context"
	"sync"
	"time"

	"trivia-quiz-service/internal/domain"
)

// PrincipalStore keeps logged-in principals in memory until they expire.
type PrincipalStore struct {
	clock func() time.Time

	mu      sync.Mutex
	entries map[string]principalEntry
}

type principalEntry struct {
	principal domain.Principal
	expiresAt time.Time
}

func NewPrincipalStore() *PrincipalStore {
	return &PrincipalStore{clock: time.Now, entries: make(map[string]principalEntry)}
}

func (s *PrincipalStore) Save(_ context.Context, principal domain.Principal, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := principalEntry{principal: principal}
	if ttl > 0 {
		entry.expiresAt = s.clock().Add(ttl)
	}
	s.entries[principal.TokenID] = entry
	return nil
}

func (s *PrincipalStore) Load(_ context.Context, tokenID string) (domain.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[tokenID]
	if !ok {
		return domain.Principal{}, domain.ErrUnauthenticated
	}
	if !entry.expiresAt.IsZero() && !entry.expiresAt.After(s.clock()) {
		delete(s.entries, tokenID)
		return domain.Principal{}, domain.ErrUnauthenticated
	}
	return entry.principal, nil
}

func (s *PrincipalStore) Delete(_ context.Context, tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, tokenID)
	return nil
}

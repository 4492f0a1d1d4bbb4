package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process session store for development and tests.
// Sessions do not survive a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Data
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Data)}
}

func (s *MemoryStore) Create(_ context.Context, token string, data Data, ttl time.Duration) error {
	if data.ExpiresAt.IsZero() {
		data.ExpiresAt = time.Now().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = data
	return nil
}

func (s *MemoryStore) Get(_ context.Context, token string) (*Data, error) {
	s.mu.RLock()
	data, ok := s.sessions[token]
	s.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	if data.Expired() {
		s.mu.Lock()
		delete(s.sessions, token)
		s.mu.Unlock()
		return nil, nil
	}
	return &data, nil
}

func (s *MemoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

// Sweep removes expired sessions and returns how many were dropped.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for token, data := range s.sessions {
		if data.Expired() {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed
}

package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"shopify-order-tracking/internal/domain"
)

// MemoryStore is a process-local session store for single-instance deployments
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
	nowFunc  func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]domain.Session),
		nowFunc:  time.Now,
	}
}

// CreateSession stores the session, dropping any that already expired
func (s *MemoryStore) CreateSession(_ context.Context, session *domain.Session) error {
	if session.State == "" {
		return fmt.Errorf("%w: session state is required", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc()
	for state, existing := range s.sessions {
		if existing.Expired(now) {
			delete(s.sessions, state)
		}
	}
	s.sessions[session.State] = *session
	return nil
}

// ConsumeSession returns and removes the session for state
func (s *MemoryStore) ConsumeSession(_ context.Context, state string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[state]
	if !ok {
		return nil, nil
	}
	delete(s.sessions, state)
	if session.Expired(s.nowFunc()) {
		return nil, nil
	}
	return &session, nil
}

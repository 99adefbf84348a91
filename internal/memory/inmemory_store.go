package memory

import (
	"context"
	"encoding/json"
	"sync"
)

// InMemoryStore keeps sessions in process; used for local runs and tests
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string][]byte)}
}

// states are stored serialized so callers never share pointers with the store
func (s *InMemoryStore) LoadSession(ctx context.Context, sessionID string) (*ConversationState, error) {
	s.mu.RLock()
	data, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	var state ConversationState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *InMemoryStore) SaveSession(ctx context.Context, state *ConversationState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.sessions[state.SessionID] = data
	s.mu.Unlock()
	return nil
}

func (s *InMemoryStore) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return nil
}

func (s *InMemoryStore) SessionExists(ctx context.Context, sessionID string) (bool, error) {
	s.mu.RLock()
	_, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	return ok, nil
}

func (s *InMemoryStore) UpdateActivity(ctx context.Context, sessionID string) error {
	ok, _ := s.SessionExists(ctx, sessionID)
	if !ok {
		return ErrSessionNotFound
	}
	return nil
}

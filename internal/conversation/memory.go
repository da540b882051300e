package conversation

import (
	"context"
	"sync"
)

// MemoryStore keeps conversations for the life of the process.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]Conversation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[int64]Conversation)}
}

func (m *MemoryStore) Get(_ context.Context, userID int64) (Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conv, ok := m.sessions[userID]
	if !ok {
		return Conversation{}, ErrNotFound
	}
	return conv, nil
}

func (m *MemoryStore) Put(_ context.Context, conv Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[conv.UserID] = conv
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	return nil
}

func (m *MemoryStore) Close() error { return nil }

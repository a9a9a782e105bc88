package state

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore is a process-local Store used when no Redis is configured.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]*Conversation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]*Conversation)}
}

func (m *MemoryStore) Load(_ context.Context, sessionID string) (*Conversation, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidSession
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.items[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return c.Clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, c *Conversation) error {
	if c == nil {
		return ErrNilConversation
	}
	if err := c.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[c.SessionID] = c.Clone()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, sessionID)
	return nil
}

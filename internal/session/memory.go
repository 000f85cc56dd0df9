package session

import (
	"context"
	"sync"
)

// Memory is a process-local session store for dev and single-instance runs.
type Memory struct {
	mu       sync.RWMutex
	sessions map[int64]Session
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{sessions: make(map[int64]Session)}
}

// Get returns the stored session, or a zero session for unknown chats.
func (m *Memory) Get(ctx context.Context, chatID int64) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[chatID], nil
}

// Put stores the session for a chat.
func (m *Memory) Put(ctx context.Context, chatID int64, sess Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[chatID] = sess
	return nil
}

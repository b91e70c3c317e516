package session

import (
	"context"
	"sync"
)

// memoryBackend is a process-local Backend for single-node deployments and
// tests. byUser is the reverse index used for by-user revocation.
type memoryBackend struct {
	mu       sync.RWMutex
	sessions map[string]string
	byUser   map[string]string
}

// NewMemoryBackend returns an in-memory Backend.
func NewMemoryBackend() Backend {
	return &memoryBackend{
		sessions: make(map[string]string),
		byUser:   make(map[string]string),
	}
}

func (b *memoryBackend) Create(_ context.Context, sessionID, userID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	// At most one session per user.
	if old, ok := b.byUser[userID]; ok && old != sessionID {
		delete(b.sessions, old)
	}
	b.sessions[sessionID] = userID
	b.byUser[userID] = sessionID
	return nil
}

func (b *memoryBackend) Read(_ context.Context, sessionID string) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	userID, ok := b.sessions[sessionID]
	if !ok {
		return "", ErrNotFound
	}
	return userID, nil
}

func (b *memoryBackend) Update(ctx context.Context, sessionID, userID string) error {
	return b.Create(ctx, sessionID, userID)
}

func (b *memoryBackend) Delete(_ context.Context, sessionID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if userID, ok := b.sessions[sessionID]; ok {
		delete(b.byUser, userID)
	}
	delete(b.sessions, sessionID)
	return nil
}

func (b *memoryBackend) DeleteForUser(_ context.Context, userID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sessionID, ok := b.byUser[userID]; ok {
		delete(b.sessions, sessionID)
		delete(b.byUser, userID)
	}
	return nil
}

package battleship

import (
	"context"
	"sync"
	"time"

	cerr "github.com/saeidalz13/battleship-session/internal/error"
)

type MemoryStore struct {
	sessions map[string]Session
	slugs    map[string]string
	mu       sync.RWMutex
}

var (
	_ Store         = (*MemoryStore)(nil)
	_ ExpiredLister = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]Session, 10),
		slugs:    make(map[string]string, 10),
	}
}

func (ms *MemoryStore) Get(_ context.Context, sessionId string) (Session, error) {
	ms.mu.RLock()
	session, prs := ms.sessions[sessionId]
	ms.mu.RUnlock()
	if !prs {
		return Session{}, cerr.ErrSessionNotFound(sessionId)
	}

	return session.Clone(), nil
}

func (ms *MemoryStore) GetBySlug(ctx context.Context, slug string) (Session, error) {
	ms.mu.RLock()
	sessionId, prs := ms.slugs[slug]
	ms.mu.RUnlock()
	if !prs {
		return Session{}, cerr.ErrSlugNotFound(slug)
	}

	return ms.Get(ctx, sessionId)
}

func (ms *MemoryStore) Save(_ context.Context, session Session) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.sessions[session.ID] = session.Clone()
	ms.slugs[session.Slug] = session.ID
	return nil
}

func (ms *MemoryStore) Delete(_ context.Context, sessionId string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	session, prs := ms.sessions[sessionId]
	if !prs {
		return cerr.ErrSessionNotFound(sessionId)
	}
	delete(ms.slugs, session.Slug)
	delete(ms.sessions, sessionId)
	return nil
}

func (ms *MemoryStore) Len() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.sessions)
}

func (ms *MemoryStore) ExpiredIDs(_ context.Context, before time.Time) ([]string, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	expired := make([]string, 0, 5)
	for id, session := range ms.sessions {
		if session.UpdatedAt.Before(before) {
			expired = append(expired, id)
		}
	}
	return expired, nil
}

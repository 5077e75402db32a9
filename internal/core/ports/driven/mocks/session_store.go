package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/parranda-auth/internal/core/domain"
	"github.com/custodia-labs/parranda-auth/internal/core/ports/driven"
)

var _ driven.SessionStore = (*MockSessionStore)(nil)

// MockSessionStore is an in-memory SessionStore for testing
type MockSessionStore struct {
	mu            sync.RWMutex
	sessions      map[string]*domain.Session
	byFingerprint map[string]string // fingerprint -> session ID

	// Err, when set, is returned by every operation
	Err error
}

// NewMockSessionStore creates a new MockSessionStore
func NewMockSessionStore() *MockSessionStore {
	return &MockSessionStore{
		sessions:      make(map[string]*domain.Session),
		byFingerprint: make(map[string]string),
	}
}

func (m *MockSessionStore) Create(ctx context.Context, session *domain.Session) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[session.ID]; ok {
		return domain.ErrAlreadyExists
	}
	if _, ok := m.byFingerprint[session.RefreshHash]; ok {
		return domain.ErrAlreadyExists
	}
	stored := *session
	m.sessions[session.ID] = &stored
	m.byFingerprint[session.RefreshHash] = session.ID
	return nil
}

func (m *MockSessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *session
	return &out, nil
}

func (m *MockSessionStore) GetByFingerprint(ctx context.Context, fingerprint string) (*domain.Session, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byFingerprint[fingerprint]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *m.sessions[id]
	return &out, nil
}

func (m *MockSessionStore) Delete(ctx context.Context, id string) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteLocked(id)
	return nil
}

func (m *MockSessionStore) DeleteByFingerprint(ctx context.Context, fingerprint string) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.byFingerprint[fingerprint]; ok {
		m.deleteLocked(id)
	}
	return nil
}

func (m *MockSessionStore) DeleteByUser(ctx context.Context, userID string) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, session := range m.sessions {
		if session.UserID == userID {
			m.deleteLocked(id)
		}
	}
	return nil
}

func (m *MockSessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, session := range m.sessions {
		if session.IsExpired(now) {
			m.deleteLocked(id)
			n++
		}
	}
	return n, nil
}

func (m *MockSessionStore) ListByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Session
	for _, session := range m.sessions {
		if session.UserID == userID {
			out := *session
			result = append(result, &out)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (m *MockSessionStore) deleteLocked(id string) {
	session, ok := m.sessions[id]
	if !ok {
		return
	}
	delete(m.byFingerprint, session.RefreshHash)
	delete(m.sessions, id)
}

// Helper methods for testing

func (m *MockSessionStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = make(map[string]*domain.Session)
	m.byFingerprint = make(map[string]string)
}

func (m *MockSessionStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/parranda-auth/internal/core/domain"
	"github.com/custodia-labs/parranda-auth/internal/core/ports/driven"
)

var _ driven.UserStore = (*MockUserStore)(nil)

// MockUserStore is an in-memory UserStore for testing.
// Email lookups are case-insensitive, alias lookups are exact.
type MockUserStore struct {
	mu      sync.RWMutex
	users   map[string]*domain.User
	byEmail map[string]string
	byAlias map[string]string

	// Err, when set, is returned by every operation
	Err error
}

// NewMockUserStore creates a new MockUserStore
func NewMockUserStore() *MockUserStore {
	return &MockUserStore{
		users:   make(map[string]*domain.User),
		byEmail: make(map[string]string),
		byAlias: make(map[string]string),
	}
}

func (m *MockUserStore) Create(ctx context.Context, user *domain.User) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	email := domain.NormalizeEmail(user.Email)
	if _, ok := m.byEmail[email]; ok {
		return domain.ErrAlreadyExists
	}
	if user.Alias != nil {
		if _, ok := m.byAlias[*user.Alias]; ok {
			return domain.ErrAlreadyExists
		}
	}
	stored := *user
	m.users[user.ID] = &stored
	m.byEmail[email] = user.ID
	if user.Alias != nil {
		m.byAlias[*user.Alias] = user.ID
	}
	return nil
}

func (m *MockUserStore) Get(ctx context.Context, id string) (*domain.User, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *user
	return &out, nil
}

func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byEmail[domain.NormalizeEmail(email)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *m.users[id]
	return &out, nil
}

func (m *MockUserStore) GetByAlias(ctx context.Context, alias string) (*domain.User, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byAlias[alias]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *m.users[id]
	return &out, nil
}

func (m *MockUserStore) UpdateFields(ctx context.Context, id string, update domain.UserUpdate) (*domain.User, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if update.Alias != nil {
		if owner, taken := m.byAlias[*update.Alias]; taken && owner != id {
			return nil, domain.ErrAlreadyExists
		}
		if user.Alias != nil {
			delete(m.byAlias, *user.Alias)
		}
		m.byAlias[*update.Alias] = id
	}
	update.Apply(user)
	out := *user
	return &out, nil
}

// Helper methods for testing

// Put stores a user directly, bypassing uniqueness checks
func (m *MockUserStore) Put(user *domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *user
	m.users[user.ID] = &stored
	m.byEmail[domain.NormalizeEmail(user.Email)] = user.ID
	if user.Alias != nil {
		m.byAlias[*user.Alias] = user.ID
	}
}

func (m *MockUserStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users)
}

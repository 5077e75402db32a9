package mocks

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/parranda-auth/internal/core/domain"
	"github.com/custodia-labs/parranda-auth/internal/core/ports/driven"
)

// Ensure mocks implement their ports
var (
	_ driven.PasswordHasher = (*MockPasswordHasher)(nil)
	_ driven.TokenService   = (*MockTokenService)(nil)
)

const mockHashPrefix = "hashed:"

// MockPasswordHasher is a mock implementation of PasswordHasher for testing.
// It prefixes the plaintext instead of hashing it.
// NOT secure - only for testing.
type MockPasswordHasher struct {
	hashCalls   atomic.Int64
	verifyCalls atomic.Int64

	// Custom behavior hooks (optional)
	HashFn func(password string) (string, error)
}

// NewMockPasswordHasher creates a new MockPasswordHasher
func NewMockPasswordHasher() *MockPasswordHasher {
	return &MockPasswordHasher{}
}

// Hash returns a reversible fake digest (for testing only)
func (m *MockPasswordHasher) Hash(password string) (string, error) {
	m.hashCalls.Add(1)
	if m.HashFn != nil {
		return m.HashFn(password)
	}
	if password == "" {
		return "", domain.ErrInvalidInput
	}
	return mockHashPrefix + password, nil
}

// Verify compares password with the fake digest (for testing only)
func (m *MockPasswordHasher) Verify(password, digest string) bool {
	m.verifyCalls.Add(1)
	if !strings.HasPrefix(digest, mockHashPrefix) {
		return false
	}
	return mockHashPrefix+password == digest
}

// HashCalls returns how many times Hash was called
func (m *MockPasswordHasher) HashCalls() int64 {
	return m.hashCalls.Load()
}

// VerifyCalls returns how many times Verify was called
func (m *MockPasswordHasher) VerifyCalls() int64 {
	return m.verifyCalls.Load()
}

// MockTokenService is a mock implementation of TokenService for testing.
// Tokens are unsigned base64-encoded JSON claims; expiry and kind are
// still enforced against the mock clock.
// NOT secure - only for testing.
type MockTokenService struct {
	mu         sync.Mutex
	now        time.Time
	seq        int64
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Custom behavior hooks (optional)
	IssueFn func(subject string, kind domain.TokenKind) error
}

// NewMockTokenService creates a new MockTokenService whose clock starts at now
func NewMockTokenService(now time.Time) *MockTokenService {
	return &MockTokenService{
		now:        now,
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
	}
}

// Now returns the mock clock
func (m *MockTokenService) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the mock clock forward
func (m *MockTokenService) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

func (m *MockTokenService) issue(subject string, kind domain.TokenKind, ttl time.Duration, extra map[string]string) (string, time.Time, error) {
	if m.IssueFn != nil {
		if err := m.IssueFn(subject, kind); err != nil {
			return "", time.Time{}, err
		}
	}

	m.mu.Lock()
	m.seq++
	now := m.now
	claims := domain.TokenClaims{
		Subject:   subject,
		Kind:      kind,
		ID:        fmt.Sprintf("jti-%d", m.seq),
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
		Extra:     extra,
	}
	m.mu.Unlock()

	data, err := json.Marshal(claims)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to marshal claims: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), claims.ExpiresAt, nil
}

func (m *MockTokenService) IssueAccess(subject string, extra map[string]string) (string, time.Time, error) {
	return m.issue(subject, domain.TokenKindAccess, m.AccessTTL, extra)
}

func (m *MockTokenService) IssueRefresh(subject string, extra map[string]string) (string, time.Time, error) {
	return m.issue(subject, domain.TokenKindRefresh, m.RefreshTTL, extra)
}

func (m *MockTokenService) IssuePair(subject string, extra map[string]string) (*domain.TokenPair, error) {
	access, accessExp, err := m.IssueAccess(subject, extra)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := m.IssueRefresh(subject, extra)
	if err != nil {
		return nil, err
	}
	return &domain.TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Verify decodes the token and checks expiry and kind
func (m *MockTokenService) Verify(token string, kind domain.TokenKind) (*domain.TokenClaims, error) {
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}

	var claims domain.TokenClaims
	if err := json.Unmarshal(data, &claims); err != nil {
		return nil, domain.ErrTokenInvalid
	}
	if claims.Kind != kind || claims.Subject == "" {
		return nil, domain.ErrTokenInvalid
	}
	if !m.Now().Before(claims.ExpiresAt) {
		return nil, domain.ErrTokenInvalid
	}
	return &claims, nil
}

func (m *MockTokenService) Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func (m *MockTokenService) GenerateOpaqueSecret() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	return fmt.Sprintf("secret-%d", m.seq), nil
}

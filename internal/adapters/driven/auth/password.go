package auth

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/custodia-labs/parranda-auth/internal/core/domain"
	"github.com/custodia-labs/parranda-auth/internal/core/ports/driven"
)

// Ensure PasswordHasher implements driven.PasswordHasher
var _ driven.PasswordHasher = (*PasswordHasher)(nil)

// maxPasswordBytes is the bcrypt input limit. Longer input would be
// silently truncated by other implementations, so it is rejected.
const maxPasswordBytes = 72

// PasswordHasher hashes passwords with bcrypt
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher creates a hasher with the given bcrypt cost. Zero
// selects bcrypt.DefaultCost; other values are clamped to the valid range.
func NewPasswordHasher(cost int) *PasswordHasher {
	switch {
	case cost == 0:
		cost = bcrypt.DefaultCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &PasswordHasher{cost: cost}
}

// Cost returns the bcrypt work factor in use
func (h *PasswordHasher) Cost() int {
	return h.cost
}

// Hash generates a salted bcrypt digest from a plaintext password
func (h *PasswordHasher) Hash(password string) (string, error) {
	if password == "" || len(password) > maxPasswordBytes {
		return "", domain.ErrInvalidInput
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify checks a password against a bcrypt digest. The comparison is
// constant time; malformed digests never match.
func (h *PasswordHasher) Verify(password, digest string) bool {
	if digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}

package driven

import (
	"time"

	"github.com/custodia-labs/parranda-auth/internal/core/domain"
)

// PasswordHasher derives and checks password digests.
// Plaintext passwords never leave the hasher.
type PasswordHasher interface {
	// Hash returns a salted digest. Empty or over-long input returns
	// domain.ErrInvalidInput.
	Hash(password string) (string, error)

	// Verify reports whether password matches digest. Malformed digests
	// verify as false.
	Verify(password, digest string) bool
}

// TokenService issues and verifies signed bearer tokens.
// This does NOT handle storage - use SessionStore for session persistence.
type TokenService interface {
	// IssueAccess signs a short-lived access token for subject
	IssueAccess(subject string, extra map[string]string) (token string, expiresAt time.Time, err error)

	// IssueRefresh signs a long-lived refresh token for subject
	IssueRefresh(subject string, extra map[string]string) (token string, expiresAt time.Time, err error)

	// IssuePair signs an access token and a refresh token together
	IssuePair(subject string, extra map[string]string) (*domain.TokenPair, error)

	// Verify checks signature, expiry, issuer and kind. Every failure
	// returns domain.ErrTokenInvalid.
	Verify(token string, kind domain.TokenKind) (*domain.TokenClaims, error)

	// Fingerprint returns the stable digest under which a refresh token's
	// session is stored
	Fingerprint(token string) string

	// GenerateOpaqueSecret returns a URL-safe random secret
	GenerateOpaqueSecret() (string, error)
}

package domain

import "time"

// TokenKind discriminates access tokens from refresh tokens
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// Valid reports whether k is a known token kind.
func (k TokenKind) Valid() bool {
	return k == TokenKindAccess || k == TokenKindRefresh
}

// TokenClaims is the verified payload of a signed token
type TokenClaims struct {
	Subject   string            `json:"sub"`
	Kind      TokenKind         `json:"type"`
	ID        string            `json:"jti"`
	Issuer    string            `json:"iss,omitempty"`
	IssuedAt  time.Time         `json:"iat"`
	ExpiresAt time.Time         `json:"exp"`
	Extra     map[string]string `json:"ext,omitempty"`
}

// Claim keys carried in TokenClaims.Extra
const (
	ClaimEmail = "email"
)

// TokenPair is an access token issued together with its refresh token
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// Session is the server-side record backing one refresh token.
// It is created on login and never mutated afterwards.
type Session struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	RefreshHash string    `json:"-"` // fingerprint of the refresh token
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	UserAgent   string    `json:"user_agent,omitempty"`
	IPAddress   string    `json:"ip_address,omitempty"`
}

// IsExpired reports whether the session has reached its expiry at now.
// A session whose expiry equals now is expired.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SessionState is the derived lifecycle state of a session
type SessionState string

const (
	SessionActive  SessionState = "active"
	SessionExpired SessionState = "expired"
	SessionRevoked SessionState = "revoked"
)

// State derives the lifecycle state. A nil session (deleted from the
// store) is revoked.
func (s *Session) State(now time.Time) SessionState {
	if s == nil {
		return SessionRevoked
	}
	if s.IsExpired(now) {
		return SessionExpired
	}
	return SessionActive
}

// SessionMetadata is client information recorded with a session
type SessionMetadata struct {
	UserAgent string `json:"user_agent,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
}

// AuthContext contains authenticated user info for request context
type AuthContext struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email,omitempty"`
	TokenID   string    `json:"token_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RegisterRequest creates a new identity
type RegisterRequest struct {
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	FullName  *string `json:"full_name,omitempty"`
	Alias     *string `json:"alias,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// LoginRequest represents a login attempt
type LoginRequest struct {
	Email    string          `json:"email"`
	Password string          `json:"password"`
	Metadata SessionMetadata `json:"-"`
}

// LoginResponse is returned after successful authentication
type LoginResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresAt    time.Time    `json:"expires_at"`
	User         *UserSummary `json:"user"`
}

// RefreshRequest represents a token refresh attempt
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshResponse carries the new access token. The refresh token is
// not rotated.
type RefreshResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// LogoutRequest names the session to end, by refresh token or by id
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
	SessionID    string `json:"session_id,omitempty"`
}

// ChangePasswordRequest represents a password change by authenticated user
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// UpdateProfileRequest is a partial profile update
type UpdateProfileRequest struct {
	FullName  *string `json:"full_name,omitempty"`
	Alias     *string `json:"alias,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// TokenTypeBearer is the token_type returned to clients
const TokenTypeBearer = "bearer"

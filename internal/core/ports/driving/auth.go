package driving

import (
	"context"

	"github.com/custodia-labs/parranda-auth/internal/core/domain"
)

// AuthService handles registration, login and the session lifecycle
type AuthService interface {
	// Register creates a new identity. It does not log the user in.
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.UserSummary, error)

	// Login validates credentials, issues a token pair and records a session
	Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error)

	// Refresh exchanges a live refresh token for a new access token
	Refresh(ctx context.Context, req domain.RefreshRequest) (*domain.RefreshResponse, error)

	// Logout ends one session. Ending a session that is already gone succeeds.
	Logout(ctx context.Context, req domain.LogoutRequest) error

	// RevokeSession ends one session owned by userID
	RevokeSession(ctx context.Context, userID, sessionID string) error

	// LogoutAll invalidates all sessions for a user
	LogoutAll(ctx context.Context, userID string) error

	// ValidateToken verifies an access token without touching any store
	ValidateToken(ctx context.Context, accessToken string) (*domain.AuthContext, error)

	// GetCurrentIdentity resolves an access token to its live identity
	GetCurrentIdentity(ctx context.Context, accessToken string) (*domain.UserSummary, error)

	// UpdateProfile applies a partial profile update
	UpdateProfile(ctx context.Context, userID string, req domain.UpdateProfileRequest) (*domain.UserSummary, error)

	// ChangePassword changes the password and ends every session of the user
	ChangePassword(ctx context.Context, userID string, req domain.ChangePasswordRequest) error

	// ListSessions lists the usable sessions of a user
	ListSessions(ctx context.Context, userID string) ([]*domain.Session, error)
}

// SessionSweeper removes expired sessions in the background
type SessionSweeper interface {
	// Start begins the periodic sweep loop
	Start(ctx context.Context) error

	// Stop ends the loop and waits for it to exit
	Stop()

	// SweepOnce runs a single sweep and returns the number of sessions removed
	SweepOnce(ctx context.Context) (int64, error)
}

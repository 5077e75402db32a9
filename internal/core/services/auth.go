package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/parranda-auth/internal/core/domain"
	"github.com/custodia-labs/parranda-auth/internal/core/ports/driven"
	"github.com/custodia-labs/parranda-auth/internal/core/ports/driving"
)

// Ensure authService implements AuthService
var _ driving.AuthService = (*authService)(nil)

// decoyPassword is hashed once at startup. Logins for unknown accounts
// verify against its digest so they cost the same as a wrong password.
const decoyPassword = "parranda-auth-decoy-password"

// AuthConfig holds the collaborators of the auth service.
type AuthConfig struct {
	Users    driven.UserStore
	Sessions *SessionManager
	Hasher   driven.PasswordHasher
	Tokens   driven.TokenService
	Metrics  driven.AuthMetrics // Optional
	Logger   *slog.Logger       // Optional
}

// authService implements the AuthService interface
type authService struct {
	users    driven.UserStore
	sessions *SessionManager
	hasher   driven.PasswordHasher
	tokens   driven.TokenService
	metrics  driven.AuthMetrics
	logger   *slog.Logger

	decoyDigest string
}

// NewAuthService creates a new AuthService
func NewAuthService(cfg AuthConfig) driving.AuthService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = driven.NopMetrics{}
	}

	decoy, err := cfg.Hasher.Hash(decoyPassword)
	if err != nil {
		logger.Warn("failed to prepare decoy password digest", "error", err)
	}

	return &authService{
		users:       cfg.Users,
		sessions:    cfg.Sessions,
		hasher:      cfg.Hasher,
		tokens:      cfg.Tokens,
		metrics:     metrics,
		logger:      logger,
		decoyDigest: decoy,
	}
}

// Register creates a new identity with a hashed password
func (s *authService) Register(ctx context.Context, req domain.RegisterRequest) (*domain.UserSummary, error) {
	user, err := s.register(ctx, req)
	s.record("register", err)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", "user_id", user.ID)
	return user.ToSummary(), nil
}

func (s *authService) register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	if err := domain.ValidateEmail(req.Email); err != nil {
		return nil, err
	}
	if req.Password == "" {
		return nil, domain.ErrInvalidInput
	}
	if req.Alias != nil && strings.TrimSpace(*req.Alias) == "" {
		return nil, domain.ErrInvalidInput
	}
	email := domain.NormalizeEmail(req.Email)

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, domain.ErrAlreadyExists
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, domain.Unavailable("lookup email", err)
	}

	if req.Alias != nil {
		if _, err := s.users.GetByAlias(ctx, *req.Alias); err == nil {
			return nil, domain.ErrAlreadyExists
		} else if !errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Unavailable("lookup alias", err)
		}
	}

	// Hash before anything is persisted so a failure leaves no identity behind.
	digest, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.sessions.Now()
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		FullName:     req.FullName,
		Alias:        req.Alias,
		Phone:        req.Phone,
		AvatarURL:    req.AvatarURL,
		PasswordHash: &digest,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, domain.ErrAlreadyExists
		}
		return nil, domain.Unavailable("create user", err)
	}
	return user, nil
}

// Login validates credentials, issues a token pair and records a session
func (s *authService) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	resp, err := s.login(ctx, req)
	s.record("login", err)
	return resp, err
}

func (s *authService) login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, domain.ErrInvalidInput
	}

	user, err := s.users.GetByEmail(ctx, domain.NormalizeEmail(req.Email))
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, domain.Unavailable("lookup user", err)
	}

	// Every rejection below costs one hash verification and returns the
	// same error, so callers cannot tell which check failed.
	if user == nil || !user.Active || !user.HasPassword() {
		s.hasher.Verify(req.Password, s.decoyDigest)
		return nil, domain.ErrInvalidCredentials
	}
	if !s.hasher.Verify(req.Password, *user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	pair, err := s.tokens.IssuePair(user.ID, map[string]string{domain.ClaimEmail: user.Email})
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.Create(ctx, user.ID, s.tokens.Fingerprint(pair.RefreshToken), pair.RefreshExpiresAt, req.Metadata)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", "user_id", user.ID, "session_id", session.ID)

	return &domain.LoginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    domain.TokenTypeBearer,
		ExpiresAt:    pair.AccessExpiresAt,
		User:         user.ToSummary(),
	}, nil
}

// Refresh issues a new access token for a live refresh token. The session
// is not extended and the refresh token is not rotated.
func (s *authService) Refresh(ctx context.Context, req domain.RefreshRequest) (*domain.RefreshResponse, error) {
	resp, err := s.refresh(ctx, req)
	s.record("refresh", err)
	return resp, err
}

func (s *authService) refresh(ctx context.Context, req domain.RefreshRequest) (*domain.RefreshResponse, error) {
	claims, err := s.tokens.Verify(req.RefreshToken, domain.TokenKindRefresh)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}

	session, err := s.sessions.Lookup(ctx, s.tokens.Fingerprint(req.RefreshToken))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if !s.sessions.IsUsable(session) || session.UserID != claims.Subject {
		return nil, domain.ErrUnauthorized
	}

	access, expiresAt, err := s.tokens.IssueAccess(claims.Subject, claims.Extra)
	if err != nil {
		return nil, err
	}

	return &domain.RefreshResponse{
		AccessToken: access,
		TokenType:   domain.TokenTypeBearer,
		ExpiresAt:   expiresAt,
	}, nil
}

// Logout ends the session named by refresh token or session ID.
// A session that is already gone is not an error.
func (s *authService) Logout(ctx context.Context, req domain.LogoutRequest) error {
	var err error
	switch {
	case req.RefreshToken != "":
		err = s.sessions.RevokeByFingerprint(ctx, s.tokens.Fingerprint(req.RefreshToken))
	case req.SessionID != "":
		err = s.sessions.Revoke(ctx, req.SessionID)
	}
	s.record("logout", err)
	return err
}

// RevokeSession ends one session of userID. Sessions owned by someone else
// are left alone and reported as success so their existence is not revealed.
func (s *authService) RevokeSession(ctx context.Context, userID, sessionID string) error {
	session, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if session.UserID != userID {
		return nil
	}
	return s.sessions.Revoke(ctx, sessionID)
}

// LogoutAll invalidates all sessions for a user
func (s *authService) LogoutAll(ctx context.Context, userID string) error {
	if err := s.sessions.RevokeAll(ctx, userID); err != nil {
		return err
	}
	s.logger.Info("all sessions revoked", "user_id", userID)
	return nil
}

// ValidateToken verifies an access token without consulting any store
func (s *authService) ValidateToken(ctx context.Context, accessToken string) (*domain.AuthContext, error) {
	claims, err := s.tokens.Verify(accessToken, domain.TokenKindAccess)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}
	return &domain.AuthContext{
		UserID:    claims.Subject,
		Email:     claims.Extra[domain.ClaimEmail],
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

// GetCurrentIdentity resolves an access token to an active identity
func (s *authService) GetCurrentIdentity(ctx context.Context, accessToken string) (*domain.UserSummary, error) {
	claims, err := s.tokens.Verify(accessToken, domain.TokenKindAccess)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}

	user, err := s.activeUser(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	return user.ToSummary(), nil
}

// UpdateProfile applies a partial update to the caller's profile
func (s *authService) UpdateProfile(ctx context.Context, userID string, req domain.UpdateProfileRequest) (*domain.UserSummary, error) {
	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	update := domain.UserUpdate{
		FullName:  req.FullName,
		Alias:     req.Alias,
		Phone:     req.Phone,
		AvatarURL: req.AvatarURL,
	}
	if update.IsEmpty() {
		return user.ToSummary(), nil
	}

	if req.Alias != nil {
		if strings.TrimSpace(*req.Alias) == "" {
			return nil, domain.ErrInvalidInput
		}
		owner, err := s.users.GetByAlias(ctx, *req.Alias)
		switch {
		case err == nil && owner.ID != userID:
			return nil, domain.ErrAlreadyExists
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			return nil, domain.Unavailable("lookup alias", err)
		}
	}

	updated, err := s.users.UpdateFields(ctx, userID, update)
	switch {
	case errors.Is(err, domain.ErrAlreadyExists):
		return nil, domain.ErrAlreadyExists
	case errors.Is(err, domain.ErrNotFound):
		return nil, domain.ErrUnauthorized
	case err != nil:
		return nil, domain.Unavailable("update user", err)
	}
	return updated.ToSummary(), nil
}

// ChangePassword changes the password and forces re-login everywhere
func (s *authService) ChangePassword(ctx context.Context, userID string, req domain.ChangePasswordRequest) error {
	err := s.changePassword(ctx, userID, req)
	s.record("change_password", err)
	return err
}

func (s *authService) changePassword(ctx context.Context, userID string, req domain.ChangePasswordRequest) error {
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return domain.ErrInvalidInput
	}

	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return err
	}
	if !user.HasPassword() || !s.hasher.Verify(req.CurrentPassword, *user.PasswordHash) {
		return domain.ErrInvalidCredentials
	}

	digest, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return err
	}

	if _, err := s.users.UpdateFields(ctx, userID, domain.UserUpdate{PasswordHash: &digest}); err != nil {
		return domain.Unavailable("update password", err)
	}

	// Invalidate all sessions (force re-login)
	if err := s.sessions.RevokeAll(ctx, userID); err != nil {
		return err
	}
	s.logger.Info("password changed", "user_id", userID)
	return nil
}

// ListSessions lists the usable sessions of a user
func (s *authService) ListSessions(ctx context.Context, userID string) ([]*domain.Session, error) {
	return s.sessions.List(ctx, userID)
}

// activeUser loads an identity that may act. Missing and deactivated
// identities are both unauthorized.
func (s *authService) activeUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrUnauthorized
	}
	if err != nil {
		return nil, domain.Unavailable("get user", err)
	}
	if !user.Active {
		return nil, domain.ErrUnauthorized
	}
	return user, nil
}

func (s *authService) record(operation string, err error) {
	switch {
	case err == nil:
		s.metrics.RecordAuth(operation, driven.OutcomeSuccess)
	case domain.KindOf(err) == domain.KindUnavailable:
		s.logger.Error("auth operation failed", "operation", operation, "error", err)
		s.metrics.RecordAuth(operation, driven.OutcomeError)
	default:
		s.logger.Debug("auth operation rejected", "operation", operation, "reason", domain.KindOf(err).String())
		s.metrics.RecordAuth(operation, driven.OutcomeFailure)
	}
}


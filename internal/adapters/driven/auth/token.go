package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/custodia-labs/parranda-auth/internal/core/domain"
	"github.com/custodia-labs/parranda-auth/internal/core/ports/driven"
)

// Ensure TokenService implements driven.TokenService
var _ driven.TokenService = (*TokenService)(nil)

// MinSecretLength is the shortest accepted HS256 signing secret, in bytes
const MinSecretLength = 32

// ErrWeakSecret is returned when the signing secret is too short
var ErrWeakSecret = errors.New("jwt secret must be at least 32 bytes")

// jwtClaims is the wire form of domain.TokenClaims
type jwtClaims struct {
	Kind  domain.TokenKind  `json:"type"`
	Extra map[string]string `json:"ext,omitempty"`
	jwt.RegisteredClaims
}

// TokenConfig configures a TokenService
type TokenConfig struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Now is the clock used for issuing and verifying. Defaults to time.Now.
	Now func() time.Time
}

// TokenService issues and verifies HS256 JWTs
type TokenService struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	parser     *jwt.Parser
}

// NewTokenService creates a token service from cfg
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, fmt.Errorf("token ttls must be positive: access=%s refresh=%s", cfg.AccessTTL, cfg.RefreshTTL)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(cfg.Now),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	return &TokenService{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        cfg.Now,
		parser:     jwt.NewParser(opts...),
	}, nil
}

// IssueAccess signs an access token for subject
func (s *TokenService) IssueAccess(subject string, extra map[string]string) (string, time.Time, error) {
	return s.issue(subject, domain.TokenKindAccess, s.now(), s.accessTTL, extra)
}

// IssueRefresh signs a refresh token for subject
func (s *TokenService) IssueRefresh(subject string, extra map[string]string) (string, time.Time, error) {
	return s.issue(subject, domain.TokenKindRefresh, s.now(), s.refreshTTL, extra)
}

// IssuePair signs an access and a refresh token with the same issue time
func (s *TokenService) IssuePair(subject string, extra map[string]string) (*domain.TokenPair, error) {
	now := s.now()
	access, accessExp, err := s.issue(subject, domain.TokenKindAccess, now, s.accessTTL, extra)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.issue(subject, domain.TokenKindRefresh, now, s.refreshTTL, extra)
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

func (s *TokenService) issue(subject string, kind domain.TokenKind, now time.Time, ttl time.Duration, extra map[string]string) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, domain.ErrInvalidInput
	}

	jti, err := GenerateOpaqueSecret()
	if err != nil {
		return "", time.Time{}, err
	}

	claims := jwtClaims{
		Kind:  kind,
		Extra: extra,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.issuer,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", kind, err)
	}
	// The wire format has second precision; report the expiry the token carries.
	return signed, claims.ExpiresAt.Time, nil
}

// Verify validates signature, algorithm, expiry, issuer and kind. Any
// failure yields domain.ErrTokenInvalid.
func (s *TokenService) Verify(token string, kind domain.TokenKind) (*domain.TokenClaims, error) {
	if token == "" {
		return nil, domain.ErrTokenInvalid
	}

	var claims jwtClaims
	parsed, err := s.parser.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, domain.ErrTokenInvalid
	}
	if claims.Kind != kind || claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, domain.ErrTokenInvalid
	}

	out := &domain.TokenClaims{
		Subject:   claims.Subject,
		Kind:      claims.Kind,
		ID:        claims.ID,
		Issuer:    claims.Issuer,
		ExpiresAt: claims.ExpiresAt.Time,
		Extra:     claims.Extra,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}

// Fingerprint returns the storage digest of a refresh token
func (s *TokenService) Fingerprint(token string) string {
	return Fingerprint(token)
}

// GenerateOpaqueSecret returns a URL-safe random secret
func (s *TokenService) GenerateOpaqueSecret() (string, error) {
	return GenerateOpaqueSecret()
}

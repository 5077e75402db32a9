package domain

import (
	"errors"
	"fmt"
)

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique identity attribute is already taken
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidCredentials is the single login failure. It covers unknown
	// email, wrong password, missing hash and deactivated identity alike.
	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", ErrUnauthorized)

	// ErrTokenInvalid indicates a token failed verification (signature,
	// expiry, issuer, or kind). It never leaves the core.
	ErrTokenInvalid = errors.New("token invalid")

	// ErrServiceUnavailable indicates a store or other collaborator failed
	ErrServiceUnavailable = errors.New("service unavailable")
)

// Kind classifies an error for callers that branch on category rather than
// on a specific sentinel.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindConflict
	KindUnauthorized
	KindInvalidToken
	KindNotFound
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindInvalidToken:
		return "invalid_token"
	case KindNotFound:
		return "not_found"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// KindOf returns the category of err, following wrapped errors.
// Unavailability wins over any cause it wraps.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrServiceUnavailable):
		return KindUnavailable
	case errors.Is(err, ErrInvalidInput):
		return KindValidation
	case errors.Is(err, ErrAlreadyExists):
		return KindConflict
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrTokenInvalid):
		return KindInvalidToken
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindUnknown
	}
}

// Unavailable wraps a collaborator failure so that it classifies as
// KindUnavailable while keeping the original cause in the chain.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrServiceUnavailable, err)
}

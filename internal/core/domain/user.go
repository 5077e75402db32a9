package domain

import (
	"net/mail"
	"strings"
	"time"
)

// User is an identity record in the user directory
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     *string   `json:"full_name,omitempty"`
	Alias        *string   `json:"alias,omitempty"`
	Phone        *string   `json:"phone,omitempty"`
	AvatarURL    *string   `json:"avatar_url,omitempty"`
	PasswordHash *string   `json:"-"` // Never serialize
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasPassword reports whether the identity can log in with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// UserSummary provides a safe view of user data (no password hash)
type UserSummary struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  *string   `json:"full_name,omitempty"`
	Alias     *string   `json:"alias,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// ToSummary converts a User to UserSummary
func (u *User) ToSummary() *UserSummary {
	return &UserSummary{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Alias:     u.Alias,
		Phone:     u.Phone,
		AvatarURL: u.AvatarURL,
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
	}
}

// UserUpdate is a partial update of an identity. Nil fields are left alone.
type UserUpdate struct {
	FullName     *string
	Alias        *string
	Phone        *string
	AvatarURL    *string
	PasswordHash *string
	Active       *bool
}

// IsEmpty reports whether the update changes nothing.
func (u UserUpdate) IsEmpty() bool {
	return u.FullName == nil && u.Alias == nil && u.Phone == nil &&
		u.AvatarURL == nil && u.PasswordHash == nil && u.Active == nil
}

// Apply copies the set fields onto user.
func (u UserUpdate) Apply(user *User) {
	if u.FullName != nil {
		user.FullName = u.FullName
	}
	if u.Alias != nil {
		user.Alias = u.Alias
	}
	if u.Phone != nil {
		user.Phone = u.Phone
	}
	if u.AvatarURL != nil {
		user.AvatarURL = u.AvatarURL
	}
	if u.PasswordHash != nil {
		user.PasswordHash = u.PasswordHash
	}
	if u.Active != nil {
		user.Active = *u.Active
	}
}

// NormalizeEmail returns the canonical form used for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks that email is a bare, parseable address.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrInvalidInput
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidInput
	}
	return nil
}

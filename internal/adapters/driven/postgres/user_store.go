package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/custodia-labs/parranda-auth/internal/core/domain"
	"github.com/custodia-labs/parranda-auth/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.UserStore = (*UserStore)(nil)

const userColumns = `id, email, full_name, alias, phone, avatar_url, password_hash, is_active, created_at, updated_at`

// UserStore implements driven.UserStore using PostgreSQL.
// The email column is CITEXT, so email lookups ignore case.
type UserStore struct {
	db *DB
}

// NewUserStore creates a new UserStore
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

// Create inserts a new user
func (s *UserStore) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		domain.NormalizeEmail(user.Email),
		NullString(user.FullName),
		NullString(user.Alias),
		NullString(user.Phone),
		NullString(user.AvatarURL),
		NullString(user.PasswordHash),
		user.Active,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

// Get retrieves a user by ID
func (s *UserStore) Get(ctx context.Context, id string) (*domain.User, error) {
	if !validUUID(id) {
		return nil, domain.ErrNotFound
	}
	return s.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByEmail retrieves a user by email, ignoring case
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, domain.NormalizeEmail(email))
}

// GetByAlias retrieves a user by exact alias
func (s *UserStore) GetByAlias(ctx context.Context, alias string) (*domain.User, error) {
	return s.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE alias = $1`, alias)
}

// UpdateFields applies the non-nil fields of update and returns the new row
func (s *UserStore) UpdateFields(ctx context.Context, id string, update domain.UserUpdate) (*domain.User, error) {
	if !validUUID(id) {
		return nil, domain.ErrNotFound
	}

	query := `
		UPDATE users SET
			full_name = COALESCE($2, full_name),
			alias = COALESCE($3, alias),
			phone = COALESCE($4, phone),
			avatar_url = COALESCE($5, avatar_url),
			password_hash = COALESCE($6, password_hash),
			is_active = COALESCE($7, is_active),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + userColumns

	user, err := scanUser(s.db.QueryRowContext(ctx, query,
		id,
		NullString(update.FullName),
		NullString(update.Alias),
		NullString(update.Phone),
		NullString(update.AvatarURL),
		NullString(update.PasswordHash),
		NullBool(update.Active),
	))
	if isUniqueViolation(err) {
		return nil, domain.ErrAlreadyExists
	}
	return user, err
}

func (s *UserStore) getOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, query, arg))
}

// scanUser reads one users row. sql.ErrNoRows becomes domain.ErrNotFound.
func scanUser(row *sql.Row) (*domain.User, error) {
	var user domain.User
	var fullName, alias, phone, avatarURL, passwdHash sql.NullString

	err := row.Scan(
		&user.ID,
		&user.Email,
		&fullName,
		&alias,
		&phone,
		&avatarURL,
		&passwdHash,
		&user.Active,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	user.FullName = StringPtr(fullName)
	user.Alias = StringPtr(alias)
	user.Phone = StringPtr(phone)
	user.AvatarURL = StringPtr(avatarURL)
	user.PasswordHash = StringPtr(passwdHash)
	return &user, nil
}

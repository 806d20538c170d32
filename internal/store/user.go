// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"blogapi/internal/models"
	"blogapi/internal/pagination"
)

// UserFilter narrows user listings. Zero fields impose no constraint.
type UserFilter struct {
	Role   models.Role
	Search string
}

// UserSortFields are the sort keys accepted by user listings.
var UserSortFields = []string{"created_at", "updated_at", "name", "email"}

var userSortColumns = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"name":       "name",
	"email":      "email",
}

const userColumns = `id, name, email, password_hash, profile_picture, role, totp_secret, totp_enabled, created_at, updated_at`

// NewUser carries the fields needed to create an account.
type NewUser struct {
	Name     string
	Email    string
	Password string
	Role     models.Role
}

// UserUpdate is a partial update; nil fields are left unchanged.
type UserUpdate struct {
	Name           *string
	Email          *string
	Password       *string
	Role           *models.Role
	ProfilePicture *string
}

// UserStore handles all user-related database operations.
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a new UserStore with the given database connection.
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.ProfilePicture, &u.Role,
		&u.TOTPSecret, &u.TOTPEnabled, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// FindByEmail retrieves a live user by email, case-insensitively.
// Returns nil if not found.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users WHERE LOWER(email) = LOWER($1) AND deleted_at IS NULL
	`, strings.TrimSpace(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return u, nil
}

// FindByID retrieves a live user by UUID. Returns nil if not found.
func (s *UserStore) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users WHERE id = $1 AND deleted_at IS NULL
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return u, nil
}

func userWhere(f UserFilter) *queryBuilder {
	b := &queryBuilder{}
	b.where("deleted_at IS NULL")
	if f.Role != "" {
		b.where("role = " + b.arg(f.Role))
	}
	if f.Search != "" {
		b.search("name", f.Search)
	}
	return b
}

// Count returns the number of live users matching f.
func (s *UserStore) Count(ctx context.Context, f UserFilter) (int64, error) {
	b := userWhere(f)
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users "+b.clause(), b.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// Find returns one window of live users matching q.Filter.
func (s *UserStore) Find(ctx context.Context, q pagination.Query[UserFilter]) ([]models.User, error) {
	b := userWhere(q.Filter)
	query := "SELECT " + userColumns + " FROM users " + b.clause() + " " +
		b.window(q.Sort, userSortColumns, "id", q.Limit, q.Offset)

	rows, err := s.db.QueryContext(ctx, query, b.args...)
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// List runs a paginated user listing.
func (s *UserStore) List(ctx context.Context, req pagination.Request[UserFilter]) (*pagination.Result[models.User], error) {
	return pagination.Paginate[models.User](ctx, s, req)
}

// Create inserts a new user with a bcrypt-hashed password. An empty role
// defaults to RoleUser. Returns ErrConflict if the email is taken.
func (s *UserStore) Create(ctx context.Context, nu NewUser) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(nu.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	role := nu.Role
	if role == "" {
		role = models.RoleUser
	}

	u, err := scanUser(s.db.QueryRowContext(ctx, `
		INSERT INTO users (name, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING `+userColumns,
		nu.Name, strings.TrimSpace(nu.Email), string(hash), role,
	))
	if isUniqueViolation(err) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// Update applies upd to a live user and returns the new state.
func (s *UserStore) Update(ctx context.Context, id uuid.UUID, upd UserUpdate) (*models.User, error) {
	b := &setBuilder{}
	if upd.Name != nil {
		b.set("name", *upd.Name)
	}
	if upd.Email != nil {
		b.set("email", strings.TrimSpace(*upd.Email))
	}
	if upd.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*upd.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		b.set("password_hash", string(hash))
	}
	if upd.Role != nil {
		b.set("role", *upd.Role)
	}
	if upd.ProfilePicture != nil {
		b.set("profile_picture", *upd.ProfilePicture)
	}

	if b.empty() {
		u, err := s.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if u == nil {
			return nil, ErrNotFound
		}
		return u, nil
	}

	query := "UPDATE users SET " + b.assignments() +
		" WHERE id = " + b.arg(id) + " AND deleted_at IS NULL RETURNING " + userColumns

	u, err := scanUser(s.db.QueryRowContext(ctx, query, b.args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if isUniqueViolation(err) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

// Delete soft-deletes a user and returns the record as it was.
func (s *UserStore) Delete(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `
		UPDATE users SET deleted_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+userColumns, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("delete user: %w", err)
	}
	return u, nil
}

// SetTOTPSecret saves the TOTP secret for a user (during 2FA setup).
func (s *UserStore) SetTOTPSecret(ctx context.Context, userID uuid.UUID, secret string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET totp_secret = $1, updated_at = NOW() WHERE id = $2
	`, secret, userID)
	if err != nil {
		return fmt.Errorf("set totp secret: %w", err)
	}
	return nil
}

// EnableTOTP marks 2FA as active for a user (after successful code verification).
func (s *UserStore) EnableTOTP(ctx context.Context, userID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET totp_enabled = TRUE, updated_at = NOW() WHERE id = $1
	`, userID)
	if err != nil {
		return fmt.Errorf("enable totp: %w", err)
	}
	return nil
}

// ResetTOTP clears the TOTP secret and disables 2FA for a user.
func (s *UserStore) ResetTOTP(ctx context.Context, userID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET totp_secret = NULL, totp_enabled = FALSE, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, userID)
	if err != nil {
		return fmt.Errorf("reset totp: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// CheckPassword compares a plaintext password against the user's bcrypt hash.
func (s *UserStore) CheckPassword(u *models.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

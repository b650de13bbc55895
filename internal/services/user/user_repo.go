package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/curaious/oneflow/internal/rbac"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
)

const userColumns = `id, name, email, password_hash, role, status, email_verified,
	verification_code, verification_expires_at, created_at, updated_at`

type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	var user User
	err := r.db.GetContext(ctx, &user, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var user User
	err := r.db.GetContext(ctx, &user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		// ids are UUIDs; a malformed one cannot name a user
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "22P02" {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// Create inserts u and fills the generated columns back into it.
func (r *UserRepo) Create(ctx context.Context, u *User) error {
	query := `
		INSERT INTO users (name, email, password_hash, role, status, email_verified, verification_code, verification_expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + userColumns

	err := r.db.GetContext(ctx, u, query,
		u.Name, u.Email, u.PasswordHash, u.Role, u.Status, u.EmailVerified, u.VerificationCode, u.VerificationExpiresAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("%w: %s", ErrUserAlreadyExists, u.Email)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *UserRepo) List(ctx context.Context) ([]*User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC`

	var users []*User
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (r *UserRepo) UpdateRole(ctx context.Context, id string, role rbac.Role) (*User, error) {
	return r.updateOne(ctx, `UPDATE users SET role = $1, updated_at = NOW() WHERE id = $2 RETURNING `+userColumns, role, id)
}

func (r *UserRepo) UpdateStatus(ctx context.Context, id string, status Status) (*User, error) {
	return r.updateOne(ctx, `UPDATE users SET status = $1, updated_at = NOW() WHERE id = $2 RETURNING `+userColumns, status, id)
}

func (r *UserRepo) SetVerificationCode(ctx context.Context, id string, code string, expiresAt time.Time) error {
	_, err := r.updateOne(ctx, `
		UPDATE users SET verification_code = $1, verification_expires_at = $2, updated_at = NOW()
		WHERE id = $3 RETURNING `+userColumns, code, expiresAt, id)
	return err
}

func (r *UserRepo) MarkVerified(ctx context.Context, id string) (*User, error) {
	return r.updateOne(ctx, `
		UPDATE users SET email_verified = TRUE, verification_code = NULL, verification_expires_at = NULL, updated_at = NOW()
		WHERE id = $1 RETURNING `+userColumns, id)
}

func (r *UserRepo) updateOne(ctx context.Context, query string, args ...interface{}) (*User, error) {
	var user User
	err := r.db.GetContext(ctx, &user, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return &user, nil
}

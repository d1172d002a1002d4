package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// User is an account row. RefreshToken is the persisted refresh pointer:
// the one refresh token currently valid for this account, or NULL when the
// account is logged out everywhere.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	RefreshToken sql.NullString
	CreatedAt    time.Time
}

const userColumns = "user_id, username, email, password, refresh_token, created_at"

// UserStore persists accounts and their refresh pointers.
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a user store on an open database handle.
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.RefreshToken, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

// GetByID fetches a user by id. Returns (nil, nil) when no such user exists.
func (s *UserStore) GetByID(ctx context.Context, id int64) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE user_id = $1", id)
	return scanUser(row)
}

// GetByEmail fetches a user by email. Returns (nil, nil) when absent.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = $1", email)
	return scanUser(row)
}

// GetByUsername fetches a user by username. Returns (nil, nil) when absent.
func (s *UserStore) GetByUsername(ctx context.Context, username string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = $1", username)
	return scanUser(row)
}

// Create inserts a new account and returns the stored row.
func (s *UserStore) Create(ctx context.Context, username, email, passwordHash string) (*User, error) {
	u := &User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (username, email, password, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING user_id, created_at
	`, username, email, passwordHash).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// UpdateRefreshToken overwrites the persisted refresh pointer. A nil token
// clears it, revoking all refresh capability for the account.
func (s *UserStore) UpdateRefreshToken(ctx context.Context, id int64, token *string) error {
	var value sql.NullString
	if token != nil {
		value = sql.NullString{String: *token, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		"UPDATE users SET refresh_token = $1 WHERE user_id = $2", value, id)
	if err != nil {
		return fmt.Errorf("update refresh token: %w", err)
	}
	return nil
}

// RotateRefreshToken atomically replaces the refresh pointer, but only if
// the stored value still equals the presented token. It reports whether the
// swap happened; false means the token was already rotated away, never
// issued, or the account no longer exists — the replay/reuse defense.
func (s *UserStore) RotateRefreshToken(ctx context.Context, id int64, presented, next string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET refresh_token = $1 WHERE user_id = $2 AND refresh_token = $3",
		next, id, presented)
	if err != nil {
		return false, fmt.Errorf("rotate refresh token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rotate refresh token: %w", err)
	}
	return n == 1, nil
}

// Count returns the total number of accounts.
func (s *UserStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// ErrSessionNotFound covers both absent and expired sessions.
var ErrSessionNotFound = errors.New("session not found")

// Session records that a token issued to a user is still honoured.
type Session struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	TokenHash string    `db:"token_hash" json:"-"`
	UserAgent string    `db:"user_agent" json:"user_agent"`
	IP        string    `db:"ip" json:"ip"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Store is keyed by (user id, raw token). Implementations only ever persist HashToken(token).
type Store interface {
	Create(ctx context.Context, s *Session, token string) error
	Get(ctx context.Context, userID, token string) (*Session, error)
	Delete(ctx context.Context, userID, token string) error
	DeleteAllForUser(ctx context.Context, userID string) error
}

func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

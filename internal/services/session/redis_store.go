package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each session under its own key with a TTL matching the token lifetime.
// A per-user set indexes the keys so all sessions of a user can be revoked at once.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	now       func() time.Time
}

func NewRedisStore(client *redis.Client, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "session:"
	}

	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix,
		now:       time.Now,
	}
}

func (r *RedisStore) sessionKey(userID, tokenHash string) string {
	return fmt.Sprintf("%s%s:%s", r.keyPrefix, userID, tokenHash)
}

func (r *RedisStore) userKey(userID string) string {
	return fmt.Sprintf("%suser:%s", r.keyPrefix, userID)
}

func (r *RedisStore) Create(ctx context.Context, s *Session, token string) error {
	now := r.now()
	ttl := s.ExpiresAt.Sub(now)
	if ttl <= 0 {
		return fmt.Errorf("session already expired at %s", s.ExpiresAt.Format(time.RFC3339))
	}

	s.ID = uuid.NewString()
	s.TokenHash = HashToken(token)
	s.CreatedAt = now

	// TokenHash is not serialised, the key carries it.
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	key := r.sessionKey(s.UserID, s.TokenHash)
	userKey := r.userKey(s.UserID)

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, key, payload, ttl)
	pipe.SAdd(ctx, userKey, key)
	// The index lives at least as long as its longest session.
	if cur := r.client.TTL(ctx, userKey).Val(); cur < ttl {
		pipe.Expire(ctx, userKey, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, userID, token string) (*Session, error) {
	hash := HashToken(token)
	raw, err := r.client.Get(ctx, r.sessionKey(userID, hash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	s.TokenHash = hash

	if !s.ExpiresAt.After(r.now()) {
		return nil, ErrSessionNotFound
	}
	return &s, nil
}

func (r *RedisStore) Delete(ctx context.Context, userID, token string) error {
	key := r.sessionKey(userID, HashToken(token))

	pipe := r.client.TxPipeline()
	del := pipe.Del(ctx, key)
	pipe.SRem(ctx, r.userKey(userID), key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if del.Val() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *RedisStore) DeleteAllForUser(ctx context.Context, userID string) error {
	userKey := r.userKey(userID)
	keys, err := r.client.SMembers(ctx, userKey).Result()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	keys = append(keys, userKey)
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}
	return nil
}

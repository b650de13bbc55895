package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewRedisStore(rdb, ""), mr
}

func TestRedisStore_CreateGet(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	s := &Session{UserID: "u1", UserAgent: "test", IP: "127.0.0.1", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, store.Create(ctx, s, "token-a"))
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, HashToken("token-a"), s.TokenHash)

	key := "session:u1:" + HashToken("token-a")
	assert.True(t, mr.Exists(key))
	assert.False(t, mr.Exists("session:u1:token-a"), "raw token must not be used as key")
	assert.InDelta(t, time.Hour.Seconds(), mr.TTL(key).Seconds(), 5)

	got, err := store.Get(ctx, "u1", "token-a")
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "test", got.UserAgent)

	_, err = store.Get(ctx, "u1", "token-b")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = store.Get(ctx, "u2", "token-a")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStore_Expiry(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &Session{UserID: "u1", ExpiresAt: time.Now().Add(time.Minute)}, "token-a"))

	mr.FastForward(2 * time.Minute)

	_, err := store.Get(ctx, "u1", "token-a")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStore_CreateRejectsExpired(t *testing.T) {
	store, _ := newTestRedisStore(t)

	err := store.Create(context.Background(), &Session{UserID: "u1", ExpiresAt: time.Now().Add(-time.Second)}, "token-a")
	assert.Error(t, err)
}

func TestRedisStore_Delete(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &Session{UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}, "token-a"))
	require.NoError(t, store.Create(ctx, &Session{UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}, "token-b"))

	require.NoError(t, store.Delete(ctx, "u1", "token-a"))

	_, err := store.Get(ctx, "u1", "token-a")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = store.Get(ctx, "u1", "token-b")
	assert.NoError(t, err, "other sessions of the same user survive")

	assert.ErrorIs(t, store.Delete(ctx, "u1", "token-a"), ErrSessionNotFound)
}

func TestRedisStore_DeleteAllForUser(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	for _, tok := range []string{"t1", "t2", "t3"} {
		require.NoError(t, store.Create(ctx, &Session{UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}, tok))
	}
	require.NoError(t, store.Create(ctx, &Session{UserID: "u2", ExpiresAt: time.Now().Add(time.Hour)}, "t1"))

	require.NoError(t, store.DeleteAllForUser(ctx, "u1"))

	for _, tok := range []string{"t1", "t2", "t3"} {
		_, err := store.Get(ctx, "u1", tok)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	}
	assert.False(t, mr.Exists("session:user:u1"))

	_, err := store.Get(ctx, "u2", "t1")
	assert.NoError(t, err)

	assert.NoError(t, store.DeleteAllForUser(ctx, "nobody"))
}

func TestHashToken(t *testing.T) {
	assert.Equal(t, HashToken("abc"), HashToken("abc"))
	assert.NotEqual(t, HashToken("abc"), HashToken("abd"))
	assert.Len(t, HashToken("abc"), 64)
}

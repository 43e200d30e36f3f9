package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/gamestore/internal/domain/auth"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestSessionStore(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestClient(t)
	store := NewSessionStore(client, "test:session", time.Hour)

	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	login := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	want := auth.SessionData{
		UserID:       7,
		Email:        "alice@example.com",
		Username:     "alice",
		Role:         auth.RoleAdmin,
		LoginTime:    login,
		LastActivity: login,
	}
	require.NoError(t, store.Save(ctx, "s1", want))

	raw, err := mr.Get("test:session:s1")
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": 7,
		"email": "alice@example.com",
		"username": "alice",
		"role": "admin",
		"loginTime": "2025-06-15T12:00:00Z",
		"lastActivity": "2025-06-15T12:00:00Z"
	}`, raw)

	got, ok, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	mr.FastForward(59 * time.Minute)
	_, ok, err = store.Get(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok, "get refreshes the ttl")
	mr.FastForward(59 * time.Minute)
	_, ok, _ = store.Get(ctx, "s1")
	assert.True(t, ok)

	mr.FastForward(2 * time.Hour)
	_, ok, err = store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Save(ctx, "s2", want))
	require.NoError(t, store.Delete(ctx, "s2"))
	require.NoError(t, store.Delete(ctx, "s2"))
	assert.False(t, mr.Exists("test:session:s2"))
}

func TestSessionStore_DeleteUserSessions(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestClient(t)
	store := NewSessionStore(client, "test:session", time.Hour)

	alice := auth.SessionData{UserID: 7, Role: auth.RoleUser}
	bob := auth.SessionData{UserID: 8, Role: auth.RoleUser}
	for _, id := range []string{"laptop", "phone", "tablet"} {
		require.NoError(t, store.Save(ctx, id, alice))
	}
	require.NoError(t, store.Save(ctx, "bob", bob))
	require.NoError(t, store.Delete(ctx, "tablet"))

	members, err := mr.Members("test:session:user:7")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"laptop", "phone"}, members)

	require.NoError(t, store.DeleteUserSessions(ctx, 7, "laptop"))

	_, ok, err := store.Get(ctx, "laptop")
	require.NoError(t, err)
	assert.True(t, ok, "kept session survives")
	_, ok, err = store.Get(ctx, "phone")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = store.Get(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, ok, "other users are untouched")

	members, err = mr.Members("test:session:user:7")
	require.NoError(t, err)
	assert.Equal(t, []string{"laptop"}, members)

	require.NoError(t, store.DeleteUserSessions(ctx, 99, ""))
}

func TestSessionStore_Corrupt(t *testing.T) {
	mr, client := newTestClient(t)
	require.NoError(t, mr.Set("gamestore:session:bad", "{not json"))

	_, _, err := NewSessionStore(client, "", time.Hour).Get(context.Background(), "bad")
	require.Error(t, err)
}

func TestFixedWindowLimiter(t *testing.T) {
	ctx := context.Background()
	_, client := newTestClient(t)
	limiter, err := NewFixedWindowLimiter(client, "test:ratelimit", 2, time.Minute)
	require.NoError(t, err)
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	for i, want := range []bool{true, true, false} {
		ok, err := limiter.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.Equal(t, want, ok, "request %d", i+1)
	}

	ok, err := limiter.Allow(ctx, "5.6.7.8")
	require.NoError(t, err)
	assert.True(t, ok, "keys are independent")

	now = now.Add(time.Minute)
	ok, err = limiter.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, ok, "next window resets")
}

func TestFixedWindowLimiter_FailClosed(t *testing.T) {
	mr, client := newTestClient(t)
	limiter, err := NewFixedWindowLimiter(client, "", 1, time.Second)
	require.NoError(t, err)
	mr.Close()

	ok, err := limiter.Allow(context.Background(), "ip-1")
	require.Error(t, err)
	assert.False(t, ok)
}

func TestFixedWindowLimiter_RejectsBadParameters(t *testing.T) {
	_, client := newTestClient(t)
	for name, tt := range map[string]struct {
		limit  int
		window time.Duration
	}{
		"ZeroLimit":      {0, time.Second},
		"ZeroWindow":     {1, 0},
		"SubMillisecond": {1, 999 * time.Microsecond},
		"NegativeWindow": {1, -time.Second},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewFixedWindowLimiter(client, "", tt.limit, tt.window)
			require.Error(t, err)
		})
	}

	limiter, err := NewFixedWindowLimiter(client, "", 1, time.Millisecond)
	require.NoError(t, err)
	ok, err := limiter.Allow(context.Background(), "ip-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCookieRoundTrip(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteCookie(rec, " 6f1c1c7e-3d1b-4c55-9d4e-0d6f3a3c2b10 ", time.Hour, true)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, 3600, cookies[0].MaxAge)
	assert.True(t, cookies[0].Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)

	req := httptest.NewRequest(http.MethodGet, "/members/dashboard", nil)
	req.AddCookie(cookies[0])

	id, ok := ReadCookie(req)
	require.True(t, ok)
	assert.Equal(t, "6f1c1c7e-3d1b-4c55-9d4e-0d6f3a3c2b10", id)
}

func TestReadCookieMissing(t *testing.T) {
	_, ok := ReadCookie(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok)

	_, ok = ReadCookie(nil)
	assert.False(t, ok)
}

func TestClearCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	ClearCookie(rec, false)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
	assert.Empty(t, cookies[0].Value)
}

func TestLookupRejectsMalformedIDWithoutRedis(t *testing.T) {
	store := NewStore(nil, time.Hour)

	_, err := store.Lookup(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, store.Destroy(context.Background(), ""))
	assert.Equal(t, time.Hour, store.TTL())
}

func newRedisStore(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *Store) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	return mr, NewStore(client, ttl)
}

func TestStoreLifecycle(t *testing.T) {
	mr, store := newRedisStore(t, time.Hour)
	ctx := context.Background()

	id, err := store.Create(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "42", mustGet(t, mr, "session:"+id))
	assert.Equal(t, time.Hour, mr.TTL("session:"+id))

	mr.FastForward(50 * time.Minute)
	userID, err := store.Lookup(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
	assert.Equal(t, time.Hour, mr.TTL("session:"+id), "lookup extends the session")

	require.NoError(t, store.Destroy(ctx, id))
	assert.False(t, mr.Exists("session:"+id))

	_, err = store.Lookup(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreLookupExpired(t *testing.T) {
	mr, store := newRedisStore(t, time.Minute)
	ctx := context.Background()

	id, err := store.Create(ctx, 7)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)
	_, err = store.Lookup(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreLookupCorruptValue(t *testing.T) {
	mr, store := newRedisStore(t, time.Minute)
	id := "6f1c1c7e-3d1b-4c55-9d4e-0d6f3a3c2b10"
	require.NoError(t, mr.Set("session:"+id, "not-a-number"))

	_, err := store.Lookup(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreRedisDown(t *testing.T) {
	mr, store := newRedisStore(t, time.Minute)
	mr.Close()
	ctx := context.Background()

	_, err := store.Create(ctx, 1)
	assert.Error(t, err)

	_, err = store.Lookup(ctx, "6f1c1c7e-3d1b-4c55-9d4e-0d6f3a3c2b10")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := mr.Get(key)
	require.NoError(t, err)
	return v
}

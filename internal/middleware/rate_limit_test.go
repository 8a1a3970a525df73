package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/deppfellow/memberships/internal/errs"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRateLimitedStatus(t *testing.T, limit int) (*miniredis.Miniredis, echo.HandlerFunc) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	s := newTestServer()
	s.Config.RateLimit.StatusRequests = limit
	s.Config.RateLimit.StatusWindow = time.Minute
	s.Redis = client

	return mr, NewRateLimitMiddleware(s).StatusLookup()(ok)
}

func statusRequest(h echo.HandlerFunc) (*httptest.ResponseRecorder, error) {
	req := httptest.NewRequest(http.MethodGet, "/members/status?cpf=52998224725", nil)
	req.RemoteAddr = "203.0.113.7:51000"
	rec := httptest.NewRecorder()
	return rec, h(echo.New().NewContext(req, rec))
}

func TestStatusLookupRateLimit(t *testing.T) {
	_, h := newRateLimitedStatus(t, 2)

	for i := 0; i < 2; i++ {
		rec, err := statusRequest(h)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec, err := statusRequest(h)

	var httpErr *errs.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusTooManyRequests, httpErr.Status)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestStatusLookupFailsOpenWithoutRedis(t *testing.T) {
	mr, h := newRateLimitedStatus(t, 1)
	mr.Close()

	for i := 0; i < 3; i++ {
		rec, err := statusRequest(h)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("Retry-After"))
	}
}

package middleware

import (
	"math"
	"strconv"

	"github.com/deppfellow/memberships/internal/errs"
	"github.com/deppfellow/memberships/internal/lib/ratelimit"
	"github.com/deppfellow/memberships/internal/server"
	"github.com/labstack/echo/v4"
)

// RateLimitMiddleware throttles public endpoints per client IP.
type RateLimitMiddleware struct {
	server *server.Server
	status *ratelimit.Limiter
}

func NewRateLimitMiddleware(s *server.Server) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		server: s,
		status: ratelimit.New(s.Redis, "status",
			s.Config.RateLimit.StatusRequests, s.Config.RateLimit.StatusWindow),
	}
}

// StatusLookup limits the public status lookup.
func (r *RateLimitMiddleware) StatusLookup() echo.MiddlewareFunc {
	return r.limit(r.status, "/members/status")
}

// limit rejects requests over the limiter's budget with 429. When Redis is
// unreachable the request is let through.
func (r *RateLimitMiddleware) limit(limiter *ratelimit.Limiter, endpoint string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			res, err := limiter.Allow(c.Request().Context(), c.RealIP())
			if err != nil {
				GetLogger(c).Error().Err(err).Str("endpoint", endpoint).Msg("rate limiter unavailable")
				return next(c)
			}

			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.Limit))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(res.Remaining, 0)))

			if !res.Allowed {
				r.RecordRateLimitHit(endpoint)
				c.Response().Header().Set("Retry-After",
					strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
				return errs.NewTooManyRequestsError("Too many requests, try again later")
			}

			return next(c)
		}
	}
}

// RecordRateLimitHit records a RateLimitHit event in New Relic.
func (r *RateLimitMiddleware) RecordRateLimitHit(endpoint string) {
	if app := r.server.LoggerService.GetApplication(); app != nil {
		app.RecordCustomEvent("RateLimitHit", map[string]interface{}{
			"endpoint": endpoint,
		})
	}
}

package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/deppfellow/memberships/internal/middleware"
	"github.com/deppfellow/memberships/internal/server"
	"github.com/labstack/echo/v4"
)

// HealthHandler reports whether the service and its dependencies are up.
type HealthHandler struct {
	Handler
}

func NewHealthHandler(s *server.Server) *HealthHandler {
	return &HealthHandler{
		Handler: NewHandler(s),
	}
}

// pinger is satisfied by the pgx pool and, through pingFunc, the redis client.
type pinger interface {
	Ping(ctx context.Context) error
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

// CheckHealth answers 200 when every configured dependency responds and 503
// otherwise. Sessions, the status rate limiter and jobs all live in Redis,
// so it counts as a required dependency. With health checks disabled only
// liveness is reported.
func (h *HealthHandler) CheckHealth(c echo.Context) error {
	start := time.Now()

	logger := middleware.GetLogger(c).With().
		Str("operation", "health_check").
		Logger()

	checks := make(map[string]interface{})
	response := map[string]interface{}{
		"status":      "healthy",
		"timestamp":   time.Now().UTC(),
		"environment": h.server.Config.Primary.Env,
		"checks":      checks,
	}

	settings := h.server.Config.Observability.HealthChecks

	isHealthy := true
	if settings.Enabled {
		dependencies := h.dependencies()
		for _, name := range settings.Checks {
			dep, ok := dependencies[name]
			if !ok {
				continue
			}
			result, healthy := h.check(c.Request().Context(), name, dep, settings.Timeout)
			checks[name] = result
			if !healthy {
				isHealthy = false
			}
		}
	}

	if !isHealthy {
		response["status"] = "unhealthy"

		logger.Warn().
			Dur("total_duration", time.Since(start)).
			Msg("health check failed")

		h.recordFailure(map[string]interface{}{
			"check_type":        "overall",
			"operation":         "health_check",
			"error_type":        "overall_unhealthy",
			"total_duration_ms": time.Since(start).Milliseconds(),
		})

		return c.JSON(http.StatusServiceUnavailable, response)
	}

	logger.Info().
		Dur("total_duration", time.Since(start)).
		Msg("health check passed")

	if err := c.JSON(http.StatusOK, response); err != nil {
		logger.Error().Err(err).Msg("failed to write JSON response")
		return fmt.Errorf("failed to write JSON response: %w", err)
	}

	return nil
}

func (h *HealthHandler) dependencies() map[string]pinger {
	dependencies := map[string]pinger{}
	if h.server.DB != nil {
		dependencies["database"] = h.server.DB.Pool
	}
	if h.server.Redis != nil {
		dependencies["redis"] = pingFunc(func(ctx context.Context) error {
			return h.server.Redis.Ping(ctx).Err()
		})
	}
	return dependencies
}

func (h *HealthHandler) check(parent context.Context, name string, dep pinger, timeout time.Duration) (map[string]interface{}, bool) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	start := time.Now()
	err := dep.Ping(ctx)
	elapsed := time.Since(start)

	logger := h.server.Logger.With().Str("check", name).Logger()

	if err != nil {
		logger.Error().
			Err(err).
			Dur("response_time", elapsed).
			Msgf("%s health check failed", name)

		h.recordFailure(map[string]interface{}{
			"check_type":       name,
			"operation":        "health_check",
			"error_type":       name + "_unhealthy",
			"response_time_ms": elapsed.Milliseconds(),
			"error_message":    err.Error(),
		})

		return map[string]interface{}{
			"status":        "unhealthy",
			"response_time": elapsed.String(),
			"error":         err.Error(),
		}, false
	}

	logger.Debug().
		Dur("response_time", elapsed).
		Msgf("%s health check passed", name)

	return map[string]interface{}{
		"status":        "healthy",
		"response_time": elapsed.String(),
	}, true
}

func (h *HealthHandler) recordFailure(attrs map[string]interface{}) {
	if app := h.server.LoggerService.GetApplication(); app != nil {
		app.RecordCustomEvent("HealthCheckError", attrs)
	}
}

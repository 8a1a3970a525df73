package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/deppfellow/memberships/internal/errs"
	"github.com/deppfellow/memberships/internal/lib/session"
	"github.com/deppfellow/memberships/internal/model"
	"github.com/deppfellow/memberships/internal/server"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

const (
	// UserKey holds the logged-in *model.User in the echo context.
	UserKey = "user"
	// SessionIDKey holds the id of the current session.
	SessionIDKey = "session_id"

	// LoginPath is where anonymous users are sent by RequireAuth.
	LoginPath = "/members/login"

	// WebhookSecretHeader is the alternative to a bearer token for webhooks.
	WebhookSecretHeader = "X-Webhook-Secret"
)

// UserResolver resolves a session id into its user.
type UserResolver interface {
	UserFromSession(ctx context.Context, sessionID string) (*model.User, error)
}

// AuthMiddleware loads sessions and guards routes.
type AuthMiddleware struct {
	server *server.Server
	users  UserResolver
}

func NewAuthMiddleware(s *server.Server, users UserResolver) *AuthMiddleware {
	return &AuthMiddleware{
		server: s,
		users:  users,
	}
}

// LoadSession attaches the logged-in user to the context when the request
// carries a valid session cookie. Stale cookies are cleared. It never
// rejects a request.
func (auth *AuthMiddleware) LoadSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		sessionID, ok := session.ReadCookie(c.Request())
		if !ok {
			return next(c)
		}

		user, err := auth.users.UserFromSession(c.Request().Context(), sessionID)
		if err != nil {
			if !errors.Is(err, session.ErrNotFound) {
				auth.server.Logger.Error().
					Err(err).
					Str("function", "LoadSession").
					Str("request_id", GetRequestID(c)).
					Msg("could not resolve session")
			}
			session.ClearCookie(c.Response(), auth.server.Config.Auth.Secure())
			return next(c)
		}

		c.Set(UserKey, user)
		c.Set(UserIDKey, strconv.FormatInt(user.ID, 10))
		c.Set(SessionIDKey, sessionID)

		return next(c)
	}
}

// RequireAuth redirects anonymous users to the login page, keeping the
// requested path in ?next=.
func (auth *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if GetUser(c) == nil {
			target := LoginPath + "?next=" + url.QueryEscape(c.Request().URL.RequestURI())

			auth.server.Logger.Debug().
				Str("function", "RequireAuth").
				Str("request_id", GetRequestID(c)).
				Str("path", c.Request().URL.Path).
				Msg("anonymous request redirected to login")

			return c.Redirect(http.StatusSeeOther, target)
		}
		return next(c)
	}
}

// RequireWebhookSecret accepts requests carrying the configured shared
// secret as a bearer token or in X-Webhook-Secret.
func (auth *AuthMiddleware) RequireWebhookSecret(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()

		if !webhookAuthorized(c.Request(), auth.server.Config.Auth.WebhookSecret) {
			auth.server.Logger.Warn().
				Str("function", "RequireWebhookSecret").
				Str("request_id", GetRequestID(c)).
				Str("ip", c.RealIP()).
				Dur("duration", time.Since(start)).
				Msg("webhook request rejected")

			return errs.NewUnauthorizedError("Unauthorized", false)
		}
		return next(c)
	}
}

func webhookAuthorized(r *http.Request, secret string) bool {
	if secret == "" {
		return false
	}

	provided := r.Header.Get(WebhookSecretHeader)
	if token, ok := strings.CutPrefix(r.Header.Get(echo.HeaderAuthorization), "Bearer "); ok {
		provided = strings.TrimSpace(token)
	}
	if provided == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) == 1
}

// GetUser returns the logged-in user, or nil.
func GetUser(c echo.Context) *model.User {
	if user, ok := c.Get(UserKey).(*model.User); ok {
		return user
	}
	return nil
}

// GetSessionID returns the current session id, or "".
func GetSessionID(c echo.Context) string {
	if id, ok := c.Get(SessionIDKey).(string); ok {
		return id
	}
	return ""
}

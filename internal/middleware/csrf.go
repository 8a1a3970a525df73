package middleware

import (
	"net/http"
	"strings"

	"github.com/deppfellow/memberships/internal/errs"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	// CSRFKey holds the current token in the echo context.
	CSRFKey = "csrf"

	// CSRFField is the hidden form input every HTML form posts back.
	CSRFField = "csrf_token"

	csrfCookie = "_csrf"
)

// csrfExempt lists the POST endpoints authenticated by other means.
var csrfExempt = map[string]bool{
	"/members/payments": true,
}

// CSRF guards the HTML form posts under /members with a double-submit token.
// Failed checks are answered with 403.
func (global *GlobalMiddlewares) CSRF() echo.MiddlewareFunc {
	return middleware.CSRFWithConfig(middleware.CSRFConfig{
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return !strings.HasPrefix(path, "/members") || csrfExempt[path]
		},
		TokenLookup:    "form:" + CSRFField,
		ContextKey:     CSRFKey,
		CookieName:     csrfCookie,
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSecure:   global.server.Config.Auth.Secure(),
		CookieSameSite: http.SameSiteLaxMode,
		ErrorHandler: func(err error, c echo.Context) error {
			GetLogger(c).Warn().Err(err).Msg("rejected form post without a valid csrf token")
			return errs.NewForbiddenError("Sua sessão expirou. Recarregue a página e tente novamente.", true)
		},
	})
}

// GetCSRFToken returns the token the current page must embed in its forms.
func GetCSRFToken(c echo.Context) string {
	token, _ := c.Get(CSRFKey).(string)
	return token
}

package router

import (
	"github.com/deppfellow/memberships/internal/handler"
	"github.com/labstack/echo/v4"
)

// registerSystemRoutes registers the endpoints that are not part of the
// membership domain: health, docs and their static assets, and the email
// previews when running locally.
func registerSystemRoutes(r *echo.Echo, h *handler.Handlers, local bool) {
	r.GET("/status", h.Health.CheckHealth)

	r.Static("/static", "static")

	r.GET("/docs", h.OpenAPI.ServeOpenAPIUI)

	if local {
		r.GET("/dev/emails/:template", h.Emails.Preview)
	}
}

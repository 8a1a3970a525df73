// Package router initializes the HTTP router (using Echo).
//
// It registers the middlewares and defines the route groups,
// mapping specific paths to their corresponding handlers
package router

import (
	"net/http"

	"github.com/deppfellow/memberships/internal/handler"
	"github.com/deppfellow/memberships/internal/middleware"
	"github.com/deppfellow/memberships/internal/server"
	"github.com/deppfellow/memberships/internal/service"
	"github.com/deppfellow/memberships/internal/web"
	"github.com/labstack/echo/v4"
)

// NewRouter builds the echo instance with every route registered.
func NewRouter(s *server.Server, h *handler.Handlers, services *service.Services) (*echo.Echo, error) {
	middlewares := middleware.NewMiddlewares(s, services.Auth)

	renderer, err := web.NewRenderer(s.Config.Membership.Location())
	if err != nil {
		return nil, err
	}

	router := echo.New()
	router.HideBanner = true
	router.Renderer = renderer
	router.HTTPErrorHandler = middlewares.Global.GlobalErrorHandler

	router.Use(
		middleware.RequestID(),
		middlewares.Tracing.NewRelicMiddleware(),
		middlewares.Tracing.EnhanceTracing(),
		middlewares.Auth.LoadSession,
		middlewares.ContextEnhancer.EnhanceContext(),
		middlewares.Global.CORS(),
		middlewares.Global.Secure(),
		middlewares.Global.CSRF(),
		middlewares.Global.RequestLogger(),
		middlewares.Global.Recover(),
	)

	registerSystemRoutes(router, h, s.Config.IsLocal())
	registerMemberRoutes(router, h, middlewares)

	return router, nil
}

func registerMemberRoutes(r *echo.Echo, h *handler.Handlers, m *middleware.Middlewares) {
	members := r.Group("/members")

	members.GET("/", handler.HandlePage(h.Member.Handler, h.Member.List, &handler.ListRequest{}))
	members.GET("/stats", handler.Handle(h.Member.Handler, h.Member.Stats, http.StatusOK, &handler.EmptyRequest{}))
	members.GET("/status",
		handler.Handle(h.Member.Handler, h.Member.Status, http.StatusOK, &handler.StatusRequest{}),
		m.RateLimit.StatusLookup(),
	)

	members.GET("/signup", handler.HandlePage(h.Auth.Handler, h.Auth.SignupForm, &handler.EmptyRequest{}))
	members.POST("/signup", handler.HandleForm(h.Auth.Handler, h.Auth.Signup, &handler.SignupForm{}))
	members.GET("/login", handler.HandlePage(h.Auth.Handler, h.Auth.LoginForm, &handler.LoginPage{}))
	members.POST("/login", handler.HandleForm(h.Auth.Handler, h.Auth.Login, &handler.LoginForm{}))

	members.POST("/payments",
		handler.Handle(h.Payment.Handler, h.Payment.Record, http.StatusCreated, &handler.RecordPaymentRequest{}),
		m.Auth.RequireWebhookSecret,
	)

	account := members.Group("", m.Auth.RequireAuth)

	account.POST("/logout", handler.HandlePage(h.Auth.Handler, h.Auth.Logout, &handler.EmptyRequest{}))
	account.GET("/export.csv", handler.HandleFile(
		h.Member.Handler, h.Member.Export, http.StatusOK, &handler.ListRequest{},
		"members.csv", "text/csv; charset=utf-8",
	))
	account.GET("/form", handler.HandlePage(h.Member.Handler, h.Member.EditProfile, &handler.EmptyRequest{}))
	account.POST("/form", handler.HandleForm(h.Member.Handler, h.Member.SaveProfile, &handler.ProfileForm{}))
	account.GET("/dashboard", handler.HandlePage(h.Member.Handler, h.Member.Dashboard, &handler.EmptyRequest{}))
}

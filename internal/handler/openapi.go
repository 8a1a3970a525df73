package handler

import (
	"fmt"
	"net/http"
	"os"

	"github.com/deppfellow/memberships/internal/server"
	"github.com/labstack/echo/v4"
)

// OpenAPIHandler serves the API docs UI, which loads static/openapi.json.
type OpenAPIHandler struct {
	Handler
	path string
}

func NewOpenAPIHandler(s *server.Server) *OpenAPIHandler {
	return &OpenAPIHandler{
		Handler: NewHandler(s),
		path:    "static/openapi.html",
	}
}

// ServeOpenAPIUI serves the docs page uncached so edits show up at once.
func (h *OpenAPIHandler) ServeOpenAPIUI(c echo.Context) error {
	templateBytes, err := os.ReadFile(h.path)

	c.Response().Header().Set("Cache-Control", "no-cache")

	if err != nil {
		return fmt.Errorf("failed to read OpenAPI UI template: %w", err)
	}

	if err := c.HTML(http.StatusOK, string(templateBytes)); err != nil {
		return fmt.Errorf("failed to write HTML response: %w", err)
	}

	return nil
}

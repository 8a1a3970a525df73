package handler

import (
	"net/http"

	"github.com/deppfellow/memberships/internal/errs"
	"github.com/deppfellow/memberships/internal/lib/email"
	"github.com/deppfellow/memberships/internal/server"
	"github.com/labstack/echo/v4"
)

// EmailPreviewHandler renders the transactional emails with sample data.
// It is only routed in the local environment.
type EmailPreviewHandler struct {
	Handler
}

func NewEmailPreviewHandler(s *server.Server) *EmailPreviewHandler {
	return &EmailPreviewHandler{
		Handler: NewHandler(s),
	}
}

func (h *EmailPreviewHandler) Preview(c echo.Context) error {
	name := email.Template(c.Param("template"))

	data, ok := email.PreviewData[name]
	if !ok {
		return errs.NewNotFoundError("Unknown email template", true, nil)
	}

	body, err := email.Render(name, data)
	if err != nil {
		return err
	}

	c.Response().Header().Set("Cache-Control", "no-cache")
	return c.HTML(http.StatusOK, body)
}

package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailPreview(t *testing.T) {
	app := newTestApp()

	c := app.echo.NewContext(httptest.NewRequest(http.MethodGet, "/dev/emails/welcome", nil), httptest.NewRecorder())
	c.SetParamNames("template")
	c.SetParamValues("welcome")
	rec := c.Response().Writer.(*httptest.ResponseRecorder)

	require.NoError(t, app.handlers.Emails.Preview(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Maria")

	c = app.echo.NewContext(httptest.NewRequest(http.MethodGet, "/dev/emails/nope", nil), httptest.NewRecorder())
	c.SetParamNames("template")
	c.SetParamValues("nope")
	assert.Error(t, app.handlers.Emails.Preview(c))
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/deppfellow/memberships/internal/errs"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postForm(target string, values url.Values, cookieToken string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	if cookieToken != "" {
		req.AddCookie(&http.Cookie{Name: csrfCookie, Value: cookieToken})
	}
	return req
}

func TestCSRFIssuesTokenOnPageLoad(t *testing.T) {
	e := echo.New()
	h := NewGlobalMiddlewares(newTestServer()).CSRF()(ok)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/members/login", nil), rec)
	require.NoError(t, h(c))

	token := GetCSRFToken(c)
	require.NotEmpty(t, token)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, csrfCookie, cookies[0].Name)
	assert.Equal(t, token, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
}

func TestCSRFRejectsFormPostsWithoutValidToken(t *testing.T) {
	e := echo.New()
	h := NewGlobalMiddlewares(newTestServer()).CSRF()(ok)

	tests := []struct {
		name   string
		target string
		form   url.Values
		cookie string
	}{
		{"profile form without token", "/members/form", url.Values{"cpf": {"52998224725"}}, ""},
		{"logout without token", "/members/logout", url.Values{}, "abc"},
		{"login with mismatched token", "/members/login", url.Values{CSRFField: {"other"}}, "abc"},
		{"signup with token but no cookie", "/members/signup", url.Values{CSRFField: {"abc"}}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h(e.NewContext(postForm(tt.target, tt.form, tt.cookie), httptest.NewRecorder()))

			var httpErr *errs.HTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, http.StatusForbidden, httpErr.Status)
		})
	}
}

func TestCSRFAcceptsMatchingToken(t *testing.T) {
	e := echo.New()
	h := NewGlobalMiddlewares(newTestServer()).CSRF()(ok)

	rec := httptest.NewRecorder()
	req := postForm("/members/login", url.Values{CSRFField: {"abc"}, "email": {"ana@example.com"}}, "abc")

	require.NoError(t, h(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCSRFSkipsWebhookAndSystemRoutes(t *testing.T) {
	e := echo.New()
	h := NewGlobalMiddlewares(newTestServer()).CSRF()(ok)

	for _, target := range []string{"/members/payments", "/status"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(`{}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

		require.NoError(t, h(e.NewContext(req, rec)), target)
		assert.Equal(t, http.StatusOK, rec.Code, target)
	}
}

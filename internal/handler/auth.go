package handler

import (
	"strings"

	"github.com/deppfellow/memberships/internal/lib/flash"
	"github.com/deppfellow/memberships/internal/lib/session"
	"github.com/deppfellow/memberships/internal/middleware"
	"github.com/deppfellow/memberships/internal/server"
	"github.com/deppfellow/memberships/internal/service"
	"github.com/deppfellow/memberships/internal/validation"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

const (
	signupSuccessMessage = "Você está cadastrado! Complete os seus dados para prosseguir com o registro na associação!"
	signupErrorMessage   = "Houve um erro ao cadastrar-se"
	loginErrorMessage    = "Email ou senha inválidos"
	logoutMessage        = "Você saiu da sua conta"
)

type AuthHandler struct {
	Handler
	auth *service.AuthService
}

func NewAuthHandler(s *server.Server, auth *service.AuthService) *AuthHandler {
	return &AuthHandler{
		Handler: NewHandler(s),
		auth:    auth,
	}
}

func (h *AuthHandler) openSession(c echo.Context, sessionID string) {
	session.WriteCookie(c.Response(), sessionID, h.server.Config.Auth.SessionTTL, h.secureCookies())
}

// --- Signup ------------------------------------------------------------------

type SignupForm struct {
	Email     string `form:"email" validate:"required,email,max=255"`
	FirstName string `form:"first_name" validate:"required,max=100"`
	LastName  string `form:"last_name" validate:"required,max=100"`
	Password1 string `form:"password1" validate:"required,min=8,max=72"`
	Password2 string `form:"password2" validate:"required,eqfield=Password1"`
}

func (f *SignupForm) Validate() error {
	return validation.Struct(f)
}

func signupPage(form *SignupForm, fieldErrors map[string]string, notice *flash.Notice) *Page {
	form.Password1 = ""
	form.Password2 = ""

	return &Page{
		Template: "signup",
		Title:    "Cadastre-se",
		Form:     form,
		Errors:   fieldErrors,
		Flash:    notice,
	}
}

func (h *AuthHandler) SignupForm(c echo.Context, req *EmptyRequest) (*Page, error) {
	return signupPage(&SignupForm{}, nil, nil), nil
}

func (h *AuthHandler) Signup(c echo.Context, form *SignupForm, fieldErrors map[string]string) (*Page, error) {
	failed := flash.Error(signupErrorMessage)

	if len(fieldErrors) > 0 {
		return signupPage(form, fieldErrors, &failed), nil
	}

	_, sessionID, err := h.auth.Signup(c.Request().Context(), service.SignupInput{
		Email:     form.Email,
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Password:  form.Password1,
	})
	if err != nil {
		if problems, ok := formErrors(err); ok {
			return signupPage(form, problems, &failed), nil
		}
		return nil, err
	}

	h.openSession(c, sessionID)

	welcome := flash.Success(signupSuccessMessage)
	return Redirect(FormPath, &welcome), nil
}

// --- Login / logout ----------------------------------------------------------

type LoginForm struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
	Next     string `form:"next"`
}

func (f *LoginForm) Validate() error {
	return validation.Struct(f)
}

// LoginPage takes only ?next=, so it binds without validating.
type LoginPage struct {
	Next string `query:"next"`
}

func (r *LoginPage) Validate() error {
	return nil
}

func loginPage(form *LoginForm, fieldErrors map[string]string, notice *flash.Notice) *Page {
	form.Password = ""

	return &Page{
		Template: "login",
		Title:    "Entrar",
		Form:     form,
		Errors:   fieldErrors,
		Flash:    notice,
	}
}

// safeNext keeps only local paths so ?next= cannot redirect off-site.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return DashboardPath
	}
	return next
}

func (h *AuthHandler) LoginForm(c echo.Context, req *LoginPage) (*Page, error) {
	if middleware.GetUser(c) != nil {
		return Redirect(safeNext(req.Next), nil), nil
	}
	return loginPage(&LoginForm{Next: req.Next}, nil, nil), nil
}

func (h *AuthHandler) Login(c echo.Context, form *LoginForm, fieldErrors map[string]string) (*Page, error) {
	failed := flash.Error(loginErrorMessage)

	if len(fieldErrors) > 0 {
		return loginPage(form, fieldErrors, &failed), nil
	}

	ctx := c.Request().Context()

	user, err := h.auth.Authenticate(ctx, form.Email, form.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return loginPage(form, nil, &failed), nil
		}
		return nil, err
	}

	sessionID, err := h.auth.Login(ctx, user)
	if err != nil {
		return nil, err
	}

	h.openSession(c, sessionID)
	return Redirect(safeNext(form.Next), nil), nil
}

func (h *AuthHandler) Logout(c echo.Context, req *EmptyRequest) (*Page, error) {
	if sessionID := middleware.GetSessionID(c); sessionID != "" {
		if err := h.auth.Logout(c.Request().Context(), sessionID); err != nil {
			return nil, err
		}
	}

	session.ClearCookie(c.Response(), h.secureCookies())

	bye := flash.Info(logoutMessage)
	return Redirect(middleware.LoginPath, &bye), nil
}

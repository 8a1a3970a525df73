package validation

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

type signupForm struct {
	Email     string `form:"email" validate:"required,email"`
	CPF       string `form:"cpf" validate:"required,cpf"`
	Password1 string `form:"password1" validate:"required,min=8"`
	Password2 string `form:"password2" validate:"required,eqfield=Password1"`
}

func (f *signupForm) Validate() error {
	return Struct(f)
}

type customForm struct{}

func (customForm) Validate() error {
	return CustomValidationErrors{{Field: "category", Message: "categoria inexistente"}}
}

func TestIsValidCPF(t *testing.T) {
	tests := []struct {
		cpf  string
		want bool
	}{
		{"529.982.247-25", true},
		{"52998224725", true},
		{"123.456.789-09", true},
		{"529.982.247-26", false},
		{"111.111.111-11", false},
		{"1234567890", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsValidCPF(tt.cpf), tt.cpf)
	}
}

func TestExtractFieldErrorsUsesFormNames(t *testing.T) {
	form := &signupForm{Email: "not-an-email", CPF: "000", Password1: "short", Password2: "other"}

	fieldErrors := Check(form)
	require.NotEmpty(t, fieldErrors)

	byField := errs.FieldErrorMap(fieldErrors)
	assert.Equal(t, "deve ser um email válido", byField["email"])
	assert.Equal(t, "deve ser um CPF válido", byField["cpf"])
	assert.Equal(t, "deve ter pelo menos 8 caracteres", byField["password1"])
	assert.Equal(t, "as senhas não conferem", byField["password2"])
}

func TestCheckValid(t *testing.T) {
	form := &signupForm{Email: "ana@example.com", CPF: "52998224725", Password1: "segredo123", Password2: "segredo123"}
	assert.Nil(t, Check(form))
}

func TestCustomValidationErrors(t *testing.T) {
	fieldErrors := Check(customForm{})
	assert.Equal(t, []errs.FieldError{{Field: "category", Error: "categoria inexistente"}}, fieldErrors)
}

func TestBindAndValidateReturnsBadRequest(t *testing.T) {
	e := echo.New()
	body := url.Values{"email": {"ana@example.com"}, "cpf": {"52998224725"}, "password1": {"segredo123"}, "password2": {"nope"}}
	req := httptest.NewRequest(http.MethodPost, "/members/signup", strings.NewReader(body.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	c := e.NewContext(req, httptest.NewRecorder())

	form := &signupForm{}
	err := BindAndValidate(c, form)

	var httpErr *errs.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Status)
	assert.Equal(t, "ana@example.com", form.Email)
	assert.Equal(t, map[string]string{"password2": "as senhas não conferem"}, httpErr.FieldMap())
}

func TestToSnakeCase(t *testing.T) {
	assert.Equal(t, "first_name", toSnakeCase("FirstName"))
	assert.Equal(t, "cpf", toSnakeCase("CPF"))
	assert.Equal(t, "password1", toSnakeCase("Password1"))
}

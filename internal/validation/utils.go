package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/deppfellow/memberships/internal/errs"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Validatable is implemented by request payload types that know how to
// validate themselves, usually by calling Struct(req).
type Validatable interface {
	Validate() error
}

// CustomValidationError is a validation issue that struct tags cannot express.
type CustomValidationError struct {
	Field   string
	Message string
}

// CustomValidationErrors is a slice of custom validation errors that satisfies error.
type CustomValidationErrors []CustomValidationError

func (c CustomValidationErrors) Error() string {
	return "Validation failed"
}

// Bind populates payload from the request (path, query or form/JSON body).
// Malformed input becomes a 400 HTTPError.
func Bind(c echo.Context, payload any) error {
	if err := c.Bind(payload); err != nil {
		message := "invalid request"
		var echoErr *echo.HTTPError
		if errors.As(err, &echoErr) {
			if msg, ok := echoErr.Message.(string); ok && msg != "" {
				message = msg
			}
		}
		return errs.NewBadRequestError(message, false, nil, nil, nil)
	}
	return nil
}

// BindAndValidate binds request data into payload and validates it.
//
// payload must be a pointer. Validation failures come back as a 400
// *errs.HTTPError carrying field-level errors.
func BindAndValidate(c echo.Context, payload Validatable) error {
	if err := Bind(c, payload); err != nil {
		return err
	}

	if fieldErrors := Check(payload); fieldErrors != nil {
		return errs.NewBadRequestError("Validation failed", true, nil, fieldErrors, nil)
	}

	return nil
}

// Check runs v.Validate() and returns its field errors, or nil when valid.
func Check(v Validatable) []errs.FieldError {
	if err := v.Validate(); err != nil {
		return ExtractFieldErrors(err)
	}
	return nil
}

// ExtractFieldErrors converts validator and custom errors into FieldErrors.
func ExtractFieldErrors(err error) []errs.FieldError {
	var fieldErrors []errs.FieldError

	var customErrors CustomValidationErrors
	if errors.As(err, &customErrors) {
		for _, ce := range customErrors {
			fieldErrors = append(fieldErrors, errs.FieldError{
				Field: ce.Field,
				Error: ce.Message,
			})
		}
		return fieldErrors
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []errs.FieldError{{Field: "", Error: err.Error()}}
	}

	for _, fe := range validationErrors {
		fieldErrors = append(fieldErrors, errs.FieldError{
			Field: fieldName(fe),
			Error: message(fe),
		})
	}

	return fieldErrors
}

// fieldName returns the form/query/json name registered by tagName, falling
// back to the snake-cased Go field name.
func fieldName(fe validator.FieldError) string {
	return toSnakeCase(fe.Field())
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "é obrigatório"

	case "min":
		if fe.Type().Kind() == reflect.String {
			return fmt.Sprintf("deve ter pelo menos %s caracteres", fe.Param())
		}
		return fmt.Sprintf("deve ser no mínimo %s", fe.Param())

	case "max":
		if fe.Type().Kind() == reflect.String {
			return fmt.Sprintf("deve ter no máximo %s caracteres", fe.Param())
		}
		return fmt.Sprintf("deve ser no máximo %s", fe.Param())

	case "oneof":
		return fmt.Sprintf("deve ser um de: %s", fe.Param())

	case "email":
		return "deve ser um email válido"

	case "eqfield":
		return "as senhas não conferem"

	case "numeric", "number":
		return "deve ser numérico"

	case "cpf":
		return "deve ser um CPF válido"

	default:
		if fe.Param() != "" {
			return fmt.Sprintf("%s: %s:%s", fieldName(fe), fe.Tag(), fe.Param())
		}
		return fmt.Sprintf("%s: %s", fieldName(fe), fe.Tag())
	}
}

var camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)

// toSnakeCase maps Go field names onto form names: "FirstName" -> "first_name",
// "CPF" -> "cpf", "Password1" -> "password1".
func toSnakeCase(s string) string {
	return strings.ToLower(camelBoundary.ReplaceAllString(s, "${1}_${2}"))
}

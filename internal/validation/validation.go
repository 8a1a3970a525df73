// Package validation contains the logic for validating
// request data.
//
// It uses the `validator` library to enforce rules (like
// required fields, email formats or CPF check digits) defined in
// struct tags and extracts validation errors into a format the client
// can understand.
package validation

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared validator with the custom tags registered.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(tagName)
		_ = validate.RegisterValidation("cpf", validateCPF)
	})
	return validate
}

// Struct validates v against its `validate` tags.
func Struct(v any) error {
	return Validator().Struct(v)
}

// tagName reports fields under the name the client used for them.
func tagName(fld reflect.StructField) string {
	for _, tag := range []string{"form", "query", "json"} {
		name, _, _ := strings.Cut(fld.Tag.Get(tag), ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return ""
}

package errs

import "strings"

// FieldError is a validation problem attached to one form/payload field.
//
//	{ "field": "cpf", "error": "must be a valid CPF" }
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// ActionType tells the client what to do next.
type ActionType string

const (
	// ActionTypeRedirect asks the client to navigate to Action.Value.
	ActionTypeRedirect ActionType = "redirect"
)

// Action is an optional "what the client should do next" hint.
type Action struct {
	Type    ActionType `json:"type"`
	Message string     `json:"message"`
	Value   string     `json:"value"`
}

// HTTPError is the error type serialized by the global error handler.
//
// Code is machine-friendly (e.g. "BAD_REQUEST"), Message human-friendly.
// Override marks messages that are safe to show verbatim to end users.
type HTTPError struct {
	Code     string       `json:"code"`
	Message  string       `json:"message"`
	Status   int          `json:"status"`
	Override bool         `json:"override"`
	Errors   []FieldError `json:"errors"`
	Action   *Action      `json:"action"`
}

func (e *HTTPError) Error() string {
	return e.Message
}

// Is matches any *HTTPError, regardless of code or status.
func (e *HTTPError) Is(target error) bool {
	_, ok := target.(*HTTPError)
	return ok
}

// WithMessage returns a copy of e with Message replaced.
func (e *HTTPError) WithMessage(message string) *HTTPError {
	c := *e
	c.Message = message
	return &c
}

// FieldMap indexes field errors by field name; the first error wins.
func (e *HTTPError) FieldMap() map[string]string {
	return FieldErrorMap(e.Errors)
}

// FieldErrorMap indexes field errors by field name; the first error wins.
func FieldErrorMap(fieldErrors []FieldError) map[string]string {
	out := make(map[string]string, len(fieldErrors))
	for _, fe := range fieldErrors {
		if _, ok := out[fe.Field]; !ok {
			out[fe.Field] = fe.Error
		}
	}
	return out
}

// MakeUpperCaseWithUnderscores turns "Bad Request" into "BAD_REQUEST".
func MakeUpperCaseWithUnderscores(str string) string {
	return strings.ToUpper(strings.ReplaceAll(str, " ", "_"))
}

package handler

import (
	"net/http"
	"reflect"
	"time"

	"github.com/deppfellow/memberships/internal/errs"
	"github.com/deppfellow/memberships/internal/lib/flash"
	"github.com/deppfellow/memberships/internal/middleware"
	"github.com/deppfellow/memberships/internal/model"
	"github.com/deppfellow/memberships/internal/server"
	"github.com/deppfellow/memberships/internal/validation"
	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/integrations/nrpkgerrors"
	"github.com/newrelic/go-agent/v3/newrelic"
)

// Handler is the base embedded by every concrete handler.
type Handler struct {
	server *server.Server
}

func NewHandler(s *server.Server) Handler {
	return Handler{server: s}
}

// secureCookies reports whether cookies must carry the Secure flag.
func (h Handler) secureCookies() bool {
	return h.server.Config.Auth.Secure()
}

// --- Generic typed handler plumbing -----------------------------------------

// HandlerFunc is a typed endpoint receiving a bound and validated Req.
// Req is a pointer type, e.g. *StatusRequest.
type HandlerFunc[Req validation.Validatable, Res any] func(c echo.Context, req Req) (Res, error)

// HandlerFuncNoContent is a typed endpoint with no response body.
type HandlerFuncNoContent[Req validation.Validatable] func(c echo.Context, req Req) error

// FormHandlerFunc is a typed endpoint for HTML forms. It receives the
// bound form and its field errors instead of failing validation with 400,
// so it can re-render the form.
type FormHandlerFunc[Req validation.Validatable] func(c echo.Context, req Req, fieldErrors map[string]string) (*Page, error)

// ResponseHandler writes a successful result and describes it for logs
// and New Relic.
type ResponseHandler interface {
	Handle(c echo.Context, result interface{}) error
	GetOperation() string
	AddAttributes(txn *newrelic.Transaction, result interface{})
}

// JSONResponseHandler writes JSON responses with a given status code.
type JSONResponseHandler struct {
	status int
}

func (h JSONResponseHandler) Handle(c echo.Context, result interface{}) error {
	return c.JSON(h.status, result)
}

func (h JSONResponseHandler) GetOperation() string {
	return "handler"
}

func (h JSONResponseHandler) AddAttributes(txn *newrelic.Transaction, result interface{}) {
	// http.status_code is set by EnhanceTracing.
}

// NoContentResponseHandler writes responses with no body.
type NoContentResponseHandler struct {
	status int
}

func (h NoContentResponseHandler) Handle(c echo.Context, result interface{}) error {
	return c.NoContent(h.status)
}

func (h NoContentResponseHandler) GetOperation() string {
	return "handler_no_content"
}

func (h NoContentResponseHandler) AddAttributes(txn *newrelic.Transaction, result interface{}) {}

// FileResponseHandler writes a download. The handler result must be []byte.
type FileResponseHandler struct {
	status      int
	filename    string
	contentType string
}

func (h FileResponseHandler) Handle(c echo.Context, result interface{}) error {
	data := result.([]byte)
	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+h.filename)
	return c.Blob(h.status, h.contentType, data)
}

func (h FileResponseHandler) GetOperation() string {
	return "handler_file"
}

func (h FileResponseHandler) AddAttributes(txn *newrelic.Transaction, result interface{}) {
	if txn != nil {
		txn.AddAttribute("file.name", h.filename)
		txn.AddAttribute("file.content_type", h.contentType)
		if data, ok := result.([]byte); ok {
			txn.AddAttribute("file.size_bytes", len(data))
		}
	}
}

// Page is the result of an HTML endpoint. With RedirectTo set the pipeline
// stores Flash in a cookie and answers 303; otherwise it renders Template
// inside the layout, showing Flash or the notice left by the previous
// request.
type Page struct {
	Template   string
	Title      string
	Status     int
	RedirectTo string
	Flash      *flash.Notice
	Form       any
	Data       any
	Errors     map[string]string

	// User and CSRFToken are filled by the pipeline.
	User      *model.User
	CSRFToken string
}

// Redirect builds a Page that redirects with an optional notice.
func Redirect(to string, notice *flash.Notice) *Page {
	return &Page{RedirectTo: to, Flash: notice}
}

// PageResponseHandler renders a *Page or performs its redirect.
type PageResponseHandler struct {
	secure bool
}

func (h PageResponseHandler) Handle(c echo.Context, result interface{}) error {
	page := result.(*Page)

	if page.RedirectTo != "" {
		if page.Flash != nil {
			flash.Write(c.Response(), *page.Flash, h.secure)
		}
		return c.Redirect(http.StatusSeeOther, page.RedirectTo)
	}

	if pending, ok := flash.ReadAndClear(c.Response(), c.Request(), h.secure); ok && page.Flash == nil {
		page.Flash = &pending
	}
	page.User = middleware.GetUser(c)
	page.CSRFToken = middleware.GetCSRFToken(c)

	status := page.Status
	if status == 0 {
		status = http.StatusOK
	}
	return c.Render(status, page.Template, page)
}

func (h PageResponseHandler) GetOperation() string {
	return "handler_page"
}

func (h PageResponseHandler) AddAttributes(txn *newrelic.Transaction, result interface{}) {
	if txn == nil {
		return
	}
	if page, ok := result.(*Page); ok {
		if page.RedirectTo != "" {
			txn.AddAttribute("page.redirect", page.RedirectTo)
		} else {
			txn.AddAttribute("page.template", page.Template)
		}
	}
}

// bindFunc fills req from the request. The strict variant also validates.
type bindFunc func(c echo.Context, req validation.Validatable) error

func bindStrict(c echo.Context, req validation.Validatable) error {
	return validation.BindAndValidate(c, req)
}

func bindOnly(c echo.Context, req validation.Validatable) error {
	return validation.Bind(c, req)
}

// newRequest returns a fresh zero value shaped like proto, so concurrent
// requests never share a payload.
func newRequest[Req any](proto Req) Req {
	t := reflect.TypeOf(proto)
	if t != nil && t.Kind() == reflect.Pointer {
		return reflect.New(t.Elem()).Interface().(Req)
	}
	var zero Req
	return zero
}

// handleRequest is the pipeline shared by every typed endpoint: binding
// and validation, request-scoped logging, New Relic attributes, timing and
// response writing.
func handleRequest[Req validation.Validatable](
	c echo.Context,
	req Req,
	bind bindFunc,
	handler func(c echo.Context, req Req) (interface{}, error),
	responseHandler ResponseHandler,
) error {
	start := time.Now()
	method := c.Request().Method
	route := c.Path()

	txn := newrelic.FromContext(c.Request().Context())
	if txn != nil {
		txn.AddAttribute("handler.name", route)
		responseHandler.AddAttributes(txn, nil)
	}

	loggerBuilder := middleware.GetLogger(c).With().
		Str("operation", responseHandler.GetOperation()).
		Str("method", method).
		Str("path", c.Request().URL.Path).
		Str("route", route)

	if fileHandler, ok := responseHandler.(FileResponseHandler); ok {
		loggerBuilder = loggerBuilder.
			Str("filename", fileHandler.filename).
			Str("content_type", fileHandler.contentType)
	}

	logger := loggerBuilder.Logger()
	logger.Info().Msg("handling request")

	validationStart := time.Now()
	if err := bind(c, req); err != nil {
		validationDuration := time.Since(validationStart)

		logger.Error().
			Err(err).
			Dur("validation_duration", validationDuration).
			Msg("request validation failed")

		if txn != nil {
			txn.NoticeError(nrpkgerrors.Wrap(err))
			txn.AddAttribute("validation.status", "failed")
			txn.AddAttribute("validation.duration_ms", validationDuration.Milliseconds())
		}
		return err
	}

	validationDuration := time.Since(validationStart)
	if txn != nil {
		txn.AddAttribute("validation.status", "success")
		txn.AddAttribute("validation.duration_ms", validationDuration.Milliseconds())
	}

	logger.Debug().
		Dur("validation_duration", validationDuration).
		Msg("request validation successful")

	handlerStart := time.Now()
	result, err := handler(c, req)
	handlerDuration := time.Since(handlerStart)

	if err != nil {
		totalDuration := time.Since(start)

		logger.Error().
			Err(err).
			Dur("handler_duration", handlerDuration).
			Dur("total_duration", totalDuration).
			Msg("handler execution failed")

		if txn != nil {
			txn.NoticeError(nrpkgerrors.Wrap(err))
			txn.AddAttribute("handler.status", "error")
			txn.AddAttribute("handler.duration_ms", handlerDuration.Milliseconds())
			txn.AddAttribute("total.duration_ms", totalDuration.Milliseconds())
		}
		return err
	}

	totalDuration := time.Since(start)

	if txn != nil {
		txn.AddAttribute("handler.status", "success")
		txn.AddAttribute("handler.duration_ms", handlerDuration.Milliseconds())
		txn.AddAttribute("total.duration_ms", totalDuration.Milliseconds())
		responseHandler.AddAttributes(txn, result)
	}

	logger.Info().
		Dur("handler_duration", handlerDuration).
		Dur("validation_duration", validationDuration).
		Dur("total_duration", totalDuration).
		Msg("request completed successfully")

	return responseHandler.Handle(c, result)
}

// Handle wraps a typed JSON endpoint.
//
//	router.GET("/members/status", handler.Handle(h, h.Status, http.StatusOK, &StatusRequest{}))
func Handle[Req validation.Validatable, Res any](
	h Handler,
	handler HandlerFunc[Req, Res],
	status int,
	req Req,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		return handleRequest(c, newRequest(req), bindStrict, func(c echo.Context, req Req) (interface{}, error) {
			return handler(c, req)
		}, JSONResponseHandler{status: status})
	}
}

// HandleFile wraps a typed endpoint that returns a file's bytes.
func HandleFile[Req validation.Validatable](
	h Handler,
	handler HandlerFunc[Req, []byte],
	status int,
	req Req,
	filename string,
	contentType string,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		return handleRequest(c, newRequest(req), bindStrict, func(c echo.Context, req Req) (interface{}, error) {
			return handler(c, req)
		}, FileResponseHandler{
			status:      status,
			filename:    filename,
			contentType: contentType,
		})
	}
}

// HandleNoContent wraps a typed endpoint that answers without a body.
func HandleNoContent[Req validation.Validatable](
	h Handler,
	handler HandlerFuncNoContent[Req],
	status int,
	req Req,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		return handleRequest(c, newRequest(req), bindStrict, func(c echo.Context, req Req) (interface{}, error) {
			return nil, handler(c, req)
		}, NoContentResponseHandler{status: status})
	}
}

// HandlePage wraps a typed HTML endpoint. Invalid input fails with 400.
func HandlePage[Req validation.Validatable](
	h Handler,
	handler HandlerFunc[Req, *Page],
	req Req,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		return handleRequest(c, newRequest(req), bindStrict, func(c echo.Context, req Req) (interface{}, error) {
			return handler(c, req)
		}, PageResponseHandler{secure: h.secureCookies()})
	}
}

// HandleForm wraps an HTML form submission. Malformed bodies fail with
// 400; validation problems are handed to the handler as field errors.
func HandleForm[Req validation.Validatable](
	h Handler,
	handler FormHandlerFunc[Req],
	req Req,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		return handleRequest(c, newRequest(req), bindOnly, func(c echo.Context, req Req) (interface{}, error) {
			var fieldErrors map[string]string
			if problems := validation.Check(req); len(problems) > 0 {
				fieldErrors = errs.FieldErrorMap(problems)
			}
			return handler(c, req, fieldErrors)
		}, PageResponseHandler{secure: h.secureCookies()})
	}
}

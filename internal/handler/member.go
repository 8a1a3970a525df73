package handler

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strconv"
	"strings"

	"github.com/deppfellow/memberships/internal/dues"
	"github.com/deppfellow/memberships/internal/errs"
	"github.com/deppfellow/memberships/internal/lib/flash"
	"github.com/deppfellow/memberships/internal/middleware"
	"github.com/deppfellow/memberships/internal/model"
	"github.com/deppfellow/memberships/internal/server"
	"github.com/deppfellow/memberships/internal/service"
	"github.com/deppfellow/memberships/internal/validation"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

const (
	noStatusFilterMessage = "nenhum parâmetro válido informado. Opções: first_name, last_name, email, cpf, phone, organization"

	profileSavedMessage   = "Seus dados foram atualizados com sucesso"
	profileInvalidMessage = "Ocorreu um erro ao tentar salvar seus dados. verifique o form abaixo."
	profileNeededMessage  = "Para acessar os dashboard, você precisa completar os seus dados"

	FormPath      = "/members/form"
	DashboardPath = "/members/dashboard"
)

type MemberHandler struct {
	Handler
	members *service.MemberService
}

func NewMemberHandler(s *server.Server, members *service.MemberService) *MemberHandler {
	return &MemberHandler{
		Handler: NewHandler(s),
		members: members,
	}
}

// EmptyRequest is used by endpoints that take no input.
type EmptyRequest struct{}

func (r *EmptyRequest) Validate() error {
	return nil
}

// --- Status lookup -----------------------------------------------------------

type StatusRequest struct {
	FirstName    string `query:"first_name"`
	LastName     string `query:"last_name"`
	Email        string `query:"email"`
	CPF          string `query:"cpf"`
	Phone        string `query:"phone"`
	Organization string `query:"organization"`
}

func (r *StatusRequest) Validate() error {
	return nil
}

// StatusResponse carries either the status or an error, never both.
type StatusResponse struct {
	Status dues.Status `json:"status,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// Status answers the public status lookup. Missing parameters are reported
// in the body with a 200 so existing clients keep parsing one shape.
func (h *MemberHandler) Status(c echo.Context, req *StatusRequest) (StatusResponse, error) {
	status, err := h.members.Status(c.Request().Context(), model.StatusFilter{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		CPF:          req.CPF,
		Phone:        req.Phone,
		Organization: req.Organization,
	})
	if err != nil {
		if errors.Is(err, service.ErrNoStatusFilter) {
			return StatusResponse{Error: noStatusFilterMessage}, nil
		}
		return StatusResponse{}, err
	}
	return StatusResponse{Status: status}, nil
}

// --- Listing -----------------------------------------------------------------

type ListRequest struct {
	Q        string `query:"q" validate:"max=100"`
	Category string `query:"category" validate:"omitempty,number"`
	Page     int    `query:"page" validate:"omitempty,min=1"`
}

func (r *ListRequest) Validate() error {
	return validation.Struct(r)
}

func (r *ListRequest) params() service.ListParams {
	return service.ListParams{
		Query:      r.Q,
		CategoryID: parseCategory(r.Category),
		Page:       r.Page,
	}
}

// parseCategory returns nil for blank or non-numeric ids.
func parseCategory(raw string) *int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &id
}

func (h *MemberHandler) List(c echo.Context, req *ListRequest) (*Page, error) {
	page, err := h.members.List(c.Request().Context(), req.params())
	if err != nil {
		return nil, err
	}

	return &Page{
		Template: "member_list",
		Title:    "Membros",
		Data:     page,
	}, nil
}

var exportHeader = []string{
	"id", "first_name", "last_name", "email", "cpf", "phone",
	"organization", "category", "last_payment", "status",
}

// Export writes the filtered member list as CSV.
func (h *MemberHandler) Export(c echo.Context, req *ListRequest) ([]byte, error) {
	rows, err := h.members.Export(c.Request().Context(), req.params())
	if err != nil {
		return nil, err
	}

	loc := h.members.Policy().Location

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return nil, errors.Wrap(err, "failed to write csv header")
	}

	for _, row := range rows {
		lastPayment := ""
		if row.LastPaymentAt != nil {
			lastPayment = row.LastPaymentAt.In(loc).Format("2006-01-02")
		}

		record := []string{
			strconv.FormatInt(row.ID, 10),
			row.User.FirstName,
			row.User.LastName,
			row.User.Email,
			row.CPF,
			row.Phone,
			row.Organization,
			row.CategoryName(),
			lastPayment,
			string(row.Status),
		}
		if err := w.Write(record); err != nil {
			return nil, errors.Wrap(err, "failed to write csv row")
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, errors.Wrap(err, "failed to flush csv")
	}

	return buf.Bytes(), nil
}

func (h *MemberHandler) Stats(c echo.Context, req *EmptyRequest) (model.Stats, error) {
	return h.members.Stats(c.Request().Context())
}

// --- Profile form ------------------------------------------------------------

type ProfileForm struct {
	FirstName    string `form:"first_name" validate:"required,max=100"`
	LastName     string `form:"last_name" validate:"required,max=100"`
	CPF          string `form:"cpf" validate:"required,cpf"`
	Phone        string `form:"phone" validate:"max=30"`
	Organization string `form:"organization" validate:"max=200"`
	Category     string `form:"category" validate:"omitempty,number"`
}

func (f *ProfileForm) Validate() error {
	return validation.Struct(f)
}

// CategoryID is the selected category, nil for none.
func (f *ProfileForm) CategoryID() *int64 {
	return parseCategory(f.Category)
}

func profileForm(m *model.Member) *ProfileForm {
	form := &ProfileForm{
		FirstName:    m.User.FirstName,
		LastName:     m.User.LastName,
		CPF:          m.CPF,
		Phone:        m.Phone,
		Organization: m.Organization,
	}
	if m.CategoryID != nil {
		form.Category = strconv.FormatInt(*m.CategoryID, 10)
	}
	return form
}

func (h *MemberHandler) profilePage(c echo.Context, form *ProfileForm, fieldErrors map[string]string, notice *flash.Notice) (*Page, error) {
	categories, err := h.members.Categories(c.Request().Context())
	if err != nil {
		return nil, err
	}

	return &Page{
		Template: "member_form",
		Title:    "Meus dados",
		Form:     form,
		Data:     categories,
		Errors:   fieldErrors,
		Flash:    notice,
	}, nil
}

func (h *MemberHandler) EditProfile(c echo.Context, req *EmptyRequest) (*Page, error) {
	member, err := h.members.Profile(c.Request().Context(), middleware.GetUser(c))
	if err != nil {
		return nil, err
	}
	return h.profilePage(c, profileForm(member), nil, nil)
}

func (h *MemberHandler) SaveProfile(c echo.Context, form *ProfileForm, fieldErrors map[string]string) (*Page, error) {
	invalid := flash.Error(profileInvalidMessage)

	if len(fieldErrors) > 0 {
		return h.profilePage(c, form, fieldErrors, &invalid)
	}

	_, err := h.members.SaveProfile(c.Request().Context(), middleware.GetUser(c), service.ProfileInput{
		FirstName:    form.FirstName,
		LastName:     form.LastName,
		CPF:          form.CPF,
		Phone:        form.Phone,
		Organization: form.Organization,
		CategoryID:   form.CategoryID(),
	})
	if err != nil {
		if problems, ok := formErrors(err); ok {
			return h.profilePage(c, form, problems, &invalid)
		}
		return nil, err
	}

	saved := flash.Info(profileSavedMessage)
	return Redirect(DashboardPath, &saved), nil
}

// --- Dashboard ---------------------------------------------------------------

func (h *MemberHandler) Dashboard(c echo.Context, req *EmptyRequest) (*Page, error) {
	dashboard, err := h.members.Dashboard(c.Request().Context(), middleware.GetUser(c))
	if err != nil {
		if errors.Is(err, service.ErrProfileIncomplete) {
			needed := flash.Info(profileNeededMessage)
			return Redirect(FormPath, &needed), nil
		}
		return nil, err
	}

	return &Page{
		Template: "dashboard",
		Title:    "Painel",
		Data:     dashboard,
	}, nil
}

// formErrors extracts field errors a form can display from a service error.
func formErrors(err error) (map[string]string, bool) {
	var httpErr *errs.HTTPError
	if errors.As(err, &httpErr) && httpErr.Status == http.StatusBadRequest && len(httpErr.Errors) > 0 {
		return httpErr.FieldMap(), true
	}
	return nil, false
}

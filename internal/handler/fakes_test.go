package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"time"

	"github.com/deppfellow/memberships/internal/config"
	"github.com/deppfellow/memberships/internal/dues"
	"github.com/deppfellow/memberships/internal/lib/session"
	"github.com/deppfellow/memberships/internal/middleware"
	"github.com/deppfellow/memberships/internal/model"
	"github.com/deppfellow/memberships/internal/server"
	"github.com/deppfellow/memberships/internal/service"
	"github.com/deppfellow/memberships/internal/sqlerr"
	"github.com/deppfellow/memberships/internal/web"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type memoryUsers struct {
	users []*model.User
}

func (m *memoryUsers) Create(_ context.Context, u *model.User) error {
	u.ID = int64(len(m.users) + 1)
	cp := *u
	m.users = append(m.users, &cp)
	return nil
}

func (m *memoryUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == model.NormalizeEmail(email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, sqlerr.NotFound("users", pgx.ErrNoRows)
}

func (m *memoryUsers) GetByID(_ context.Context, id int64) (*model.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, sqlerr.NotFound("users", pgx.ErrNoRows)
}

type memorySessions map[string]int64

func (m memorySessions) Create(_ context.Context, userID int64) (string, error) {
	id := fmt.Sprintf("session-%d", len(m)+1)
	m[id] = userID
	return id, nil
}

func (m memorySessions) Lookup(_ context.Context, id string) (int64, error) {
	if userID, ok := m[id]; ok {
		return userID, nil
	}
	return 0, session.ErrNotFound
}

func (m memorySessions) Destroy(_ context.Context, id string) error {
	delete(m, id)
	return nil
}

type memoryJobs struct {
	welcomed []string
}

func (m *memoryJobs) EnqueueWelcomeEmail(_ context.Context, to, _ string) error {
	m.welcomed = append(m.welcomed, to)
	return nil
}

type memoryMembers struct {
	members []model.Member
}

func (m *memoryMembers) List(_ context.Context, filter model.MemberFilter) ([]model.Member, int, error) {
	var matched []model.Member
	for _, member := range m.members {
		if filter.CategoryID != nil && (member.CategoryID == nil || *member.CategoryID != *filter.CategoryID) {
			continue
		}
		if q := strings.ToLower(filter.Query); q != "" &&
			!strings.Contains(strings.ToLower(member.User.FirstName+" "+member.User.LastName), q) {
			continue
		}
		matched = append(matched, member)
	}
	start := min(filter.Offset, len(matched))
	end := min(start+filter.Limit, len(matched))
	return matched[start:end], len(matched), nil
}

func (m *memoryMembers) GetByUserID(_ context.Context, userID int64) (*model.Member, error) {
	for _, member := range m.members {
		if member.UserID == userID {
			cp := member
			return &cp, nil
		}
	}
	return nil, sqlerr.NotFound("members", pgx.ErrNoRows)
}

func (m *memoryMembers) FindForStatus(_ context.Context, filter model.StatusFilter) (*model.Member, error) {
	for _, member := range m.members {
		if filter.Email != "" && member.User.Email != filter.Email ||
			filter.CPF != "" && member.CPF != filter.CPF ||
			filter.FirstName != "" && member.User.FirstName != filter.FirstName {
			continue
		}
		cp := member
		return &cp, nil
	}
	return nil, sqlerr.NotFound("members", pgx.ErrNoRows)
}

func (m *memoryMembers) SaveProfile(_ context.Context, member *model.Member) error {
	for i := range m.members {
		if m.members[i].UserID == member.UserID {
			m.members[i] = *member
			return nil
		}
	}
	member.ID = int64(len(m.members) + 1)
	m.members = append(m.members, *member)
	return nil
}

func (m *memoryMembers) Stats(_ context.Context, today time.Time, validityDays int) (model.Stats, error) {
	policy := dues.NewPolicy(validityDays, time.UTC)
	stats := model.Stats{TotalMembers: len(m.members)}
	for _, member := range m.members {
		if policy.Classify(member.LastPaymentAt, today) == dues.StatusActive {
			stats.ActiveMembers++
		}
	}
	stats.InactiveMembers = stats.TotalMembers - stats.ActiveMembers
	return stats, nil
}

type memoryCategories []model.Category

func (m memoryCategories) List(context.Context) ([]model.Category, error) {
	return m, nil
}

func (m memoryCategories) Exists(_ context.Context, id int64) (bool, error) {
	for _, c := range m {
		if c.ID == id {
			return true, nil
		}
	}
	return false, nil
}

type memoryPayments struct {
	payments []model.Payment
}

func (m *memoryPayments) Create(_ context.Context, p *model.Payment) error {
	p.ID = int64(len(m.payments) + 1)
	m.payments = append(m.payments, *p)
	return nil
}

func (m *memoryPayments) ListByMember(_ context.Context, memberID int64, limit int) ([]model.Payment, error) {
	var out []model.Payment
	for _, p := range m.payments {
		if p.MemberID == memberID && len(out) < limit {
			out = append(out, p)
		}
	}
	return out, nil
}

// testApp wires handlers over in-memory stores.
type testApp struct {
	echo     *echo.Echo
	server   *server.Server
	users    *memoryUsers
	sessions memorySessions
	jobs     *memoryJobs
	members  *memoryMembers
	payments *memoryPayments
	handlers *Handlers
}

func newTestApp() *testApp {
	logger := zerolog.Nop()
	cfg := &config.Config{
		Primary: config.Primary{Env: "local"},
		Auth:    config.AuthConfig{WebhookSecret: "s3cret"},
		Membership: &config.MembershipConfig{
			DuesValidityDays: 365,
			PageSize:         2,
			Timezone:         "UTC",
		},
	}
	cfg.ApplyDefaults()

	srv := &server.Server{Config: cfg, Logger: &logger}

	app := &testApp{
		server:   srv,
		users:    &memoryUsers{},
		sessions: memorySessions{},
		jobs:     &memoryJobs{},
		members:  &memoryMembers{},
		payments: &memoryPayments{},
	}

	now := func() time.Time { return testNow }
	policy := dues.NewPolicy(365, time.UTC)
	categories := memoryCategories{{ID: 1, Name: "Estudante"}, {ID: 2, Name: "Profissional"}}

	services := &service.Services{
		Auth:     service.NewAuthService(app.users, app.sessions, app.jobs, &logger),
		Members:  service.NewMemberService(app.members, categories, app.payments, policy, cfg.Membership.PageSize, now),
		Payments: service.NewPaymentService(app.members, app.payments, now),
	}
	app.handlers = NewHandlers(srv, services)

	renderer, err := web.NewRenderer(time.UTC)
	if err != nil {
		panic(err)
	}
	app.echo = echo.New()
	app.echo.Renderer = renderer

	return app
}

// do runs h for a request, as user when non-nil.
func (a *testApp) do(h echo.HandlerFunc, req *http.Request, user *model.User) (*httptest.ResponseRecorder, error) {
	rec := httptest.NewRecorder()
	c := a.echo.NewContext(req, rec)
	if user != nil {
		c.Set(middleware.UserKey, user)
	}
	return rec, h(c)
}

func formRequest(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return req
}

func paidAt(t time.Time) *time.Time {
	return &t
}

package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/deppfellow/memberships/internal/lib/session"
	"github.com/deppfellow/memberships/internal/model"
	"github.com/deppfellow/memberships/internal/sqlerr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type fakeUsers struct {
	byID   map[int64]*model.User
	nextID int64
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[int64]*model.User{}}
}

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return sqlerr.Wrap(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key", TableName: "users"})
		}
	}
	f.nextID++
	u.ID = f.nextID
	stored := *u
	f.byID[u.ID] = &stored
	return nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.byID {
		if u.Email == model.NormalizeEmail(email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, sqlerr.NotFound("users", pgx.ErrNoRows)
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*model.User, error) {
	if u, ok := f.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, sqlerr.NotFound("users", pgx.ErrNoRows)
}

type fakeSessions struct {
	byID map[string]int64
	seq  int
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{byID: map[string]int64{}}
}

func (f *fakeSessions) Create(_ context.Context, userID int64) (string, error) {
	f.seq++
	id := fmt.Sprintf("session-%d", f.seq)
	f.byID[id] = userID
	return id, nil
}

func (f *fakeSessions) Lookup(_ context.Context, id string) (int64, error) {
	if userID, ok := f.byID[id]; ok {
		return userID, nil
	}
	return 0, session.ErrNotFound
}

func (f *fakeSessions) Destroy(_ context.Context, id string) error {
	delete(f.byID, id)
	return nil
}

type fakeJobs struct {
	welcomed []string
	err      error
}

func (f *fakeJobs) EnqueueWelcomeEmail(_ context.Context, to, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.welcomed = append(f.welcomed, to)
	return nil
}

type fakeMembers struct {
	members []model.Member
	nextID  int64
	saveErr error
}

func (f *fakeMembers) List(_ context.Context, filter model.MemberFilter) ([]model.Member, int, error) {
	var matched []model.Member
	for _, m := range f.members {
		q := strings.ToLower(filter.Query)
		if q != "" && !strings.Contains(strings.ToLower(m.User.FirstName), q) &&
			!strings.Contains(strings.ToLower(m.User.LastName), q) {
			continue
		}
		if filter.CategoryID != nil && (m.CategoryID == nil || *m.CategoryID != *filter.CategoryID) {
			continue
		}
		matched = append(matched, m)
	}

	total := len(matched)
	start := min(filter.Offset, total)
	end := min(start+filter.Limit, total)
	return matched[start:end], total, nil
}

func (f *fakeMembers) GetByUserID(_ context.Context, userID int64) (*model.Member, error) {
	for _, m := range f.members {
		if m.UserID == userID {
			cp := m
			return &cp, nil
		}
	}
	return nil, sqlerr.NotFound("members", pgx.ErrNoRows)
}

func (f *fakeMembers) FindForStatus(_ context.Context, filter model.StatusFilter) (*model.Member, error) {
	sorted := append([]model.Member(nil), f.members...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	for _, m := range sorted {
		if filter.FirstName != "" && m.User.FirstName != filter.FirstName ||
			filter.LastName != "" && m.User.LastName != filter.LastName ||
			filter.Email != "" && m.User.Email != filter.Email ||
			filter.CPF != "" && m.CPF != filter.CPF ||
			filter.Phone != "" && model.OnlyDigits(m.Phone) != filter.Phone ||
			filter.Organization != "" && m.Organization != filter.Organization {
			continue
		}
		cp := m
		return &cp, nil
	}
	return nil, sqlerr.NotFound("members", pgx.ErrNoRows)
}

func (f *fakeMembers) SaveProfile(_ context.Context, m *model.Member) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	for i, existing := range f.members {
		if existing.UserID == m.UserID {
			m.ID = existing.ID
			f.members[i] = *m
			return nil
		}
	}
	f.nextID++
	m.ID = f.nextID
	f.members = append(f.members, *m)
	return nil
}

func (f *fakeMembers) Stats(_ context.Context, today time.Time, validityDays int) (model.Stats, error) {
	stats := model.Stats{TotalMembers: len(f.members)}
	for _, m := range f.members {
		if m.LastPaymentAt != nil && m.LastPaymentAt.AddDate(0, 0, validityDays).After(today) {
			stats.ActiveMembers++
		}
	}
	stats.InactiveMembers = stats.TotalMembers - stats.ActiveMembers
	return stats, nil
}

type fakeCategories struct {
	categories []model.Category
}

func (f *fakeCategories) List(context.Context) ([]model.Category, error) {
	return f.categories, nil
}

func (f *fakeCategories) Exists(_ context.Context, id int64) (bool, error) {
	for _, c := range f.categories {
		if c.ID == id {
			return true, nil
		}
	}
	return false, nil
}

type fakePayments struct {
	payments []model.Payment
}

func (f *fakePayments) Create(_ context.Context, p *model.Payment) error {
	p.ID = int64(len(f.payments) + 1)
	f.payments = append(f.payments, *p)
	return nil
}

func (f *fakePayments) ListByMember(_ context.Context, memberID int64, limit int) ([]model.Payment, error) {
	var out []model.Payment
	for _, p := range f.payments {
		if p.MemberID == memberID {
			out = append(out, p)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/deppfellow/memberships/internal/dues"
	"github.com/deppfellow/memberships/internal/errs"
	"github.com/deppfellow/memberships/internal/model"
	"github.com/deppfellow/memberships/internal/sqlerr"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, time.June, 15, 10, 0, 0, 0, time.UTC)

func daysAgo(n int) *time.Time {
	t := testNow.AddDate(0, 0, -n)
	return &t
}

func ptr[T any](v T) *T { return &v }

func newTestMemberService(members ...model.Member) (*MemberService, *fakeMembers, *fakePayments) {
	store := &fakeMembers{members: members, nextID: int64(len(members))}
	payments := &fakePayments{}
	categories := &fakeCategories{categories: []model.Category{{ID: 1, Name: "Estudante"}, {ID: 2, Name: "Profissional"}}}

	svc := NewMemberService(store, categories, payments, dues.NewPolicy(365, time.UTC), 2,
		func() time.Time { return testNow })
	return svc, store, payments
}

func member(id int64, first, last string, lastPayment *time.Time) model.Member {
	return model.Member{
		Base:          model.Base{ID: id},
		UserID:        id * 10,
		User:          model.User{Base: model.Base{ID: id * 10}, FirstName: first, LastName: last, Email: first + "@example.com"},
		CPF:           "5299822472" + string(rune('0'+id)),
		LastPaymentAt: lastPayment,
	}
}

func TestStatus(t *testing.T) {
	svc, _, _ := newTestMemberService(
		member(1, "ana", "Lima", daysAgo(10)),
		member(2, "bruno", "Lima", daysAgo(365)),
		member(3, "carla", "Souza", nil),
	)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter model.StatusFilter
		want   dues.Status
	}{
		{"recent payment is active", model.StatusFilter{Email: "ANA@example.com"}, dues.StatusActive},
		{"payment exactly a window ago is inactive", model.StatusFilter{FirstName: "bruno"}, dues.StatusInactive},
		{"never paid is inactive", model.StatusFilter{FirstName: "carla"}, dues.StatusInactive},
		{"first match by id wins", model.StatusFilter{LastName: "Lima"}, dues.StatusActive},
		{"filters are ANDed", model.StatusFilter{FirstName: "ana", LastName: "Souza"}, dues.StatusInvalid},
		{"unknown member is invalid", model.StatusFilter{Email: "nobody@example.com"}, dues.StatusInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Status(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatusWithoutFilter(t *testing.T) {
	svc, _, _ := newTestMemberService()

	_, err := svc.Status(context.Background(), model.StatusFilter{FirstName: "  "})
	assert.ErrorIs(t, err, ErrNoStatusFilter)
}

func TestStatusIgnoresValuesWithoutDigits(t *testing.T) {
	svc, _, _ := newTestMemberService(member(1, "ana", "Lima", daysAgo(1)))
	ctx := context.Background()

	_, err := svc.Status(ctx, model.StatusFilter{CPF: "abc", Phone: "---"})
	assert.ErrorIs(t, err, ErrNoStatusFilter)

	got, err := svc.Status(ctx, model.StatusFilter{CPF: "abc", FirstName: "nobody"})
	require.NoError(t, err)
	assert.Equal(t, dues.StatusInvalid, got)
}

func TestListPaginatesAndClassifies(t *testing.T) {
	svc, _, _ := newTestMemberService(
		member(1, "ana", "Lima", daysAgo(1)),
		member(2, "bruno", "Lima", nil),
		member(3, "carla", "Souza", daysAgo(400)),
	)
	ctx := context.Background()

	page, err := svc.List(ctx, ListParams{Page: 0})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 2, page.Pages)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Members, 2)
	assert.Equal(t, dues.StatusActive, page.Members[0].Status)
	assert.Equal(t, dues.StatusInactive, page.Members[1].Status)
	assert.Len(t, page.Categories, 2)
	assert.True(t, page.HasNext())
	assert.False(t, page.HasPrev())

	page, err = svc.List(ctx, ListParams{Query: " lim ", Page: 1})
	require.NoError(t, err)
	assert.Equal(t, "lim", page.Query)
	assert.Equal(t, 2, page.Total)
}

func TestExportWalksAllPages(t *testing.T) {
	svc, _, _ := newTestMemberService(
		member(1, "ana", "Lima", nil),
		member(2, "bruno", "Lima", nil),
		member(3, "carla", "Souza", nil),
	)

	rows, err := svc.Export(context.Background(), ListParams{})
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestProfileForNewUser(t *testing.T) {
	svc, _, _ := newTestMemberService()
	user := &model.User{Base: model.Base{ID: 7}, FirstName: "Ana"}

	m, err := svc.Profile(context.Background(), user)
	require.NoError(t, err)
	assert.False(t, m.Exists())
	assert.Equal(t, int64(7), m.UserID)
	assert.Equal(t, "Ana", m.User.FirstName)
}

func TestSaveProfile(t *testing.T) {
	svc, store, _ := newTestMemberService()
	user := &model.User{Base: model.Base{ID: 7}, FirstName: "Ana"}

	m, err := svc.SaveProfile(context.Background(), user, ProfileInput{
		FirstName:    " Ana ",
		LastName:     "Lima",
		CPF:          "529.982.247-25",
		Phone:        "(11) 91234-5678",
		Organization: "ACME",
		CategoryID:   ptr(int64(2)),
	})
	require.NoError(t, err)

	assert.True(t, m.Exists())
	assert.Equal(t, "52998224725", m.CPF)
	assert.Equal(t, "Ana", m.User.FirstName)
	require.Len(t, store.members, 1)
	assert.Equal(t, int64(7), store.members[0].UserID)
}

func TestSaveProfileUnknownCategory(t *testing.T) {
	svc, _, _ := newTestMemberService()

	_, err := svc.SaveProfile(context.Background(), &model.User{Base: model.Base{ID: 7}}, ProfileInput{
		CPF:        "52998224725",
		CategoryID: ptr(int64(99)),
	})

	var httpErr *errs.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Contains(t, httpErr.FieldMap(), "category")
}

func TestSaveProfileDuplicateCPF(t *testing.T) {
	svc, store, _ := newTestMemberService()
	store.saveErr = sqlerr.Wrap(&pgconn.PgError{Code: "23505", ConstraintName: "members_cpf_key", TableName: "members"})

	_, err := svc.SaveProfile(context.Background(), &model.User{Base: model.Base{ID: 7}}, ProfileInput{CPF: "52998224725"})

	var httpErr *errs.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, "já existe um membro com este CPF", httpErr.FieldMap()["cpf"])
}

func TestDashboard(t *testing.T) {
	svc, _, payments := newTestMemberService(member(1, "ana", "Lima", daysAgo(5)))
	payments.payments = []model.Payment{{ID: 1, MemberID: 1, PaidAt: *daysAgo(5)}}

	dash, err := svc.Dashboard(context.Background(), &model.User{Base: model.Base{ID: 10}})
	require.NoError(t, err)

	assert.Equal(t, dues.StatusActive, dash.Summary.Status)
	assert.Equal(t, 360, dash.Summary.DaysToNextPayment)
	assert.Len(t, dash.Payments, 1)
}

func TestDashboardWithoutProfile(t *testing.T) {
	svc, _, _ := newTestMemberService()

	_, err := svc.Dashboard(context.Background(), &model.User{Base: model.Base{ID: 10}})
	assert.ErrorIs(t, err, ErrProfileIncomplete)
}

func TestStats(t *testing.T) {
	svc, _, _ := newTestMemberService(
		member(1, "ana", "Lima", daysAgo(1)),
		member(2, "bruno", "Lima", nil),
	)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.Stats{TotalMembers: 2, ActiveMembers: 1, InactiveMembers: 1}, stats)
}

package service

import (
	"context"
	"strings"
	"time"

	"github.com/deppfellow/memberships/internal/dues"
	"github.com/deppfellow/memberships/internal/errs"
	"github.com/deppfellow/memberships/internal/model"
	"github.com/deppfellow/memberships/internal/sqlerr"
	"github.com/pkg/errors"
)

var (
	// ErrProfileIncomplete means the user has not filled in the member form.
	ErrProfileIncomplete = errors.New("member profile incomplete")

	// ErrNoStatusFilter means the status lookup got no usable parameter.
	ErrNoStatusFilter = errors.New("no status filter given")
)

// DashboardPayments is how many payments the dashboard lists.
const DashboardPayments = 12

// MemberRow is a member with its derived payment status.
type MemberRow struct {
	model.Member
	Status dues.Status
}

// ListParams are the list page inputs. Page starts at 1.
type ListParams struct {
	Query      string
	CategoryID *int64
	Page       int
}

// ListPage is one page of the member list with what the filter sidebar needs.
type ListPage struct {
	Members    []MemberRow
	Categories []model.Category
	Query      string
	CategoryID *int64
	Page       int
	Pages      int
	Total      int
}

// HasPrev and HasNext drive the pagination links.
func (p ListPage) HasPrev() bool { return p.Page > 1 }
func (p ListPage) HasNext() bool { return p.Page < p.Pages }

// ProfileInput is a validated member form.
type ProfileInput struct {
	FirstName    string
	LastName     string
	CPF          string
	Phone        string
	Organization string
	CategoryID   *int64
}

// Dashboard is the payment overview of the logged-in member.
type Dashboard struct {
	Member   *model.Member
	Summary  dues.Summary
	Payments []model.Payment
}

// MemberService implements listing, profiles, the status lookup and the
// dashboard.
type MemberService struct {
	members    MemberStore
	categories CategoryStore
	payments   PaymentStore
	policy     dues.Policy
	pageSize   int
	now        func() time.Time
}

func NewMemberService(
	members MemberStore,
	categories CategoryStore,
	payments PaymentStore,
	policy dues.Policy,
	pageSize int,
	now func() time.Time,
) *MemberService {
	return &MemberService{
		members:    members,
		categories: categories,
		payments:   payments,
		policy:     policy,
		pageSize:   pageSize,
		now:        now,
	}
}

// Policy exposes the dues rules in effect.
func (s *MemberService) Policy() dues.Policy {
	return s.policy
}

func (s *MemberService) rows(members []model.Member) []MemberRow {
	now := s.now()
	rows := make([]MemberRow, 0, len(members))
	for _, m := range members {
		rows = append(rows, MemberRow{Member: m, Status: s.policy.Classify(m.LastPaymentAt, now)})
	}
	return rows
}

// List returns one page of members filtered by name and category.
func (s *MemberService) List(ctx context.Context, params ListParams) (*ListPage, error) {
	page := max(params.Page, 1)
	query := strings.TrimSpace(params.Query)

	members, total, err := s.members.List(ctx, model.MemberFilter{
		Query:      query,
		CategoryID: params.CategoryID,
		Limit:      s.pageSize,
		Offset:     (page - 1) * s.pageSize,
	})
	if err != nil {
		return nil, err
	}

	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, err
	}

	pages := (total + s.pageSize - 1) / s.pageSize

	return &ListPage{
		Members:    s.rows(members),
		Categories: categories,
		Query:      query,
		CategoryID: params.CategoryID,
		Page:       page,
		Pages:      max(pages, 1),
		Total:      total,
	}, nil
}

// Export returns every member matching the list filter, ignoring paging.
func (s *MemberService) Export(ctx context.Context, params ListParams) ([]MemberRow, error) {
	filter := model.MemberFilter{
		Query:      strings.TrimSpace(params.Query),
		CategoryID: params.CategoryID,
		Limit:      s.pageSize,
	}

	var all []model.Member
	for {
		members, total, err := s.members.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		all = append(all, members...)
		filter.Offset += len(members)
		if len(members) == 0 || filter.Offset >= total {
			break
		}
	}

	return s.rows(all), nil
}

// Categories lists every category.
func (s *MemberService) Categories(ctx context.Context) ([]model.Category, error) {
	return s.categories.List(ctx)
}

// Profile returns the user's member profile, or an unsaved one prefilled
// with the user when none exists yet.
func (s *MemberService) Profile(ctx context.Context, user *model.User) (*model.Member, error) {
	member, err := s.members.GetByUserID(ctx, user.ID)
	if err == nil {
		return member, nil
	}
	if !sqlerr.IsNotFound(err) {
		return nil, err
	}
	return &model.Member{UserID: user.ID, User: *user}, nil
}

// SaveProfile stores the user's names and member data together. Unknown
// categories and CPFs already used by someone else are field errors.
func (s *MemberService) SaveProfile(ctx context.Context, user *model.User, in ProfileInput) (*model.Member, error) {
	if in.CategoryID != nil {
		exists, err := s.categories.Exists(ctx, *in.CategoryID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, fieldErrors("Invalid category", errs.FieldError{Field: "category", Error: "categoria inexistente"})
		}
	}

	member, err := s.Profile(ctx, user)
	if err != nil {
		return nil, err
	}

	member.User.FirstName = strings.TrimSpace(in.FirstName)
	member.User.LastName = strings.TrimSpace(in.LastName)
	member.CPF = model.OnlyDigits(in.CPF)
	member.Phone = strings.TrimSpace(in.Phone)
	member.Organization = strings.TrimSpace(in.Organization)
	member.CategoryID = in.CategoryID

	if err := s.members.SaveProfile(ctx, member); err != nil {
		if sqlerr.IsConstraintViolation(err, "members_cpf_key") {
			return nil, fieldErrors("CPF already registered", errs.FieldError{Field: "cpf", Error: "já existe um membro com este CPF"})
		}
		return nil, err
	}

	return member, nil
}

// Status classifies the first member matching filter. No match is
// StatusInvalid; an empty filter is ErrNoStatusFilter.
func (s *MemberService) Status(ctx context.Context, filter model.StatusFilter) (dues.Status, error) {
	filter = filter.Normalized()
	if filter.IsEmpty() {
		return "", ErrNoStatusFilter
	}

	member, err := s.members.FindForStatus(ctx, filter)
	if err != nil {
		if sqlerr.IsNotFound(err) {
			return dues.StatusInvalid, nil
		}
		return "", err
	}

	return s.policy.Classify(member.LastPaymentAt, s.now()), nil
}

// Dashboard builds the payment overview. Users without a profile get
// ErrProfileIncomplete.
func (s *MemberService) Dashboard(ctx context.Context, user *model.User) (*Dashboard, error) {
	member, err := s.members.GetByUserID(ctx, user.ID)
	if err != nil {
		if sqlerr.IsNotFound(err) {
			return nil, ErrProfileIncomplete
		}
		return nil, err
	}

	payments, err := s.payments.ListByMember(ctx, member.ID, DashboardPayments)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		Member:   member,
		Summary:  s.policy.Summarize(member.LastPaymentAt, s.now()),
		Payments: payments,
	}, nil
}

// Stats counts all, active and inactive members as of today.
func (s *MemberService) Stats(ctx context.Context) (model.Stats, error) {
	today := s.now().In(s.policy.Location)
	return s.members.Stats(ctx, today, s.policy.ValidityDays)
}

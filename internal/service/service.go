// Package service contains the business logic.
//
// It sits between the handler and repository layers.
// It receives validated data from the handler, performs
// business operations, and calls repository methods to interact
// with the data. Repositories are reached through small interfaces
// declared next to the services that use them.
package service

import (
	"context"
	"net/http"
	"time"

	"github.com/deppfellow/memberships/internal/errs"
	"github.com/deppfellow/memberships/internal/model"
)

// UserStore persists user accounts.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// MemberStore persists member profiles.
type MemberStore interface {
	List(ctx context.Context, filter model.MemberFilter) ([]model.Member, int, error)
	GetByUserID(ctx context.Context, userID int64) (*model.Member, error)
	FindForStatus(ctx context.Context, filter model.StatusFilter) (*model.Member, error)
	SaveProfile(ctx context.Context, m *model.Member) error
	Stats(ctx context.Context, today time.Time, validityDays int) (model.Stats, error)
}

// CategoryStore reads member categories.
type CategoryStore interface {
	List(ctx context.Context) ([]model.Category, error)
	Exists(ctx context.Context, id int64) (bool, error)
}

// PaymentStore persists dues payments.
type PaymentStore interface {
	Create(ctx context.Context, p *model.Payment) error
	ListByMember(ctx context.Context, memberID int64, limit int) ([]model.Payment, error)
}

// SessionStore opens and resolves login sessions.
type SessionStore interface {
	Create(ctx context.Context, userID int64) (string, error)
	Lookup(ctx context.Context, id string) (int64, error)
	Destroy(ctx context.Context, id string) error
}

// WelcomeEnqueuer queues the welcome email for a new account.
type WelcomeEnqueuer interface {
	EnqueueWelcomeEmail(ctx context.Context, to, firstName string) error
}

// fieldErrors builds a 400 carrying per-field messages that forms render
// next to their inputs.
func fieldErrors(message string, fields ...errs.FieldError) *errs.HTTPError {
	code := errs.MakeUpperCaseWithUnderscores(http.StatusText(http.StatusBadRequest))
	return errs.NewBadRequestError(message, true, &code, fields, nil)
}

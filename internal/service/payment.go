package service

import (
	"context"
	"strings"
	"time"

	"github.com/deppfellow/memberships/internal/errs"
	"github.com/deppfellow/memberships/internal/model"
	"github.com/deppfellow/memberships/internal/sqlerr"
	"github.com/shopspring/decimal"
)

// RecordPaymentInput identifies the member by email or CPF.
type RecordPaymentInput struct {
	Email     string
	CPF       string
	Amount    decimal.Decimal
	PaidAt    *time.Time
	Reference string
}

// PaymentService records payments reported by the payment provider.
type PaymentService struct {
	members  MemberStore
	payments PaymentStore
	now      func() time.Time
}

func NewPaymentService(members MemberStore, payments PaymentStore, now func() time.Time) *PaymentService {
	return &PaymentService{members: members, payments: payments, now: now}
}

// Record stores a payment for the identified member. paid_at defaults to now.
func (s *PaymentService) Record(ctx context.Context, in RecordPaymentInput) (*model.Payment, error) {
	filter := model.StatusFilter{Email: in.Email, CPF: in.CPF}.Normalized()
	if filter.IsEmpty() {
		return nil, fieldErrors("Member identification required",
			errs.FieldError{Field: "email", Error: "informe email ou cpf"})
	}

	member, err := s.members.FindForStatus(ctx, filter)
	if err != nil {
		if sqlerr.IsNotFound(err) {
			return nil, errs.NewNotFoundError("Member not found", true, nil)
		}
		return nil, err
	}

	paidAt := s.now()
	if in.PaidAt != nil {
		paidAt = *in.PaidAt
	}

	payment := &model.Payment{
		MemberID:  member.ID,
		Amount:    in.Amount.Round(2),
		PaidAt:    paidAt,
		Reference: strings.TrimSpace(in.Reference),
	}

	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

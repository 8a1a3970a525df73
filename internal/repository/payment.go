package repository

import (
	"context"

	"github.com/deppfellow/memberships/internal/model"
	"github.com/deppfellow/memberships/internal/sqlerr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type PaymentRepository struct {
	pool *pgxpool.Pool
}

func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

// Create records p and fills its id and created_at.
func (r *PaymentRepository) Create(ctx context.Context, p *model.Payment) error {
	stmt := `
		INSERT INTO payments (member_id, amount, paid_at, reference)
		VALUES (@member_id, @amount::numeric, @paid_at, @reference)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, stmt, pgx.NamedArgs{
		"member_id": p.MemberID,
		"amount":    p.Amount.StringFixed(2),
		"paid_at":   p.PaidAt,
		"reference": p.Reference,
	}).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return sqlerr.Wrap(err)
	}
	return nil
}

// ListByMember returns the member's most recent payments, newest first.
func (r *PaymentRepository) ListByMember(ctx context.Context, memberID int64, limit int) ([]model.Payment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, member_id, amount::text, paid_at, reference, created_at
		FROM payments
		WHERE member_id = @member_id
		ORDER BY paid_at DESC, id DESC
		LIMIT @limit`,
		pgx.NamedArgs{"member_id": memberID, "limit": limit})
	if err != nil {
		return nil, sqlerr.Wrap(err)
	}

	payments, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Payment, error) {
		var (
			p      model.Payment
			amount string
		)
		if err := row.Scan(&p.ID, &p.MemberID, &amount, &p.PaidAt, &p.Reference, &p.CreatedAt); err != nil {
			return model.Payment{}, err
		}
		parsed, err := decimal.NewFromString(amount)
		if err != nil {
			return model.Payment{}, err
		}
		p.Amount = parsed
		return p, nil
	})
	if err != nil {
		return nil, sqlerr.Wrap(err)
	}
	return payments, nil
}

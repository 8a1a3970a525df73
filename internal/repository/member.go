package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/deppfellow/memberships/internal/model"
	"github.com/deppfellow/memberships/internal/sqlerr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MemberRepository reads and writes member profiles. Every read joins the
// owning user, the category and the date of the latest payment.
type MemberRepository struct {
	pool *pgxpool.Pool
	// tz is the IANA zone used to turn payment timestamps into dates.
	tz string
}

func NewMemberRepository(pool *pgxpool.Pool, tz string) *MemberRepository {
	return &MemberRepository{pool: pool, tz: tz}
}

const memberSelect = `
	SELECT
		m.id, m.user_id, m.category_id, m.cpf, m.phone, m.organization, m.created_at, m.updated_at,
		u.id, u.email, u.first_name, u.last_name, u.created_at, u.updated_at,
		c.name,
		lp.last_paid_at
	FROM members m
	JOIN users u ON u.id = m.user_id
	LEFT JOIN categories c ON c.id = m.category_id
	LEFT JOIN LATERAL (
		SELECT max(p.paid_at) AS last_paid_at FROM payments p WHERE p.member_id = m.id
	) lp ON true
`

func scanMember(row pgx.Row) (model.Member, error) {
	var (
		m            model.Member
		categoryName *string
	)

	err := row.Scan(
		&m.ID, &m.UserID, &m.CategoryID, &m.CPF, &m.Phone, &m.Organization, &m.CreatedAt, &m.UpdatedAt,
		&m.User.ID, &m.User.Email, &m.User.FirstName, &m.User.LastName, &m.User.CreatedAt, &m.User.UpdatedAt,
		&categoryName,
		&m.LastPaymentAt,
	)
	if err != nil {
		return model.Member{}, err
	}

	if m.CategoryID != nil && categoryName != nil {
		m.Category = &model.Category{ID: *m.CategoryID, Name: *categoryName}
	}
	return m, nil
}

func (r *MemberRepository) collect(ctx context.Context, query string, args pgx.NamedArgs) ([]model.Member, error) {
	rows, err := r.pool.Query(ctx, query, args)
	if err != nil {
		return nil, sqlerr.Wrap(err)
	}

	members, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Member, error) {
		return scanMember(row)
	})
	if err != nil {
		return nil, sqlerr.Wrap(err)
	}
	return members, nil
}

func (r *MemberRepository) one(ctx context.Context, query string, args pgx.NamedArgs) (*model.Member, error) {
	m, err := scanMember(r.pool.QueryRow(ctx, query, args))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sqlerr.NotFound("members", err)
		}
		return nil, sqlerr.Wrap(err)
	}
	return &m, nil
}

// List returns one page of members matching filter and the total number
// of matches.
func (r *MemberRepository) List(ctx context.Context, filter model.MemberFilter) ([]model.Member, int, error) {
	where, args := buildMemberFilter(filter)

	var total int
	countQuery := `SELECT count(*) FROM members m JOIN users u ON u.id = m.user_id` + where
	if err := r.pool.QueryRow(ctx, countQuery, args).Scan(&total); err != nil {
		return nil, 0, sqlerr.Wrap(err)
	}

	args["limit"] = filter.Limit
	args["offset"] = filter.Offset

	members, err := r.collect(ctx, memberSelect+where+`
		ORDER BY u.first_name, u.last_name, m.id
		LIMIT @limit OFFSET @offset`, args)
	if err != nil {
		return nil, 0, err
	}
	return members, total, nil
}

// GetByUserID returns the profile owned by a user.
func (r *MemberRepository) GetByUserID(ctx context.Context, userID int64) (*model.Member, error) {
	return r.one(ctx, memberSelect+` WHERE m.user_id = @user_id`, pgx.NamedArgs{"user_id": userID})
}

// FindForStatus returns the member with the lowest id matching every set
// field of filter. The filter must not be empty.
func (r *MemberRepository) FindForStatus(ctx context.Context, filter model.StatusFilter) (*model.Member, error) {
	where, args := buildStatusFilter(filter.Normalized())
	return r.one(ctx, memberSelect+where+` ORDER BY m.id LIMIT 1`, args)
}

// SaveProfile updates the user's names and creates or updates their member
// row in a single transaction. m.ID and timestamps are filled on return.
func (r *MemberRepository) SaveProfile(ctx context.Context, m *model.Member) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			UPDATE users SET first_name = @first_name, last_name = @last_name, updated_at = now()
			WHERE id = @user_id`,
			pgx.NamedArgs{
				"first_name": m.User.FirstName,
				"last_name":  m.User.LastName,
				"user_id":    m.UserID,
			})
		if err != nil {
			return err
		}

		return tx.QueryRow(ctx, `
			INSERT INTO members (user_id, category_id, cpf, phone, organization)
			VALUES (@user_id, @category_id, @cpf, @phone, @organization)
			ON CONFLICT (user_id) DO UPDATE SET
				category_id  = EXCLUDED.category_id,
				cpf          = EXCLUDED.cpf,
				phone        = EXCLUDED.phone,
				organization = EXCLUDED.organization,
				updated_at   = now()
			RETURNING id, created_at, updated_at`,
			pgx.NamedArgs{
				"user_id":      m.UserID,
				"category_id":  m.CategoryID,
				"cpf":          model.OnlyDigits(m.CPF),
				"phone":        strings.TrimSpace(m.Phone),
				"organization": strings.TrimSpace(m.Organization),
			}).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	})
	if err != nil {
		return sqlerr.Wrap(err)
	}

	m.CPF = model.OnlyDigits(m.CPF)
	return nil
}

// Stats counts members, and how many are active on today with the given
// validity window. A member is active while today < last payment date + window.
func (r *MemberRepository) Stats(ctx context.Context, today time.Time, validityDays int) (model.Stats, error) {
	stmt := `
		SELECT
			count(*),
			count(*) FILTER (
				WHERE lp.last_paid_at IS NOT NULL
				AND (lp.last_paid_at AT TIME ZONE @tz)::date + @validity_days::int > @today::date
			)
		FROM members m
		LEFT JOIN LATERAL (
			SELECT max(p.paid_at) AS last_paid_at FROM payments p WHERE p.member_id = m.id
		) lp ON true
	`

	var stats model.Stats
	err := r.pool.QueryRow(ctx, stmt, pgx.NamedArgs{
		"tz":            r.tz,
		"validity_days": validityDays,
		"today":         civilDate(today),
	}).Scan(&stats.TotalMembers, &stats.ActiveMembers)
	if err != nil {
		return model.Stats{}, sqlerr.Wrap(err)
	}

	stats.InactiveMembers = stats.TotalMembers - stats.ActiveMembers
	return stats, nil
}

// ListLastPaidOn returns members whose latest payment fell on day, in the
// repository's time zone.
func (r *MemberRepository) ListLastPaidOn(ctx context.Context, day time.Time) ([]model.Member, error) {
	return r.collect(ctx, memberSelect+`
		WHERE (lp.last_paid_at AT TIME ZONE @tz)::date = @day::date
		ORDER BY m.id`,
		pgx.NamedArgs{"tz": r.tz, "day": civilDate(day)})
}

// civilDate keeps the calendar date of t and drops its zone so the driver
// encodes exactly that date.
func civilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// buildMemberFilter turns the list filter into a WHERE clause over
// members m joined with users u.
func buildMemberFilter(f model.MemberFilter) (string, pgx.NamedArgs) {
	var clauses []string
	args := pgx.NamedArgs{}

	if q := strings.TrimSpace(f.Query); q != "" {
		clauses = append(clauses, "(u.first_name ILIKE @q OR u.last_name ILIKE @q)")
		args["q"] = "%" + escapeLike(q) + "%"
	}

	if f.CategoryID != nil {
		clauses = append(clauses, "m.category_id = @category_id")
		args["category_id"] = *f.CategoryID
	}

	return where(clauses), args
}

// buildStatusFilter ANDs an exact match for every non-empty field.
func buildStatusFilter(f model.StatusFilter) (string, pgx.NamedArgs) {
	var clauses []string
	args := pgx.NamedArgs{}

	add := func(clause, name, value string) {
		if value == "" {
			return
		}
		clauses = append(clauses, clause)
		args[name] = value
	}

	add("u.first_name = @first_name", "first_name", f.FirstName)
	add("u.last_name = @last_name", "last_name", f.LastName)
	add("u.email = @email", "email", f.Email)
	add("m.cpf = @cpf", "cpf", f.CPF)
	add(`regexp_replace(m.phone, '\D', '', 'g') = @phone`, "phone", f.Phone)
	add("m.organization = @organization", "organization", f.Organization)

	return where(clauses), args
}

func where(clauses []string) string {
	if len(clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(clauses, " AND ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

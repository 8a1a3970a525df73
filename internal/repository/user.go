package repository

import (
	"context"
	"errors"

	"github.com/deppfellow/memberships/internal/model"
	"github.com/deppfellow/memberships/internal/sqlerr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, email, first_name, last_name, password_hash, created_at, updated_at`

// Create inserts u and fills its id and timestamps.
func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	stmt := `
		INSERT INTO users (email, first_name, last_name, password_hash)
		VALUES (@email, @first_name, @last_name, @password_hash)
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, stmt, pgx.NamedArgs{
		"email":         model.NormalizeEmail(u.Email),
		"first_name":    u.FirstName,
		"last_name":     u.LastName,
		"password_hash": u.PasswordHash,
	}).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return sqlerr.Wrap(err)
	}

	u.Email = model.NormalizeEmail(u.Email)
	return nil
}

// GetByEmail looks a user up by email, case-insensitively.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = @email`,
		pgx.NamedArgs{"email": model.NormalizeEmail(email)})
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = @id`,
		pgx.NamedArgs{"id": id})
}

func (r *UserRepository) getOne(ctx context.Context, query string, args pgx.NamedArgs) (*model.User, error) {
	rows, err := r.pool.Query(ctx, query, args)
	if err != nil {
		return nil, sqlerr.Wrap(err)
	}

	user, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[model.User])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sqlerr.NotFound("users", err)
		}
		return nil, sqlerr.Wrap(err)
	}

	return &user, nil
}

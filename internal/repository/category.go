package repository

import (
	"context"

	"github.com/deppfellow/memberships/internal/model"
	"github.com/deppfellow/memberships/internal/sqlerr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CategoryRepository struct {
	pool *pgxpool.Pool
}

func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

// List returns every category ordered by name.
func (r *CategoryRepository) List(ctx context.Context) ([]model.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, sqlerr.Wrap(err)
	}

	categories, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Category])
	if err != nil {
		return nil, sqlerr.Wrap(err)
	}
	return categories, nil
}

// Exists reports whether a category with id exists.
func (r *CategoryRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM categories WHERE id = @id)`,
		pgx.NamedArgs{"id": id}).Scan(&exists)
	if err != nil {
		return false, sqlerr.Wrap(err)
	}
	return exists, nil
}

package item

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	GetByID(ctx context.Context, id int64) (*Item, error)
	// Create is used for seeding; listing CRUD lives outside this service.
	Create(ctx context.Context, it *Item) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) GetByID(ctx context.Context, id int64) (*Item, error) {
	const query = `
		SELECT id, owner_id, name, description, available, created_at
		FROM public.items
		WHERE id = $1
	`
	row := r.pool.QueryRow(ctx, query, id)

	var it Item
	if err := row.Scan(&it.ID, &it.OwnerID, &it.Name, &it.Description, &it.Available, &it.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get item failed: %w", err)
	}
	return &it, nil
}

func (r *pgxRepository) Create(ctx context.Context, it *Item) error {
	const query = `
		INSERT INTO public.items (owner_id, name, description, available)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.pool.QueryRow(ctx, query, it.OwnerID, it.Name, it.Description, it.Available).
		Scan(&it.ID, &it.CreatedAt)
	if err != nil {
		var e *pgconn.PgError
		if errors.As(err, &e) && e.Code == pgerrcode.ForeignKeyViolation {
			return ErrOwnerNotFound
		}
		return fmt.Errorf("create item failed: %w", err)
	}
	return nil
}

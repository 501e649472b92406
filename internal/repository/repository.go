// Package repository is the persistence layer: one PostgreSQL table keyed by
// slug, accessed through a pgx connection pool.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"shortlink/internal/model"
)

var (
	// ErrNotFound is returned when no mapping exists for a slug.
	ErrNotFound = errors.New("mapping not found")
	// ErrDuplicateSlug is returned when an insert hits the primary key
	// constraint. The constraint is the authoritative collision detector.
	ErrDuplicateSlug = errors.New("slug already exists")
)

type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) GetBySlug(ctx context.Context, slug string) (*model.URLMapping, error) {
	const q = `SELECT slug, url, creator_address, usage_count, created_at FROM url_mappings WHERE slug = $1`

	var m model.URLMapping
	err := r.pool.QueryRow(ctx, q, slug).
		Scan(&m.Slug, &m.URL, &m.CreatorAddress, &m.UsageCount, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get mapping %q: %w", slug, err)
	}
	return &m, nil
}

// Insert persists a new mapping with a zero usage count and returns the row
// as the database stored it, so callers see any truncation or defaults the
// server applied rather than an in-memory echo.
func (r *Repo) Insert(ctx context.Context, slug, url, creatorAddress string) (*model.URLMapping, error) {
	const q = `
		INSERT INTO url_mappings (slug, url, creator_address)
		VALUES ($1, $2, $3)
		RETURNING slug, url, creator_address, usage_count, created_at
	`

	var m model.URLMapping
	err := r.pool.QueryRow(ctx, q, slug, url, creatorAddress).
		Scan(&m.Slug, &m.URL, &m.CreatorAddress, &m.UsageCount, &m.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateSlug
		}
		return nil, fmt.Errorf("insert mapping %q: %w", slug, err)
	}
	return &m, nil
}

// IncrementUsage bumps the usage counter by one with a single conditional
// UPDATE. The arithmetic happens in the database so concurrent resolutions of
// the same slug never lose increments.
func (r *Repo) IncrementUsage(ctx context.Context, slug string) error {
	const q = `UPDATE url_mappings SET usage_count = usage_count + 1 WHERE slug = $1`

	tag, err := r.pool.Exec(ctx, q, slug)
	if err != nil {
		return fmt.Errorf("increment usage for %q: %w", slug, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

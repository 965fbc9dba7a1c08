package wishlist

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDuplicateEntry signals the property is already on the buyer's wishlist.
var ErrDuplicateEntry = errors.New("wishlist: property already wishlisted")

// Repository provides data access for wishlist entries.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Add(ctx context.Context, userID, propertyID string) (Entry, error) {
	const insertSQL = `
		INSERT INTO wishlist (user_id, property_id)
		VALUES ($1, $2)
		RETURNING id, user_id, property_id, created_at
	`

	var e Entry
	err := r.pool.QueryRow(ctx, insertSQL, userID, propertyID).Scan(&e.ID, &e.UserID, &e.PropertyID, &e.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Entry{}, ErrDuplicateEntry
		}
		return Entry{}, fmt.Errorf("wishlist: add: %w", err)
	}
	return e, nil
}

// Remove deletes the entry if present. Removing a property that was never
// wishlisted is not an error.
func (r *Repository) Remove(ctx context.Context, userID, propertyID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM wishlist WHERE user_id = $1 AND property_id = $2`, userID, propertyID)
	if err != nil {
		return fmt.Errorf("wishlist: remove: %w", err)
	}
	return nil
}

func (r *Repository) ListByUser(ctx context.Context, userID string) ([]Entry, error) {
	const selectSQL = `
		SELECT id, user_id, property_id, created_at
		FROM wishlist
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, selectSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("wishlist: list: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, 8)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.PropertyID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("wishlist: scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("wishlist: iterate: %w", err)
	}
	return entries, nil
}

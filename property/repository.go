package property

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound signals the requested property does not exist.
	ErrNotFound = errors.New("property: not found")
	// ErrDealStatusConflict signals a deal-status CAS lost: the property is
	// already at a different stage than the caller expected.
	ErrDealStatusConflict = errors.New("property: deal status conflict")
)

// Repository provides data access for property records.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (Property, error)
	GetByID(ctx context.Context, id string) (Property, error)
	ListVerified(ctx context.Context, limit int) ([]Property, error)
	ListByAgent(ctx context.Context, agentID string) ([]Property, error)
	SetVerification(ctx context.Context, id string, status VerificationStatus) (Property, error)
	SetDealStatus(ctx context.Context, id string, next DealStatus, expectedPrior *DealStatus) error
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const propertyColumns = `id, agent_id, title, location, image_url, min_price, max_price, verification_status, deal_status, created_at, updated_at`

func (r *PGRepository) Create(ctx context.Context, params CreateParams) (Property, error) {
	insertSQL := `
		INSERT INTO properties (agent_id, title, location, image_url, min_price, max_price)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + propertyColumns

	prop, err := scanProperty(r.pool.QueryRow(ctx, insertSQL,
		params.AgentID,
		params.Title,
		params.Location,
		params.ImageURL,
		params.MinPrice,
		params.MaxPrice,
	))
	if err != nil {
		return Property{}, fmt.Errorf("property: create: %w", err)
	}
	return prop, nil
}

func (r *PGRepository) GetByID(ctx context.Context, id string) (Property, error) {
	selectSQL := `SELECT ` + propertyColumns + ` FROM properties WHERE id = $1`

	prop, err := scanProperty(r.pool.QueryRow(ctx, selectSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Property{}, ErrNotFound
		}
		return Property{}, fmt.Errorf("property: get by id: %w", err)
	}
	return prop, nil
}

func (r *PGRepository) ListVerified(ctx context.Context, limit int) ([]Property, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	selectSQL := `
		SELECT ` + propertyColumns + `
		FROM properties
		WHERE verification_status = 'verified'
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.pool.Query(ctx, selectSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("property: list verified: %w", err)
	}
	defer rows.Close()

	return collectProperties(rows)
}

func (r *PGRepository) ListByAgent(ctx context.Context, agentID string) ([]Property, error) {
	selectSQL := `
		SELECT ` + propertyColumns + `
		FROM properties
		WHERE agent_id = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, selectSQL, agentID)
	if err != nil {
		return nil, fmt.Errorf("property: list by agent: %w", err)
	}
	defer rows.Close()

	return collectProperties(rows)
}

// SetVerification records a moderation decision on a pending listing. The
// pending predicate rides in the update, so when two moderations race only
// the first lands and the loser gets ErrAlreadyModerated.
func (r *PGRepository) SetVerification(ctx context.Context, id string, status VerificationStatus) (Property, error) {
	updateSQL := `
		UPDATE properties
		SET verification_status = $2, updated_at = now()
		WHERE id = $1 AND verification_status = 'pending'
		RETURNING ` + propertyColumns

	prop, err := scanProperty(r.pool.QueryRow(ctx, updateSQL, id, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			var current VerificationStatus
			checkErr := r.pool.QueryRow(ctx, `SELECT verification_status FROM properties WHERE id = $1`, id).Scan(&current)
			if checkErr != nil {
				if errors.Is(checkErr, pgx.ErrNoRows) {
					return Property{}, ErrNotFound
				}
				return Property{}, fmt.Errorf("property: recheck verification: %w", checkErr)
			}
			return Property{}, fmt.Errorf("%w: currently %s", ErrAlreadyModerated, current)
		}
		return Property{}, fmt.Errorf("property: set verification: %w", err)
	}
	return prop, nil
}

// SetDealStatus advances deal_status with a compare-and-set on the expected
// prior value (nil means open/NULL). A retry that finds the property already
// at the requested status is treated as success so converge steps can be
// re-run safely.
func (r *PGRepository) SetDealStatus(ctx context.Context, id string, next DealStatus, expectedPrior *DealStatus) error {
	const updateSQL = `
		UPDATE properties
		SET deal_status = $2, updated_at = now()
		WHERE id = $1 AND deal_status IS NOT DISTINCT FROM $3
	`

	tag, err := r.pool.Exec(ctx, updateSQL, id, string(next), priorArg(expectedPrior))
	if err != nil {
		return fmt.Errorf("property: set deal status: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var current *string
	err = r.pool.QueryRow(ctx, `SELECT deal_status FROM properties WHERE id = $1`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("property: recheck deal status: %w", err)
	}
	if current != nil && DealStatus(*current) == next {
		return nil
	}
	return ErrDealStatusConflict
}

func priorArg(expected *DealStatus) any {
	if expected == nil {
		return nil
	}
	return string(*expected)
}

func scanProperty(row pgx.Row) (Property, error) {
	var (
		prop       Property
		dealStatus *string
	)
	err := row.Scan(
		&prop.ID,
		&prop.AgentID,
		&prop.Title,
		&prop.Location,
		&prop.ImageURL,
		&prop.MinPrice,
		&prop.MaxPrice,
		&prop.Verification,
		&dealStatus,
		&prop.CreatedAt,
		&prop.UpdatedAt,
	)
	if err != nil {
		return Property{}, err
	}
	if dealStatus != nil {
		ds := DealStatus(*dealStatus)
		prop.DealStatus = &ds
	}
	return prop, nil
}

func collectProperties(rows pgx.Rows) ([]Property, error) {
	props := make([]Property, 0, 8)
	for rows.Next() {
		prop, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("property: scan: %w", err)
		}
		props = append(props, prop)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("property: iterate: %w", err)
	}
	return props, nil
}

package offer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound signals the requested offer does not exist.
	ErrNotFound = errors.New("offer: not found")
	// ErrDuplicate signals the buyer already made an offer on this property.
	ErrDuplicate = errors.New("offer: offer already exists")
	// ErrNotPending signals a decision on an offer that already left pending.
	ErrNotPending = errors.New("offer: offer no longer pending")
	// ErrNotAccepted signals a settlement write on an offer that is not accepted.
	ErrNotAccepted = errors.New("offer: offer not accepted")
	// ErrPropertyUnderContract signals the property already carries an accepted
	// or sold deal from another offer.
	ErrPropertyUnderContract = errors.New("offer: property already under contract")
)

// Repository provides data access for offers.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (Offer, error)
	GetByID(ctx context.Context, offerID string) (Offer, error)
	GetByBuyerAndProperty(ctx context.Context, buyerID, propertyID string) (Offer, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]Offer, error)
	ListByAgent(ctx context.Context, agentID string) ([]Offer, error)
	ListSoldByAgent(ctx context.Context, agentID string) ([]SoldOffer, error)
	Accept(ctx context.Context, offerID string) (AcceptResult, error)
	Reject(ctx context.Context, offerID string) (Offer, error)
	MarkBought(ctx context.Context, offerID string, ref PaymentRef) (Offer, error)
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const offerColumns = `id, property_id, buyer_id, agent_id, amount, buying_date, status, transaction_id, paid_amount, session_id, paid_at, created_at, updated_at`

func (r *PGRepository) Create(ctx context.Context, params CreateParams) (Offer, error) {
	insertSQL := `
		INSERT INTO offers (property_id, buyer_id, agent_id, amount, buying_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + offerColumns

	off, err := scanOffer(r.pool.QueryRow(ctx, insertSQL,
		params.PropertyID,
		params.BuyerID,
		params.AgentID,
		params.Amount,
		params.BuyingDate,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Offer{}, ErrDuplicate
		}
		return Offer{}, fmt.Errorf("offer: create: %w", err)
	}
	return off, nil
}

func (r *PGRepository) GetByID(ctx context.Context, offerID string) (Offer, error) {
	selectSQL := `SELECT ` + offerColumns + ` FROM offers WHERE id = $1`

	off, err := scanOffer(r.pool.QueryRow(ctx, selectSQL, offerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Offer{}, ErrNotFound
		}
		return Offer{}, fmt.Errorf("offer: get by id: %w", err)
	}
	return off, nil
}

func (r *PGRepository) GetByBuyerAndProperty(ctx context.Context, buyerID, propertyID string) (Offer, error) {
	selectSQL := `SELECT ` + offerColumns + ` FROM offers WHERE buyer_id = $1 AND property_id = $2`

	off, err := scanOffer(r.pool.QueryRow(ctx, selectSQL, buyerID, propertyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Offer{}, ErrNotFound
		}
		return Offer{}, fmt.Errorf("offer: get by buyer and property: %w", err)
	}
	return off, nil
}

func (r *PGRepository) ListByBuyer(ctx context.Context, buyerID string) ([]Offer, error) {
	selectSQL := `SELECT ` + offerColumns + ` FROM offers WHERE buyer_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, selectSQL, buyerID)
	if err != nil {
		return nil, fmt.Errorf("offer: list by buyer: %w", err)
	}
	defer rows.Close()

	return collectOffers(rows)
}

func (r *PGRepository) ListByAgent(ctx context.Context, agentID string) ([]Offer, error) {
	selectSQL := `SELECT ` + offerColumns + ` FROM offers WHERE agent_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, selectSQL, agentID)
	if err != nil {
		return nil, fmt.Errorf("offer: list by agent: %w", err)
	}
	defer rows.Close()

	return collectOffers(rows)
}

// ListSoldByAgent returns the agent's settled offers joined with the sold
// property, most recently paid first.
func (r *PGRepository) ListSoldByAgent(ctx context.Context, agentID string) ([]SoldOffer, error) {
	selectSQL := `
		SELECT o.id, o.property_id, o.buyer_id, o.agent_id, o.amount, o.buying_date, o.status,
		       o.transaction_id, o.paid_amount, o.session_id, o.paid_at, o.created_at, o.updated_at,
		       p.title, p.location
		FROM offers o
		JOIN properties p ON p.id = o.property_id
		WHERE o.agent_id = $1 AND o.status = 'bought'
		ORDER BY o.paid_at DESC`

	rows, err := r.pool.Query(ctx, selectSQL, agentID)
	if err != nil {
		return nil, fmt.Errorf("offer: list sold by agent: %w", err)
	}
	defer rows.Close()

	sold := make([]SoldOffer, 0, 8)
	for rows.Next() {
		var (
			s             SoldOffer
			transactionID *string
			paidAmount    *int64
			sessionID     *string
			paidAt        *time.Time
		)
		if err := rows.Scan(
			&s.ID, &s.PropertyID, &s.BuyerID, &s.AgentID, &s.Amount, &s.BuyingDate, &s.Status,
			&transactionID, &paidAmount, &sessionID, &paidAt, &s.CreatedAt, &s.UpdatedAt,
			&s.PropertyTitle, &s.PropertyLocation,
		); err != nil {
			return nil, fmt.Errorf("offer: scan sold: %w", err)
		}
		s.Payment = buildPaymentRef(transactionID, paidAmount, sessionID, paidAt)
		sold = append(sold, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("offer: iterate sold: %w", err)
	}
	return sold, nil
}

// Accept commits the accept decision in a single transaction. The property
// row lock is taken first, before any offer row: every accept on the same
// property acquires locks in the same order (property, then offers), so
// competing accepts queue on the property instead of forming a lock cycle
// between the offer CAS and the sibling fan-out. The status CAS on the target
// offer (pending -> accepted) remains the admission point: a competing accept
// that already rejected this offer, or any other departure from pending,
// surfaces as ErrNotPending and nothing is mutated.
func (r *PGRepository) Accept(ctx context.Context, offerID string) (AcceptResult, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return AcceptResult{}, fmt.Errorf("offer: begin accept tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var propertyID string
	err = tx.QueryRow(ctx, `SELECT property_id FROM offers WHERE id = $1`, offerID).Scan(&propertyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AcceptResult{}, ErrNotFound
		}
		return AcceptResult{}, fmt.Errorf("offer: resolve property for accept: %w", err)
	}

	var locked string
	err = tx.QueryRow(ctx, `SELECT id FROM properties WHERE id = $1 FOR UPDATE`, propertyID).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AcceptResult{}, ErrNotFound
		}
		return AcceptResult{}, fmt.Errorf("offer: lock property for accept: %w", err)
	}

	acceptSQL := `
		UPDATE offers
		SET status = 'accepted', updated_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + offerColumns

	off, err := scanOffer(tx.QueryRow(ctx, acceptSQL, offerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AcceptResult{}, r.classifyDecisionMiss(ctx, tx, offerID)
		}
		return AcceptResult{}, fmt.Errorf("offer: mark accepted: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE properties
		SET deal_status = 'accepted', updated_at = now()
		WHERE id = $1 AND deal_status IS NULL
	`, off.PropertyID)
	if err != nil {
		return AcceptResult{}, fmt.Errorf("offer: flip property deal status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return AcceptResult{}, ErrPropertyUnderContract
	}

	rejected, err := tx.Exec(ctx, `
		UPDATE offers
		SET status = 'rejected', updated_at = now()
		WHERE property_id = $1 AND id <> $2 AND status = 'pending'
	`, off.PropertyID, off.ID)
	if err != nil {
		return AcceptResult{}, fmt.Errorf("offer: reject siblings: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return AcceptResult{}, fmt.Errorf("offer: commit accept: %w", err)
	}

	return AcceptResult{Offer: off, SiblingsRejected: rejected.RowsAffected()}, nil
}

// Reject moves a pending offer to rejected. No property mutation.
func (r *PGRepository) Reject(ctx context.Context, offerID string) (Offer, error) {
	rejectSQL := `
		UPDATE offers
		SET status = 'rejected', updated_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + offerColumns

	off, err := scanOffer(r.pool.QueryRow(ctx, rejectSQL, offerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Offer{}, r.classifyDecisionMiss(ctx, r.pool, offerID)
		}
		return Offer{}, fmt.Errorf("offer: mark rejected: %w", err)
	}
	return off, nil
}

// MarkBought records settlement evidence with a CAS on accepted -> bought.
// A lost CAS is reported as ErrNotAccepted so the caller can re-read and
// decide whether a concurrent confirmation already settled the offer.
func (r *PGRepository) MarkBought(ctx context.Context, offerID string, ref PaymentRef) (Offer, error) {
	boughtSQL := `
		UPDATE offers
		SET status = 'bought',
		    transaction_id = $2,
		    paid_amount = $3,
		    session_id = $4,
		    paid_at = $5,
		    updated_at = now()
		WHERE id = $1 AND status = 'accepted'
		RETURNING ` + offerColumns

	off, err := scanOffer(r.pool.QueryRow(ctx, boughtSQL,
		offerID,
		ref.TransactionID,
		ref.Amount,
		ref.SessionID,
		ref.SettledAt,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			if checkErr := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM offers WHERE id = $1)`, offerID).Scan(&exists); checkErr != nil {
				return Offer{}, fmt.Errorf("offer: recheck for settlement: %w", checkErr)
			}
			if !exists {
				return Offer{}, ErrNotFound
			}
			return Offer{}, ErrNotAccepted
		}
		return Offer{}, fmt.Errorf("offer: mark bought: %w", err)
	}
	return off, nil
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// classifyDecisionMiss distinguishes a missing offer from one that already
// left pending, after a zero-row decision CAS.
func (r *PGRepository) classifyDecisionMiss(ctx context.Context, q querier, offerID string) error {
	var status string
	err := q.QueryRow(ctx, `SELECT status FROM offers WHERE id = $1`, offerID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("offer: classify decision miss: %w", err)
	}
	return fmt.Errorf("%w: currently %s", ErrNotPending, status)
}

func scanOffer(row pgx.Row) (Offer, error) {
	var (
		off           Offer
		transactionID *string
		paidAmount    *int64
		sessionID     *string
		paidAt        *time.Time
	)
	err := row.Scan(
		&off.ID,
		&off.PropertyID,
		&off.BuyerID,
		&off.AgentID,
		&off.Amount,
		&off.BuyingDate,
		&off.Status,
		&transactionID,
		&paidAmount,
		&sessionID,
		&paidAt,
		&off.CreatedAt,
		&off.UpdatedAt,
	)
	if err != nil {
		return Offer{}, err
	}
	off.Payment = buildPaymentRef(transactionID, paidAmount, sessionID, paidAt)
	return off, nil
}

func buildPaymentRef(transactionID *string, paidAmount *int64, sessionID *string, paidAt *time.Time) *PaymentRef {
	if transactionID == nil || paidAmount == nil || paidAt == nil {
		return nil
	}
	ref := &PaymentRef{
		TransactionID: *transactionID,
		Amount:        *paidAmount,
		SettledAt:     *paidAt,
	}
	if sessionID != nil {
		ref.SessionID = *sessionID
	}
	return ref
}

func collectOffers(rows pgx.Rows) ([]Offer, error) {
	offers := make([]Offer, 0, 8)
	for rows.Next() {
		off, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("offer: scan: %w", err)
		}
		offers = append(offers, off)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("offer: iterate: %w", err)
	}
	return offers, nil
}

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/gamestore/internal/domain/billing"
)

var _ billing.Repository = (*BillingRepository)(nil)

// BillingRepository implements billing.Repository backed by PostgreSQL.
type BillingRepository struct {
	pool *pgxpool.Pool
}

// NewBillingRepository returns a BillingRepository that uses the given pool.
func NewBillingRepository(pool *pgxpool.Pool) *BillingRepository {
	return &BillingRepository{pool: pool}
}

func (r *BillingRepository) Create(ctx context.Context, a *billing.Address) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO billing_addresses (user_id, full_name, line1, line2, city, postal_code, country)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		a.UserID, a.FullName, a.Line1, a.Line2, a.City, a.PostalCode, a.Country,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating billing address: %w", err)
	}
	return nil
}

func (r *BillingRepository) ListByUser(ctx context.Context, userID int64) ([]billing.Address, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, full_name, line1, line2, city, postal_code, country, created_at
		FROM billing_addresses WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing billing addresses: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (billing.Address, error) {
		var a billing.Address
		err := row.Scan(&a.ID, &a.UserID, &a.FullName, &a.Line1, &a.Line2, &a.City, &a.PostalCode, &a.Country, &a.CreatedAt)
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning billing addresses: %w", err)
	}
	return out, nil
}

func (r *BillingRepository) BelongsTo(ctx context.Context, addressID, userID int64) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM billing_addresses WHERE id = $1 AND user_id = $2)`,
		addressID, userID,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("checking billing address %d: %w", addressID, err)
	}
	return ok, nil
}

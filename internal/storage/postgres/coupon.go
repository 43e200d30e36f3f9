package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/gamestore/internal/domain/coupon"
	"github.com/xenking/gamestore/internal/domain/page"
)

var (
	_ coupon.Repository   = (*CouponRepository)(nil)
	_ coupon.UsageChecker = (*CouponRepository)(nil)
)

// CouponRepository implements coupon.Repository and coupon.UsageChecker
// backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

const couponColumns = `id, code, discount_type, value, created_at`

func scanCoupon(row pgx.Row) (coupon.Coupon, error) {
	var c coupon.Coupon
	err := row.Scan(&c.ID, &c.Code, &c.DiscountType, &c.Value, &c.CreatedAt)
	return c, err
}

// FindByCode looks up a coupon by its normalized code. Returns
// coupon.ErrNotFound when no coupon matches.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	c, err := scanCoupon(r.pool.QueryRow(ctx, `SELECT `+couponColumns+` FROM coupons WHERE code = $1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, coupon.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &c, nil
}

func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO coupons (code, discount_type, value) VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		c.Code, c.DiscountType, c.Value,
	).Scan(&c.ID, &c.CreatedAt)
	if isUniqueViolation(err, "coupons_code_key") {
		return coupon.ErrCodeTaken
	}
	if err != nil {
		return fmt.Errorf("creating coupon %q: %w", c.Code, err)
	}
	return nil
}

var couponSort = sortSpec{
	columns: map[string]string{
		"id":        "id",
		"code":      "code",
		"type":      "discount_type",
		"value":     "value",
		"createdAt": "created_at",
	},
	fallback: "id",
	tiebreak: "id",
}

func (r *CouponRepository) List(ctx context.Context, req page.Request) ([]coupon.Coupon, int, error) {
	total, err := count(ctx, r.pool, `SELECT COUNT(*) FROM coupons`)
	if err != nil {
		return nil, 0, fmt.Errorf("counting coupons: %w", err)
	}
	rows, err := r.pool.Query(ctx, `SELECT `+couponColumns+` FROM coupons`+couponSort.clause(req, 1), req.Limit, req.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing coupons: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (coupon.Coupon, error) {
		return scanCoupon(row)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("scanning coupons: %w", err)
	}
	return out, total, nil
}

// HasUsed reports whether a usage record exists for the pair.
func (r *CouponRepository) HasUsed(ctx context.Context, userID, couponID int64) (bool, error) {
	var used bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_coupon_usage WHERE user_id = $1 AND coupon_id = $2)`,
		userID, couponID,
	).Scan(&used)
	if err != nil {
		return false, fmt.Errorf("checking coupon usage: %w", err)
	}
	return used, nil
}

// UpsertBatch inserts or updates coupons in a single batch and returns the
// number of rows written.
func (r *CouponRepository) UpsertBatch(ctx context.Context, coupons []coupon.Coupon) (int, error) {
	batch := &pgx.Batch{}
	for _, c := range coupons {
		batch.Queue(`
			INSERT INTO coupons (code, discount_type, value) VALUES ($1, $2, $3)
			ON CONFLICT (code) DO UPDATE SET discount_type = EXCLUDED.discount_type, value = EXCLUDED.value`,
			c.Code, c.DiscountType, c.Value)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	written := 0
	for _, c := range coupons {
		if _, err := br.Exec(); err != nil {
			return written, fmt.Errorf("upserting coupon %q: %w", c.Code, err)
		}
		written++
	}
	return written, nil
}

// recordCouponUsage inserts the durable redemption marker for an order.
func recordCouponUsage(ctx context.Context, q Querier, userID, couponID, orderID int64) error {
	_, err := q.Exec(ctx,
		`INSERT INTO user_coupon_usage (user_id, coupon_id, order_id) VALUES ($1, $2, $3)`,
		userID, couponID, orderID)
	if isUniqueViolation(err, "user_coupon_usage_user_id_coupon_id_key") {
		return coupon.ErrAlreadyUsed
	}
	if err != nil {
		return fmt.Errorf("recording coupon usage: %w", err)
	}
	return nil
}

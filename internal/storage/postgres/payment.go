package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/gamestore/internal/domain/order"
	"github.com/xenking/gamestore/internal/domain/page"
	"github.com/xenking/gamestore/internal/domain/payment"
)

var _ payment.Repository = (*PaymentRepository)(nil)

// PaymentRepository implements payment.Repository backed by PostgreSQL.
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository returns a PaymentRepository that uses the given pool.
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

const initiatedIndex = "payments_one_initiated_per_order_idx"

const paymentColumns = `p.id, p.order_id, p.payment_method_id, m.payment_name, p.payment_status, p.payment_price, p.payment_created`

func scanPayment(row pgx.Row) (payment.Payment, error) {
	var p payment.Payment
	err := row.Scan(&p.ID, &p.OrderID, &p.MethodID, &p.MethodName, &p.Status, &p.Amount, &p.CreatedAt)
	return p, err
}

const summaryQuery = `
	SELECT ` + paymentColumns + `, o.order_status, o.user_id, u.email
	FROM payments p
	JOIN payment_methods m ON m.id = p.payment_method_id
	JOIN orders o ON o.id = p.order_id
	JOIN users u ON u.id = o.user_id`

func scanSummary(row pgx.Row) (payment.Summary, error) {
	var s payment.Summary
	err := row.Scan(&s.ID, &s.OrderID, &s.MethodID, &s.MethodName, &s.Status, &s.Amount, &s.CreatedAt,
		&s.OrderStatus, &s.UserID, &s.UserEmail)
	return s, err
}

func (r *PaymentRepository) Get(ctx context.Context, id int64) (*payment.Summary, error) {
	s, err := scanSummary(r.pool.QueryRow(ctx, summaryQuery+` WHERE p.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, payment.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting payment %d: %w", id, err)
	}
	return &s, nil
}

var paymentSort = sortSpec{
	columns: map[string]string{
		"id":        "p.id",
		"createdAt": "p.payment_created",
		"amount":    "p.payment_price",
		"status":    "p.payment_status",
	},
	fallback: "p.id",
	tiebreak: "p.id",
}

func (r *PaymentRepository) List(ctx context.Context, st payment.Status, req page.Request) ([]payment.Summary, int, error) {
	var (
		cond string
		args []any
	)
	if st != "" {
		cond = ` WHERE p.payment_status = $1`
		args = append(args, st)
	}

	total, err := count(ctx, r.pool, `SELECT COUNT(*) FROM payments p`+cond, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("counting payments: %w", err)
	}

	rows, err := r.pool.Query(ctx, summaryQuery+cond+paymentSort.clause(req, len(args)+1),
		append(args, req.Limit, req.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing payments: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (payment.Summary, error) {
		return scanSummary(row)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("scanning payments: %w", err)
	}
	return out, total, nil
}

func (r *PaymentRepository) Methods(ctx context.Context) ([]payment.Method, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, payment_name FROM payment_methods ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing payment methods: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (payment.Method, error) {
		var m payment.Method
		err := row.Scan(&m.ID, &m.Name)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning payment methods: %w", err)
	}
	return out, nil
}

// UpsertMethod ensures a payment method exists. Used by seed-db.
func (r *PaymentRepository) UpsertMethod(ctx context.Context, name string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO payment_methods (payment_name) VALUES ($1) ON CONFLICT DO NOTHING`, name)
	if err != nil {
		return fmt.Errorf("upserting payment method %q: %w", name, err)
	}
	return nil
}

// paymentTx implements payment.Tx on a pgx transaction.
type paymentTx struct {
	q Querier
}

var _ payment.Tx = paymentTx{}

func (t paymentTx) Grant(ctx context.Context, userID, appID int64, orderID *int64) (bool, error) {
	return grantApp(ctx, t.q, userID, appID, orderID)
}

func (t paymentTx) LockOrder(ctx context.Context, orderID int64) (*order.Order, error) {
	return getOrder(ctx, t.q, orderID, true)
}

func (t paymentTx) UpdateOrderStatus(ctx context.Context, orderID int64, st order.Status) error {
	return updateOrderStatus(ctx, t.q, orderID, st)
}

func (t paymentTx) MethodByName(ctx context.Context, name string) (*payment.Method, error) {
	var m payment.Method
	err := t.q.QueryRow(ctx,
		`SELECT id, payment_name FROM payment_methods WHERE LOWER(payment_name) = LOWER($1)`, name,
	).Scan(&m.ID, &m.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, payment.ErrMethodNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding payment method %q: %w", name, err)
	}
	return &m, nil
}

// LatestForOrder orders by id, which is a monotonic sequence, so ties on
// payment_created cannot make the answer ambiguous.
func (t paymentTx) LatestForOrder(ctx context.Context, orderID int64) (*payment.Payment, error) {
	p, err := scanPayment(t.q.QueryRow(ctx, `
		SELECT `+paymentColumns+`
		FROM payments p
		JOIN payment_methods m ON m.id = p.payment_method_id
		WHERE p.order_id = $1
		ORDER BY p.id DESC
		LIMIT 1`, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, payment.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting latest payment of order %d: %w", orderID, err)
	}
	return &p, nil
}

func (t paymentTx) Create(ctx context.Context, p *payment.Payment) error {
	err := t.q.QueryRow(ctx, `
		INSERT INTO payments (order_id, payment_method_id, payment_status, payment_price)
		VALUES ($1, $2, $3, $4)
		RETURNING id, payment_created`,
		p.OrderID, p.MethodID, p.Status, p.Amount,
	).Scan(&p.ID, &p.CreatedAt)
	if isUniqueViolation(err, initiatedIndex) {
		return payment.ErrInitiatedExists
	}
	if err != nil {
		return fmt.Errorf("creating payment for order %d: %w", p.OrderID, err)
	}
	return nil
}

func (t paymentTx) GetPayment(ctx context.Context, id int64, lock bool) (*payment.Payment, error) {
	sql := `SELECT ` + paymentColumns + `
		FROM payments p
		JOIN payment_methods m ON m.id = p.payment_method_id
		WHERE p.id = $1`
	if lock {
		sql += ` FOR UPDATE OF p`
	}
	p, err := scanPayment(t.q.QueryRow(ctx, sql, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, payment.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting payment %d: %w", id, err)
	}
	return &p, nil
}

func (t paymentTx) SetStatus(ctx context.Context, id int64, st payment.Status) (*payment.Payment, error) {
	p, err := scanPayment(t.q.QueryRow(ctx, `
		WITH p AS (
			UPDATE payments SET payment_status = $2 WHERE id = $1
			RETURNING id, order_id, payment_method_id, payment_status, payment_price, payment_created
		)
		SELECT `+paymentColumns+`
		FROM p
		JOIN payment_methods m ON m.id = p.payment_method_id`,
		id, st))
	if isUniqueViolation(err, initiatedIndex) {
		return nil, payment.ErrInitiatedExists
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, payment.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("setting status of payment %d: %w", id, err)
	}
	return &p, nil
}

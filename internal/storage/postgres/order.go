package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/gamestore/internal/domain/order"
	"github.com/xenking/gamestore/internal/domain/page"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

const orderColumns = `id, user_id, subtotal, discount_amount, COALESCE(discount_code, ''), total_price,
	order_status, billing_address_id, created_at, updated_at`

func scanOrder(row pgx.Row) (order.Order, error) {
	var o order.Order
	err := row.Scan(&o.ID, &o.UserID, &o.Subtotal, &o.DiscountAmount, &o.DiscountCode, &o.TotalPrice,
		&o.Status, &o.BillingAddressID, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	return getOrder(ctx, r.pool, id, false)
}

// getOrder loads an order and its line items. With lock set the order row is
// held FOR UPDATE until the surrounding transaction ends.
func getOrder(ctx context.Context, q Querier, id int64, lock bool) (*order.Order, error) {
	sql := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if lock {
		sql += ` FOR UPDATE`
	}
	o, err := scanOrder(q.QueryRow(ctx, sql, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, order.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}

	items, err := orderItems(ctx, q, []int64{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	return &o, nil
}

func orderItems(ctx context.Context, q Querier, orderIDs []int64) (map[int64][]order.LineItem, error) {
	rows, err := q.Query(ctx, `
		SELECT oi.order_id, oi.app_id, g.name, oi.price_final
		FROM order_items oi
		JOIN games g ON g.app_id = oi.app_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.order_id, oi.id`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("getting order items: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]order.LineItem, len(orderIDs))
	for rows.Next() {
		var (
			orderID int64
			it      order.LineItem
		)
		if err := rows.Scan(&orderID, &it.AppID, &it.Name, &it.PriceFinal); err != nil {
			return nil, fmt.Errorf("scanning order item: %w", err)
		}
		out[orderID] = append(out[orderID], it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading order items: %w", err)
	}
	return out, nil
}

var orderSort = sortSpec{
	columns: map[string]string{
		"id":        "id",
		"createdAt": "created_at",
		"total":     "total_price",
		"status":    "order_status",
	},
	fallback: "created_at",
	tiebreak: "id",
}

func (r *OrderRepository) List(ctx context.Context, f order.Filter, req page.Request) ([]order.Order, int, error) {
	var (
		where []string
		args  []any
	)
	if f.UserID != 0 {
		args = append(args, f.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("order_status = $%d", len(args)))
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	total, err := count(ctx, r.pool, `SELECT COUNT(*) FROM orders`+cond, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("counting orders: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders`+cond+orderSort.clause(req, len(args)+1),
		append(args, req.Limit, req.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.Order, error) {
		return scanOrder(row)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("scanning orders: %w", err)
	}
	if len(orders) == 0 {
		return orders, total, nil
	}

	ids := make([]int64, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
	}
	items, err := orderItems(ctx, r.pool, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, total, nil
}

// insertOrder writes the order row and its line items.
func insertOrder(ctx context.Context, q Querier, o *order.Order) error {
	var code *string
	if o.DiscountCode != "" {
		code = &o.DiscountCode
	}
	err := q.QueryRow(ctx, `
		INSERT INTO orders (user_id, subtotal, discount_amount, discount_code, total_price, order_status, billing_address_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		o.UserID, o.Subtotal, o.DiscountAmount, code, o.TotalPrice, o.Status, o.BillingAddressID,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting order: %w", err)
	}

	appIDs := make([]int64, len(o.Items))
	prices := make([]string, len(o.Items))
	for i, it := range o.Items {
		appIDs[i] = it.AppID
		prices[i] = it.PriceFinal.String()
	}
	_, err = q.Exec(ctx, `
		INSERT INTO order_items (order_id, app_id, price_final)
		SELECT $1, t.app_id, t.price::numeric
		FROM unnest($2::bigint[], $3::text[]) AS t(app_id, price)`,
		o.ID, appIDs, prices)
	if err != nil {
		return fmt.Errorf("inserting order items: %w", err)
	}
	return nil
}

func updateOrderStatus(ctx context.Context, q Querier, id int64, st order.Status) error {
	tag, err := q.Exec(ctx, `UPDATE orders SET order_status = $2, updated_at = NOW() WHERE id = $1`, id, st)
	if err != nil {
		return fmt.Errorf("updating status of order %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

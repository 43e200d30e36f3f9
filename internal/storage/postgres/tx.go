package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/gamestore/internal/domain/order"
	"github.com/xenking/gamestore/internal/domain/payment"
)

var (
	_ order.TxManager   = (*OrderTxManager)(nil)
	_ payment.TxManager = (*PaymentTxManager)(nil)
)

// OrderTxManager runs checkout writes in one transaction.
type OrderTxManager struct {
	pool *pgxpool.Pool
}

// NewOrderTxManager returns an OrderTxManager that uses the given pool.
func NewOrderTxManager(pool *pgxpool.Pool) *OrderTxManager {
	return &OrderTxManager{pool: pool}
}

func (m *OrderTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context, tx order.Tx) error) error {
	return inTx(ctx, m.pool, func(tx pgx.Tx) error {
		return fn(ctx, orderTx{q: tx})
	})
}

// PaymentTxManager runs ledger operations in one transaction.
type PaymentTxManager struct {
	pool *pgxpool.Pool
}

// NewPaymentTxManager returns a PaymentTxManager that uses the given pool.
func NewPaymentTxManager(pool *pgxpool.Pool) *PaymentTxManager {
	return &PaymentTxManager{pool: pool}
}

func (m *PaymentTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context, tx payment.Tx) error) error {
	return inTx(ctx, m.pool, func(tx pgx.Tx) error {
		return fn(ctx, paymentTx{q: tx})
	})
}

// orderTx implements order.Tx on a pgx transaction.
type orderTx struct {
	q Querier
}

var _ order.Tx = orderTx{}

func (t orderTx) CreateOrder(ctx context.Context, o *order.Order) error {
	return insertOrder(ctx, t.q, o)
}

func (t orderTx) RecordCouponUsage(ctx context.Context, userID, couponID, orderID int64) error {
	return recordCouponUsage(ctx, t.q, userID, couponID, orderID)
}

func (t orderTx) RemoveFromCart(ctx context.Context, userID int64, appIDs []int64) error {
	return removeFromCart(ctx, t.q, userID, appIDs)
}

// Package payment records settlement attempts for orders and drives the order
// status and library grants from payment status changes.
package payment

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/gamestore/internal/apperr"
	"github.com/xenking/gamestore/internal/domain/library"
	"github.com/xenking/gamestore/internal/domain/order"
	"github.com/xenking/gamestore/internal/domain/page"
)

// Status is the state of a payment attempt.
type Status string

const (
	StatusInitiated  Status = "initiated"
	StatusAuthorized Status = "authorized"
	StatusCaptured   Status = "captured"
	StatusFailed     Status = "failed"
	StatusRefunded   Status = "refunded"
	StatusCanceled   Status = "canceled"
)

// ParseStatus validates a client supplied status.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusInitiated, StatusAuthorized, StatusCaptured, StatusFailed, StatusRefunded, StatusCanceled:
		return st, nil
	}
	return "", apperr.Newf(apperr.Validation, "invalid payment status %q", s)
}

// OrderStatusFor maps a payment status to the order status it implies. The
// second result is false for initiated, which leaves the order untouched.
func OrderStatusFor(s Status) (order.Status, bool) {
	switch s {
	case StatusAuthorized, StatusCaptured:
		return order.StatusPaid, true
	case StatusCanceled:
		return order.StatusCanceled, true
	case StatusFailed:
		return order.StatusFailed, true
	case StatusRefunded:
		return order.StatusRefunded, true
	}
	return "", false
}

var (
	ErrNotFound       = apperr.New(apperr.NotFound, "payment not found")
	ErrMethodNotFound = apperr.New(apperr.PaymentMethodNotFound, "payment method not found")
	ErrExists         = apperr.New(apperr.PaymentExists, "a payment already exists for this order")
	// ErrInitiatedExists is returned by storage when a write would create a
	// second initiated payment for an order.
	ErrInitiatedExists = apperr.New(apperr.PaymentExists, "order already has an initiated payment")
)

// Method is a supported way to pay.
type Method struct {
	ID   int64
	Name string
}

// Payment is one attempt to settle an order's total.
type Payment struct {
	ID         int64
	OrderID    int64
	MethodID   int64
	MethodName string
	Status     Status
	Amount     decimal.Decimal
	CreatedAt  time.Time
}

// Summary is a payment joined with its order and buyer for admin views.
type Summary struct {
	Payment
	OrderStatus order.Status
	UserID      int64
	UserEmail   string
}

// Tx is the set of reads and writes the ledger performs atomically.
type Tx interface {
	library.Granter

	// LockOrder returns the order with its line items and holds a row lock
	// until the transaction ends. It returns order.ErrNotFound when absent.
	LockOrder(ctx context.Context, orderID int64) (*order.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status order.Status) error

	// MethodByName matches case-insensitively and returns ErrMethodNotFound.
	MethodByName(ctx context.Context, name string) (*Method, error)
	// LatestForOrder returns the payment with the highest ID for the order,
	// or ErrNotFound.
	LatestForOrder(ctx context.Context, orderID int64) (*Payment, error)
	// Create inserts p and sets ID and CreatedAt. It returns
	// ErrInitiatedExists when the order already has an initiated payment.
	Create(ctx context.Context, p *Payment) error

	// GetPayment returns ErrNotFound when absent. When lock is set the row
	// stays locked until the transaction ends.
	GetPayment(ctx context.Context, id int64, lock bool) (*Payment, error)
	// SetStatus returns ErrInitiatedExists under the same rule as Create.
	SetStatus(ctx context.Context, id int64, status Status) (*Payment, error)
}

// TxManager runs fn in a transaction that commits only when fn returns nil.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Repository provides admin reads.
type Repository interface {
	// Get returns ErrNotFound when absent.
	Get(ctx context.Context, id int64) (*Summary, error)
	// List returns payments, optionally restricted to one status.
	List(ctx context.Context, status Status, req page.Request) ([]Summary, int, error)
	Methods(ctx context.Context) ([]Method, error)
}

// Package order implements checkout: it turns a cart selection into a pending
// order with captured prices and an optional coupon discount.
package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/gamestore/internal/apperr"
	"github.com/xenking/gamestore/internal/domain/page"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending  Status = "pending"
	StatusPaid     Status = "paid"
	StatusCanceled Status = "canceled"
	StatusFailed   Status = "failed"
	StatusRefunded Status = "refunded"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusCanceled, StatusFailed, StatusRefunded:
		return true
	}
	return false
}

var transitions = map[Status][]Status{
	StatusPending: {StatusPaid, StatusFailed, StatusCanceled, StatusRefunded},
	StatusPaid:    {StatusCanceled, StatusRefunded},
}

// CanTransition reports whether an order may move from one status to
// another. Nothing ever returns to pending, and failed, canceled and refunded
// are terminal.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition validates a status change. It returns false without error when
// the order is already in the target status.
func Transition(from, to Status) (bool, error) {
	if from == to {
		return false, nil
	}
	if !CanTransition(from, to) {
		return false, apperr.Newf(apperr.InvalidStatus, "order cannot move from %s to %s", from, to)
	}
	return true, nil
}

var (
	ErrNotFound       = apperr.New(apperr.NotFound, "order not found")
	ErrEmptySelection = apperr.New(apperr.Validation, "at least one game must be selected")
	ErrNotPending     = apperr.New(apperr.InvalidStatus, "order is not pending")
	ErrAddressUnknown = apperr.New(apperr.NotFound, "billing address not found")
)

// LineItem is one purchased title with the price captured at checkout.
type LineItem struct {
	AppID      int64
	Name       string
	PriceFinal decimal.Decimal
}

// Order is an immutable checkout snapshot. Only its status changes after
// creation.
type Order struct {
	ID               int64
	UserID           int64
	Items            []LineItem
	Subtotal         decimal.Decimal
	DiscountAmount   decimal.Decimal
	DiscountCode     string
	TotalPrice       decimal.Decimal
	Status           Status
	BillingAddressID *int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// AppIDs returns the app IDs of the line items in order.
func (o *Order) AppIDs() []int64 {
	ids := make([]int64, len(o.Items))
	for i, it := range o.Items {
		ids[i] = it.AppID
	}
	return ids
}

// Filter narrows admin listings.
type Filter struct {
	UserID int64
	Status Status
}

// Repository reads orders.
type Repository interface {
	// GetByID returns the order with its line items, or ErrNotFound.
	GetByID(ctx context.Context, id int64) (*Order, error)
	List(ctx context.Context, f Filter, req page.Request) ([]Order, int, error)
}

// Tx is the set of writes checkout performs atomically.
type Tx interface {
	// CreateOrder inserts the order and its line items and sets ID,
	// CreatedAt and UpdatedAt.
	CreateOrder(ctx context.Context, o *Order) error
	// RecordCouponUsage returns coupon.ErrAlreadyUsed when the user has
	// already redeemed the coupon.
	RecordCouponUsage(ctx context.Context, userID, couponID, orderID int64) error
	RemoveFromCart(ctx context.Context, userID int64, appIDs []int64) error
}

// TxManager runs fn in a transaction that commits only when fn returns nil.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

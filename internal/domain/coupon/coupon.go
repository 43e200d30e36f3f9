// Package coupon evaluates discount codes against a user's redemption history
// and an order subtotal.
package coupon

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/gamestore/internal/apperr"
	"github.com/xenking/gamestore/internal/domain/page"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage takes value percent off the subtotal.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixedAmount takes a fixed amount off, capped at the subtotal.
	DiscountFixedAmount DiscountType = "fixed_amount"
)

// Valid reports whether t is a supported discount type.
func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountFixedAmount
}

// Reason explains why an evaluation is invalid.
type Reason string

const (
	ReasonNotFound             Reason = "NOT_FOUND"
	ReasonAlreadyUsed          Reason = "ALREADY_USED"
	ReasonInvalidConfiguration Reason = "INVALID_CONFIGURATION"
)

var (
	// ErrNotFound is returned by repositories when no coupon has the code.
	ErrNotFound = apperr.New(apperr.NotFound, "coupon not found")
	// ErrCouponInvalid aborts a checkout whose explicit coupon did not validate.
	ErrCouponInvalid = apperr.New(apperr.CouponInvalid, "coupon is not valid")
	// ErrAlreadyUsed is returned when the user has already redeemed the coupon.
	ErrAlreadyUsed = apperr.New(apperr.AlreadyUsed, "coupon already used")
	// ErrCodeTaken is returned when creating a coupon whose code exists.
	ErrCodeTaken = apperr.New(apperr.Validation, "coupon code already exists")
)

// Coupon is a named discount rule.
type Coupon struct {
	ID           int64
	Code         string
	DiscountType DiscountType
	Value        decimal.Decimal
	CreatedAt    time.Time
}

// Evaluation is the outcome of validating a code for a user and subtotal.
type Evaluation struct {
	Valid    bool
	Discount decimal.Decimal
	Reason   Reason
	// Coupon is set whenever the code exists.
	Coupon *Coupon
}

// Err converts an invalid evaluation into the error that aborts checkout.
func (e Evaluation) Err() error {
	switch {
	case e.Valid:
		return nil
	case e.Reason == ReasonAlreadyUsed:
		return ErrAlreadyUsed
	case e.Reason == ReasonInvalidConfiguration:
		return apperr.New(apperr.CouponInvalid, "coupon is misconfigured")
	default:
		return ErrCouponInvalid
	}
}

// Repository provides coupon lookup and administration.
type Repository interface {
	// FindByCode returns ErrNotFound when the code is unknown.
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	// Create returns ErrCodeTaken on a duplicate code.
	Create(ctx context.Context, c *Coupon) error
	List(ctx context.Context, req page.Request) ([]Coupon, int, error)
}

// UsageChecker reports whether a user already redeemed a coupon.
type UsageChecker interface {
	HasUsed(ctx context.Context, userID, couponID int64) (bool, error)
}

// NormalizeCode returns the canonical, upper-case form of a code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

package coupon

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Evaluator validates coupon codes. It only reads; redemption is recorded by
// checkout in the same transaction as the order.
type Evaluator struct {
	coupons Repository
	usage   UsageChecker
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(coupons Repository, usage UsageChecker) *Evaluator {
	return &Evaluator{coupons: coupons, usage: usage}
}

// Validate evaluates code for the user against subtotal. Business outcomes
// (unknown code, already redeemed, misconfigured type) are reported through
// the Evaluation; the error is reserved for storage failures.
func (e *Evaluator) Validate(ctx context.Context, code string, userID int64, subtotal decimal.Decimal) (Evaluation, error) {
	c, err := e.coupons.FindByCode(ctx, NormalizeCode(code))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Evaluation{Discount: decimal.Zero, Reason: ReasonNotFound}, nil
		}
		return Evaluation{}, errors.Wrap(err, "find coupon")
	}

	used, err := e.usage.HasUsed(ctx, userID, c.ID)
	if err != nil {
		return Evaluation{}, errors.Wrap(err, "check coupon usage")
	}
	if used {
		return Evaluation{Discount: decimal.Zero, Reason: ReasonAlreadyUsed, Coupon: c}, nil
	}

	amount, ok := Calculate(c.DiscountType, c.Value, subtotal)
	if !ok {
		return Evaluation{Discount: decimal.Zero, Reason: ReasonInvalidConfiguration, Coupon: c}, nil
	}
	return Evaluation{Valid: true, Discount: amount, Coupon: c}, nil
}

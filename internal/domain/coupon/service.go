package coupon

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/gamestore/internal/apperr"
	"github.com/xenking/gamestore/internal/domain/page"
)

// CreateRequest holds the input for creating a coupon.
type CreateRequest struct {
	Code         string
	DiscountType DiscountType
	Value        decimal.Decimal
}

// Service administers coupons.
type Service struct {
	repo Repository
}

// NewService creates a coupon admin Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create validates and stores a new coupon.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Coupon, error) {
	c := &Coupon{
		Code:         NormalizeCode(req.Code),
		DiscountType: req.DiscountType,
		Value:        req.Value,
	}
	if err := Check(c); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, errors.Wrap(err, "create coupon")
	}
	return c, nil
}

// List returns a page of coupons and the total count.
func (s *Service) List(ctx context.Context, req page.Request) ([]Coupon, int, error) {
	items, total, err := s.repo.List(ctx, req.Normalize())
	if err != nil {
		return nil, 0, errors.Wrap(err, "list coupons")
	}
	return items, total, nil
}

// Check validates a coupon definition. Codes must already be normalized.
func Check(c *Coupon) error {
	if c.Code == "" || len(c.Code) > 64 {
		return apperr.New(apperr.Validation, "coupon code must be 1 to 64 characters")
	}
	if !c.DiscountType.Valid() {
		return apperr.Newf(apperr.Validation, "unsupported discount type %q", c.DiscountType)
	}
	if !c.Value.IsPositive() {
		return apperr.New(apperr.Validation, "coupon value must be positive")
	}
	if c.DiscountType == DiscountPercentage && c.Value.GreaterThan(hundred) {
		return apperr.New(apperr.Validation, "percentage must not exceed 100")
	}
	return nil
}

package order

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/gamestore/internal/apperr"
	"github.com/xenking/gamestore/internal/domain/auth"
	"github.com/xenking/gamestore/internal/domain/catalog"
	"github.com/xenking/gamestore/internal/domain/coupon"
	"github.com/xenking/gamestore/internal/domain/page"
)

// Catalog resolves selected titles and their current prices.
type Catalog interface {
	GetByIDs(ctx context.Context, appIDs []int64) ([]catalog.Game, error)
}

// CouponEvaluator validates a coupon for a user and subtotal.
type CouponEvaluator interface {
	Validate(ctx context.Context, code string, userID int64, subtotal decimal.Decimal) (coupon.Evaluation, error)
}

// Ownership reports which titles a user already owns.
type Ownership interface {
	Owned(ctx context.Context, userID int64, appIDs []int64) ([]int64, error)
}

// Addresses checks billing address ownership.
type Addresses interface {
	BelongsTo(ctx context.Context, addressID, userID int64) (bool, error)
}

// CreateRequest holds the input for checkout.
type CreateRequest struct {
	AppIDs           []int64
	CouponCode       string
	BillingAddressID *int64
}

// Service encapsulates checkout and order reads.
type Service struct {
	catalog   Catalog
	coupons   CouponEvaluator
	owned     Ownership
	addresses Addresses
	orders    Repository
	txm       TxManager
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	catalog Catalog,
	coupons CouponEvaluator,
	owned Ownership,
	addresses Addresses,
	orders Repository,
	txm TxManager,
) *Service {
	return &Service{
		catalog:   catalog,
		coupons:   coupons,
		owned:     owned,
		addresses: addresses,
		orders:    orders,
		txm:       txm,
	}
}

// CreateOrder captures current prices for the selected titles, applies an
// explicitly supplied coupon, and persists a pending order. An invalid
// coupon aborts the checkout.
func (s *Service) CreateOrder(ctx context.Context, p auth.Principal, req CreateRequest) (*Order, error) {
	ids := dedupe(req.AppIDs)
	if len(ids) == 0 {
		return nil, ErrEmptySelection
	}
	for _, id := range ids {
		if id <= 0 {
			return nil, apperr.Newf(apperr.Validation, "invalid app id %d", id)
		}
	}

	// Batch fetch all games in a single query.
	games, err := s.catalog.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get games")
	}
	byID := make(map[int64]catalog.Game, len(games))
	for _, g := range games {
		byID[g.AppID] = g
	}

	items := make([]LineItem, 0, len(ids))
	subtotal := decimal.Zero
	for _, id := range ids {
		g, ok := byID[id]
		if !ok {
			return nil, apperr.Newf(apperr.NotFound, "game %d not found", id)
		}
		items = append(items, LineItem{AppID: id, Name: g.Name, PriceFinal: g.PriceFinal})
		subtotal = subtotal.Add(g.PriceFinal)
	}
	subtotal = subtotal.Round(2)

	owned, err := s.owned.Owned(ctx, p.UserID, ids)
	if err != nil {
		return nil, errors.Wrap(err, "check library")
	}
	if len(owned) > 0 {
		return nil, apperr.Newf(apperr.Validation, "game %d is already in your library", owned[0])
	}

	if req.BillingAddressID != nil {
		ok, err := s.addresses.BelongsTo(ctx, *req.BillingAddressID, p.UserID)
		if err != nil {
			return nil, errors.Wrap(err, "check billing address")
		}
		if !ok {
			return nil, ErrAddressUnknown
		}
	}

	// Apply coupon discount when a code is provided.
	var (
		discount = decimal.Zero
		applied  *coupon.Coupon
	)
	if code := strings.TrimSpace(req.CouponCode); code != "" {
		ev, err := s.coupons.Validate(ctx, code, p.UserID, subtotal)
		if err != nil {
			return nil, errors.Wrap(err, "validate coupon")
		}
		if err := ev.Err(); err != nil {
			return nil, err
		}
		discount = ev.Discount
		applied = ev.Coupon
	}

	o := &Order{
		UserID:           p.UserID,
		Items:            items,
		Subtotal:         subtotal,
		DiscountAmount:   discount,
		TotalPrice:       subtotal.Sub(discount).Round(2),
		Status:           StatusPending,
		BillingAddressID: req.BillingAddressID,
	}
	if applied != nil {
		o.DiscountCode = applied.Code
	}
	if o.TotalPrice.IsNegative() {
		return nil, errors.Errorf("negative total %s for subtotal %s", o.TotalPrice, subtotal)
	}

	err = s.txm.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.CreateOrder(ctx, o); err != nil {
			return errors.Wrap(err, "create order")
		}
		if applied != nil {
			if err := tx.RecordCouponUsage(ctx, p.UserID, applied.ID, o.ID); err != nil {
				return errors.Wrap(err, "record coupon usage")
			}
		}
		if err := tx.RemoveFromCart(ctx, p.UserID, ids); err != nil {
			return errors.Wrap(err, "prune cart")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// Get returns an order visible to the principal: its owner or any admin.
func (s *Service) Get(ctx context.Context, p auth.Principal, id int64) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "get order")
	}
	if o.UserID != p.UserID && !p.IsAdmin() {
		return nil, auth.ErrAccessDenied
	}
	return o, nil
}

// ListMine returns the principal's own orders.
func (s *Service) ListMine(ctx context.Context, p auth.Principal, req page.Request) ([]Order, int, error) {
	return s.list(ctx, Filter{UserID: p.UserID}, req)
}

// List returns all orders matching the filter. Admin only.
func (s *Service) List(ctx context.Context, p auth.Principal, f Filter, req page.Request) ([]Order, int, error) {
	if !p.IsAdmin() {
		return nil, 0, auth.ErrAccessDenied
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, apperr.Newf(apperr.Validation, "unknown order status %q", f.Status)
	}
	return s.list(ctx, f, req)
}

func (s *Service) list(ctx context.Context, f Filter, req page.Request) ([]Order, int, error) {
	orders, total, err := s.orders.List(ctx, f, req.Normalize())
	if err != nil {
		return nil, 0, errors.Wrap(err, "list orders")
	}
	return orders, total, nil
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

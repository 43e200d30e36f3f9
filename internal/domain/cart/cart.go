// Package cart keeps the titles a user intends to buy.
package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/gamestore/internal/apperr"
	"github.com/xenking/gamestore/internal/domain/catalog"
)

// Item is a title in the cart with its current catalog price.
type Item struct {
	AppID      int64
	Name       string
	PriceFinal decimal.Decimal
	AddedAt    time.Time
}

// Cart is the full content of a user's cart.
type Cart struct {
	Items    []Item
	Subtotal decimal.Decimal
}

// Repository stores cart items. Add is a no-op when the item is present.
type Repository interface {
	List(ctx context.Context, userID int64) ([]Item, error)
	Add(ctx context.Context, userID, appID int64) error
	Remove(ctx context.Context, userID, appID int64) error
}

// Games resolves catalog titles.
type Games interface {
	GetByID(ctx context.Context, appID int64) (*catalog.Game, error)
}

// Ownership reports which titles a user already owns.
type Ownership interface {
	Owned(ctx context.Context, userID int64, appIDs []int64) ([]int64, error)
}

// ErrOwned is returned when adding a title the user already owns.
var ErrOwned = apperr.New(apperr.Validation, "game is already in your library")

// Service manages carts.
type Service struct {
	repo  Repository
	games Games
	owned Ownership
}

// NewService creates a cart Service.
func NewService(repo Repository, games Games, owned Ownership) *Service {
	return &Service{repo: repo, games: games, owned: owned}
}

// Get returns the user's cart with a subtotal at current prices.
func (s *Service) Get(ctx context.Context, userID int64) (*Cart, error) {
	items, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list cart")
	}
	c := &Cart{Items: items, Subtotal: decimal.Zero}
	for _, it := range items {
		c.Subtotal = c.Subtotal.Add(it.PriceFinal)
	}
	c.Subtotal = c.Subtotal.Round(2)
	return c, nil
}

// Add puts a title into the cart and returns the updated cart.
func (s *Service) Add(ctx context.Context, userID, appID int64) (*Cart, error) {
	if err := checkAddable(ctx, s.games, s.owned, userID, appID); err != nil {
		return nil, err
	}
	if err := s.repo.Add(ctx, userID, appID); err != nil {
		return nil, errors.Wrap(err, "add to cart")
	}
	return s.Get(ctx, userID)
}

// Remove takes a title out of the cart and returns the updated cart.
func (s *Service) Remove(ctx context.Context, userID, appID int64) (*Cart, error) {
	if err := s.repo.Remove(ctx, userID, appID); err != nil {
		return nil, errors.Wrap(err, "remove from cart")
	}
	return s.Get(ctx, userID)
}

func checkAddable(ctx context.Context, games Games, owned Ownership, userID, appID int64) error {
	if appID <= 0 {
		return apperr.New(apperr.Validation, "appId must be positive")
	}
	if _, err := games.GetByID(ctx, appID); err != nil {
		return errors.Wrap(err, "get game")
	}
	ids, err := owned.Owned(ctx, userID, []int64{appID})
	if err != nil {
		return errors.Wrap(err, "check library")
	}
	if len(ids) > 0 {
		return ErrOwned
	}
	return nil
}

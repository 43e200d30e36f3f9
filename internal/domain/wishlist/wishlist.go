// Package wishlist keeps titles a user wants to watch.
package wishlist

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/gamestore/internal/apperr"
	"github.com/xenking/gamestore/internal/domain/catalog"
)

// Item is a wishlisted title.
type Item struct {
	AppID           int64
	Name            string
	PriceFinal      decimal.Decimal
	DiscountPercent int
	AddedAt         time.Time
}

// Repository stores wishlist items. Add is a no-op when the item is present.
type Repository interface {
	List(ctx context.Context, userID int64) ([]Item, error)
	Add(ctx context.Context, userID, appID int64) error
	Remove(ctx context.Context, userID, appID int64) error
}

// Games resolves catalog titles.
type Games interface {
	GetByID(ctx context.Context, appID int64) (*catalog.Game, error)
}

// Service manages wishlists.
type Service struct {
	repo  Repository
	games Games
}

// NewService creates a wishlist Service.
func NewService(repo Repository, games Games) *Service {
	return &Service{repo: repo, games: games}
}

func (s *Service) List(ctx context.Context, userID int64) ([]Item, error) {
	items, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list wishlist")
	}
	return items, nil
}

func (s *Service) Add(ctx context.Context, userID, appID int64) ([]Item, error) {
	if appID <= 0 {
		return nil, apperr.New(apperr.Validation, "appId must be positive")
	}
	if _, err := s.games.GetByID(ctx, appID); err != nil {
		return nil, errors.Wrap(err, "get game")
	}
	if err := s.repo.Add(ctx, userID, appID); err != nil {
		return nil, errors.Wrap(err, "add to wishlist")
	}
	return s.List(ctx, userID)
}

func (s *Service) Remove(ctx context.Context, userID, appID int64) ([]Item, error) {
	if err := s.repo.Remove(ctx, userID, appID); err != nil {
		return nil, errors.Wrap(err, "remove from wishlist")
	}
	return s.List(ctx, userID)
}

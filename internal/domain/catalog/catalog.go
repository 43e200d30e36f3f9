// Package catalog holds the purchasable games, their current prices and the
// genres and categories they are filed under.
package catalog

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/gamestore/internal/apperr"
	"github.com/xenking/gamestore/internal/domain/page"
)

// ErrNotFound is returned when a requested game does not exist.
var ErrNotFound = apperr.New(apperr.NotFound, "game not found")

// ErrExists is returned when creating a game whose app ID is taken.
var ErrExists = apperr.New(apperr.Validation, "game already exists")

// Game is a catalog title available for purchase.
type Game struct {
	AppID           int64
	Name            string
	PriceFinal      decimal.Decimal
	PriceOrg        decimal.Decimal
	DiscountPercent int
	Currency        string
	// Genres and Categories are tag names sorted by name.
	Genres     []string
	Categories []string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Tag is a genre or category a game can be filed under.
type Tag struct {
	ID   int64
	Name string
}

// Filter narrows a game listing. Genre and Category match tag names
// case-insensitively. Zero fields do not filter.
type Filter struct {
	Genre      string
	Category   string
	Discounted bool
}

// Repository defines catalog persistence.
type Repository interface {
	List(ctx context.Context, f Filter, req page.Request) ([]Game, int, error)
	// GetByID returns ErrNotFound when the game is absent.
	GetByID(ctx context.Context, appID int64) (*Game, error)
	// GetByIDs returns the games that exist; missing IDs are skipped.
	GetByIDs(ctx context.Context, appIDs []int64) ([]Game, error)
	// Create stores the game with its tags, creating unknown tag names. It
	// returns ErrExists when the app ID is taken.
	Create(ctx context.Context, g *Game) error
	// UpdatePrice returns ErrNotFound when the game is absent.
	UpdatePrice(ctx context.Context, appID int64, priceFinal decimal.Decimal, discountPercent int) (*Game, error)
	Genres(ctx context.Context) ([]Tag, error)
	Categories(ctx context.Context) ([]Tag, error)
}

// Service exposes catalog browsing and administration.
type Service struct {
	repo Repository
}

// NewService creates a catalog Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns a page of games matching f and the total count. Discounted
// listings without an explicit sort put the deepest discounts first.
func (s *Service) List(ctx context.Context, f Filter, req page.Request) ([]Game, int, error) {
	f.Genre = strings.TrimSpace(f.Genre)
	f.Category = strings.TrimSpace(f.Category)
	if f.Discounted && req.SortBy == "" {
		req.SortBy = "discount"
		req.Desc = true
	}
	games, total, err := s.repo.List(ctx, f, req.Normalize())
	if err != nil {
		return nil, 0, errors.Wrap(err, "list games")
	}
	return games, total, nil
}

// Genres returns every genre ordered by name.
func (s *Service) Genres(ctx context.Context) ([]Tag, error) {
	tags, err := s.repo.Genres(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list genres")
	}
	return tags, nil
}

// Categories returns every category ordered by name.
func (s *Service) Categories(ctx context.Context) ([]Tag, error) {
	tags, err := s.repo.Categories(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list categories")
	}
	return tags, nil
}

// Get returns a single game.
func (s *Service) Get(ctx context.Context, appID int64) (*Game, error) {
	g, err := s.repo.GetByID(ctx, appID)
	if err != nil {
		return nil, errors.Wrap(err, "get game")
	}
	return g, nil
}

// Create validates and stores a new game.
func (s *Service) Create(ctx context.Context, g Game) (*Game, error) {
	g.Name = strings.TrimSpace(g.Name)
	g.Currency = strings.ToUpper(strings.TrimSpace(g.Currency))
	if g.Currency == "" {
		g.Currency = "USD"
	}
	if g.PriceOrg.IsZero() {
		g.PriceOrg = g.PriceFinal
	}
	switch {
	case g.AppID <= 0:
		return nil, apperr.New(apperr.Validation, "app_id must be positive")
	case g.Name == "":
		return nil, apperr.New(apperr.Validation, "name is required")
	case len(g.Currency) != 3:
		return nil, apperr.New(apperr.Validation, "currency must be a 3-letter code")
	}
	if err := checkPrice(g.PriceFinal, g.DiscountPercent); err != nil {
		return nil, err
	}
	if g.PriceOrg.IsNegative() {
		return nil, apperr.New(apperr.Validation, "original price must not be negative")
	}

	g.PriceFinal = g.PriceFinal.Round(2)
	g.PriceOrg = g.PriceOrg.Round(2)
	g.Genres = NormalizeTags(g.Genres)
	g.Categories = NormalizeTags(g.Categories)
	if err := s.repo.Create(ctx, &g); err != nil {
		return nil, errors.Wrap(err, "create game")
	}
	return &g, nil
}

// UpdatePrice changes the current price of a game. Orders already placed keep
// the price captured at checkout.
func (s *Service) UpdatePrice(ctx context.Context, appID int64, priceFinal decimal.Decimal, discountPercent int) (*Game, error) {
	if err := checkPrice(priceFinal, discountPercent); err != nil {
		return nil, err
	}
	g, err := s.repo.UpdatePrice(ctx, appID, priceFinal.Round(2), discountPercent)
	if err != nil {
		return nil, errors.Wrap(err, "update price")
	}
	return g, nil
}

// NormalizeTags trims tag names, drops empty ones and removes duplicates that
// differ only in case, keeping the first spelling. The result is sorted.
func NormalizeTags(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		key := strings.ToLower(n)
		if n == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

func checkPrice(price decimal.Decimal, discountPercent int) error {
	if price.IsNegative() {
		return apperr.New(apperr.Validation, "price must not be negative")
	}
	if discountPercent < 0 || discountPercent > 100 {
		return apperr.New(apperr.Validation, "discount_percent must be between 0 and 100")
	}
	return nil
}

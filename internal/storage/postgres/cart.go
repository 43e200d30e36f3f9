package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/gamestore/internal/domain/cart"
	"github.com/xenking/gamestore/internal/domain/wishlist"
)

var (
	_ cart.Repository     = (*CartRepository)(nil)
	_ wishlist.Repository = (*WishlistRepository)(nil)
)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

func (r *CartRepository) List(ctx context.Context, userID int64) ([]cart.Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.app_id, g.name, g.price_final, c.added_at
		FROM cart_items c
		JOIN games g ON g.app_id = c.app_id
		WHERE c.user_id = $1
		ORDER BY c.added_at, c.app_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing cart of user %d: %w", userID, err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (cart.Item, error) {
		var it cart.Item
		err := row.Scan(&it.AppID, &it.Name, &it.PriceFinal, &it.AddedAt)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning cart: %w", err)
	}
	return items, nil
}

func (r *CartRepository) Add(ctx context.Context, userID, appID int64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO cart_items (user_id, app_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userID, appID)
	if err != nil {
		return fmt.Errorf("adding app %d to cart: %w", appID, err)
	}
	return nil
}

func (r *CartRepository) Remove(ctx context.Context, userID, appID int64) error {
	return removeFromCart(ctx, r.pool, userID, []int64{appID})
}

func removeFromCart(ctx context.Context, q Querier, userID int64, appIDs []int64) error {
	_, err := q.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1 AND app_id = ANY($2)`, userID, appIDs)
	if err != nil {
		return fmt.Errorf("removing apps from cart of user %d: %w", userID, err)
	}
	return nil
}

// WishlistRepository implements wishlist.Repository backed by PostgreSQL.
type WishlistRepository struct {
	pool *pgxpool.Pool
}

// NewWishlistRepository returns a WishlistRepository that uses the given pool.
func NewWishlistRepository(pool *pgxpool.Pool) *WishlistRepository {
	return &WishlistRepository{pool: pool}
}

func (r *WishlistRepository) List(ctx context.Context, userID int64) ([]wishlist.Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT w.app_id, g.name, g.price_final, g.discount_percent, w.added_at
		FROM user_wishlist_items w
		JOIN games g ON g.app_id = w.app_id
		WHERE w.user_id = $1
		ORDER BY w.added_at DESC, w.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing wishlist of user %d: %w", userID, err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (wishlist.Item, error) {
		var it wishlist.Item
		err := row.Scan(&it.AppID, &it.Name, &it.PriceFinal, &it.DiscountPercent, &it.AddedAt)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning wishlist: %w", err)
	}
	return items, nil
}

func (r *WishlistRepository) Add(ctx context.Context, userID, appID int64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_wishlist_items (user_id, app_id) VALUES ($1, $2) ON CONFLICT (user_id, app_id) DO NOTHING`,
		userID, appID)
	if err != nil {
		return fmt.Errorf("adding app %d to wishlist: %w", appID, err)
	}
	return nil
}

func (r *WishlistRepository) Remove(ctx context.Context, userID, appID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM user_wishlist_items WHERE user_id = $1 AND app_id = $2`, userID, appID)
	if err != nil {
		return fmt.Errorf("removing app %d from wishlist: %w", appID, err)
	}
	return nil
}

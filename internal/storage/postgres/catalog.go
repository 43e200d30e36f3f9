package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/gamestore/internal/domain/catalog"
	"github.com/xenking/gamestore/internal/domain/page"
)

var _ catalog.Repository = (*GameRepository)(nil)

// GameRepository implements catalog.Repository backed by PostgreSQL.
type GameRepository struct {
	pool *pgxpool.Pool
}

// NewGameRepository returns a GameRepository that uses the given pool.
func NewGameRepository(pool *pgxpool.Pool) *GameRepository {
	return &GameRepository{pool: pool}
}

const gameColumns = `app_id, name, price_final, price_org, discount_percent, price_currency, created_at, updated_at`

// tagColumns appends the sorted genre and category names of games.app_id.
const tagColumns = `,
	ARRAY(SELECT ge.name FROM game_genres gg JOIN genres ge ON ge.id = gg.genre_id
		WHERE gg.app_id = games.app_id ORDER BY ge.name),
	ARRAY(SELECT c.name FROM game_categories gc JOIN categories c ON c.id = gc.category_id
		WHERE gc.app_id = games.app_id ORDER BY c.name)`

func scanGame(row pgx.Row) (catalog.Game, error) {
	var g catalog.Game
	err := row.Scan(&g.AppID, &g.Name, &g.PriceFinal, &g.PriceOrg, &g.DiscountPercent, &g.Currency, &g.CreatedAt, &g.UpdatedAt)
	return g, err
}

func scanTaggedGame(row pgx.Row) (catalog.Game, error) {
	var g catalog.Game
	err := row.Scan(&g.AppID, &g.Name, &g.PriceFinal, &g.PriceOrg, &g.DiscountPercent, &g.Currency, &g.CreatedAt, &g.UpdatedAt,
		&g.Genres, &g.Categories)
	return g, err
}

var gameSort = sortSpec{
	columns: map[string]string{
		"appId":     "app_id",
		"name":      "name",
		"price":     "price_final",
		"discount":  "discount_percent",
		"createdAt": "created_at",
	},
	fallback: "app_id",
	tiebreak: "app_id",
}

func (r *GameRepository) List(ctx context.Context, f catalog.Filter, req page.Request) ([]catalog.Game, int, error) {
	var (
		where []string
		args  []any
	)
	if f.Genre != "" {
		args = append(args, f.Genre)
		where = append(where, fmt.Sprintf(`EXISTS (
			SELECT 1 FROM game_genres gg JOIN genres ge ON ge.id = gg.genre_id
			WHERE gg.app_id = games.app_id AND LOWER(ge.name) = LOWER($%d))`, len(args)))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		where = append(where, fmt.Sprintf(`EXISTS (
			SELECT 1 FROM game_categories gc JOIN categories c ON c.id = gc.category_id
			WHERE gc.app_id = games.app_id AND LOWER(c.name) = LOWER($%d))`, len(args)))
	}
	if f.Discounted {
		where = append(where, "discount_percent > 0")
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	total, err := count(ctx, r.pool, `SELECT COUNT(*) FROM games`+cond, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("counting games: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+gameColumns+tagColumns+` FROM games`+cond+gameSort.clause(req, len(args)+1),
		append(args, req.Limit, req.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing games: %w", err)
	}
	games, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.Game, error) {
		return scanTaggedGame(row)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("scanning games: %w", err)
	}
	return games, total, nil
}

func (r *GameRepository) GetByID(ctx context.Context, appID int64) (*catalog.Game, error) {
	g, err := scanTaggedGame(r.pool.QueryRow(ctx, `SELECT `+gameColumns+tagColumns+` FROM games WHERE app_id = $1`, appID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting game %d: %w", appID, err)
	}
	return &g, nil
}

// GetByIDs fetches all games matching the given IDs in a single query.
func (r *GameRepository) GetByIDs(ctx context.Context, appIDs []int64) ([]catalog.Game, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+gameColumns+` FROM games WHERE app_id = ANY($1)`, appIDs)
	if err != nil {
		return nil, fmt.Errorf("getting games by ids: %w", err)
	}
	games, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.Game, error) {
		return scanGame(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scanning games: %w", err)
	}
	return games, nil
}

func (r *GameRepository) Create(ctx context.Context, g *catalog.Game) error {
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO games (app_id, name, price_final, price_org, discount_percent, price_currency)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING created_at, updated_at`,
			g.AppID, g.Name, g.PriceFinal, g.PriceOrg, g.DiscountPercent, g.Currency,
		).Scan(&g.CreatedAt, &g.UpdatedAt)
		if err != nil {
			return err
		}
		return writeTags(ctx, tx, g)
	})
	if isUniqueViolation(err, "games_pkey") {
		return catalog.ErrExists
	}
	if err != nil {
		return fmt.Errorf("creating game %d: %w", g.AppID, err)
	}
	return nil
}

// Upsert inserts or refreshes a game and replaces its tags. Used by seed-db.
func (r *GameRepository) Upsert(ctx context.Context, g *catalog.Game) error {
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO games (app_id, name, price_final, price_org, discount_percent, price_currency)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (app_id) DO UPDATE SET
				name = EXCLUDED.name,
				price_final = EXCLUDED.price_final,
				price_org = EXCLUDED.price_org,
				discount_percent = EXCLUDED.discount_percent,
				price_currency = EXCLUDED.price_currency,
				updated_at = NOW()`,
			g.AppID, g.Name, g.PriceFinal, g.PriceOrg, g.DiscountPercent, g.Currency,
		)
		if err != nil {
			return err
		}
		return writeTags(ctx, tx, g)
	})
	if err != nil {
		return fmt.Errorf("upserting game %d: %w", g.AppID, err)
	}
	return nil
}

type tagTable struct {
	table, join, column string
}

var (
	genreTags    = tagTable{table: "genres", join: "game_genres", column: "genre_id"}
	categoryTags = tagTable{table: "categories", join: "game_categories", column: "category_id"}
)

// writeTags replaces the genre and category links of g, creating missing tag
// rows by name.
func writeTags(ctx context.Context, tx pgx.Tx, g *catalog.Game) error {
	for _, t := range []struct {
		tagTable
		names []string
	}{
		{genreTags, g.Genres},
		{categoryTags, g.Categories},
	} {
		if _, err := tx.Exec(ctx, `DELETE FROM `+t.join+` WHERE app_id = $1`, g.AppID); err != nil {
			return fmt.Errorf("clearing %s: %w", t.table, err)
		}
		if len(t.names) == 0 {
			continue
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO `+t.table+` (name) SELECT unnest($1::text[]) ON CONFLICT (name) DO NOTHING`,
			t.names,
		); err != nil {
			return fmt.Errorf("creating %s: %w", t.table, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO `+t.join+` (app_id, `+t.column+`)
			SELECT $1, id FROM `+t.table+` WHERE name = ANY($2::text[])
			ON CONFLICT DO NOTHING`,
			g.AppID, t.names,
		); err != nil {
			return fmt.Errorf("linking %s: %w", t.table, err)
		}
	}
	return nil
}

func (r *GameRepository) Genres(ctx context.Context) ([]catalog.Tag, error) {
	return r.tags(ctx, genreTags)
}

func (r *GameRepository) Categories(ctx context.Context) ([]catalog.Tag, error) {
	return r.tags(ctx, categoryTags)
}

func (r *GameRepository) tags(ctx context.Context, t tagTable) ([]catalog.Tag, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM `+t.table+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", t.table, err)
	}
	tags, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.Tag, error) {
		var tag catalog.Tag
		err := row.Scan(&tag.ID, &tag.Name)
		return tag, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", t.table, err)
	}
	return tags, nil
}

func (r *GameRepository) UpdatePrice(ctx context.Context, appID int64, priceFinal decimal.Decimal, discountPercent int) (*catalog.Game, error) {
	g, err := scanTaggedGame(r.pool.QueryRow(ctx, `
		UPDATE games SET price_final = $2, discount_percent = $3, updated_at = NOW()
		WHERE app_id = $1
		RETURNING `+gameColumns+tagColumns,
		appID, priceFinal, discountPercent,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updating price of game %d: %w", appID, err)
	}
	return &g, nil
}

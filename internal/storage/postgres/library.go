package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/gamestore/internal/domain/library"
	"github.com/xenking/gamestore/internal/domain/page"
)

var _ library.Repository = (*LibraryRepository)(nil)

// LibraryRepository implements library.Repository backed by PostgreSQL.
type LibraryRepository struct {
	pool *pgxpool.Pool
}

// NewLibraryRepository returns a LibraryRepository that uses the given pool.
func NewLibraryRepository(pool *pgxpool.Pool) *LibraryRepository {
	return &LibraryRepository{pool: pool}
}

var librarySort = sortSpec{
	columns: map[string]string{
		"addedAt": "l.added_at",
		"name":    "g.name",
		"appId":   "l.app_id",
	},
	fallback: "l.added_at",
	tiebreak: "l.id",
}

func (r *LibraryRepository) List(ctx context.Context, userID int64, req page.Request) ([]library.Entry, int, error) {
	total, err := count(ctx, r.pool, `SELECT COUNT(*) FROM user_game_library WHERE user_id = $1`, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("counting library of user %d: %w", userID, err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT l.user_id, l.app_id, g.name, l.order_id, l.added_at
		FROM user_game_library l
		JOIN games g ON g.app_id = l.app_id
		WHERE l.user_id = $1`+librarySort.clause(req, 2),
		userID, req.Limit, req.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing library of user %d: %w", userID, err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (library.Entry, error) {
		var e library.Entry
		err := row.Scan(&e.UserID, &e.AppID, &e.Name, &e.OrderID, &e.AddedAt)
		return e, err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("scanning library: %w", err)
	}
	return entries, total, nil
}

func (r *LibraryRepository) Owned(ctx context.Context, userID int64, appIDs []int64) ([]int64, error) {
	return ownedApps(ctx, r.pool, userID, appIDs)
}

func ownedApps(ctx context.Context, q Querier, userID int64, appIDs []int64) ([]int64, error) {
	rows, err := q.Query(ctx,
		`SELECT app_id FROM user_game_library WHERE user_id = $1 AND app_id = ANY($2) ORDER BY app_id`,
		userID, appIDs)
	if err != nil {
		return nil, fmt.Errorf("checking owned apps: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("scanning owned apps: %w", err)
	}
	return ids, nil
}

// grantApp inserts a library entry unless the user already owns the title.
// The unique (user_id, app_id) constraint makes concurrent grants safe.
func grantApp(ctx context.Context, q Querier, userID, appID int64, orderID *int64) (bool, error) {
	tag, err := q.Exec(ctx, `
		INSERT INTO user_game_library (user_id, app_id, order_id) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, app_id) DO NOTHING`,
		userID, appID, orderID)
	if err != nil {
		return false, fmt.Errorf("granting app %d to user %d: %w", appID, userID, err)
	}
	return tag.RowsAffected() == 1, nil
}
